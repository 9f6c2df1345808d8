/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"time"

	"github.com/hookguard/hookguard/model"
)

// IDataSource defines the interface for data source operations.
type IDataSource interface {
	attempt
}

// attempt defines methods for handling webhook attempt records.
type attempt interface {
	RecordAttempt(ctx context.Context, record *model.AttemptRecord) (*model.AttemptRecord, error)             // Inserts an immutable attempt row
	GetAttemptByID(ctx context.Context, id string) (*model.AttemptRecord, error)                              // Retrieves an attempt by its id
	GetAttemptByExternalID(ctx context.Context, service, externalID string) (*model.AttemptRecord, error)     // Fast-path dedup lookup; nil when absent
	ListAttempts(ctx context.Context, filter model.AttemptFilter) ([]model.AttemptRecord, error)              // Filtered, paginated listing
	CountRecentFailures(ctx context.Context, service, event string, window time.Duration) (int, error)        // Failure count in a trailing window
	GetLatestFailedAttempt(ctx context.Context, service, event string) (*model.AttemptRecord, error)          // Most recent failed attempt for a pair
}
