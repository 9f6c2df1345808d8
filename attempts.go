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

package hookguard

import (
	"context"

	"github.com/hookguard/hookguard/model"
)

// GetAttempt fetches a single attempt record by id.
func (h *Hookguard) GetAttempt(ctx context.Context, id string) (*model.AttemptRecord, error) {
	return h.datasource.GetAttemptByID(ctx, id)
}

// ListAttempts returns attempt records matching the filter, newest first.
func (h *Hookguard) ListAttempts(ctx context.Context, filter model.AttemptFilter) ([]model.AttemptRecord, error) {
	return h.datasource.ListAttempts(ctx, filter)
}
