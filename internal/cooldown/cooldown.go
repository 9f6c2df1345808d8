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

// Package cooldown rate-limits alert notifications per (service, event)
// pair through expiring Redis tokens.
package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	client redis.UniversalClient
}

func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func key(service, event string) string {
	return fmt.Sprintf("cooldown:%s:%s", service, event)
}

// Acquire writes the cooldown token only if absent and reports whether this
// caller set it. SetNX makes the check-and-write a single atomic operation,
// so two concurrent callers cannot both win the gate.
func (s *Store) Acquire(ctx context.Context, service, event string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key(service, event), time.Now().Unix(), ttl).Result()
}

// Active reports whether an unexpired token exists for the pair.
func (s *Store) Active(ctx context.Context, service, event string) (bool, error) {
	n, err := s.client.Exists(ctx, key(service, event)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear removes the token. Administrative and test escape hatch.
func (s *Store) Clear(ctx context.Context, service, event string) error {
	return s.client.Del(ctx, key(service, event)).Err()
}
