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
	"fmt"

	"github.com/hookguard/hookguard/config"
	"github.com/hookguard/hookguard/database"
	"github.com/hookguard/hookguard/internal/cooldown"
	redis_db "github.com/hookguard/hookguard/internal/redis-db"
	"github.com/redis/go-redis/v9"
)

// Hookguard is the webhook ingestion engine: verification, idempotency,
// retry scheduling and failure alerting behind one facade.
type Hookguard struct {
	queue      *Queue
	redis      redis.UniversalClient
	cooldowns  *cooldown.Store
	datasource database.IDataSource
}

// NewHookguard wires the engine from configuration: the attempt store, the
// Redis-backed retry/alert queue and the cooldown store.
func NewHookguard(db database.IDataSource) (*Hookguard, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)}, configuration.Redis.SkipTLSVerify)
	if err != nil {
		return nil, err
	}

	newQueue := NewQueue(configuration)
	cooldowns := cooldown.NewStore(redisClient.Client())

	return &Hookguard{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		cooldowns:  cooldowns,
	}, nil
}
