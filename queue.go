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
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/hookguard/hookguard/config"
	redis_db "github.com/hookguard/hookguard/internal/redis-db"

	"github.com/hookguard/hookguard/model"
	"github.com/hibiken/asynq"
)

// Queue hands retry and alert work to asynq.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// NewQueue initializes the asynq client and inspector from configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// EnqueueRetry schedules the next verification attempt after the given
// delay. The task id is the hash of the task's identity fields, so a
// duplicate enqueue of the same attempt is dropped by the queue rather
// than processed twice.
func (q *Queue) EnqueueRetry(ctx context.Context, retryTask *model.RetryTask, delay time.Duration) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(retryTask)
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.TaskID(retryTask.IdentityKey()),
		asynq.Queue(cfg.Queue.RetryQueue),
		asynq.ProcessIn(delay),
	}
	task := asynq.NewTask(cfg.Queue.RetryQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			log.Printf(" [*] Retry already scheduled for %s attempt %d", retryTask.Service, retryTask.Attempt)
			return nil
		}
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued retry: %s/%s attempt %d in %s", retryTask.Service, retryTask.Event, retryTask.Attempt, delay)
	return nil
}

// EnqueueAlert asks a worker to evaluate the failure detector for the pair.
func (q *Queue) EnqueueAlert(ctx context.Context, alertTask *model.AlertTask) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(alertTask)
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{asynq.Queue(cfg.Queue.AlertQueue)}
	task := asynq.NewTask(cfg.Queue.AlertQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	return nil
}

// GetRetryFromQueue retrieves a pending retry task by its identity key.
func (q *Queue) GetRetryFromQueue(identityKey string) (*model.RetryTask, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	task, err := q.Inspector.GetTaskInfo(cfg.Queue.RetryQueue, identityKey)
	if err != nil || task == nil {
		return nil, nil
	}
	var retryTask model.RetryTask
	if err := json.Unmarshal(task.Payload, &retryTask); err != nil {
		return nil, err
	}
	return &retryTask, nil
}
