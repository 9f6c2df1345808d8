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
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/hookguard/hookguard/config"
	"github.com/hookguard/hookguard/internal/providers"
	"github.com/hookguard/hookguard/model"
)

// retryable reports whether a verification failure is worth re-attempting.
// Mismatch and expiry can self-resolve (rotated secrets, clock skew);
// malformed headers and configuration problems cannot.
func retryable(err error) bool {
	return errors.Is(err, providers.ErrSignatureMismatch) || errors.Is(err, providers.ErrSignatureExpired)
}

// delayForAttempt reads the configured delay table, clamping to the last
// entry once the table is exhausted. A zero delay means eligible
// immediately.
func delayForAttempt(cnf *config.Configuration, attempt int) time.Duration {
	delays := cnf.Retry.DelaysSeconds
	if len(delays) == 0 {
		return 0
	}
	if attempt >= len(delays) {
		attempt = len(delays) - 1
	}
	return time.Duration(delays[attempt]) * time.Second
}

// ProcessRetry re-runs verification for a previously failed delivery. It
// records the attempt's outcome and, on another failure, schedules the
// next attempt from inside this handler, after the record is durable.
// That ordering is what keeps attempts strictly sequential per delivery.
//
// Verification failures return nil: they are recorded outcomes, not
// processing errors. Only infrastructure errors propagate so the queue
// redelivers the task.
func (h *Hookguard) ProcessRetry(ctx context.Context, t *asynq.Task) error {
	var task model.RetryTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		logrus.Error(err)
		return err
	}

	cnf, err := config.Fetch()
	if err != nil {
		return err
	}
	if !cnf.Retry.Enabled {
		log.Printf(" [*] Retries disabled, dropping attempt %d for %s/%s", task.Attempt, task.Service, task.Event)
		return nil
	}

	desc, err := providers.Lookup(task.Service)
	if err != nil {
		logrus.Errorf("retry task for unknown service %s dropped", task.Service)
		return nil
	}

	headers := http.Header{}
	headers.Set(desc.SignatureHeader, task.Signature)
	if desc.TimestampHeader != "" && task.Timestamp != "" {
		headers.Set(desc.TimestampHeader, task.Timestamp)
	}

	secret := task.Secret
	svc, ok := cnf.Service(task.Service)
	if ok && svc.Secret != "" {
		// Prefer the live secret so a rotation fixes retries in flight.
		secret = svc.Secret
	}

	tolerance := time.Duration(svc.ToleranceSeconds) * time.Second
	verifyErr := providers.Verify(task.Service, task.Payload, headers, secret, tolerance, time.Now())

	record := &model.AttemptRecord{
		Service:    task.Service,
		ExternalID: task.ExternalID,
		Event:      task.Event,
		Payload:    model.PayloadFromRaw(task.Payload),
		Attempt:    task.Attempt,
	}
	if verifyErr == nil {
		record.Status = model.StatusSuccess
	} else {
		record.Status = model.StatusFailed
		record.ErrorMessage = verifyErr.Error()
	}

	stored, err := h.datasource.RecordAttempt(ctx, record)
	if err != nil {
		return err
	}

	if verifyErr == nil {
		log.Printf(" [*] Retry succeeded for %s/%s on attempt %d", task.Service, task.Event, task.Attempt)
		return nil
	}

	next := task
	next.Attempt = task.Attempt + 1
	h.scheduleFollowUp(ctx, cnf, stored, verifyErr, &next)
	return nil
}
