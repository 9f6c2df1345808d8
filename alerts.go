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
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/hookguard/hookguard/config"
	"github.com/hookguard/hookguard/internal/notification"
	"github.com/hookguard/hookguard/model"
)

// alertEventChannel is the Redis pub/sub channel external listeners
// subscribe to for dispatched alerts.
const alertEventChannel = "hookguard:alerts"

// CountRecentFailures returns the failure count for a pair within the
// configured trailing window.
func (h *Hookguard) CountRecentFailures(ctx context.Context, service, event string) (int, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return 0, err
	}
	window := time.Duration(cnf.Alerting.WindowMinutes) * time.Minute
	return h.datasource.CountRecentFailures(ctx, service, event, window)
}

// ShouldNotify reports whether the pair has crossed the failure threshold
// and no cooldown token is active. Read-only: the authoritative gate is
// the atomic acquire inside SendAlertIfNeeded.
func (h *Hookguard) ShouldNotify(ctx context.Context, service, event string) (bool, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return false, err
	}

	failures, err := h.CountRecentFailures(ctx, service, event)
	if err != nil {
		return false, err
	}
	if failures < cnf.Alerting.FailureThreshold {
		return false, nil
	}

	active, err := h.cooldowns.Active(ctx, service, event)
	if err != nil {
		return false, err
	}
	return !active, nil
}

// SendAlertIfNeeded dispatches a notification for the pair when the
// failure threshold is crossed and this caller wins the cooldown token.
// Returns true iff a notification was actually dispatched.
//
// The token is acquired atomically before dispatch, so concurrent
// evaluations of the same pair cannot double-notify.
func (h *Hookguard) SendAlertIfNeeded(ctx context.Context, service, event string) (bool, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return false, err
	}
	if !cnf.Alerting.Enabled {
		return false, nil
	}

	failures, err := h.CountRecentFailures(ctx, service, event)
	if err != nil {
		return false, err
	}
	if failures < cnf.Alerting.FailureThreshold {
		return false, nil
	}

	cooldownTTL := time.Duration(cnf.Alerting.CooldownMinutes) * time.Minute
	won, err := h.cooldowns.Acquire(ctx, service, event, cooldownTTL)
	if err != nil {
		return false, err
	}
	if !won {
		return false, nil
	}

	latest, err := h.datasource.GetLatestFailedAttempt(ctx, service, event)
	if err != nil {
		return false, err
	}

	msg := notification.NewFailureMessage(service, event, latest.AttemptID, latest.ErrorMessage, failures, cnf.Alerting.DashboardUrl)
	channels := notification.ChannelsFromConfig(cnf)
	sent := notification.Dispatch(channels, msg)
	log.Printf(" [*] Alert dispatched for %s/%s to %d of %d channels", service, event, sent, len(channels))

	h.publishAlertEvent(ctx, latest, failures)
	return true, nil
}

// publishAlertEvent emits the domain event carrying the record reference
// and failure count for external listeners. Best-effort.
func (h *Hookguard) publishAlertEvent(ctx context.Context, latest *model.AttemptRecord, failures int) {
	event, err := json.Marshal(map[string]interface{}{
		"attempt_id": latest.AttemptID,
		"service":    latest.Service,
		"event":      latest.Event,
		"failures":   failures,
	})
	if err != nil {
		logrus.Error(err)
		return
	}
	if err := h.redis.Publish(ctx, alertEventChannel, event).Err(); err != nil {
		logrus.Errorf("failed to publish alert event: %v", err)
	}
}

// ClearCooldown removes the cooldown token for a pair. Administrative
// escape hatch, exposed on the admin API.
func (h *Hookguard) ClearCooldown(ctx context.Context, service, event string) error {
	return h.cooldowns.Clear(ctx, service, event)
}

// ProcessAlert is the worker handler for alert evaluation tasks.
func (h *Hookguard) ProcessAlert(ctx context.Context, t *asynq.Task) error {
	var task model.AlertTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		logrus.Error(err)
		return err
	}

	_, err := h.SendAlertIfNeeded(ctx, task.Service, task.Event)
	return err
}
