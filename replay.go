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
	"time"

	"github.com/pkg/errors"

	"github.com/hookguard/hookguard/config"
	"github.com/hookguard/hookguard/internal/providers"
	"github.com/hookguard/hookguard/model"
)

// ReplayAttempt re-runs verification and recording for a stored attempt's
// payload under a freshly computed signature. The replay is an
// operator-forced re-run: it skips the idempotency guard and produces a
// new record with the attempt counter bumped past the original's.
func (h *Hookguard) ReplayAttempt(ctx context.Context, attemptID string) (*model.AttemptRecord, error) {
	original, err := h.datasource.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	svc, ok := cnf.Service(original.Service)
	if !ok || svc.Secret == "" {
		return nil, providers.ErrSecretNotConfigured
	}

	raw, err := original.RawPayload()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reconstruct payload for attempt %s", attemptID)
	}

	now := time.Now()
	headers, err := providers.Sign(original.Service, raw, svc.Secret, now)
	if err != nil {
		return nil, err
	}

	tolerance := time.Duration(svc.ToleranceSeconds) * time.Second
	verifyErr := providers.Verify(original.Service, raw, headers, svc.Secret, tolerance, now)

	record := &model.AttemptRecord{
		Service:    original.Service,
		ExternalID: original.ExternalID,
		Event:      original.Event,
		Payload:    original.Payload,
		Attempt:    original.Attempt + 1,
	}
	if verifyErr == nil {
		record.Status = model.StatusSuccess
	} else {
		record.Status = model.StatusFailed
		record.ErrorMessage = verifyErr.Error()
	}

	return h.datasource.RecordAttempt(ctx, record)
}
