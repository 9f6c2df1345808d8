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
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hookguard/hookguard/config"
	"github.com/hookguard/hookguard/internal/apierror"
	"github.com/hookguard/hookguard/internal/providers"
	"github.com/hookguard/hookguard/model"
)

const (
	IngestSuccess          = "success"
	IngestAlreadyProcessed = "already_processed"
	IngestFailed           = "failed"
)

// IngestResult is the outcome the HTTP layer turns into a response. On
// IngestFailed, VerifyErr carries the classified verification error so the
// caller can pick between 400 and 403.
type IngestResult struct {
	Status     string
	ExternalID string
	Record     *model.AttemptRecord
	VerifyErr  error
}

// Ingest runs one delivery through the pipeline: resolve the provider,
// parse the body, dedup on the external id, verify the signature and
// record the attempt. A failed verification schedules the follow-up retry
// and alert evaluation before returning.
//
// The body must be the raw request bytes; signature schemes break on any
// re-encoding.
func (h *Hookguard) Ingest(ctx context.Context, service string, body []byte, headers http.Header) (*IngestResult, error) {
	desc, err := providers.Lookup(service)
	if err != nil {
		return nil, err
	}

	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	svc, ok := cnf.Service(service)
	if !ok || svc.Secret == "" {
		// Operator mistake, not a caller mistake. Rejected before any
		// persistence write.
		return nil, providers.ErrSecretNotConfigured
	}

	parsed := providers.Parse(service, body, headers)

	// Fast-path dedup. Must run before verification so a redelivered
	// event is acknowledged without re-doing the HMAC work.
	if parsed.ExternalID != "" {
		existing, err := h.datasource.GetAttemptByExternalID(ctx, service, parsed.ExternalID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &IngestResult{
				Status:     IngestAlreadyProcessed,
				ExternalID: parsed.ExternalID,
				Record:     existing,
			}, nil
		}
	}

	tolerance := time.Duration(svc.ToleranceSeconds) * time.Second
	verifyErr := providers.Verify(service, body, headers, svc.Secret, tolerance, time.Now())

	record := &model.AttemptRecord{
		Service:    service,
		ExternalID: parsed.ExternalID,
		Event:      parsed.Event,
		Payload:    model.PayloadFromRaw(body),
		Attempt:    0,
	}

	if verifyErr == nil {
		record.Status = model.StatusSuccess
	} else {
		record.Status = model.StatusFailed
		record.ErrorMessage = verifyErr.Error()
	}

	stored, err := h.datasource.RecordAttempt(ctx, record)
	if err != nil {
		// The unique index is the authoritative duplicate check: a
		// concurrent redelivery that slipped past the pre-check lands
		// here and is acknowledged, not errored.
		if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrConflict {
			return &IngestResult{
				Status:     IngestAlreadyProcessed,
				ExternalID: parsed.ExternalID,
			}, nil
		}
		return nil, err
	}

	if verifyErr == nil {
		return &IngestResult{
			Status:     IngestSuccess,
			ExternalID: parsed.ExternalID,
			Record:     stored,
		}, nil
	}

	h.scheduleFollowUp(ctx, cnf, stored, verifyErr, &model.RetryTask{
		Service:    service,
		Event:      parsed.Event,
		Payload:    body,
		Signature:  headers.Get(desc.SignatureHeader),
		Timestamp:  headers.Get(desc.TimestampHeader),
		Secret:     svc.Secret,
		Attempt:    1,
		ExternalID: parsed.ExternalID,
	})

	return &IngestResult{
		Status:     IngestFailed,
		ExternalID: parsed.ExternalID,
		Record:     stored,
		VerifyErr:  verifyErr,
	}, nil
}

// scheduleFollowUp enqueues the next retry attempt and the alert
// evaluation for a failed attempt. Queue errors are logged, never
// propagated: the attempt record is already durable and the provider gets
// its response regardless.
func (h *Hookguard) scheduleFollowUp(ctx context.Context, cnf *config.Configuration, record *model.AttemptRecord, verifyErr error, next *model.RetryTask) {
	if cnf.Retry.Enabled && retryable(verifyErr) && next.Attempt < cnf.Retry.MaxAttempts {
		delay := delayForAttempt(cnf, record.Attempt)
		if err := h.queue.EnqueueRetry(ctx, next, delay); err != nil {
			logrus.Errorf("failed to enqueue retry for %s/%s: %v", record.Service, record.Event, err)
		}
	}

	if cnf.Alerting.Enabled {
		alert := &model.AlertTask{Service: record.Service, Event: record.Event, AttemptID: record.AttemptID}
		if err := h.queue.EnqueueAlert(ctx, alert); err != nil {
			logrus.Errorf("failed to enqueue alert evaluation for %s/%s: %v", record.Service, record.Event, err)
		}
	}
}
