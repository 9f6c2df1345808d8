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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookguard/hookguard/config"
	"github.com/hookguard/hookguard/internal/providers"
	"github.com/hookguard/hookguard/model"
)

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(providers.ErrSignatureMismatch))
	assert.True(t, retryable(providers.ErrSignatureExpired))
	assert.False(t, retryable(providers.ErrMalformedSignature))
	assert.False(t, retryable(providers.ErrSecretNotConfigured))
	assert.False(t, retryable(nil))
}

func TestDelayForAttempt(t *testing.T) {
	cnf := &config.Configuration{Retry: config.RetryConfig{DelaysSeconds: []int64{60, 300, 900}}}

	assert.Equal(t, 60*time.Second, delayForAttempt(cnf, 0))
	assert.Equal(t, 300*time.Second, delayForAttempt(cnf, 1))
	assert.Equal(t, 900*time.Second, delayForAttempt(cnf, 2))
	// Past the table, the last entry holds.
	assert.Equal(t, 900*time.Second, delayForAttempt(cnf, 7))

	empty := &config.Configuration{}
	assert.Equal(t, time.Duration(0), delayForAttempt(empty, 0))
}

func retryTaskFor(t *testing.T, service string, body []byte, secret string, attempt int) *asynq.Task {
	headers, err := providers.Sign(service, body, secret, time.Now())
	require.NoError(t, err)
	desc, err := providers.Lookup(service)
	require.NoError(t, err)

	rt := &model.RetryTask{
		Service:    service,
		Event:      "invoice.paid",
		Payload:    body,
		Signature:  headers.Get(desc.SignatureHeader),
		Timestamp:  headers.Get(desc.TimestampHeader),
		Secret:     secret,
		Attempt:    attempt,
		ExternalID: "evt_retry",
	}
	payload, err := json.Marshal(rt)
	require.NoError(t, err)
	return asynq.NewTask("webhook_retry", payload)
}

func TestProcessRetrySuccess(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	engine, mock, err := newTestEngine(mr, testConfig(mr))
	require.NoError(t, err)

	body := []byte(`{"id":"evt_retry","type":"invoice.paid"}`)
	task := retryTaskFor(t, "stripe", body, "whsec_test", 1)

	mock.ExpectExec("INSERT INTO webhook_attempts").
		WithArgs(sqlmock.AnyArg(), "stripe", "evt_retry", "invoice.paid", model.StatusSuccess, sqlmock.AnyArg(), nil, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = engine.ProcessRetry(context.Background(), task)
	assert.NoError(t, err)

	// Success ends the chain; nothing new was enqueued.
	assert.Empty(t, mr.Keys())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestProcessRetryFailureSchedulesNextAttempt(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	engine, mock, err := newTestEngine(mr, testConfig(mr))
	require.NoError(t, err)

	body := []byte(`{"id":"evt_retry","type":"invoice.paid"}`)
	// Signed with a stale secret, so verification against the live one fails.
	task := retryTaskFor(t, "stripe", body, "whsec_old", 1)

	mock.ExpectExec("INSERT INTO webhook_attempts").
		WithArgs(sqlmock.AnyArg(), "stripe", "evt_retry", "invoice.paid", model.StatusFailed, sqlmock.AnyArg(), providers.ErrSignatureMismatch.Error(), 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = engine.ProcessRetry(context.Background(), task)
	assert.NoError(t, err)

	// Attempt 2 is in the queue.
	assert.NotEmpty(t, mr.Keys())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestProcessRetryExhaustsAttempts(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	engine, mock, err := newTestEngine(mr, testConfig(mr))
	require.NoError(t, err)

	body := []byte(`{"id":"evt_retry","type":"invoice.paid"}`)
	// Final attempt under MaxAttempts=3: 0, 1, 2 and no further.
	task := retryTaskFor(t, "stripe", body, "whsec_old", 2)

	mock.ExpectExec("INSERT INTO webhook_attempts").
		WithArgs(sqlmock.AnyArg(), "stripe", "evt_retry", "invoice.paid", model.StatusFailed, sqlmock.AnyArg(), providers.ErrSignatureMismatch.Error(), 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = engine.ProcessRetry(context.Background(), task)
	assert.NoError(t, err)

	assert.Empty(t, mr.Keys())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestProcessRetryDisabledDropsTask(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cnf := testConfig(mr)
	cnf.Retry.Enabled = false
	engine, mock, err := newTestEngine(mr, cnf)
	require.NoError(t, err)

	body := []byte(`{"id":"evt_retry","type":"invoice.paid"}`)
	task := retryTaskFor(t, "stripe", body, "whsec_test", 1)

	err = engine.ProcessRetry(context.Background(), task)
	assert.NoError(t, err)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestProcessRetryPrefersLiveSecret(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	engine, mock, err := newTestEngine(mr, testConfig(mr))
	require.NoError(t, err)

	body := []byte(`{"id":"evt_retry","type":"invoice.paid"}`)
	headers, err := providers.Sign("stripe", body, "whsec_test", time.Now())
	require.NoError(t, err)

	// The task carries an outdated secret, but the signature matches the
	// configured one, so the retry heals.
	rt := &model.RetryTask{
		Service:    "stripe",
		Event:      "invoice.paid",
		Payload:    body,
		Signature:  headers.Get("Stripe-Signature"),
		Secret:     "whsec_old",
		Attempt:    1,
		ExternalID: "evt_retry",
	}
	payload, err := json.Marshal(rt)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO webhook_attempts").
		WithArgs(sqlmock.AnyArg(), "stripe", "evt_retry", "invoice.paid", model.StatusSuccess, sqlmock.AnyArg(), nil, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = engine.ProcessRetry(context.Background(), asynq.NewTask("webhook_retry", payload))
	assert.NoError(t, err)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
