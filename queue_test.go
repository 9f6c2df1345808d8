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
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookguard/hookguard/config"
	"github.com/hookguard/hookguard/model"
)

func TestEnqueueRetryDeduplicatesOnIdentity(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config.MockConfig(testConfig(mr))
	cnf, err := config.Fetch()
	require.NoError(t, err)

	q := NewQueue(cnf)

	externalID := gofakeit.UUID()
	task := &model.RetryTask{
		Service:    "stripe",
		Event:      "invoice.paid",
		Payload:    []byte(`{"id":"` + externalID + `"}`),
		Signature:  "t=1,v1=abc",
		Secret:     "whsec_test",
		Attempt:    1,
		ExternalID: externalID,
	}

	err = q.EnqueueRetry(context.Background(), task, time.Minute)
	assert.NoError(t, err)

	// Same identity again: swallowed as a duplicate, not an error.
	err = q.EnqueueRetry(context.Background(), task, time.Minute)
	assert.NoError(t, err)

	stored, err := q.GetRetryFromQueue(task.IdentityKey())
	assert.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, task.Service, stored.Service)
	assert.Equal(t, task.Attempt, stored.Attempt)
}

func TestEnqueueRetryDistinctAttempts(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config.MockConfig(testConfig(mr))
	cnf, err := config.Fetch()
	require.NoError(t, err)

	q := NewQueue(cnf)

	first := &model.RetryTask{Service: "github", Event: "push", Payload: []byte(`{}`), Signature: "sha256=aa", Attempt: 1}
	second := &model.RetryTask{Service: "github", Event: "push", Payload: []byte(`{}`), Signature: "sha256=aa", Attempt: 2}
	require.NotEqual(t, first.IdentityKey(), second.IdentityKey())

	assert.NoError(t, q.EnqueueRetry(context.Background(), first, time.Minute))
	assert.NoError(t, q.EnqueueRetry(context.Background(), second, time.Minute))

	stored, err := q.GetRetryFromQueue(second.IdentityKey())
	assert.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 2, stored.Attempt)
}

func TestEnqueueAlert(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config.MockConfig(testConfig(mr))
	cnf, err := config.Fetch()
	require.NoError(t, err)

	q := NewQueue(cnf)

	err = q.EnqueueAlert(context.Background(), &model.AlertTask{Service: "stripe", Event: "invoice.paid", AttemptID: "att_1"})
	assert.NoError(t, err)
	assert.NotEmpty(t, mr.Keys())
}
