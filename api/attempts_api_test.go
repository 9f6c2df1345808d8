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

package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hookguard/hookguard/model"
)

func attemptRows(ids ...string) *sqlmock.Rows {
	payloadJSON, _ := json.Marshal(map[string]interface{}{"id": "evt_x"})
	rows := sqlmock.NewRows([]string{"attempt_id", "service", "external_id", "event", "status", "payload", "error_message", "attempt", "created_at"})
	for _, id := range ids {
		rows.AddRow(id, "stripe", "evt_x", "invoice.paid", model.StatusFailed, payloadJSON, "signature mismatch", 0, time.Now())
	}
	return rows
}

func TestGetAllAttempts(t *testing.T) {
	router, mock := setupRouter(t, nil)

	mock.ExpectQuery("FROM webhook_attempts").
		WillReturnRows(attemptRows("att_1", "att_2"))

	var response []model.AttemptRecord
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/attempts?service=stripe&status=failed&limit=10",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, response, 2)
	assert.Equal(t, "att_1", response[0].AttemptID)
}

func TestGetAllAttemptsInvalidQuery(t *testing.T) {
	router, _ := setupRouter(t, nil)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/attempts?status=pending",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetAttempt(t *testing.T) {
	router, mock := setupRouter(t, nil)

	mock.ExpectQuery("FROM webhook_attempts").
		WithArgs("att_1").
		WillReturnRows(attemptRows("att_1"))

	var response model.AttemptRecord
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/attempts/att_1",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "att_1", response.AttemptID)
}

func TestGetAttemptNotFound(t *testing.T) {
	router, mock := setupRouter(t, nil)

	mock.ExpectQuery("FROM webhook_attempts").
		WithArgs("att_missing").
		WillReturnError(sql.ErrNoRows)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodGet,
		Route:    "/attempts/att_missing",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestReplayAttemptEndpoint(t *testing.T) {
	router, mock := setupRouter(t, nil)

	mock.ExpectQuery("FROM webhook_attempts").
		WithArgs("att_1").
		WillReturnRows(attemptRows("att_1"))
	mock.ExpectExec("INSERT INTO webhook_attempts").
		WillReturnResult(sqlmock.NewResult(1, 1))

	var response model.AttemptRecord
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodPost,
		Route:    "/attempts/att_1/replay",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, model.StatusSuccess, response.Status)
	assert.Equal(t, 1, response.Attempt)
}

func TestClearCooldownEndpoint(t *testing.T) {
	router, _ := setupRouter(t, nil)

	var response map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &response,
		Method:   http.MethodDelete,
		Route:    "/cooldowns/stripe/invoice.paid",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "cleared", response["status"])
}
