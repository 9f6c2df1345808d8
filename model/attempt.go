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

package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// rawPayloadKey wraps bodies that did not decode as JSON so they can still
// be stored in the payload column and replayed byte-for-byte.
const rawPayloadKey = "_raw"

// AttemptRecord is one verification+recording cycle for a delivery.
// Records are immutable after insert; retries and replays create new rows
// with an incremented attempt counter.
type AttemptRecord struct {
	AttemptID    string                 `json:"attempt_id"`
	Service      string                 `json:"service"`
	ExternalID   string                 `json:"external_id,omitempty"`
	Event        string                 `json:"event"`
	Status       string                 `json:"status"`
	Payload      map[string]interface{} `json:"payload"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Attempt      int                    `json:"attempt"`
	CreatedAt    time.Time              `json:"created_at"`
}

// IsFailed reports whether this attempt ended in failure.
func (r *AttemptRecord) IsFailed() bool {
	return r.Status == StatusFailed
}

// PayloadFromRaw decodes body into the payload document, falling back to a
// raw wrapper for non-JSON bodies.
func PayloadFromRaw(body []byte) map[string]interface{} {
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded != nil {
		return decoded
	}
	return map[string]interface{}{rawPayloadKey: string(body)}
}

// RawPayload reconstructs the body bytes from the stored payload document.
// Raw-wrapped payloads come back byte-for-byte; decoded ones are
// re-marshaled, which is fine for replay since the replay path signs the
// reconstructed bytes freshly.
func (r *AttemptRecord) RawPayload() ([]byte, error) {
	if raw, ok := r.Payload[rawPayloadKey].(string); ok && len(r.Payload) == 1 {
		return []byte(raw), nil
	}
	return json.Marshal(r.Payload)
}

// AttemptFilter narrows attempt queries for the dashboard API.
type AttemptFilter struct {
	Service string
	Status  string
	Event   string
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}

// GenerateUUIDWithSuffix creates a prefixed identifier like "att_<uuid>".
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}
