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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// RetryTask carries everything a worker needs to re-run verification for a
// failed delivery without re-reading request state.
type RetryTask struct {
	Service    string `json:"service"`
	Event      string `json:"event"`
	Payload    []byte `json:"payload"`
	Signature  string `json:"signature"`
	Timestamp  string `json:"timestamp,omitempty"`
	Secret     string `json:"secret"`
	Attempt    int    `json:"attempt"`
	ExternalID string `json:"external_id,omitempty"`
}

// IdentityKey hashes the task's identity fields. The queue deduplicates on
// this key, so re-enqueueing the identical task under at-least-once
// delivery is a no-op.
func (t *RetryTask) IdentityKey() string {
	h := sha256.New()
	h.Write(t.Payload)
	fmt.Fprintf(h, "|%s|%s|%s|%d", t.Signature, t.Service, t.Event, t.Attempt)
	return hex.EncodeToString(h.Sum(nil))
}

// AlertTask asks a worker to evaluate the failure detector for a pair and
// notify if due.
type AlertTask struct {
	Service   string `json:"service"`
	Event     string `json:"event"`
	AttemptID string `json:"attempt_id"`
}
