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

package providers

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"
)

// Sign produces headers carrying a valid signature for the given body,
// as the provider itself would. Used by the replay path to re-sign stored
// payloads, and by tests.
func Sign(service string, body []byte, secret string, now time.Time) (http.Header, error) {
	desc, err := Lookup(service)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	switch service {
	case ServiceStripe:
		ts := now.Unix()
		signed := fmt.Sprintf("%d.%s", ts, body)
		headers.Set(desc.SignatureHeader, fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(hmacSHA256([]byte(signed), secret))))
	case ServiceGitHub:
		headers.Set(desc.SignatureHeader, "sha256="+hex.EncodeToString(hmacSHA256(body, secret)))
	case ServiceSlack:
		ts := now.Unix()
		base := fmt.Sprintf("v0:%d:%s", ts, body)
		headers.Set(desc.TimestampHeader, fmt.Sprintf("%d", ts))
		headers.Set(desc.SignatureHeader, "v0="+hex.EncodeToString(hmacSHA256([]byte(base), secret)))
	case ServiceShopify:
		headers.Set(desc.SignatureHeader, base64.StdEncoding.EncodeToString(hmacSHA256(body, secret)))
	}
	return headers, nil
}
