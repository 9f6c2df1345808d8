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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Verify checks the raw body against the signature carried in headers for
// the named service. The body must be the unmodified request bytes; any
// re-encoding breaks the digest. All comparisons are constant-time.
func Verify(service string, body []byte, headers http.Header, secret string, tolerance time.Duration, now time.Time) error {
	desc, err := Lookup(service)
	if err != nil {
		return err
	}
	if secret == "" {
		return ErrSecretNotConfigured
	}

	switch service {
	case ServiceStripe:
		return verifyStripe(body, headers.Get(desc.SignatureHeader), secret, tolerance, now)
	case ServiceGitHub:
		return verifyGitHub(body, headers.Get(desc.SignatureHeader), secret)
	case ServiceSlack:
		return verifySlack(body, headers.Get(desc.SignatureHeader), headers.Get(desc.TimestampHeader), secret, tolerance, now)
	case ServiceShopify:
		return verifyShopify(body, headers.Get(desc.SignatureHeader), secret)
	default:
		return ErrUnsupportedService
	}
}

// verifyStripe validates the timestamped scheme
// "t=<unix>,v1=<hex hmac over '{t}.{body}'>".
func verifyStripe(body []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return ErrMalformedSignature
	}

	var timestamp string
	var signature string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signature = kv[1]
		}
	}
	if timestamp == "" || signature == "" {
		return ErrMalformedSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrMalformedSignature
	}
	if err := checkTolerance(ts, tolerance, now); err != nil {
		return err
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, body)
	return compareHex(signature, hmacSHA256([]byte(signedPayload), secret))
}

// verifyGitHub validates "sha256=<hex hmac over body>". Any other prefix is
// rejected as malformed.
func verifyGitHub(body []byte, header, secret string) error {
	if !strings.HasPrefix(header, "sha256=") {
		return ErrMalformedSignature
	}
	return compareHex(strings.TrimPrefix(header, "sha256="), hmacSHA256(body, secret))
}

// verifySlack validates "v0=<hex hmac over 'v0:{ts}:{body}'>" with the
// timestamp arriving in a sibling header.
func verifySlack(body []byte, header, timestamp, secret string, tolerance time.Duration, now time.Time) error {
	if !strings.HasPrefix(header, "v0=") {
		return ErrMalformedSignature
	}
	if timestamp == "" {
		return ErrMalformedSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrMalformedSignature
	}
	if err := checkTolerance(ts, tolerance, now); err != nil {
		return err
	}

	base := fmt.Sprintf("v0:%s:%s", timestamp, body)
	return compareHex(strings.TrimPrefix(header, "v0="), hmacSHA256([]byte(base), secret))
}

// verifyShopify validates a base64 hmac over the raw body, no timestamp.
func verifyShopify(body []byte, header, secret string) error {
	if header == "" {
		return ErrMalformedSignature
	}

	provided, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return ErrMalformedSignature
	}
	if !hmac.Equal(provided, hmacSHA256(body, secret)) {
		return ErrSignatureMismatch
	}
	return nil
}

// checkTolerance rejects timestamps outside the allowed clock skew. A zero
// tolerance disables the check.
func checkTolerance(ts int64, tolerance time.Duration, now time.Time) error {
	if tolerance <= 0 {
		return nil
	}
	diff := now.Unix() - ts
	if diff < 0 {
		diff = -diff
	}
	if time.Duration(diff)*time.Second > tolerance {
		return ErrSignatureExpired
	}
	return nil
}

func hmacSHA256(data []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return mac.Sum(nil)
}

func compareHex(provided string, expected []byte) error {
	decoded, err := hex.DecodeString(provided)
	if err != nil {
		return ErrMalformedSignature
	}
	if !hmac.Equal(decoded, expected) {
		return ErrSignatureMismatch
	}
	return nil
}
