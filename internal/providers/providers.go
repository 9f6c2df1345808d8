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

// Package providers holds the closed set of webhook providers the engine
// accepts. Adding a provider means adding a case to the Lookup switch and
// the Verify, Parse and Sign dispatch functions.
package providers

import "errors"

const (
	ServiceStripe  = "stripe"
	ServiceGitHub  = "github"
	ServiceSlack   = "slack"
	ServiceShopify = "shopify"
)

var (
	// ErrMalformedSignature means the signature header is absent or cannot
	// be parsed into the provider's scheme. Callers map it to 400.
	ErrMalformedSignature = errors.New("signature header missing or malformed")
	// ErrSignatureMismatch means the header parsed but the digest did not
	// match. Callers map it to 403.
	ErrSignatureMismatch = errors.New("signature mismatch")
	// ErrSignatureExpired means the signed timestamp fell outside the
	// configured tolerance. Kept distinct from mismatch so operators can
	// tell clock skew from rotated secrets.
	ErrSignatureExpired = errors.New("signature timestamp outside tolerance")
	// ErrUnsupportedService means the service name is not in the closed set.
	ErrUnsupportedService = errors.New("unsupported webhook service")
	// ErrSecretNotConfigured means the service is known but carries no
	// signing secret in configuration. Callers map it to 500.
	ErrSecretNotConfigured = errors.New("no signing secret configured for service")
)

// Descriptor describes where a provider puts its signature, timestamp and
// delivery id. Descriptors are static; secrets and tolerances live in
// configuration.
type Descriptor struct {
	Service          string
	SignatureHeader  string
	TimestampHeader  string // empty when the timestamp is embedded in the signature header or absent
	DeliveryHeader   string // header carrying the provider's delivery id, if any
	ExternalIDInBody bool   // body id takes precedence over DeliveryHeader when true
}

// Lookup resolves a service name to its descriptor.
func Lookup(service string) (*Descriptor, error) {
	switch service {
	case ServiceStripe:
		return &Descriptor{
			Service:          ServiceStripe,
			SignatureHeader:  "Stripe-Signature",
			ExternalIDInBody: true,
		}, nil
	case ServiceGitHub:
		return &Descriptor{
			Service:         ServiceGitHub,
			SignatureHeader: "X-Hub-Signature-256",
			DeliveryHeader:  "X-GitHub-Delivery",
		}, nil
	case ServiceSlack:
		return &Descriptor{
			Service:          ServiceSlack,
			SignatureHeader:  "X-Slack-Signature",
			TimestampHeader:  "X-Slack-Request-Timestamp",
			ExternalIDInBody: true,
		}, nil
	case ServiceShopify:
		return &Descriptor{
			Service:         ServiceShopify,
			SignatureHeader: "X-Shopify-Hmac-Sha256",
			DeliveryHeader:  "X-Shopify-Webhook-Id",
		}, nil
	default:
		return nil, ErrUnsupportedService
	}
}

// Supported lists the service names the engine accepts.
func Supported() []string {
	return []string{ServiceStripe, ServiceGitHub, ServiceSlack, ServiceShopify}
}
