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
	"encoding/json"
	"net/http"
)

const EventUnknown = "unknown"

// Parsed is the provider-independent view of a delivery: a normalized event
// name, the provider's dedup key and loosely-typed metadata. Parsing never
// fails; a body that does not decode degrades to EventUnknown with no
// external id from the body.
type Parsed struct {
	Event      string
	ExternalID string
	Metadata   map[string]interface{}
}

// Parse extracts event type, external id and metadata for the named
// service. Unknown services yield the degraded result rather than an error;
// callers are expected to have resolved the descriptor already.
func Parse(service string, body []byte, headers http.Header) Parsed {
	var decoded map[string]interface{}
	_ = json.Unmarshal(body, &decoded)

	switch service {
	case ServiceStripe:
		return parseStripe(decoded)
	case ServiceGitHub:
		return parseGitHub(decoded, headers)
	case ServiceSlack:
		return parseSlack(decoded)
	case ServiceShopify:
		return parseShopify(decoded, headers)
	default:
		return Parsed{Event: EventUnknown}
	}
}

// parseStripe reads the event type and id from the body. Stripe guarantees
// idempotent event ids in-body, so the body wins over any header.
func parseStripe(decoded map[string]interface{}) Parsed {
	return Parsed{
		Event:      stringField(decoded, "type", EventUnknown),
		ExternalID: stringField(decoded, "id", ""),
		Metadata: map[string]interface{}{
			"id":          decoded["id"],
			"type":        decoded["type"],
			"api_version": decoded["api_version"],
			"created":     decoded["created"],
			"livemode":    decoded["livemode"],
		},
	}
}

// parseGitHub takes the event name from the X-GitHub-Event header, refined
// with the body action when present. The body carries no stable id, so the
// delivery header wins.
func parseGitHub(decoded map[string]interface{}, headers http.Header) Parsed {
	event := headers.Get("X-GitHub-Event")
	if event == "" {
		event = EventUnknown
	}
	if action := stringField(decoded, "action", ""); action != "" {
		event = event + "." + action
	}

	var repo interface{}
	if repository, ok := decoded["repository"].(map[string]interface{}); ok {
		repo = repository["full_name"]
	}
	var sender interface{}
	if s, ok := decoded["sender"].(map[string]interface{}); ok {
		sender = s["login"]
	}

	return Parsed{
		Event:      event,
		ExternalID: headers.Get("X-GitHub-Delivery"),
		Metadata: map[string]interface{}{
			"action":     decoded["action"],
			"repository": repo,
			"sender":     sender,
		},
	}
}

// parseSlack unwraps event_callback envelopes to the inner event type and
// uses the in-body event_id as the dedup key.
func parseSlack(decoded map[string]interface{}) Parsed {
	event := stringField(decoded, "type", EventUnknown)
	if event == "event_callback" {
		if inner, ok := decoded["event"].(map[string]interface{}); ok {
			event = stringField(inner, "type", event)
		}
	}

	return Parsed{
		Event:      event,
		ExternalID: stringField(decoded, "event_id", ""),
		Metadata: map[string]interface{}{
			"type":       decoded["type"],
			"team_id":    decoded["team_id"],
			"api_app_id": decoded["api_app_id"],
		},
	}
}

// parseShopify reads the topic and webhook id from headers; the body id is
// the resource id, not a delivery id, so the header wins.
func parseShopify(decoded map[string]interface{}, headers http.Header) Parsed {
	event := headers.Get("X-Shopify-Topic")
	if event == "" {
		event = EventUnknown
	}

	return Parsed{
		Event:      event,
		ExternalID: headers.Get("X-Shopify-Webhook-Id"),
		Metadata: map[string]interface{}{
			"id":         decoded["id"],
			"shop":       headers.Get("X-Shopify-Shop-Domain"),
			"created_at": decoded["created_at"],
		},
	}
}

func stringField(m map[string]interface{}, key, fallback string) string {
	if m == nil {
		return fallback
	}
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
