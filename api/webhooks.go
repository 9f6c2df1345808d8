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
	"errors"
	"net/http"

	"github.com/hookguard/hookguard"
	"github.com/hookguard/hookguard/internal/apierror"
	"github.com/hookguard/hookguard/internal/providers"

	"github.com/gin-gonic/gin"
)

// IngestWebhook receives a provider delivery on /webhooks/:service and
// answers with the ingestion outcome. The body is read raw; signature
// schemes are byte-sensitive so it must never pass through a JSON
// binding first.
func (a Api) IngestWebhook(c *gin.Context) {
	service, passed := c.Params.Get("service")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service is required. pass service in the route /webhooks/:service"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	result, err := a.engine.Ingest(c.Request.Context(), service, body, c.Request.Header)
	if err != nil {
		switch {
		case errors.Is(err, providers.ErrUnsupportedService):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, providers.ErrSecretNotConfigured):
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		}
		return
	}

	switch result.Status {
	case hookguard.IngestSuccess:
		c.JSON(http.StatusOK, gin.H{"status": hookguard.IngestSuccess})
	case hookguard.IngestAlreadyProcessed:
		c.JSON(http.StatusOK, gin.H{"status": hookguard.IngestAlreadyProcessed, "external_id": result.ExternalID})
	default:
		c.JSON(verifyFailureStatus(result.VerifyErr), gin.H{"status": hookguard.IngestFailed, "error": result.VerifyErr.Error()})
	}
}

// verifyFailureStatus picks the response code for a recorded verification
// failure. A structurally broken signature is the caller's mistake; a
// well-formed signature that does not match, or has aged out, is a
// rejection.
func verifyFailureStatus(err error) int {
	switch {
	case errors.Is(err, providers.ErrMalformedSignature):
		return http.StatusBadRequest
	case errors.Is(err, providers.ErrSignatureMismatch), errors.Is(err, providers.ErrSignatureExpired):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
