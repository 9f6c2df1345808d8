package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorMessage(t *testing.T) {
	err := NewAPIError(ErrForbidden, "signature mismatch", nil)
	assert.Equal(t, "FORBIDDEN: signature mismatch", err.Error())
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrNotFound:       http.StatusNotFound,
		ErrConflict:       http.StatusConflict,
		ErrBadRequest:     http.StatusBadRequest,
		ErrInvalidInput:   http.StatusBadRequest,
		ErrForbidden:      http.StatusForbidden,
		ErrInternalServer: http.StatusInternalServerError,
	}
	for code, want := range cases {
		got := MapErrorToHTTPStatus(NewAPIError(code, "test", nil))
		assert.Equal(t, want, got)
	}

	assert.Equal(t, http.StatusInternalServerError, MapErrorToHTTPStatus(errors.New("plain error")))
}
