package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode_MapsEachKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{InvalidTelemetry("x"), http.StatusBadRequest},
		{MalformedGeometry("x"), http.StatusBadRequest},
		{Unauthenticated("x"), http.StatusUnauthorized},
		{Unauthorized("x"), http.StatusForbidden},
		{NotFound("x"), http.StatusNotFound},
		{Conflict("x"), http.StatusConflict},
		{StoreUnavailable("x", errors.New("boom")), http.StatusServiceUnavailable},
		{DeadlineExceeded("x"), http.StatusServiceUnavailable},
		{errors.New("plain error"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusCode(tc.err))
	}
}

func TestWrap_UnwrapsToCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying failure")
	wrapped := StoreUnavailable("failed to write", cause)

	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "underlying failure")
}

func TestCode_ReturnsMachineReadableLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NOT_FOUND", Code(NotFound("missing")))
	assert.Equal(t, "INTERNAL", Code(errors.New("plain")))
}
