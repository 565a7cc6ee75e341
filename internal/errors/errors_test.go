package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatusFromCode(t *testing.T) {
	cases := map[string]int{
		CodeInvalidInput:       http.StatusBadRequest,
		CodeNotFound:           http.StatusNotFound,
		CodeGone:               http.StatusGone,
		CodeRateLimited:        http.StatusTooManyRequests,
		CodeServiceUnavailable: http.StatusServiceUnavailable,
		CodeDatabase:           http.StatusInternalServerError,
		"SOMETHING_ELSE":       http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, HTTPStatusFromCode(code), code)
	}
}

func TestRespondWithRateLimited(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/policies", nil)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, NewRateLimitedError("Too many requests. Please wait 3 seconds.", 3))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "3", rec.Header().Get("Retry-After"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, CodeRateLimited, body.Error.Code)
	require.NotEmpty(t, body.Error.RequestID)
	require.EqualValues(t, 3, body.Error.Details["retry_after_seconds"])
}

func TestRespondWithPlainErrorHidesCause(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/enrollments", nil)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, stderrors.New("sql: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "connection refused")
}

func TestWrapCarriesCause(t *testing.T) {
	env := WrapDatabaseError(context.Background(), stderrors.New("database is locked"), "failed to list enrollments")
	require.Equal(t, CodeDatabase, env.Code)
	require.Equal(t, "database is locked", env.Context["wrapped_error"])
	require.NotEmpty(t, env.CorrelationID)
}
