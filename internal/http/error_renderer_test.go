package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/subsentry/subsentry-api/internal/errors"
)

func TestWriteAppError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation",
			err:        apperrors.Validation("bad input"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "validation",
		},
		{
			name:       "invalid transition",
			err:        apperrors.InvalidTransitionf("cannot transition from %s to %s", "pending", "active"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalid_transition",
		},
		{
			name:       "not found",
			err:        apperrors.NotFound("job missing"),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "conflict",
			err:        apperrors.Conflict("raced"),
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
		},
		{
			name:       "unauthorized",
			err:        apperrors.Unauthorized("bad signature"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
		{
			name:       "upstream",
			err:        apperrors.Upstream("processor down", errors.New("dial refused")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "upstream",
		},
		{
			name:       "deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "timeout",
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteAppError(w, tc.err)

			resp := w.Result()
			defer resp.Body.Close()
			require.Equal(t, tc.wantStatus, resp.StatusCode)

			var payload map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
			assert.Equal(t, tc.wantCode, payload["error"])
		})
	}
}

func TestWriteAppError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	WriteAppError(w, apperrors.Internal("scan failed on row 3"))

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "internal server error", payload["message"])
}
