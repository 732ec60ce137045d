package httpx

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/subsentry/subsentry-api/internal/errors"
)

// statusForCode maps application error codes to HTTP status codes. Validation
// and transition-rule violations render as 422 so agents can tell a rejected
// request apart from a malformed one.
func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeInvalidTransition:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeUpstream:
		return http.StatusBadGateway
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteAppError renders a service-layer error as a JSON response. Internal
// causes never leak to the wire; agents only see the code and message.
func WriteAppError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		WriteError(w, ErrorParams{
			Code:    http.StatusGatewayTimeout,
			ErrCode: string(apperrors.ErrCodeTimeout),
			Err:     errors.New("request timed out"),
		})
		return
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: string(apperrors.ErrCodeInternal),
			Err:     errors.New("internal server error"),
		})
		return
	}

	message := appErr.Message
	code := statusForCode(appErr.Code)
	if code == http.StatusInternalServerError {
		message = "internal server error"
	}
	WriteError(w, ErrorParams{Code: code, ErrCode: string(appErr.Code), Err: errors.New(message)})
}
