package errors

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "job not found",
			},
			want: "job not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to apply transition",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to apply transition: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructorsSetCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
	}{
		{"NotFound", NotFound("missing"), ErrCodeNotFound},
		{"NotFoundf", NotFoundf("job %s missing", "x"), ErrCodeNotFound},
		{"Conflict", Conflict("raced"), ErrCodeConflict},
		{"Conflictf", Conflictf("raced on %s", "x"), ErrCodeConflict},
		{"Validation", Validation("bad input"), ErrCodeValidation},
		{"Validationf", Validationf("bad %s", "field"), ErrCodeValidation},
		{"InvalidTransitionf", InvalidTransitionf("%s to %s", "a", "b"), ErrCodeInvalidTransition},
		{"Unauthorized", Unauthorized("bad signature"), ErrCodeUnauthorized},
		{"Upstream", Upstream("processor down", errors.New("dial")), ErrCodeUpstream},
		{"Internal", Internal("boom"), ErrCodeInternal},
		{"Internalf", Internalf("boom %d", 1), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("amount_sats", "must be positive")
	if err.Code != ErrCodeValidation {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeValidation)
	}
	if err.Field != "amount_sats" {
		t.Errorf("Field = %v, want amount_sats", err.Field)
	}
	if GetField(err) != "amount_sats" {
		t.Errorf("GetField() = %v, want amount_sats", GetField(err))
	}
}

func TestCodePredicates(t *testing.T) {
	wrapped := Wrap(Conflict("raced"), ErrCodeInternal, "outer")
	if !IsInternal(wrapped) {
		t.Error("IsInternal(wrapped) = false, want true for outermost code")
	}

	tests := []struct {
		name string
		pred func(error) bool
		err  error
		want bool
	}{
		{"IsNotFound matches", IsNotFound, NotFound("x"), true},
		{"IsNotFound rejects other code", IsNotFound, Conflict("x"), false},
		{"IsConflict matches", IsConflict, Conflict("x"), true},
		{"IsValidation matches", IsValidation, Validation("x"), true},
		{"IsInvalidTransition matches", IsInvalidTransition, InvalidTransitionf("x"), true},
		{"IsUnauthorized matches", IsUnauthorized, Unauthorized("x"), true},
		{"IsUpstream matches", IsUpstream, Upstream("x", nil), true},
		{"plain error matches nothing", IsConflict, errors.New("plain"), false},
		{"nil matches nothing", IsNotFound, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.err); got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(Unauthorized("x")); got != ErrCodeUnauthorized {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeUnauthorized)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %v, want empty", got)
	}
}

func TestWrap_NilPassthrough(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, ErrCodeInternal, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}
