package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/subsentry/subsentry-api/internal/service"
)

// SignatureHeader carries the processor's HMAC signature over the event body.
const SignatureHeader = "X-Payment-Signature"

// maxEventBodyBytes bounds webhook payload reads.
const maxEventBodyBytes = 1 << 20

// PaymentHandlers provides HTTP handlers for payment processor webhooks.
type PaymentHandlers struct {
	Svc *service.PaymentsService
}

// Events handles settlement event deliveries from the payment processor.
// The raw body is read before any parsing because the signature covers the
// exact bytes on the wire.
func (h *PaymentHandlers) Events(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBodyBytes))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_body", Err: errors.New("could not read event body")})
		return
	}

	result, err := h.Svc.Ingest(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
