package httpx

import (
	"errors"
	"net/http"

	"github.com/subsentry/subsentry-api/internal/domain/model"
	"github.com/subsentry/subsentry-api/internal/service"
)

// LedgerHandlers provides HTTP handlers for abuse ledger checks.
type LedgerHandlers struct {
	Svc *service.LedgerService
}

// Check screens an identity against the abuse ledger. Callers pass either
// the (user_id, service_id) pair, which resolves the stored identity, or a
// precomputed email_hash.
func (h *LedgerHandlers) Check(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	serviceID := q.Get("service_id")
	emailHash := q.Get("email_hash")

	if emailHash == "" && (userID == "" || serviceID == "") {
		WriteError(
			w,
			ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "invalid_query",
				Err:     errors.New("user_id and service_id (or email_hash) are required"),
			},
		)
		return
	}

	check, err := h.check(r, userID, serviceID, emailHash)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, check)
}

func (h *LedgerHandlers) check(r *http.Request, userID, serviceID, emailHash string) (*model.LedgerCheck, error) {
	if emailHash != "" {
		return h.Svc.Check(r.Context(), emailHash)
	}
	return h.Svc.CheckUserService(r.Context(), userID, serviceID)
}
