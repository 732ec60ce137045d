package httpx

import (
	"net/http"

	"github.com/subsentry/subsentry-api/internal/domain/model"
	"github.com/subsentry/subsentry-api/internal/service"
)

// ClaimHandlers provides HTTP handlers for agent claim batches.
type ClaimHandlers struct {
	Svc *service.ClaimService
}

// Create handles HTTP requests to claim a batch of pending jobs.
func (h *ClaimHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ClaimRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Claim(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
