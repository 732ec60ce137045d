package httpx

import (
	"log/slog"
	"net/http"

	"github.com/subsentry/subsentry-api/internal/observability/metrics"
	"github.com/subsentry/subsentry-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Transitions *service.TransitionService
	Claims      *service.ClaimService
	Payments    *service.PaymentsService
	Ledger      *service.LedgerService
	Metrics     *metrics.Recorder
	Logger      *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	registerJobRoutes(mux, &JobHandlers{Svc: services.Transitions})
	registerClaimRoutes(mux, &ClaimHandlers{Svc: services.Claims})
	registerPaymentRoutes(mux, &PaymentHandlers{Svc: services.Payments})
	registerLedgerRoutes(mux, &LedgerHandlers{Svc: services.Ledger})
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	handler = Logging(logger, services.Metrics)(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("GET /api/jobs/stats", h.Stats)
	mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /api/jobs/{id}/history", h.History)
	mux.HandleFunc("PUT /api/jobs/{id}/status", h.ChangeStatus)
}

func registerClaimRoutes(mux *http.ServeMux, h *ClaimHandlers) {
	mux.HandleFunc("POST /api/claims", h.Create)
}

func registerPaymentRoutes(mux *http.ServeMux, h *PaymentHandlers) {
	mux.HandleFunc("POST /api/payments/events", h.Events)
}

func registerLedgerRoutes(mux *http.ServeMux, h *LedgerHandlers) {
	mux.HandleFunc("GET /api/ledger/check", h.Check)
}
