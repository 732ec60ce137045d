// Package mocks provides mock implementations for testing the lifecycle engine.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the external-facing interfaces. To regenerate mocks after interface changes:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	fetcher := mocks.NewMockInvoiceFetcher(ctrl)
//	fetcher.EXPECT().SettledAmountSats(gomock.Any(), "inv-1").Return(int64(2100), nil)
package mocks

// Generate mock for InvoiceFetcher, the processor API read side.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=invoice_fetcher_mock.go github.com/subsentry/subsentry-api/internal/core InvoiceFetcher

// Generate mock for ResumeNotifier, the orchestrator webhook side.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=resume_notifier_mock.go github.com/subsentry/subsentry-api/internal/core ResumeNotifier

// Generate mock for JobRepository, used by the HTTP handler tests.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/subsentry/subsentry-api/internal/core JobRepository
