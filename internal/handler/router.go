package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter はルーターを生成する。
func NewRouter(h *IPCHandler, otelEnabled bool) http.Handler {
	r := chi.NewRouter()

	// ミドルウェア
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	// ルート定義
	r.Get("/health", h.Health)
	r.Route("/ipc", func(r chi.Router) {
		r.Get("/", h.ListCommands)
		r.Post("/{command}", h.Invoke)
	})

	if otelEnabled {
		return otelhttp.NewHandler(r, "ipc")
	}
	return r
}
