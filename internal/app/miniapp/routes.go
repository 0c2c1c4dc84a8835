// Package miniapp собирает приложение: бот Mini-App и служебный HTTP-сервер.
package miniapp

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/vpn-miniapp/internal/http/handlers/health"
)

// RegisterRoutes регистрирует служебные маршруты: проверку живости и метрики.
func RegisterRoutes(r chi.Router, logger *slog.Logger, checker health.Checker, gatherer prometheus.Gatherer) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger, checker).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
