package api

import (
	"log/slog"
	"net/http"
	"time"

	"assetproxy/internal/config"
	apmiddleware "assetproxy/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AvailableRoutes 在 404 响应中返回，方便调用方排查。
var AvailableRoutes = []string{
	"GET /health",
	"GET /metrics",
	"GET /cloudinary/health",
	"GET /cloudinary/images",
	"GET /cloudinary/stats",
	"DELETE /cloudinary/delete",
	"POST /cloudinary/delete-multiple",
	"POST /cloudinary/upload",
	"GET /cloudinary/folders",
	"GET /cloudinary/old-images",
	"GET /cloudinary/deletions",
}

// NewRouter 构建 HTTP 路由，集中注册所有对外服务的端点。
func NewRouter(cfg *config.Config, logger *slog.Logger, assetHandler *AssetHandler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(apmiddleware.RequestLogger(logger))
	r.Use(apmiddleware.Recoverer(logger, !cfg.IsProduction()))
	r.Use(apmiddleware.SecurityHeaders)
	r.Use(apmiddleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(apmiddleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
	r.Use(apmiddleware.Metrics())

	// 进程存活检查，不访问媒体后端
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Prometheus 指标端点
	r.Handle("/metrics", promhttp.Handler())

	if assetHandler != nil {
		assetHandler.RegisterRoutes(r)
	}

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"success":         false,
		"error":           "Route not found",
		"path":            r.URL.Path,
		"method":          r.Method,
		"availableRoutes": AvailableRoutes,
	})
}
