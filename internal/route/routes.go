package route

import (
	"net/http"

	"github.com/gorilla/mux"

	"predictor/internal/config"
	"predictor/internal/handler"
	"predictor/internal/logger"
	"predictor/internal/middleware"
	"predictor/internal/repository"
	hub "predictor/internal/service/websocket"
)

// SetupRoutes registers the preview, ledger, log and health endpoints behind the token middleware.
// The ledger endpoints are omitted when runs is nil.
func SetupRoutes(previews *hub.HubService, cfg *config.Config, logger *logger.Logger,
	runs repository.RunRepository, artifacts repository.ArtifactRepository) http.Handler {
	r := mux.NewRouter()

	// Preview stream
	r.HandleFunc("/api/preview", handler.PreviewWebsocketHandler(previews, logger))

	// Ledger
	if runs != nil {
		r.HandleFunc("/api/runs", handler.GetRunsHandler(runs, logger)).Methods("GET")
		r.HandleFunc("/api/runs/{id:[0-9]+}", handler.GetRunHandler(runs, artifacts, logger)).Methods("GET")
	}

	// Log endpoints
	r.HandleFunc("/logs/info", handler.ShowInfoLogsHandler(cfg)).Methods("GET")
	r.HandleFunc("/logs/warning", handler.ShowWarningLogsHandler(cfg)).Methods("GET")
	r.HandleFunc("/logs/error", handler.ShowErrorLogsHandler(cfg)).Methods("GET")

	r.HandleFunc("/logs/info/clear", handler.ClearInfoLogsHandler(logger)).Methods("POST")
	r.HandleFunc("/logs/warning/clear", handler.ClearWarningLogsHandler(logger)).Methods("POST")
	r.HandleFunc("/logs/error/clear", handler.ClearErrorLogsHandler(logger)).Methods("POST")

	r.HandleFunc("/healthz", handler.HealthHandler(previews.GetClientCount)).Methods("GET")

	r.Use(middleware.AuthMiddleware(cfg.PreviewToken))
	return r
}
