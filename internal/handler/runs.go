package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"predictor/internal/logger"
	"predictor/internal/models"
	"predictor/internal/repository"
)

const defaultRunLimit = 20

// RunsResponse is the body of GET /api/runs.
type RunsResponse struct {
	Runs   []models.Run     `json:"runs"`
	Stats  *models.RunStats `json:"stats,omitempty"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// RunDetail is the body of GET /api/runs/{id}.
type RunDetail struct {
	Run       *models.Run       `json:"run"`
	Artifacts []models.Artifact `json:"artifacts"`
}

// GetRunsHandler returns ledger runs, newest first, filtered by command and status.
func GetRunsHandler(runs repository.RunRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := &models.RunFilter{
			Command: q.Get("command"),
			Status:  q.Get("status"),
			Limit:   atoiDefault(q.Get("limit"), defaultRunLimit),
			Offset:  atoiDefault(q.Get("offset"), 0),
		}

		list, err := runs.GetAll(filter)
		if err != nil {
			logger.Error("Error querying runs from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []models.Run{}
		}

		stats, err := runs.GetStats()
		if err != nil {
			logger.Error("Error getting run stats: %v", err)
			stats = nil
		}

		writeJSON(w, logger, RunsResponse{Runs: list, Stats: stats, Limit: filter.Limit, Offset: filter.Offset})
	}
}

// GetRunHandler returns one run with its artifacts.
func GetRunHandler(runs repository.RunRepository, artifacts repository.ArtifactRepository,
	logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			http.Error(w, "Invalid run id", http.StatusBadRequest)
			return
		}

		run, err := runs.GetByID(id)
		if err != nil {
			logger.Error("Error getting run %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if run == nil {
			http.NotFound(w, r)
			return
		}

		list, err := artifacts.GetByRunID(id)
		if err != nil {
			logger.Error("Error getting artifacts of run %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []models.Artifact{}
		}

		writeJSON(w, logger, RunDetail{Run: run, Artifacts: list})
	}
}

// HealthHandler reports liveness and the number of preview viewers.
func HealthHandler(viewers func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "viewers": viewers()})
	}
}

func writeJSON(w http.ResponseWriter, logger *logger.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
