package models

import "time"

// Run statuses.
const (
	RunRunning   = "running"
	RunDone      = "done"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

// Artifact kinds.
const (
	ArtifactImage = "image"
	ArtifactVideo = "video"
)

// Run represents one invocation of a front end.
type Run struct {
	ID            int64      `json:"id"`
	Command       string     `json:"command"`
	Source        string     `json:"source"`
	ExperimentDir string     `json:"experiment_dir"`
	Device        string     `json:"device"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Status        string     `json:"status"`
	Processed     int        `json:"processed"`
	Skipped       int        `json:"skipped"`
	Error         string     `json:"error,omitempty"`
}

// Artifact represents a file written into an experiment directory.
type Artifact struct {
	ID         int64     `json:"id"`
	RunID      int64     `json:"run_id"`
	Path       string    `json:"path"`
	Kind       string    `json:"kind"`
	Frames     int       `json:"frames"`
	Detections int       `json:"detections"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunFilter contains filtering options for querying runs.
type RunFilter struct {
	Command string
	Status  string
	Limit   int
	Offset  int
}

// RunStats contains totals over the ledger.
type RunStats struct {
	TotalRuns       int            `json:"total_runs"`
	TotalArtifacts  int            `json:"total_artifacts"`
	TotalDetections int            `json:"total_detections"`
	PerCommand      map[string]int `json:"per_command"`
	ObjectCounts    map[string]int `json:"object_counts"`
}
