package storage

import (
	"predictor/internal/logger"
	"predictor/internal/models"
	"predictor/internal/repository"
)

// Ledger records a run, its artifacts and their detections. Failures are logged as warnings and
// never fail the run. A nil *Ledger records nothing.
type Ledger struct {
	runs       repository.RunRepository
	artifacts  repository.ArtifactRepository
	detections repository.DetectionRepository
	logger     *logger.Logger
	runID      int64
}

// NewLedger creates a Ledger over the given repositories.
func NewLedger(runs repository.RunRepository, artifacts repository.ArtifactRepository,
	detections repository.DetectionRepository, logger *logger.Logger) *Ledger {
	return &Ledger{runs: runs, artifacts: artifacts, detections: detections, logger: logger}
}

// Begin inserts the run row.
func (l *Ledger) Begin(command, source string) {
	if l == nil {
		return
	}
	id, err := l.runs.Insert(&models.Run{Command: command, Source: source, Status: models.RunRunning})
	if err != nil {
		l.logger.Warning("Run ledger unavailable: %v", err)
		return
	}
	l.runID = id
}

// RunID returns the current run id, 0 when none was recorded.
func (l *Ledger) RunID() int64 {
	if l == nil {
		return 0
	}
	return l.runID
}

// SetExperimentDir stores the experiment directory of the run.
func (l *Ledger) SetExperimentDir(dir string) {
	if l == nil || l.runID == 0 {
		return
	}
	if err := l.runs.SetExperimentDir(l.runID, dir); err != nil {
		l.logger.Warning("Failed to record experiment directory: %v", err)
	}
}

// SetDevice stores the inference device of the run.
func (l *Ledger) SetDevice(device string) {
	if l == nil || l.runID == 0 {
		return
	}
	if err := l.runs.SetDevice(l.runID, device); err != nil {
		l.logger.Warning("Failed to record device: %v", err)
	}
}

// AddArtifact records a written file and returns its id, 0 when nothing was recorded.
func (l *Ledger) AddArtifact(path, kind string, frames int, detections []models.Detection) int64 {
	if l == nil || l.runID == 0 {
		return 0
	}
	id, err := l.artifacts.Insert(&models.Artifact{
		RunID:      l.runID,
		Path:       path,
		Kind:       kind,
		Frames:     frames,
		Detections: len(detections),
	})
	if err != nil {
		l.logger.Warning("Failed to record artifact %s: %v", path, err)
		return 0
	}
	l.AddDetections(id, 0, detections)
	return id
}

// AddDetections records the detections of one frame of an artifact.
func (l *Ledger) AddDetections(artifactID int64, frame int, detections []models.Detection) {
	if l == nil || artifactID == 0 || len(detections) == 0 {
		return
	}
	records := make([]models.DetectionRecord, len(detections))
	for i, d := range detections {
		records[i] = models.NewDetectionRecord(artifactID, frame, d)
	}
	if err := l.detections.InsertBatch(records); err != nil {
		l.logger.Warning("Failed to record detections: %v", err)
	}
}

// UpdateArtifact overwrites the counters of an artifact.
func (l *Ledger) UpdateArtifact(artifactID int64, frames, detections int) {
	if l == nil || artifactID == 0 {
		return
	}
	if err := l.artifacts.UpdateCounts(artifactID, frames, detections); err != nil {
		l.logger.Warning("Failed to update artifact: %v", err)
	}
}

// Finish stores the outcome of the run.
func (l *Ledger) Finish(status string, processed, skipped int, runErr error) {
	if l == nil || l.runID == 0 {
		return
	}
	if err := l.runs.Finish(l.runID, status, processed, skipped, runErr); err != nil {
		l.logger.Warning("Failed to finish run record: %v", err)
	}
}
