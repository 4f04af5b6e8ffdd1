package repository

import "predictor/internal/models"

// RunRepository defines the interface for run ledger operations.
type RunRepository interface {
	// Create operations
	Insert(run *models.Run) (int64, error)

	// Update operations
	Finish(id int64, status string, processed, skipped int, runErr error) error
	SetExperimentDir(id int64, dir string) error
	SetDevice(id int64, device string) error

	// Read operations
	GetByID(id int64) (*models.Run, error)
	GetAll(filter *models.RunFilter) ([]models.Run, error)
	GetStats() (*models.RunStats, error)

	// Delete operations
	Delete(id int64) error
}

// ArtifactRepository defines the interface for artifact data operations.
type ArtifactRepository interface {
	// Create operations
	Insert(artifact *models.Artifact) (int64, error)

	// Update operations
	UpdateCounts(id int64, frames, detections int) error

	// Read operations
	GetByRunID(runID int64) ([]models.Artifact, error)
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []models.DetectionRecord) error

	// Read operations
	GetByArtifactID(artifactID int64) ([]models.DetectionRecord, error)
	GetAllLabels() ([]string, error)
}
