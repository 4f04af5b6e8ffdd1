package sqlite

import (
	"fmt"

	"predictor/internal/models"
)

// ArtifactRepository implements repository.ArtifactRepository for SQLite.
type ArtifactRepository struct {
	db *DB
}

// NewArtifactRepository creates a new SQLite artifact repository.
func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Insert adds a new artifact record to the database.
func (r *ArtifactRepository) Insert(artifact *models.Artifact) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO artifacts (run_id, path, kind, frames, detections)
		VALUES (?, ?, ?, ?, ?)
	`, artifact.RunID, artifact.Path, artifact.Kind, artifact.Frames, artifact.Detections)
	if err != nil {
		return 0, fmt.Errorf("failed to insert artifact: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	artifact.ID = id
	return id, nil
}

// UpdateCounts overwrites the frame and detection counters of an artifact.
func (r *ArtifactRepository) UpdateCounts(id int64, frames, detections int) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`UPDATE artifacts SET frames = ?, detections = ? WHERE id = ?`,
		frames, detections, id); err != nil {
		return fmt.Errorf("failed to update artifact: %w", err)
	}
	return nil
}

// GetByRunID retrieves all artifacts of a run in insertion order.
func (r *ArtifactRepository) GetByRunID(runID int64) ([]models.Artifact, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, run_id, path, kind, frames, detections, created_at
		FROM artifacts WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []models.Artifact
	for rows.Next() {
		var a models.Artifact
		if err := rows.Scan(&a.ID, &a.RunID, &a.Path, &a.Kind, &a.Frames, &a.Detections, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}

	return artifacts, rows.Err()
}
