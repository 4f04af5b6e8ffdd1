package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"predictor/internal/models"
)

// RunRepository implements repository.RunRepository for SQLite.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, command, source, experiment_dir, device, started_at, finished_at, status, processed, skipped, error`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var finished sql.NullTime
	if err := row.Scan(&run.ID, &run.Command, &run.Source, &run.ExperimentDir, &run.Device,
		&run.StartedAt, &finished, &run.Status, &run.Processed, &run.Skipped, &run.Error); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

// Insert adds a new run record to the database.
func (r *RunRepository) Insert(run *models.Run) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = models.RunRunning
	}

	result, err := r.db.Conn().Exec(`
		INSERT INTO runs (command, source, experiment_dir, device, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.Command, run.Source, run.ExperimentDir, run.Device, run.StartedAt, run.Status)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	run.ID = id
	return id, nil
}

// Finish records the outcome of a run.
func (r *RunRepository) Finish(id int64, status string, processed, skipped int, runErr error) error {
	r.db.Lock()
	defer r.db.Unlock()

	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	if _, err := r.db.Conn().Exec(`
		UPDATE runs SET finished_at = ?, status = ?, processed = ?, skipped = ?, error = ?
		WHERE id = ?
	`, time.Now(), status, processed, skipped, msg, id); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// SetExperimentDir stores the experiment directory once it has been created.
func (r *RunRepository) SetExperimentDir(id int64, dir string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`UPDATE runs SET experiment_dir = ? WHERE id = ?`, dir, id); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// SetDevice stores the inference device once the model is loaded.
func (r *RunRepository) SetDevice(id int64, device string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`UPDATE runs SET device = ? WHERE id = ?`, device, id); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id int64) (*models.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	run, err := scanRun(r.db.Conn().QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetAll retrieves runs based on filter criteria, newest first.
func (r *RunRepository) GetAll(filter *models.RunFilter) ([]models.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := []interface{}{}

	if filter == nil {
		filter = &models.RunFilter{}
	}

	if filter.Command != "" {
		query += " AND command = ?"
		args = append(args, filter.Command)
	}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	query += " ORDER BY started_at DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetStats returns totals over the whole ledger.
func (r *RunRepository) GetStats() (*models.RunStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &models.RunStats{
		PerCommand:   make(map[string]int),
		ObjectCounts: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&stats.TotalRuns); err != nil {
		return nil, err
	}
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM artifacts`).Scan(&stats.TotalArtifacts); err != nil {
		return nil, err
	}
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM detections`).Scan(&stats.TotalDetections); err != nil {
		return nil, err
	}

	// Runs per command
	rows, err := r.db.Conn().Query(`SELECT command, COUNT(*) FROM runs GROUP BY command`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var command string
		var count int
		if err := rows.Scan(&command, &count); err != nil {
			return nil, err
		}
		stats.PerCommand[command] = count
	}

	// Most detected objects
	labelRows, err := r.db.Conn().Query(`
		SELECT label, COUNT(*) as cnt
		FROM detections
		GROUP BY label
		ORDER BY cnt DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer labelRows.Close()

	for labelRows.Next() {
		var label string
		var count int
		if err := labelRows.Scan(&label, &count); err != nil {
			return nil, err
		}
		stats.ObjectCounts[label] = count
	}

	return stats, nil
}

// Delete removes a run with its artifacts and detections.
func (r *RunRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM detections WHERE artifact_id IN (SELECT id FROM artifacts WHERE run_id = ?)`, id); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM artifacts WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete artifacts: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return tx.Commit()
}
