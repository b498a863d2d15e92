package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"train-booking-system/internal/models"
)

// Run is the persisted record of one booking run.
type Run struct {
	RunID      string `json:"runId" db:"run_id"`
	WorkflowID string `json:"workflowId" db:"workflow_id"`
	TemporalID string `json:"temporalRunId" db:"temporal_run_id"`
	Username   string `json:"username" db:"username"`
	TrainDate  string `json:"trainDate" db:"train_date"`
	From       string `json:"from" db:"from_station"`
	To         string `json:"to" db:"to_station"`
	Stage      string `json:"stage" db:"stage"`
	Outcome    string `json:"outcome" db:"outcome"`
	Reason     string `json:"reason" db:"reason"`
	OrderID    string `json:"orderId" db:"order_id"`
}

// CreateRun inserts a new run record.
func (db *DB) CreateRun(run *Run) error {
	query := `
		INSERT INTO runs (run_id, workflow_id, temporal_run_id, username, train_date, from_station, to_station, stage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, run.RunID, run.WorkflowID, run.TemporalID,
		run.Username, run.TrainDate, run.From, run.To, run.Stage)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	query := `
		SELECT run_id, workflow_id, temporal_run_id, username, train_date, from_station, to_station,
		       stage, COALESCE(outcome, ''), COALESCE(reason, ''), COALESCE(order_id, '')
		FROM runs
		WHERE run_id = ?
	`

	var run Run
	err := db.QueryRow(query, runID).Scan(
		&run.RunID, &run.WorkflowID, &run.TemporalID, &run.Username,
		&run.TrainDate, &run.From, &run.To,
		&run.Stage, &run.Outcome, &run.Reason, &run.OrderID,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// RecordRunOutcome stores a run's terminal outcome.
func (db *DB) RecordRunOutcome(runID, outcome, reason, orderID string) error {
	query := `
		UPDATE runs
		SET stage = ?, outcome = ?, reason = ?, order_id = ?, updated_at = NOW()
		WHERE run_id = ?
	`

	result, err := db.Exec(query, models.StageCompleted, outcome, reason, orderID, runID)
	if err != nil {
		return fmt.Errorf("failed to record run outcome: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}

	return nil
}

// SaveSession persists session cookies keyed by account identity so later
// runs can reuse them.
func (db *DB) SaveSession(username string, cookies []string) error {
	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}

	query := `
		INSERT INTO sessions (username, cookies)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE cookies = VALUES(cookies), updated_at = NOW()
	`

	if _, err := db.Exec(query, username, data); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// LoadSession retrieves the cached cookies for an account.
func (db *DB) LoadSession(username string) ([]string, error) {
	query := `SELECT cookies FROM sessions WHERE username = ?`

	var data []byte
	err := db.QueryRow(query, username).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var cookies []string
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to decode cookies: %w", err)
	}

	return cookies, nil
}

// DeleteSession drops the cached cookies for an account.
func (db *DB) DeleteSession(username string) error {
	if _, err := db.Exec(`DELETE FROM sessions WHERE username = ?`, username); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SaveReport persists a successful booking's summary.
func (db *DB) SaveReport(runID string, report *models.Report) error {
	orders, err := json.Marshal(report.Orders)
	if err != nil {
		return fmt.Errorf("failed to encode report orders: %w", err)
	}

	query := `
		INSERT INTO reports (run_id, username, order_id, orders)
		VALUES (?, ?, ?, ?)
	`

	if _, err := db.Exec(query, runID, report.Username, report.OrderID, orders); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}
