package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sdbacktest/engine/internal/backtest"
)

// RunRepository persists completed backtest summaries under a
// generated run ID, for later comparison across named portfolios
// (the --save-run CLI flag).
type RunRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewRunRepository creates a new run repository over db.
func NewRunRepository(db *DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("component", "run_repository").Logger(),
	}
}

// Run is a persisted backtest summary, identified by a generated UUID.
type Run struct {
	ID              string
	Label           string
	Ticker          string
	Algorithm       string
	StartDate       time.Time
	EndDate         time.Time
	StartValue      float64
	EndValue        float64
	TotalReturn     float64
	Annualized      float64
	VolatilityAlpha float64
	CreatedAt       time.Time
}

// Save inserts summary as a new run row labeled with algo and label,
// returning the generated run ID.
func (r *RunRepository) Save(summary backtest.Summary, algo, label string) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := r.db.conn.Exec(`
		INSERT INTO runs (
			id, label, ticker, algorithm,
			start_date, end_date,
			start_value, end_value, total_return, annualized, volatility_alpha,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, label, summary.Ticker, algo,
		summary.StartDate.Format("2006-01-02"), summary.EndDate.Format("2006-01-02"),
		summary.StartValue, summary.TotalValue, summary.TotalReturn, summary.AnnualizedReturn,
		summary.VolatilityAlpha,
		now.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("saving run: %w", err)
	}

	r.log.Info().Str("run_id", id).Str("ticker", summary.Ticker).Str("label", label).Msg("saved backtest run")
	return id, nil
}

// Get retrieves a single run by ID.
func (r *RunRepository) Get(id string) (*Run, error) {
	var run Run
	var startDate, endDate, createdAt string

	err := r.db.conn.QueryRow(`
		SELECT id, label, ticker, algorithm, start_date, end_date,
			start_value, end_value, total_return, annualized, volatility_alpha, created_at
		FROM runs WHERE id = ?
	`, id).Scan(
		&run.ID, &run.Label, &run.Ticker, &run.Algorithm, &startDate, &endDate,
		&run.StartValue, &run.EndValue, &run.TotalReturn, &run.Annualized, &run.VolatilityAlpha, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", id, err)
	}

	run.StartDate, _ = time.Parse("2006-01-02", startDate)
	run.EndDate, _ = time.Parse("2006-01-02", endDate)
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &run, nil
}

// List returns all saved runs for ticker, most recent first. An empty
// ticker returns every run.
func (r *RunRepository) List(ticker string) ([]Run, error) {
	query := `
		SELECT id, label, ticker, algorithm, start_date, end_date,
			start_value, end_value, total_return, annualized, volatility_alpha, created_at
		FROM runs
	`
	args := []interface{}{}
	if ticker != "" {
		query += " WHERE ticker = ?"
		args = append(args, ticker)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startDate, endDate, createdAt string
		if err := rows.Scan(
			&run.ID, &run.Label, &run.Ticker, &run.Algorithm, &startDate, &endDate,
			&run.StartValue, &run.EndValue, &run.TotalReturn, &run.Annualized, &run.VolatilityAlpha, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		run.StartDate, _ = time.Parse("2006-01-02", startDate)
		run.EndDate, _ = time.Parse("2006-01-02", endDate)
		run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Delete removes a run by ID.
func (r *RunRepository) Delete(id string) error {
	_, err := r.db.conn.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	return nil
}
