// Package store persists the raw records the scoring engine derives from:
// daily metrics, quick logs, and lab reports. Derived values are never the
// source of truth; recomputation from these records is always authoritative.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vitality-score-server/internal/domain"
	"github.com/vitality-score-server/internal/service"
)

// SQLiteStore implements domain.MetricStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite metric store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// Create schema
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS daily_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		steps REAL,
		sleep_hours REAL,
		hrv_avg_ms REAL,
		resting_heart_rate REAL,
		active_energy_kcal REAL,
		weight_kg REAL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, date)
	);

	CREATE TABLE IF NOT EXISTS quick_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		mood INTEGER NOT NULL,
		energy INTEGER NOT NULL,
		symptoms TEXT DEFAULT '[]',
		notes TEXT DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, date)
	);

	CREATE TABLE IF NOT EXISTS lab_reports (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL,
		insights TEXT DEFAULT '[]',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS biomarker_readings (
		id TEXT PRIMARY KEY,
		report_id TEXT NOT NULL,
		name TEXT NOT NULL,
		value REAL NOT NULL,
		unit TEXT DEFAULT '',
		ref_min REAL,
		ref_max REAL,
		status TEXT DEFAULT '',
		category TEXT DEFAULT '',
		confidence REAL NOT NULL DEFAULT 1.0,
		verified INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(report_id) REFERENCES lab_reports(id)
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_user_date ON daily_metrics(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_logs_user_date ON quick_logs(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_reports_user ON lab_reports(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_readings_report ON biomarker_readings(report_id);
	`

	_, err := db.Exec(schema)
	return err
}

// UpsertDailyMetric stores or replaces the metric row keyed by (user, date).
func (s *SQLiteStore) UpsertDailyMetric(ctx context.Context, metric *domain.DailyMetric) error {
	if err := metric.Validate(); err != nil {
		return err
	}
	metric.UpdatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_metrics (
			user_id, date, steps, sleep_hours, hrv_avg_ms,
			resting_heart_rate, active_energy_kcal, weight_kg, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			steps = excluded.steps,
			sleep_hours = excluded.sleep_hours,
			hrv_avg_ms = excluded.hrv_avg_ms,
			resting_heart_rate = excluded.resting_heart_rate,
			active_energy_kcal = excluded.active_energy_kcal,
			weight_kg = excluded.weight_kg,
			updated_at = excluded.updated_at
	`,
		metric.UserID, metric.Date, metric.Steps, metric.SleepHours,
		metric.HRVAvgMS, metric.RestingHeartRate, metric.ActiveEnergyKcal,
		metric.WeightKG, metric.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily metric: %w", err)
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDailyMetric(s scanner) (*domain.DailyMetric, error) {
	m := &domain.DailyMetric{}
	err := s.Scan(
		&m.UserID, &m.Date, &m.Steps, &m.SleepHours, &m.HRVAvgMS,
		&m.RestingHeartRate, &m.ActiveEnergyKcal, &m.WeightKG, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetDailyMetric retrieves the metric row for a user and date.
// Returns domain.ErrNotFound when no row exists.
func (s *SQLiteStore) GetDailyMetric(ctx context.Context, userID, date string) (*domain.DailyMetric, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, date, steps, sleep_hours, hrv_avg_ms,
			resting_heart_rate, active_energy_kcal, weight_kg, updated_at
		FROM daily_metrics
		WHERE user_id = ? AND date = ?
	`, userID, date)

	m, err := scanDailyMetric(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily metric: %w", err)
	}
	return m, nil
}

// ListDailyMetrics returns metric rows for a user within an inclusive date
// window, ordered by date.
func (s *SQLiteStore) ListDailyMetrics(ctx context.Context, userID, fromDate, toDate string) ([]*domain.DailyMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, date, steps, sleep_hours, hrv_avg_ms,
			resting_heart_rate, active_energy_kcal, weight_kg, updated_at
		FROM daily_metrics
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date
	`, userID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily metrics: %w", err)
	}
	defer rows.Close()

	var result []*domain.DailyMetric
	for rows.Next() {
		m, err := scanDailyMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// UpsertQuickLog stores or replaces the log row keyed by (user, date).
func (s *SQLiteStore) UpsertQuickLog(ctx context.Context, log *domain.QuickLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	log.UpdatedAt = time.Now()

	symptoms, err := json.Marshal(log.Symptoms)
	if err != nil {
		return fmt.Errorf("failed to encode symptoms: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quick_logs (user_id, date, mood, energy, symptoms, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			mood = excluded.mood,
			energy = excluded.energy,
			symptoms = excluded.symptoms,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, log.UserID, log.Date, log.Mood, log.Energy, string(symptoms), log.Notes, log.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert quick log: %w", err)
	}
	return nil
}

// ListLogDates returns the distinct dates a user has logged on, ascending.
// Streak computation runs on this set.
func (s *SQLiteStore) ListLogDates(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT date FROM quick_logs WHERE user_id = ? ORDER BY date
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list log dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// SaveLabReport stores a report and its readings in one transaction.
func (s *SQLiteStore) SaveLabReport(ctx context.Context, report *domain.LabReport) error {
	if err := report.Validate(); err != nil {
		return err
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	insights, err := json.Marshal(report.Insights)
	if err != nil {
		return fmt.Errorf("failed to encode insights: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO lab_reports (id, user_id, status, insights, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			insights = excluded.insights
	`, report.ID, report.UserID, string(report.Status), string(insights), report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save lab report: %w", err)
	}

	for i := range report.Readings {
		r := &report.Readings[i]
		if r.ReportID == "" {
			r.ReportID = report.ID
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = report.CreatedAt
		}
		r.UpdatedAt = r.CreatedAt

		var refMin, refMax *float64
		if r.ReferenceRange != nil {
			refMin, refMax = &r.ReferenceRange.Min, &r.ReferenceRange.Max
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO biomarker_readings (
				id, report_id, name, value, unit, ref_min, ref_max,
				status, category, confidence, verified, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				value = excluded.value,
				unit = excluded.unit,
				status = excluded.status,
				updated_at = excluded.updated_at
		`,
			r.ID, r.ReportID, r.Name, r.Value, r.Unit, refMin, refMax,
			string(r.Status), r.Category, r.Confidence, r.Verified,
			r.CreatedAt, r.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save reading %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

func scanReading(s scanner) (*domain.BiomarkerReading, error) {
	r := &domain.BiomarkerReading{}
	var refMin, refMax sql.NullFloat64
	var status string

	err := s.Scan(
		&r.ID, &r.ReportID, &r.Name, &r.Value, &r.Unit, &refMin, &refMax,
		&status, &r.Category, &r.Confidence, &r.Verified, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if refMin.Valid && refMax.Valid {
		r.ReferenceRange = &domain.ReferenceRange{Min: refMin.Float64, Max: refMax.Float64}
	}
	r.Status = domain.BiomarkerStatus(status)
	return r, nil
}

const readingColumns = `id, report_id, name, value, unit, ref_min, ref_max,
	status, category, confidence, verified, created_at, updated_at`

// LatestCompletedReport returns the newest completed report for a user with
// its readings loaded, or domain.ErrNotFound.
func (s *SQLiteStore) LatestCompletedReport(ctx context.Context, userID string) (*domain.LabReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, insights, created_at
		FROM lab_reports
		WHERE user_id = ? AND status = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, string(domain.REPORT_COMPLETED))

	report := &domain.LabReport{}
	var status, insights string
	err := row.Scan(&report.ID, &report.UserID, &status, &insights, &report.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lab report: %w", err)
	}
	report.Status = domain.ReportStatus(status)

	if err := json.Unmarshal([]byte(insights), &report.Insights); err != nil {
		return nil, fmt.Errorf("failed to decode insights: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+readingColumns+" FROM biomarker_readings WHERE report_id = ? ORDER BY name", report.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		report.Readings = append(report.Readings, *r)
	}
	return report, rows.Err()
}

// ApplyVerification records a human correction on a reading. A reading may
// be verified exactly once; the status is recomputed from the corrected
// value so it can never disagree with the stored range.
func (s *SQLiteStore) ApplyVerification(ctx context.Context, readingID string, value float64, unit string) (*domain.BiomarkerReading, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+readingColumns+" FROM biomarker_readings WHERE id = ?", readingID)

	r, err := scanReading(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reading: %w", err)
	}

	if r.Verified {
		return nil, domain.ErrAlreadyVerified
	}

	r.Value = value
	if unit != "" {
		r.Unit = unit
	}
	r.Verified = true
	r.Status = ""
	if r.ReferenceRange != nil {
		r.Status = service.Classify(value, r.ReferenceRange.Min, r.ReferenceRange.Max)
	}
	r.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
		UPDATE biomarker_readings
		SET value = ?, unit = ?, status = ?, verified = 1, updated_at = ?
		WHERE id = ?
	`, r.Value, r.Unit, string(r.Status), r.UpdatedAt, readingID)
	if err != nil {
		return nil, fmt.Errorf("failed to apply verification: %w", err)
	}

	return r, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
