package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/vitality-score-server/internal/domain"
	"github.com/vitality-score-server/internal/service"
)

// PostgresStore implements domain.MetricStore using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL metric store over an existing
// connection. The schema must already exist.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL metric store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// UpsertDailyMetric stores or replaces the metric row keyed by (user, date).
func (s *PostgresStore) UpsertDailyMetric(ctx context.Context, metric *domain.DailyMetric) error {
	if err := metric.Validate(); err != nil {
		return err
	}
	metric.UpdatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_metrics (
			user_id, date, steps, sleep_hours, hrv_avg_ms,
			resting_heart_rate, active_energy_kcal, weight_kg, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, date) DO UPDATE SET
			steps = EXCLUDED.steps,
			sleep_hours = EXCLUDED.sleep_hours,
			hrv_avg_ms = EXCLUDED.hrv_avg_ms,
			resting_heart_rate = EXCLUDED.resting_heart_rate,
			active_energy_kcal = EXCLUDED.active_energy_kcal,
			weight_kg = EXCLUDED.weight_kg,
			updated_at = EXCLUDED.updated_at
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

// GetDailyMetric retrieves the metric row for a user and date.
// Returns domain.ErrNotFound when no row exists.
func (s *PostgresStore) GetDailyMetric(ctx context.Context, userID, date string) (*domain.DailyMetric, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, date, steps, sleep_hours, hrv_avg_ms,
			resting_heart_rate, active_energy_kcal, weight_kg, updated_at
		FROM daily_metrics
		WHERE user_id = $1 AND date = $2
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
func (s *PostgresStore) ListDailyMetrics(ctx context.Context, userID, fromDate, toDate string) ([]*domain.DailyMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, date, steps, sleep_hours, hrv_avg_ms,
			resting_heart_rate, active_energy_kcal, weight_kg, updated_at
		FROM daily_metrics
		WHERE user_id = $1 AND date >= $2 AND date <= $3
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
func (s *PostgresStore) UpsertQuickLog(ctx context.Context, log *domain.QuickLog) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, date) DO UPDATE SET
			mood = EXCLUDED.mood,
			energy = EXCLUDED.energy,
			symptoms = EXCLUDED.symptoms,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`, log.UserID, log.Date, log.Mood, log.Energy, string(symptoms), log.Notes, log.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert quick log: %w", err)
	}
	return nil
}

// ListLogDates returns the distinct dates a user has logged on, ascending.
func (s *PostgresStore) ListLogDates(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT date FROM quick_logs WHERE user_id = $1 ORDER BY date
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
func (s *PostgresStore) SaveLabReport(ctx context.Context, report *domain.LabReport) error {
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
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			insights = EXCLUDED.insights
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
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET
				value = EXCLUDED.value,
				unit = EXCLUDED.unit,
				status = EXCLUDED.status,
				updated_at = EXCLUDED.updated_at
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

// LatestCompletedReport returns the newest completed report for a user with
// its readings loaded, or domain.ErrNotFound.
func (s *PostgresStore) LatestCompletedReport(ctx context.Context, userID string) (*domain.LabReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, insights, created_at
		FROM lab_reports
		WHERE user_id = $1 AND status = $2
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
		"SELECT "+readingColumns+" FROM biomarker_readings WHERE report_id = $1 ORDER BY name", report.ID)
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
// value.
func (s *PostgresStore) ApplyVerification(ctx context.Context, readingID string, value float64, unit string) (*domain.BiomarkerReading, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+readingColumns+" FROM biomarker_readings WHERE id = $1", readingID)

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
		SET value = $1, unit = $2, status = $3, verified = TRUE, updated_at = $4
		WHERE id = $5
	`, r.Value, r.Unit, string(r.Status), r.UpdatedAt, readingID)
	if err != nil {
		return nil, fmt.Errorf("failed to apply verification: %w", err)
	}

	return r, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
