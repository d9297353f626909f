package domain

import (
	"context"
	"time"
)

// ExtractionProvider supplies structured biomarker readings for an uploaded
// lab document, or fails gracefully. Entries may arrive without a reference
// range (excluded from classification) or without confidence (treated as
// trusted, display only).
type ExtractionProvider interface {
	ExtractBiomarkers(ctx context.Context, userID string, documentText string) ([]BiomarkerReading, error)
}

// MetricStore persists the three raw record types the engine derives from.
// The engine itself never touches storage; callers fetch snapshots, invoke
// the pure engine, and persist derived values if they choose. Recomputation
// is always authoritative over any stored snapshot.
type MetricStore interface {
	UpsertDailyMetric(ctx context.Context, metric *DailyMetric) error
	GetDailyMetric(ctx context.Context, userID, date string) (*DailyMetric, error)
	ListDailyMetrics(ctx context.Context, userID, fromDate, toDate string) ([]*DailyMetric, error)

	UpsertQuickLog(ctx context.Context, log *QuickLog) error
	ListLogDates(ctx context.Context, userID string) ([]string, error)

	SaveLabReport(ctx context.Context, report *LabReport) error
	LatestCompletedReport(ctx context.Context, userID string) (*LabReport, error)
	ApplyVerification(ctx context.Context, readingID string, value float64, unit string) (*BiomarkerReading, error)

	Close() error
}

// ScoreCache holds snapshots of computed day scores. A cache miss or stale
// entry is never an error: callers recompute from raw records. Callers must
// invalidate on every raw-record write so stale snapshots never win.
type ScoreCache interface {
	GetDayScore(ctx context.Context, userID, date string) (*VitalityScore, bool, error)
	SetDayScore(ctx context.Context, userID string, score *VitalityScore) error
	InvalidateDayScore(ctx context.Context, userID, date string) error
	InvalidateUserScores(ctx context.Context, userID string) error
}

// ExtractionCache holds extraction results keyed by document content, so
// re-uploading an identical document skips the provider call.
type ExtractionCache interface {
	GetExtraction(ctx context.Context, documentText string) ([]BiomarkerReading, bool, error)
	SetExtraction(ctx context.Context, documentText string, readings []BiomarkerReading, ttl time.Duration) error
}
