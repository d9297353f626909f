package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitality-score-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "store-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewSQLiteStore(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	// Create temp directory
	tmpDir, err := os.MkdirTemp("", "store-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")

	// Act
	store, err := NewSQLiteStore(dbPath)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	// Verify database file was created
	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_UpsertDailyMetric(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	metric := &domain.DailyMetric{
		UserID:     "user-1",
		Date:       "2024-06-01",
		Steps:      domain.Float64Ptr(8500),
		SleepHours: domain.Float64Ptr(7.5),
	}

	// Act
	err := store.UpsertDailyMetric(ctx, metric)

	// Assert
	require.NoError(t, err)
	assert.False(t, metric.UpdatedAt.IsZero(), "UpdatedAt should be set")

	got, err := store.GetDailyMetric(ctx, "user-1", "2024-06-01")
	require.NoError(t, err)
	require.NotNil(t, got.Steps)
	assert.Equal(t, 8500.0, *got.Steps)
	require.NotNil(t, got.SleepHours)
	assert.Equal(t, 7.5, *got.SleepHours)
	assert.Nil(t, got.HRVAvgMS)
}

func TestSQLiteStore_UpsertDailyMetric_Update(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	metric := &domain.DailyMetric{
		UserID: "user-1",
		Date:   "2024-06-01",
		Steps:  domain.Float64Ptr(3000),
	}
	require.NoError(t, store.UpsertDailyMetric(ctx, metric))

	// Same (user, date) replaces the row
	metric.Steps = domain.Float64Ptr(9000)
	metric.HRVAvgMS = domain.Float64Ptr(55)
	require.NoError(t, store.UpsertDailyMetric(ctx, metric))

	got, err := store.GetDailyMetric(ctx, "user-1", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, 9000.0, *got.Steps)
	assert.Equal(t, 55.0, *got.HRVAvgMS)

	metrics, err := store.ListDailyMetrics(ctx, "user-1", "2024-06-01", "2024-06-30")
	require.NoError(t, err)
	assert.Len(t, metrics, 1, "upsert must not create a second row")
}

func TestSQLiteStore_UpsertDailyMetric_Invalid(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	err := store.UpsertDailyMetric(ctx, &domain.DailyMetric{
		UserID: "user-1",
		Date:   "06/01/2024",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	err = store.UpsertDailyMetric(ctx, &domain.DailyMetric{
		UserID: "user-1",
		Date:   "2024-06-01",
		Steps:  domain.Float64Ptr(-10),
	})
	assert.Error(t, err)
}

func TestSQLiteStore_GetDailyMetric_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, err := store.GetDailyMetric(context.Background(), "user-1", "2024-06-01")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_ListDailyMetrics_Window(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for _, date := range []string{"2024-05-30", "2024-06-01", "2024-06-02", "2024-06-10"} {
		require.NoError(t, store.UpsertDailyMetric(ctx, &domain.DailyMetric{
			UserID: "user-1",
			Date:   date,
			Steps:  domain.Float64Ptr(5000),
		}))
	}

	metrics, err := store.ListDailyMetrics(ctx, "user-1", "2024-06-01", "2024-06-05")
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	assert.Equal(t, "2024-06-01", metrics[0].Date)
	assert.Equal(t, "2024-06-02", metrics[1].Date)
}

func TestSQLiteStore_QuickLogs(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	log := &domain.QuickLog{
		UserID:   "user-1",
		Date:     "2024-06-01",
		Mood:     4,
		Energy:   3,
		Symptoms: []string{"headache"},
		Notes:    "slept badly",
	}
	require.NoError(t, store.UpsertQuickLog(ctx, log))

	// Upsert on the same date, then a second date
	log.Mood = 5
	require.NoError(t, store.UpsertQuickLog(ctx, log))
	require.NoError(t, store.UpsertQuickLog(ctx, &domain.QuickLog{
		UserID: "user-1", Date: "2024-06-02", Mood: 3, Energy: 3,
	}))

	dates, err := store.ListLogDates(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-01", "2024-06-02"}, dates)
}

func TestSQLiteStore_UpsertQuickLog_InvalidMood(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	err := store.UpsertQuickLog(context.Background(), &domain.QuickLog{
		UserID: "user-1",
		Date:   "2024-06-01",
		Mood:   0,
		Energy: 3,
	})
	assert.Error(t, err)
}

func testReport(userID string) *domain.LabReport {
	return &domain.LabReport{
		ID:     "report-1",
		UserID: userID,
		Status: domain.REPORT_COMPLETED,
		Readings: []domain.BiomarkerReading{
			{
				ID:             "reading-1",
				Name:           "Ferritin",
				Value:          12,
				Unit:           "ng/mL",
				ReferenceRange: &domain.ReferenceRange{Min: 30, Max: 300},
				Status:         domain.STATUS_LOW,
				Confidence:     0.92,
			},
			{
				ID:         "reading-2",
				Name:       "Vitamin B12",
				Value:      450,
				Unit:       "pg/mL",
				Confidence: 1.0,
			},
		},
		Insights: []domain.CorrelationInsight{
			{
				Markers:   []string{"Ferritin"},
				Insight:   "Iron stores are depleted",
				Severity:  domain.SEVERITY_WARNING,
				Condition: "Iron Deficiency",
			},
		},
	}
}

func TestSQLiteStore_SaveAndLoadLabReport(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.SaveLabReport(ctx, testReport("user-1")))

	got, err := store.LatestCompletedReport(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "report-1", got.ID)
	assert.Equal(t, domain.REPORT_COMPLETED, got.Status)
	require.Len(t, got.Readings, 2)
	require.Len(t, got.Insights, 1)
	assert.Equal(t, "Iron Deficiency", got.Insights[0].Condition)

	// Readings come back ordered by name
	assert.Equal(t, "Ferritin", got.Readings[0].Name)
	require.NotNil(t, got.Readings[0].ReferenceRange)
	assert.Equal(t, 30.0, got.Readings[0].ReferenceRange.Min)
	assert.Equal(t, domain.STATUS_LOW, got.Readings[0].Status)

	// Reading without a range stays unclassified
	assert.Equal(t, "Vitamin B12", got.Readings[1].Name)
	assert.Nil(t, got.Readings[1].ReferenceRange)
	assert.Empty(t, got.Readings[1].Status)
}

func TestSQLiteStore_LatestCompletedReport_SkipsProcessing(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	processing := testReport("user-1")
	processing.ID = "report-2"
	processing.Status = domain.REPORT_PROCESSING
	for i := range processing.Readings {
		processing.Readings[i].ID = processing.Readings[i].ID + "-p"
	}

	require.NoError(t, store.SaveLabReport(ctx, processing))

	_, err := store.LatestCompletedReport(ctx, "user-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_ApplyVerification(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveLabReport(ctx, testReport("user-1")))

	// Correct the low ferritin into the optimal range
	updated, err := store.ApplyVerification(ctx, "reading-1", 120, "")
	require.NoError(t, err)
	assert.Equal(t, 120.0, updated.Value)
	assert.True(t, updated.Verified)
	assert.Equal(t, domain.STATUS_OPTIMAL, updated.Status, "status must follow the corrected value")

	// Second verification is rejected
	_, err = store.ApplyVerification(ctx, "reading-1", 10, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyVerified)
}

func TestSQLiteStore_ApplyVerification_NoRange(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.SaveLabReport(ctx, testReport("user-1")))

	// A reading without a range stays unclassified after correction
	updated, err := store.ApplyVerification(ctx, "reading-2", 500, "pg/mL")
	require.NoError(t, err)
	assert.True(t, updated.Verified)
	assert.Empty(t, updated.Status)
}

func TestSQLiteStore_ApplyVerification_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, err := store.ApplyVerification(context.Background(), "missing", 1, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
