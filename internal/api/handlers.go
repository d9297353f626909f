package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vitality-score-server/internal/domain"
	"github.com/vitality-score-server/internal/service"
)

func (s *Server) respondError(c *gin.Context, status int, code, message string) {
	requestID, _ := c.Get("request_id")
	id, _ := requestID.(string)
	c.JSON(status, gin.H{"error": domain.NewAPIError(code, message, "", id)})
}

func scoreCacheKey(userID, date string) string {
	return userID + ":" + date
}

// invalidateUserScores drops every cached day score for a user. Log writes
// shift streaks for later days too, so per-day eviction is not enough.
func (s *Server) invalidateUserScores(c *gin.Context, userID string) {
	prefix := userID + ":"
	for _, key := range s.scoreCache.Keys() {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			s.scoreCache.Remove(key)
		}
	}
	if s.remoteScores != nil {
		if err := s.remoteScores.InvalidateUserScores(c.Request.Context(), userID); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate remote score cache")
		}
	}
}

// handleUpsertMetric stores a daily metric row and evicts the cached score
// for that day.
func (s *Server) handleUpsertMetric(c *gin.Context) {
	var metric domain.DailyMetric
	if err := c.ShouldBindJSON(&metric); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := metric.Validate(); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, err.Error())
		return
	}

	if err := s.store.UpsertDailyMetric(c.Request.Context(), &metric); err != nil {
		s.logger.WithError(err).Error("Failed to upsert daily metric")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to store metric")
		return
	}

	s.scoreCache.Remove(scoreCacheKey(metric.UserID, metric.Date))
	if s.remoteScores != nil {
		if err := s.remoteScores.InvalidateDayScore(c.Request.Context(), metric.UserID, metric.Date); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate remote score cache")
		}
	}
	c.JSON(http.StatusOK, metric)
}

// handleUpsertLog stores a quick log row and evicts the user's cached
// scores.
func (s *Server) handleUpsertLog(c *gin.Context) {
	var log domain.QuickLog
	if err := c.ShouldBindJSON(&log); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error())
		return
	}

	if err := log.Validate(); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, err.Error())
		return
	}

	if err := s.store.UpsertQuickLog(c.Request.Context(), &log); err != nil {
		s.logger.WithError(err).Error("Failed to upsert quick log")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to store log")
		return
	}

	s.invalidateUserScores(c, log.UserID)
	c.JSON(http.StatusOK, log)
}

// wellnessFromLatestReport derives the clinical input for vitality scoring.
// No completed report means no clinical component, never a default score.
func (s *Server) wellnessFromLatestReport(c *gin.Context, userID string) *int {
	report, err := s.store.LatestCompletedReport(c.Request.Context(), userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WithError(err).Warn("Failed to load latest report, scoring without clinical data")
		}
		return nil
	}

	s.classifier.ClassifyAll(report.Readings)
	result := s.classifier.WellnessScore(report.Readings)
	if result.MarkersEvaluated == 0 {
		return nil
	}
	return &result.Score
}

// handleVitality computes the Vitality Score for one day, or a trend series
// when days is given. Scores are computed from raw records on every call;
// the cache only short-circuits identical recomputations.
func (s *Server) handleVitality(c *gin.Context) {
	userID := c.Param("userID")
	date := c.Query("date")
	if _, err := domain.ParseDay(date); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "date must be YYYY-MM-DD")
		return
	}

	ctx := c.Request.Context()

	logDates, err := s.store.ListLogDates(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list log dates")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to load logs")
		return
	}

	wellness := s.wellnessFromLatestReport(c, userID)

	if daysParam := c.Query("days"); daysParam != "" {
		days, convErr := strconv.Atoi(daysParam)
		if convErr != nil || days <= 0 || days > 90 {
			s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "days must be in [1,90]")
			return
		}

		end, _ := domain.ParseDay(date)
		from := end.AddDate(0, 0, -(days - 1)).Format(domain.DateLayout)
		list, err := s.store.ListDailyMetrics(ctx, userID, from, date)
		if err != nil {
			s.logger.WithError(err).Error("Failed to list daily metrics")
			s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to load metrics")
			return
		}
		metrics := make(map[string]*domain.DailyMetric, len(list))
		for _, m := range list {
			metrics[m.Date] = m
		}

		series, err := s.vitality.ComputeTrend(date, days, metrics, wellness, logDates)
		if err != nil {
			s.respondError(c, http.StatusInternalServerError, domain.ErrCodeScoring, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "trend": series})
		return
	}

	key := scoreCacheKey(userID, date)
	if cached, ok := s.scoreCache.Get(key); ok {
		c.JSON(http.StatusOK, cached)
		return
	}
	if s.remoteScores != nil {
		if cached, ok, err := s.remoteScores.GetDayScore(ctx, userID, date); err == nil && ok {
			s.scoreCache.Add(key, cached)
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	metric, err := s.store.GetDailyMetric(ctx, userID, date)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.WithError(err).Error("Failed to get daily metric")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to load metric")
		return
	}

	streak, err := service.CurrentStreak(logDates, date)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeScoring, err.Error())
		return
	}

	score := s.vitality.Compute(date, metric, wellness, streak)
	s.scoreCache.Add(key, score)
	if s.remoteScores != nil {
		if err := s.remoteScores.SetDayScore(ctx, userID, score); err != nil {
			s.logger.WithError(err).Warn("Failed to store day score in remote cache")
		}
	}
	c.JSON(http.StatusOK, score)
}

// handleWellness reports the wellness score breakdown for the latest
// completed lab report, plus the derived health age when age is given.
func (s *Server) handleWellness(c *gin.Context) {
	userID := c.Param("userID")

	report, err := s.store.LatestCompletedReport(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "no completed lab report")
			return
		}
		s.logger.WithError(err).Error("Failed to load latest report")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to load report")
		return
	}

	s.classifier.ClassifyAll(report.Readings)
	result := s.classifier.WellnessScore(report.Readings)
	response := gin.H{
		"user_id":   userID,
		"report_id": report.ID,
		"wellness":  result,
	}

	if ageParam := c.Query("age"); ageParam != "" {
		age, convErr := strconv.Atoi(ageParam)
		if convErr != nil || age < 0 || age > 130 {
			s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "age must be in [0,130]")
			return
		}
		response["health_age"] = s.classifier.HealthAge(age, result.Score)
	}

	c.JSON(http.StatusOK, response)
}

// handleInsights recomputes correlation insights from the latest completed
// report. The stored snapshot is display-only; this endpoint always runs
// the rules against current readings.
func (s *Server) handleInsights(c *gin.Context) {
	userID := c.Param("userID")

	report, err := s.store.LatestCompletedReport(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "no completed lab report")
			return
		}
		s.logger.WithError(err).Error("Failed to load latest report")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to load report")
		return
	}

	s.classifier.ClassifyAll(report.Readings)
	insights := s.correlations.Detect(report.Readings)

	c.JSON(http.StatusOK, gin.H{
		"user_id":   userID,
		"report_id": report.ID,
		"insights":  insights,
	})
}

type uploadReportRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Document string `json:"document" binding:"required"`
}

// handleUploadReport runs the full ingest pipeline: extract, classify,
// correlate, persist. Insights are snapshotted onto the stored report for
// display; recomputation stays authoritative.
func (s *Server) handleUploadReport(c *gin.Context) {
	var req uploadReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error())
		return
	}

	ctx := c.Request.Context()

	var readings []domain.BiomarkerReading
	fromCache := false
	if s.extractionCache != nil {
		if cached, ok, err := s.extractionCache.GetExtraction(ctx, req.Document); err == nil && ok {
			readings = cached
			// Cached readings belonged to an earlier report; reissue
			// identities so the new report gets its own rows.
			for i := range readings {
				readings[i].ID = uuid.New().String()
				readings[i].ReportID = ""
				readings[i].Verified = false
			}
			fromCache = true
		}
	}

	if !fromCache {
		var err error
		readings, err = s.extractor.ExtractBiomarkers(ctx, req.UserID, req.Document)
		if err == nil && s.extractionCache != nil {
			if cacheErr := s.extractionCache.SetExtraction(ctx, req.Document, readings, 0); cacheErr != nil {
				s.logger.WithError(cacheErr).Warn("Failed to cache extraction result")
			}
		}
		if err != nil {
			s.logger.WithError(err).WithField("user_id", req.UserID).Error("Extraction failed")
			failed := &domain.LabReport{
				ID:     uuid.New().String(),
				UserID: req.UserID,
				Status: domain.REPORT_FAILED,
			}
			if saveErr := s.store.SaveLabReport(ctx, failed); saveErr != nil {
				s.logger.WithError(saveErr).Error("Failed to record failed report")
			}
			s.respondError(c, http.StatusBadGateway, domain.ErrCodeExtractionAPI, "document extraction failed")
			return
		}
	}

	s.classifier.ClassifyAll(readings)
	insights := s.correlations.Detect(readings)

	report := &domain.LabReport{
		ID:       uuid.New().String(),
		UserID:   req.UserID,
		Status:   domain.REPORT_COMPLETED,
		Readings: readings,
		Insights: insights,
	}

	if err := s.store.SaveLabReport(ctx, report); err != nil {
		s.logger.WithError(err).Error("Failed to save lab report")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to store report")
		return
	}

	s.invalidateUserScores(c, req.UserID)

	s.logger.WithFields(logrus.Fields{
		"user_id":   req.UserID,
		"report_id": report.ID,
		"readings":  len(readings),
		"insights":  len(insights),
	}).Info("Lab report processed")

	c.JSON(http.StatusCreated, report)
}

type verifyReadingRequest struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// handleVerifyReading records a human correction on an extracted reading.
func (s *Server) handleVerifyReading(c *gin.Context) {
	readingID := c.Param("id")

	var req verifyReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error())
		return
	}

	reading, err := s.store.ApplyVerification(c.Request.Context(), readingID, req.Value, req.Unit)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "reading not found")
		case errors.Is(err, domain.ErrAlreadyVerified):
			s.respondError(c, http.StatusConflict, domain.ErrCodeValidation, "reading already verified")
		default:
			s.logger.WithError(err).Error("Failed to apply verification")
			s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to verify reading")
		}
		return
	}

	c.JSON(http.StatusOK, reading)
}

type nutritionRequest struct {
	UserID    string   `json:"user_id" binding:"required"`
	Diet      string   `json:"diet"`
	Allergies []string `json:"allergies"`
}

// handleNutrition maps the latest report's out-of-range readings to
// nutrient needs and food suggestions filtered by the profile.
func (s *Server) handleNutrition(c *gin.Context) {
	var req nutritionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error())
		return
	}

	report, err := s.store.LatestCompletedReport(c.Request.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "no completed lab report")
			return
		}
		s.logger.WithError(err).Error("Failed to load latest report")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to load report")
		return
	}

	s.classifier.ClassifyAll(report.Readings)
	analysis := s.nutrition.Analyze(report.Readings, &domain.DietProfile{
		Diet:      req.Diet,
		Allergies: req.Allergies,
	})

	c.JSON(http.StatusOK, analysis)
}

type retentionRequest struct {
	ReasonCategory string               `json:"reason_category" binding:"required"`
	PreviousOffers []domain.OfferRecord `json:"previous_offers"`
}

// handleRetentionOffer selects a retention offer for a churn reason,
// honoring per-type cooldowns.
func (s *Server) handleRetentionOffer(c *gin.Context) {
	var req retentionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error())
		return
	}

	offer := s.retention.SelectOffer(req.ReasonCategory, req.PreviousOffers, time.Now())
	if offer == nil {
		c.JSON(http.StatusOK, gin.H{
			"offer":   nil,
			"message": "no offer currently available",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"offer": offer})
}

// exportDateFloor and exportDateCeil bound the metric query when no window
// is given; dates are canonical strings so lexical comparison is safe.
const (
	exportDateFloor = "0001-01-01"
	exportDateCeil  = "9999-12-31"
)

// handleExport bundles a user's raw records and streak summary into one
// JSON document.
func (s *Server) handleExport(c *gin.Context) {
	userID := c.Param("userID")
	ctx := c.Request.Context()

	from := c.DefaultQuery("from", exportDateFloor)
	to := c.DefaultQuery("to", exportDateCeil)
	if _, err := domain.ParseDay(from); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "from must be YYYY-MM-DD")
		return
	}
	if _, err := domain.ParseDay(to); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "to must be YYYY-MM-DD")
		return
	}

	metrics, err := s.store.ListDailyMetrics(ctx, userID, from, to)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list daily metrics")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to load metrics")
		return
	}

	logDates, err := s.store.ListLogDates(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list log dates")
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "failed to load logs")
		return
	}

	longest, err := service.LongestStreak(logDates)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeScoring, err.Error())
		return
	}

	export := gin.H{
		"user_id":        userID,
		"exported_at":    time.Now().UTC(),
		"metrics":        metrics,
		"log_dates":      logDates,
		"longest_streak": longest,
	}

	report, err := s.store.LatestCompletedReport(ctx, userID)
	if err == nil {
		export["latest_report"] = report
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WithError(err).Warn("Failed to load latest report for export")
	}

	c.JSON(http.StatusOK, export)
}
