// Package external holds clients for services outside the process boundary:
// the lab document extraction provider and the Redis score cache.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/vitality-score-server/internal/domain"
)

// ExtractionClient calls the lab extraction provider to turn an uploaded
// document into structured biomarker readings. Calls are rate limited and
// wrapped in a circuit breaker so a failing provider degrades the upload
// flow instead of taking it down.
type ExtractionClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// extractionRequest is the provider's request payload.
type extractionRequest struct {
	UserID   string `json:"user_id"`
	Document string `json:"document"`
}

// extractionResponse is the provider's response payload. Reference range
// and confidence are optional per entry.
type extractionResponse struct {
	Biomarkers []struct {
		Name     string  `json:"name"`
		Value    float64 `json:"value"`
		Unit     string  `json:"unit"`
		Category string  `json:"category,omitempty"`
		Range    *struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"reference_range,omitempty"`
		Confidence *float64 `json:"confidence,omitempty"`
	} `json:"biomarkers"`
}

// NewExtractionClient creates a new extraction provider client
func NewExtractionClient(config domain.ExtractionConfig, logger *logrus.Logger) *ExtractionClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 10
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "Extraction",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ExtractionClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:   breaker,
		logger:    logger,
	}
}

// ExtractBiomarkers sends the document text to the provider and converts
// the response into domain readings. Entries without a reference range come
// back unclassified; missing confidence is treated as trusted (1.0).
func (c *ExtractionClient) ExtractBiomarkers(ctx context.Context, userID string, documentText string) ([]domain.BiomarkerReading, error) {
	if documentText == "" {
		return nil, domain.NewValidationError("document", "must not be empty", documentText)
	}

	// Rate limiting
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doExtract(ctx, userID, documentText)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, fmt.Errorf("extraction service unavailable (circuit breaker open)")
		}
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	resp := result.(*extractionResponse)
	readings := make([]domain.BiomarkerReading, 0, len(resp.Biomarkers))
	now := time.Now()

	for _, b := range resp.Biomarkers {
		reading := domain.BiomarkerReading{
			ID:         uuid.New().String(),
			Name:       b.Name,
			Value:      b.Value,
			Unit:       b.Unit,
			Category:   b.Category,
			Confidence: 1.0,
			CreatedAt:  now,
		}
		if b.Range != nil {
			reading.ReferenceRange = &domain.ReferenceRange{Min: b.Range.Min, Max: b.Range.Max}
		}
		if b.Confidence != nil {
			reading.Confidence = *b.Confidence
		}
		readings = append(readings, reading)
	}

	c.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"readings": len(readings),
	}).Debug("Extracted biomarker readings")

	return readings, nil
}

// doExtract performs the actual API call.
func (c *ExtractionClient) doExtract(ctx context.Context, userID, documentText string) (*extractionResponse, error) {
	payload, err := json.Marshal(extractionRequest{UserID: userID, Document: documentText})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"extract", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("extraction API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var extracted extractionResponse
	if err := json.Unmarshal(body, &extracted); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return &extracted, nil
}

// BreakerCounts exposes circuit breaker statistics for health reporting.
func (c *ExtractionClient) BreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}

// BreakerState exposes the current circuit breaker state.
func (c *ExtractionClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}
