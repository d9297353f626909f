package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitality-score-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(serverURL string) *ExtractionClient {
	return NewExtractionClient(domain.ExtractionConfig{
		BaseURL:   serverURL + "/",
		APIKey:    "test-key",
		Timeout:   5 * time.Second,
		RateLimit: 100,
	}, testLogger())
}

func TestExtractionClient_ExtractBiomarkers(t *testing.T) {
	conf := 0.85
	mockResponse := map[string]interface{}{
		"biomarkers": []map[string]interface{}{
			{
				"name":  "Ferritin",
				"value": 12.0,
				"unit":  "ng/mL",
				"reference_range": map[string]float64{
					"min": 30,
					"max": 300,
				},
				"confidence": conf,
			},
			{
				"name":  "Vitamin B12",
				"value": 450.0,
				"unit":  "pg/mL",
			},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/extract", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req extractionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-1", req.UserID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mockResponse)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	readings, err := client.ExtractBiomarkers(context.Background(), "user-1", "FERRITIN 12 ng/mL ...")

	require.NoError(t, err)
	require.Len(t, readings, 2)

	ferritin := readings[0]
	assert.NotEmpty(t, ferritin.ID)
	assert.Equal(t, "Ferritin", ferritin.Name)
	assert.Equal(t, 12.0, ferritin.Value)
	require.NotNil(t, ferritin.ReferenceRange)
	assert.Equal(t, 30.0, ferritin.ReferenceRange.Min)
	assert.Equal(t, 0.85, ferritin.Confidence)
	assert.Empty(t, ferritin.Status, "classification happens downstream, not in the client")

	b12 := readings[1]
	assert.Nil(t, b12.ReferenceRange, "missing range must stay nil")
	assert.Equal(t, 1.0, b12.Confidence, "missing confidence defaults to trusted")
}

func TestExtractionClient_ExtractBiomarkers_EmptyDocument(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")

	_, err := client.ExtractBiomarkers(context.Background(), "user-1", "")

	assert.Error(t, err)
}

func TestExtractionClient_ExtractBiomarkers_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream failure", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.ExtractBiomarkers(context.Background(), "user-1", "doc")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestExtractionClient_CircuitBreakerOpens(t *testing.T) {
	failures := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		failures++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	// Drive the breaker open with consecutive failures
	for i := 0; i < 10; i++ {
		_, err := client.ExtractBiomarkers(ctx, "user-1", "doc")
		assert.Error(t, err)
	}

	// Once open, requests stop reaching the server
	requestsBefore := failures
	_, err := client.ExtractBiomarkers(ctx, "user-1", "doc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, requestsBefore, failures, "open breaker must short-circuit")
}

func TestExtractionClient_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{not json")
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.ExtractBiomarkers(context.Background(), "user-1", "doc")

	assert.Error(t, err)
}
