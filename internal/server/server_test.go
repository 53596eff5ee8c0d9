package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudlens/fraudlens/internal/config"
	"github.com/fraudlens/fraudlens/internal/dataset"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func boolPtr(b bool) *bool { return &b }

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:             "0",
		Env:              "development",
		LogLevel:         "error",
		DatasetPath:      "unused",
		DefaultThreshold: 0.5,
		ExplanationTopK:  5,
		RateLimitRPM:     10000,
	}
}

func testSnapshot() *dataset.Snapshot {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return dataset.New([]dataset.Transaction{
		{ID: "T1", Client: "Alice Morgan", Timestamp: base,
			RawScore: 0.1, Score: 0.1, Band: dataset.BandLow, GroundTruth: boolPtr(false)},
		{ID: "T2", Client: "Alice Morgan", Timestamp: base.Add(time.Hour),
			RawScore: 0.9, Score: 0.9, Band: dataset.BandHigh, GroundTruth: boolPtr(true)},
	}, []dataset.Client{
		{Name: "Alice Morgan", FirstName: "Alice", LastName: "Morgan"},
	})
}

// newTestServer creates a server with an injected snapshot
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig(), WithSnapshot(testSnapshot()))
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)

	w = do(t, s, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, w.Code)

	// Not ready until Run flips the flag.
	w = do(t, s, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestInfoEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "FraudLens")
	assert.Contains(t, w.Body.String(), `"transactions":2`)
}

func TestRoutesWired(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/threshold", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"threshold":0.5`)

	w = do(t, s, http.MethodGet, "/api/v1/transactions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"T1"`)

	w = do(t, s, http.MethodGet, "/api/v1/reviewers/florian/worklist", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/reviewers/florian/feed", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestShareToWorklistFlow(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/reviewers/vincent/share",
		`{"receiver":"florian","transactionId":"T2","message":"look at this one"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var shared struct {
		Notification struct {
			ID string `json:"id"`
		} `json:"notification"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &shared))
	require.NotEmpty(t, shared.Notification.ID)

	w = do(t, s, http.MethodGet, "/api/v1/reviewers/florian/feed/unseen", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unseen":1`)

	w = do(t, s, http.MethodPost,
		"/api/v1/reviewers/florian/feed/"+shared.Notification.ID+"/accept", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/reviewers/florian/worklist", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"T2"`)
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/health", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
