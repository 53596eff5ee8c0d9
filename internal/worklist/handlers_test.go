package worklist

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(newTestService())
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_AddAndList(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/v1/reviewers/florian/worklist",
		`{"transactionId":"T1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/reviewers/florian/worklist", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"T1"`)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestHandler_AddUnknownTransaction(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/v1/reviewers/florian/worklist",
		`{"transactionId":"missing"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown_transaction")
}

func TestHandler_AddInvalidBody(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/v1/reviewers/florian/worklist", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ResolveFlow(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/v1/reviewers/florian/worklist",
		`{"transactionId":"T2"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/reviewers/florian/worklist/T2/resolve",
		`{"fraud":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fraud":false`)

	w = doJSON(t, r, http.MethodGet, "/api/v1/reviewers/florian/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"T2"`)
}

func TestHandler_ResolveNotFound(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/v1/reviewers/florian/worklist/T9/resolve",
		`{"fraud":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestHandler_ResolveMissingDecision(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/v1/reviewers/florian/worklist/T1/resolve", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
