package review

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fraudlens/fraudlens/internal/dataset"
	"github.com/fraudlens/fraudlens/internal/explain"
	"github.com/fraudlens/fraudlens/internal/metrics"
	"github.com/fraudlens/fraudlens/internal/pagination"
	"github.com/fraudlens/fraudlens/internal/threshold"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Handler provides HTTP endpoints for the dashboard's read surface.
type Handler struct {
	session *Session
	topK    int

	// order holds the snapshot row indices sorted by (timestamp, id), the
	// walk order the listing cursors are defined over. The CSV is not
	// required to arrive sorted, so paginating in raw dataset order would
	// skip and repeat rows across pages.
	order []int

	// onThresholdChange, if set, is called after a successful threshold
	// update (e.g. to push the new value over WebSocket).
	onThresholdChange func(t float64)
}

// NewHandler creates a new review handler. topK is the number of explanation
// features returned when the request doesn't ask for a specific k; values
// below 1 fall back to the package default.
func NewHandler(session *Session, topK int) *Handler {
	if topK < 1 {
		topK = explain.DefaultTopK
	}
	snap := session.Snapshot()
	order := make([]int, snap.Len())
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ta, _ := snap.At(order[a])
		tb, _ := snap.At(order[b])
		if !ta.Timestamp.Equal(tb.Timestamp) {
			return ta.Timestamp.Before(tb.Timestamp)
		}
		return ta.ID < tb.ID
	})
	return &Handler{session: session, topK: topK, order: order}
}

// OnThresholdChange registers a hook fired after each threshold update.
func (h *Handler) OnThresholdChange(fn func(t float64)) {
	h.onThresholdChange = fn
}

// RegisterRoutes sets up review routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/transactions", h.ListTransactions)
	r.GET("/transactions/:id", h.GetTransaction)
	r.GET("/transactions/:id/explanation", h.GetExplanation)
	r.GET("/threshold", h.GetThreshold)
	r.PUT("/threshold", h.SetThreshold)
	r.GET("/quadrants", h.ListQuadrants)
	r.GET("/quadrants/:quadrant", h.GetQuadrant)
	r.GET("/clients/:name", h.GetClient)
}

// TransactionView is a transaction plus its derived decision state under
// the current threshold.
type TransactionView struct {
	dataset.Transaction
	Flagged  bool               `json:"flagged"`
	Quadrant threshold.Quadrant `json:"quadrant,omitempty"`
}

func (h *Handler) view(tx dataset.Transaction, idx int) TransactionView {
	v := TransactionView{Transaction: tx, Flagged: h.session.Decision(idx)}
	if q, ok := h.session.Evaluation().QuadrantOf(h.session.Snapshot(), idx); ok {
		v.Quadrant = q
	}
	return v
}

// ListTransactions handles GET /transactions with cursor pagination and an
// optional ?client= filter.
func (h *Handler) ListTransactions(c *gin.Context) {
	limit := defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be a positive integer",
			})
			return
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		limit = n
	}

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cursor",
			"message": err.Error(),
		})
		return
	}

	clientFilter := c.Query("client")
	snap := h.session.Snapshot()

	// Fetch limit+1 rows past the cursor, walking the sorted index so pages
	// tile the snapshot regardless of CSV row order.
	views := make([]TransactionView, 0, limit+1)
	for _, i := range h.order {
		if len(views) > limit {
			break
		}
		tx, _ := snap.At(i)
		if clientFilter != "" && tx.Client != clientFilter {
			continue
		}
		if cursor != nil && !afterCursor(tx, cursor) {
			continue
		}
		views = append(views, h.view(tx, i))
	}

	page, next, hasMore := pagination.ComputePage(views, limit, func(v TransactionView) (time.Time, string) {
		return v.Timestamp, v.ID
	})

	c.JSON(http.StatusOK, gin.H{
		"transactions": page,
		"threshold":    h.session.Threshold(),
		"nextCursor":   next,
		"hasMore":      hasMore,
	})
}

// afterCursor reports whether tx sorts strictly after the cursor position
// in (timestamp, id) order.
func afterCursor(tx dataset.Transaction, cur *pagination.Cursor) bool {
	if !tx.Timestamp.Equal(cur.Timestamp) {
		return tx.Timestamp.After(cur.Timestamp)
	}
	return tx.ID > cur.ID
}

// GetTransaction handles GET /transactions/:id.
func (h *Handler) GetTransaction(c *gin.Context) {
	id := c.Param("id")
	snap := h.session.Snapshot()

	idx, ok := snap.IndexOf(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Transaction not found",
		})
		return
	}
	tx, _ := snap.At(idx)
	c.JSON(http.StatusOK, gin.H{"transaction": h.view(tx, idx)})
}

// GetExplanation handles GET /transactions/:id/explanation?k=.
// The top-k features are ordered by absolute influence; positive influence
// pushes toward fraud.
func (h *Handler) GetExplanation(c *gin.Context) {
	id := c.Param("id")
	snap := h.session.Snapshot()

	idx, ok := snap.IndexOf(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Transaction not found",
		})
		return
	}

	k := h.topK
	if raw := c.Query("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_k",
				"message": "k must be a positive integer",
			})
			return
		}
		k = n
	}

	contributions, err := explain.Rank(snap, idx, k)
	if err != nil {
		if errors.Is(err, explain.ErrExplanationUnavailable) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "explanation_unavailable",
				"message": "No attribution vectors were loaded for this dataset",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "explanation_failed",
			"message": err.Error(),
		})
		return
	}
	metrics.ExplanationsServedTotal.Inc()

	question := "Why is this transaction not fraudulent?"
	if h.session.Decision(idx) {
		question = "Why is this transaction fraudulent?"
	}

	c.JSON(http.StatusOK, gin.H{
		"transactionId": id,
		"question":      question,
		"contributions": contributions,
	})
}

// ThresholdResponse is the threshold endpoint payload.
type ThresholdResponse struct {
	Threshold float64          `json:"threshold"`
	Matrix    threshold.Matrix `json:"matrix"`
}

// GetThreshold handles GET /threshold.
func (h *Handler) GetThreshold(c *gin.Context) {
	eval := h.session.Evaluation()
	c.JSON(http.StatusOK, ThresholdResponse{
		Threshold: eval.Threshold,
		Matrix:    eval.Matrix,
	})
}

// SetThresholdRequest moves the decision threshold.
type SetThresholdRequest struct {
	Threshold *float64 `json:"threshold" binding:"required"`
}

// SetThreshold handles PUT /threshold.
func (h *Handler) SetThreshold(c *gin.Context) {
	var req SetThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Body must include threshold",
		})
		return
	}

	eval, err := h.session.SetThreshold(c.Request.Context(), *req.Threshold)
	if err != nil {
		switch {
		case errors.Is(err, threshold.ErrThresholdOutOfRange):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "threshold_out_of_range",
				"message": "Threshold must be within [0, 1]",
			})
		case errors.Is(err, threshold.ErrDegenerateMatrix):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "degenerate_matrix",
				"message": err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "threshold_failed",
				"message": err.Error(),
			})
		}
		return
	}

	if h.onThresholdChange != nil {
		h.onThresholdChange(eval.Threshold)
	}

	c.JSON(http.StatusOK, ThresholdResponse{
		Threshold: eval.Threshold,
		Matrix:    eval.Matrix,
	})
}

// ListQuadrants handles GET /quadrants: per-quadrant counts and rates at
// the current threshold.
func (h *Handler) ListQuadrants(c *gin.Context) {
	eval := h.session.Evaluation()
	counts := eval.Counts()

	out := make([]gin.H, 0, len(threshold.Quadrants))
	for _, q := range threshold.Quadrants {
		out = append(out, gin.H{
			"quadrant": q,
			"count":    counts[q],
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"threshold": eval.Threshold,
		"matrix":    eval.Matrix,
		"quadrants": out,
	})
}

// GetQuadrant handles GET /quadrants/:quadrant: the transactions in one
// confusion-matrix cell, in dataset order.
func (h *Handler) GetQuadrant(c *gin.Context) {
	q, err := threshold.ParseQuadrant(c.Param("quadrant"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "unknown_quadrant",
			"message": "Quadrant must be one of true_positive, false_positive, true_negative, false_negative",
		})
		return
	}

	snap := h.session.Snapshot()
	eval := h.session.Evaluation()

	idxs := eval.Quadrant(q)
	views := make([]TransactionView, 0, len(idxs))
	for _, i := range idxs {
		tx, _ := snap.At(i)
		views = append(views, h.view(tx, i))
	}

	c.JSON(http.StatusOK, gin.H{
		"quadrant":     q,
		"threshold":    eval.Threshold,
		"count":        len(views),
		"transactions": views,
	})
}

// GetClient handles GET /clients/:name: the client record plus all of their
// transactions.
func (h *Handler) GetClient(c *gin.Context) {
	name := c.Param("name")
	snap := h.session.Snapshot()

	client, ok := snap.Client(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Client not found",
		})
		return
	}

	txs := snap.ClientTransactions(name)
	views := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		if idx, ok := snap.IndexOf(tx.ID); ok {
			views = append(views, h.view(tx, idx))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"client":       client,
		"transactions": views,
	})
}
