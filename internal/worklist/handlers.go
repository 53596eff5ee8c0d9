package worklist

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for worklist operations
type Handler struct {
	service *Service
}

// NewHandler creates a new worklist handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up worklist routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/reviewers/:reviewer/worklist", h.ListPending)
	r.POST("/reviewers/:reviewer/worklist", h.Add)
	r.POST("/reviewers/:reviewer/worklist/:id/resolve", h.Resolve)
	r.GET("/reviewers/:reviewer/history", h.ListHistory)
}

// AddRequest queues a transaction for review
type AddRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
}

// Add handles POST /reviewers/:reviewer/worklist
func (h *Handler) Add(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	reviewer := c.Param("reviewer")
	if err := h.service.Add(c.Request.Context(), reviewer, req.TransactionID); err != nil {
		if errors.Is(err, ErrUnknownTransaction) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "unknown_transaction",
				"message": "Transaction does not exist in the scored dataset",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "add_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"reviewer":      reviewer,
		"transactionId": req.TransactionID,
	})
}

// ResolveRequest records the reviewer's fraud decision
type ResolveRequest struct {
	Fraud *bool `json:"fraud" binding:"required"`
}

// Resolve handles POST /reviewers/:reviewer/worklist/:id/resolve
func (h *Handler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Body must include a boolean fraud decision",
		})
		return
	}

	reviewer := c.Param("reviewer")
	decision, err := h.service.Resolve(c.Request.Context(), reviewer, c.Param("id"), *req.Fraud)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Transaction is not on the worklist",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "resolve_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"decision": decision})
}

// ListPending handles GET /reviewers/:reviewer/worklist
func (h *Handler) ListPending(c *gin.Context) {
	reviewer := c.Param("reviewer")

	transactions, err := h.service.PendingTransactions(c.Request.Context(), reviewer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviewer":     reviewer,
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// ListHistory handles GET /reviewers/:reviewer/history
func (h *Handler) ListHistory(c *gin.Context) {
	reviewer := c.Param("reviewer")

	history, err := h.service.History(c.Request.Context(), reviewer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "history_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviewer":  reviewer,
		"decisions": history,
		"count":     len(history),
	})
}
