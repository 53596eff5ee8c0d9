package newsfeed

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for the notification feed
type Handler struct {
	service *Service
}

// NewHandler creates a new newsfeed handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up newsfeed routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/reviewers/:reviewer/share", h.Share)
	r.GET("/reviewers/:reviewer/feed", h.OpenFeed)
	r.GET("/reviewers/:reviewer/feed/unseen", h.UnseenCount)
	r.POST("/reviewers/:reviewer/feed/:id/accept", h.Accept)
	r.DELETE("/reviewers/:reviewer/feed/:id", h.Dismiss)
}

// ShareRequest shares a transaction with another reviewer
type ShareRequest struct {
	Receiver      string `json:"receiver" binding:"required"`
	TransactionID string `json:"transactionId" binding:"required"`
	Message       string `json:"message"`
}

// Share handles POST /reviewers/:reviewer/share
func (h *Handler) Share(c *gin.Context) {
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Body must include receiver and transactionId",
		})
		return
	}

	sender := c.Param("reviewer")
	n, err := h.service.Share(c.Request.Context(), sender, req.Receiver, req.TransactionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, ErrSelfShare):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "self_share",
				"message": err.Error(),
			})
		case errors.Is(err, ErrDanglingReference):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "unknown_transaction",
				"message": "Transaction does not exist in the scored dataset",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "share_failed",
				"message": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"notification": n})
}

// OpenFeed handles GET /reviewers/:reviewer/feed
// Opening the feed marks every unseen entry seen.
func (h *Handler) OpenFeed(c *gin.Context) {
	receiver := c.Param("reviewer")

	feed, err := h.service.OpenFeed(c.Request.Context(), receiver)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "feed_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviewer":      receiver,
		"notifications": feed,
		"count":         len(feed),
	})
}

// UnseenCount handles GET /reviewers/:reviewer/feed/unseen
func (h *Handler) UnseenCount(c *gin.Context) {
	count, err := h.service.UnseenCount(c.Request.Context(), c.Param("reviewer"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "unseen_failed",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unseen": count})
}

// Accept handles POST /reviewers/:reviewer/feed/:id/accept
func (h *Handler) Accept(c *gin.Context) {
	receiver := c.Param("reviewer")
	id := c.Param("id")

	if err := h.service.Accept(c.Request.Context(), receiver, id); err != nil {
		switch {
		case errors.Is(err, ErrNotificationNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Notification not found",
			})
		case errors.Is(err, ErrDanglingReference):
			c.JSON(http.StatusConflict, gin.H{
				"error":   "dangling_reference",
				"message": "The shared transaction no longer exists",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "accept_failed",
				"message": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"accepted": id})
}

// Dismiss handles DELETE /reviewers/:reviewer/feed/:id
func (h *Handler) Dismiss(c *gin.Context) {
	receiver := c.Param("reviewer")
	id := c.Param("id")

	if err := h.service.Dismiss(c.Request.Context(), receiver, id); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Notification not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "dismiss_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dismissed": id})
}
