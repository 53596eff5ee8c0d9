// Package validation provides input validation middleware for the FraudLens API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxMessageLength caps free-text fields (share messages)
const MaxMessageLength = 2000

// reviewerNameRegex matches the reviewer identities the dashboard issues:
// lowercase word characters, dots and dashes, 2-64 chars.
var reviewerNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,63}$`)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidReviewerName checks if a string is a well-formed reviewer identity
func IsValidReviewerName(name string) bool {
	return reviewerNameRegex.MatchString(name)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}

// ReviewerParamMiddleware validates the :reviewer URL parameter on routes that
// use it. Apply to route groups that include :reviewer params to reject
// malformed identities early (no-op when the param is absent).
func ReviewerParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reviewer := c.Param("reviewer")
		if reviewer != "" && !IsValidReviewerName(reviewer) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_reviewer",
				"message": "reviewer must be 2-64 lowercase word characters",
			})
			return
		}
		c.Next()
	}
}
