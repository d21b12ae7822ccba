package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/crafted-exteriors/crm-api/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit applies a per-route fixed-window IP limit. Each route group gets
// its own limiter instance so budgets don't bleed across groups.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := limiter.CheckIP(c.ClientIP())
		if decision.Allowed {
			c.Next()
			return
		}

		retryAfter := int(decision.RetryAfter / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}

		c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "Rate limit exceeded",
			"retry_after": retryAfter,
		})
		c.Abort()
	}
}
