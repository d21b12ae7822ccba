package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/crafted-exteriors/crm-api/internal/abuse"
	"github.com/crafted-exteriors/crm-api/internal/metrics"
	"github.com/crafted-exteriors/crm-api/internal/ratelimit"
	"github.com/crafted-exteriors/crm-api/internal/service"
	"github.com/crafted-exteriors/crm-api/internal/turnstile"
	"github.com/gin-gonic/gin"
)

// TokenVerifier is the slice of the turnstile verifier the intake handler
// needs; *turnstile.Verifier satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) turnstile.Outcome
}

// IntakeHandler runs the public lead submission pipeline: parse, rate limit
// across all dimensions, bot verification, schema validation, atomic persist.
// Each stage is terminal on failure; no stage is retried.
type IntakeHandler struct {
	intake   *service.IntakeService
	limiter  *ratelimit.Limiter
	verifier TokenVerifier
	abuseLog *abuse.Logger
	metrics  *metrics.Metrics
}

func NewIntakeHandler(intake *service.IntakeService, limiter *ratelimit.Limiter, v TokenVerifier, abuseLog *abuse.Logger, m *metrics.Metrics) *IntakeHandler {
	return &IntakeHandler{
		intake:   intake,
		limiter:  limiter,
		verifier: v,
		abuseLog: abuseLog,
		metrics:  m,
	}
}

const genericFailureMessage = "We couldn't process your request right now. Please try again later."

// Submit handles POST /api/leads/intake.
func (h *IntakeHandler) Submit(c *gin.Context) {
	ip := c.ClientIP()
	path := c.Request.URL.Path

	var req service.IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.IntakeOutcome("invalid_format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	keys := map[ratelimit.Dimension]string{
		ratelimit.DimensionIP:          ip,
		ratelimit.DimensionFingerprint: ratelimit.Fingerprint(c.Request),
		ratelimit.DimensionContact:     ratelimit.NormalizeContact(req.Email, req.Phone),
	}

	decision := h.limiter.Check(keys)
	if !decision.Allowed {
		retryAfter := int(decision.RetryAfter / time.Second)
		if retryAfter < 1 {
			retryAfter = 1
		}

		h.abuseLog.Emit(abuse.EventRateLimited, ip, path, string(decision.Dimension), decision.Reason)
		h.metrics.IntakeOutcome("rate_limited")

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "Too many requests. Please wait before trying again.",
			"retry_after": retryAfter,
		})
		return
	}

	outcome := h.verifier.Verify(c.Request.Context(), req.TurnstileToken, ip)
	if outcome.Misconfigured {
		// Operator fault, not the client's - 503, never 403.
		h.metrics.IntakeOutcome("misconfigured")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": genericFailureMessage})
		return
	}
	if !outcome.Success {
		h.abuseLog.Emit(abuse.EventBotFailed, ip, path, "", "token verification failed")
		h.metrics.IntakeOutcome("bot_failed")
		c.JSON(http.StatusForbidden, gin.H{"error": "Verification failed. Please refresh and try again."})
		return
	}

	if verr := h.intake.Validate(&req); verr != nil {
		h.abuseLog.Emit(abuse.EventIntakeRejected, ip, path, "", verr.Error())
		h.metrics.IntakeOutcome("validation_failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"details": verr.Details,
		})
		return
	}

	if err := h.intake.Accept(c.Request.Context(), &req); err != nil {
		// Full detail stays server-side; the caller gets one generic line.
		log.Printf("intake: persist failed for request from %s: %v", ip, err)
		h.abuseLog.Emit(abuse.EventPersistFailed, ip, path, "", "lead persistence failed")
		h.metrics.IntakeOutcome("persist_failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailureMessage})
		return
	}

	h.metrics.IntakeOutcome("accepted")
	h.metrics.LeadCreated()

	// Deliberately no identifier in the response: the public endpoint must
	// not be usable to enumerate lead IDs.
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Thanks! We received your request and will be in touch shortly.",
	})
}
