package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wayfarerlabs/wayfarer/internal/ratelimit"
)

const requestIDHeader = "X-Request-ID"

// logRequest tags every request with an identifier and records the outcome
// with latency and the resolved client address.
func (h *httpHandler) logRequest(c *gin.Context) {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header(requestIDHeader, requestID)

	start := time.Now()
	c.Next()

	h.logger.Info("request completed",
		zap.String("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("latency", time.Since(start)),
		zap.String("client_ip", ratelimit.ClientIP(c.Request, h.trustProxy)))
}

func (h *httpHandler) instrumentRequest(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	h.collector.ObserveRequest(
		c.Request.Method,
		route,
		strconv.Itoa(c.Writer.Status()),
		time.Since(start))
}

// limitRequests enforces per-client admission for one endpoint class. A nil
// limiter disables enforcement, which keeps handler tests independent of it.
func (h *httpHandler) limitRequests(limiter *ratelimit.Limiter, class string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		client := ratelimit.ClientIP(c.Request, h.trustProxy)
		if !limiter.Allow(client) {
			if h.collector != nil {
				h.collector.RateLimitedRequests.WithLabelValues(class).Inc()
			}
			h.logger.Warn("request rate limited",
				zap.String("class", class),
				zap.String("client_ip", client))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limit_exceeded"})
			return
		}

		if h.collector != nil {
			h.collector.ActiveRateClients.WithLabelValues(class).Set(float64(limiter.Stats().ActiveClients))
		}
		c.Next()
	}
}
