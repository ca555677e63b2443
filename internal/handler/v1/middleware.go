package v1

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinicflow/clinicflow/internal/domain"
	"github.com/clinicflow/clinicflow/pkg/auth"
	"github.com/clinicflow/clinicflow/pkg/metrics"
)

const claimsKey = "claims"

// AuthMiddleware validates the bearer token and stashes the staff claims
// on the request context.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing bearer token"})
			return
		}

		claims, err := jwtManager.ValidateAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid or expired token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in the allowed set.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := callerClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing credentials"})
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})
	}
}

func callerClaims(c *gin.Context) *domain.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*domain.Claims); ok {
			return claims
		}
	}
	return nil
}

// MetricsMiddleware records the request counter, latency histogram and
// in-flight gauge for every request.
func MetricsMiddleware(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		collector.InFlightGauge.Inc()

		c.Next()

		collector.InFlightGauge.Dec()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		collector.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		collector.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}
