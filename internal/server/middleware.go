package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/sanad/internal/auth/domain"
	claimdomain "github.com/smallbiznis/sanad/internal/claim/domain"
	obscontext "github.com/smallbiznis/sanad/internal/observability/context"
	"github.com/smallbiznis/sanad/internal/observability/logger"
	"go.uber.org/zap"
)

const contextPrincipalKey = "principal"

// StaffAuthRequired verifies the bearer token and binds the staff principal
// to the request context.
func (s *Server) StaffAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, authdomain.ErrMissingToken)
			return
		}

		principal, err := s.authsvc.Verify(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := authdomain.WithPrincipal(c.Request.Context(), principal)
		ctx = obscontext.WithActor(ctx, obscontext.ActorStaff, principal.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextPrincipalKey, principal)
		c.Next()
	}
}

// CustomerActor marks public requests so timeline entries name the customer.
func CustomerActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := obscontext.WithActor(c.Request.Context(), obscontext.ActorCustomer, "")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := authdomain.PrincipalFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, claimdomain.ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), principal, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// PublicLookupRateLimit throttles track and history lookups per client IP.
func (s *Server) PublicLookupRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.lookupLimiter == nil || !s.lookupLimiter.Enabled() {
			c.Next()
			return
		}

		allowed, retryAfter := s.lookupLimiter.Allow(c.Request.Context(), c.ClientIP())
		if !allowed {
			logger.FromContext(c.Request.Context()).Warn("public lookup rate limit exceeded",
				zap.String("route", c.FullPath()),
			)
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}
