package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const corsMaxAge = 12 * time.Hour

var (
	corsAllowMethods  = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}, ", ")
	corsAllowHeaders  = "Origin, Content-Type, Content-Length, Accept, Authorization, X-Request-ID"
	corsExposeHeaders = "Content-Disposition, X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining"
)

// corsPolicy decides which portal origins may call the API. Entries may be
// exact origins, "*" or a subdomain wildcard such as "*.venue.example".
type corsPolicy struct {
	allowAll bool
	exact    map[string]bool
	suffixes []string
}

func newCORSPolicy(origins []string, allowAll bool) corsPolicy {
	policy := corsPolicy{allowAll: allowAll, exact: make(map[string]bool)}
	for _, origin := range origins {
		switch {
		case origin == "*":
			policy.allowAll = true
		case strings.HasPrefix(origin, "*."):
			policy.suffixes = append(policy.suffixes, origin[1:])
		default:
			policy.exact[origin] = true
		}
	}
	return policy
}

func (p corsPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.allowAll || p.exact[origin] {
		return true
	}
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}

// CORSMiddleware admits every origin in development and the configured
// origin list elsewhere. Credentials are always allowed, so the matching
// origin is echoed instead of "*".
func CORSMiddleware(environment string, origins []string) gin.HandlerFunc {
	policy := newCORSPolicy(origins, environment == "development")
	if policy.allowAll {
		logrus.Info("CORS: all origins allowed")
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if policy.allows(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Expose-Headers", corsExposeHeaders)
			c.Header("Vary", "Origin")
		} else if origin != "" {
			logrus.WithField("origin", origin).Debug("CORS origin rejected")
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", corsAllowMethods)
			c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
			c.Header("Access-Control-Max-Age", strconv.Itoa(int(corsMaxAge.Seconds())))
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
