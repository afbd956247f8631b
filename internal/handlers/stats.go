package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"launcherstats/internal/stats"
)

// StatsComputer produces the dashboard summary.
type StatsComputer interface {
	Compute(ctx context.Context) (*stats.Summary, error)
}

// RequireBearer rejects requests whose bearer token does not match secret.
// An empty secret rejects everything.
func RequireBearer(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			fail(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		c.Next()
	}
}

// StatsHandler serves the active user summary.
func StatsHandler(engine StatsComputer, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := engine.Compute(c.Request.Context())
		if err != nil {
			log.Errorw("compute stats", "error", err)
			_ = c.Error(err)
			fail(c, http.StatusInternalServerError, internalErrorMessage)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
