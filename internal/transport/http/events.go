package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/digibank/digibank-service/internal/repo"
	"github.com/digibank/digibank-service/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// eventsHandler streams the session user's balance changes as server-sent events.
func eventsHandler(svc *service.WalletService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		changes, err := svc.Subscribe(ctx, currentSession(c))
		if err != nil {
			if errors.Is(err, repo.ErrNoRedis) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifications unavailable"})
				return
			}
			writeError(c, err)
			return
		}
		log.Debugw("events stream opened", "user_id", currentSession(c).UserID)
		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case change, ok := <-changes:
				if !ok {
					return false
				}
				c.SSEvent("balance", change)
				return true
			}
		})
	}
}
