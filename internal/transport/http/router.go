package http

import (
	"github.com/digibank/digibank-service/internal/config"
	"github.com/digibank/digibank-service/internal/service"
	"github.com/digibank/digibank-service/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(svc *service.WalletService, sessions *session.Manager, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(rl.RPS, rl.Burst))
	RegisterHandlers(r, svc, sessions, log)
	return r
}

func RegisterHandlers(r *gin.Engine, svc *service.WalletService, sessions *session.Manager, log *zap.SugaredLogger) {
	v1 := r.Group("/v1")
	{
		v1.POST("/users", registerHandler(svc))
		v1.POST("/sessions", loginHandler(svc, sessions))
	}

	auth := v1.Group("", AuthMiddleware(sessions))
	{
		auth.GET("/me", profileHandler(svc))
		auth.POST("/me/topup", walletTopUpHandler(svc))
		auth.POST("/me/transfer", walletTransferHandler(svc))
		auth.GET("/me/history", walletHistoryHandler(svc))

		auth.GET("/cards", listCardsHandler(svc))
		auth.POST("/cards", addCardHandler(svc))
		auth.GET("/cards/:id", getCardHandler(svc))
		auth.DELETE("/cards/:id", deleteCardHandler(svc))
		auth.PUT("/cards/:id/pin", setCardPINHandler(svc))
		auth.GET("/cards/:id/balance", cardBalanceHandler(svc))
		auth.GET("/cards/:id/history", cardHistoryHandler(svc))
		auth.POST("/cards/:id/topup", cardTopUpHandler(svc))
		auth.POST("/cards/:id/transfer", cardTransferHandler(svc))
		auth.POST("/cards/:id/transfer/external", externalTransferHandler(svc))

		auth.GET("/payees", listPayeesHandler(svc))
		auth.POST("/payees", addPayeeHandler(svc))
		auth.DELETE("/payees/:id", deletePayeeHandler(svc))

		auth.GET("/events", eventsHandler(svc, log))
	}
}
