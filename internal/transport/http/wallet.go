package http

import (
	"net/http"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/digibank/digibank-service/internal/service"
	"github.com/digibank/digibank-service/internal/session"
	"github.com/gin-gonic/gin"
)

func loginHandler(svc *service.WalletService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, sess, err := svc.Login(c.Request.Context(), req.Username, req.PIN)
		if err != nil {
			writeError(c, err)
			return
		}
		token, err := sessions.Issue(*sess)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
	}
}

type topUpReq struct {
	Amount         string `json:"amount" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"max=64"`
}

func topUp(c *gin.Context, svc *service.WalletService, ref service.AccountRef) {
	var req topUpReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	amt, ok := parseAmount(c, req.Amount)
	if !ok {
		return
	}
	res, err := svc.TopUp(c.Request.Context(), currentSession(c), service.TopUpRequest{
		Account: ref, Amount: amt, IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func walletTopUpHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		topUp(c, svc, service.AccountRef{Kind: model.AccountKindUser, ID: currentSession(c).UserID})
	}
}

type walletTransferReq struct {
	ToUsername     string `json:"to_username" binding:"required"`
	Amount         string `json:"amount" binding:"required"`
	PIN            string `json:"pin" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"max=64"`
}

func walletTransferHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req walletTransferReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		amt, ok := parseAmount(c, req.Amount)
		if !ok {
			return
		}
		res, err := svc.TransferToUser(c.Request.Context(), currentSession(c), req.ToUsername, amt, req.PIN, req.IdempotencyKey)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func history(c *gin.Context, svc *service.WalletService, ref service.AccountRef) {
	page, size := parsePage(c)
	res, err := svc.GetHistory(c.Request.Context(), currentSession(c), ref, page, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func walletHistoryHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		history(c, svc, service.AccountRef{Kind: model.AccountKindUser, ID: currentSession(c).UserID})
	}
}
