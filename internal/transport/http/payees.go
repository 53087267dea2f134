package http

import (
	"net/http"

	"github.com/digibank/digibank-service/internal/service"
	"github.com/gin-gonic/gin"
)

func listPayeesHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		payees, err := svc.ListPayees(c.Request.Context(), currentSession(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, payees)
	}
}

func addPayeeHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.AddPayeeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, err := svc.AddPayee(c.Request.Context(), currentSession(c), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func deletePayeeHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		if err := svc.DeletePayee(c.Request.Context(), currentSession(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
