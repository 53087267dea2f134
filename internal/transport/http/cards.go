package http

import (
	"net/http"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/digibank/digibank-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func cardRef(id uint64) service.AccountRef {
	return service.AccountRef{Kind: model.AccountKindCard, ID: id}
}

func listCardsHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cards, err := svc.ListCards(c.Request.Context(), currentSession(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, cards)
	}
}

type addCardReq struct {
	CardHolderName string `json:"card_holder_name" binding:"required"`
	ExpiryDate     string `json:"expiry_date" binding:"required"`
	CVV            string `json:"cvv" binding:"required"`
	CardType       string `json:"card_type" binding:"required"`
	Balance        string `json:"balance"`
	PIN            string `json:"pin"`
}

func addCardHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addCardReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		bal := decimal.Zero
		if req.Balance != "" {
			var ok bool
			if bal, ok = parseAmount(c, req.Balance); !ok {
				return
			}
		}
		card, err := svc.AddCard(c.Request.Context(), currentSession(c), service.AddCardRequest{
			CardHolderName: req.CardHolderName,
			ExpiryDate:     req.ExpiryDate,
			CVV:            req.CVV,
			CardType:       req.CardType,
			Balance:        bal,
			PIN:            req.PIN,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, card)
	}
}

func getCardHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		card, err := svc.GetCard(c.Request.Context(), currentSession(c), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, card)
	}
}

func deleteCardHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		if err := svc.DeleteCard(c.Request.Context(), currentSession(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type pinReq struct {
	PIN string `json:"pin" binding:"required"`
}

func setCardPINHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req pinReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := svc.SetCardPIN(c.Request.Context(), currentSession(c), id, req.PIN); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func cardBalanceHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		bal, err := svc.GetBalance(c.Request.Context(), currentSession(c), cardRef(id))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": bal})
	}
}

func cardHistoryHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		history(c, svc, cardRef(id))
	}
}

func cardTopUpHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		topUp(c, svc, cardRef(id))
	}
}

type cardTransferReq struct {
	ToCardID       uint64 `json:"to_card_id" binding:"required"`
	Amount         string `json:"amount" binding:"required"`
	PIN            string `json:"pin" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"max=64"`
}

func cardTransferHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req cardTransferReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		amt, ok := parseAmount(c, req.Amount)
		if !ok {
			return
		}
		dst := cardRef(req.ToCardID)
		res, err := svc.Transfer(c.Request.Context(), currentSession(c), service.TransferRequest{
			Source:         cardRef(id),
			Destination:    service.Destination{Account: &dst},
			Amount:         amt,
			PIN:            &req.PIN,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// externalTransferReq names either a saved payee or a bank account.
type externalTransferReq struct {
	PayeeID        uint64 `json:"payee_id"`
	BankName       string `json:"bank_name"`
	AccountNumber  string `json:"account_number"`
	Amount         string `json:"amount" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"max=64"`
}

func externalTransferHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req externalTransferReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		amt, ok := parseAmount(c, req.Amount)
		if !ok {
			return
		}
		var (
			res *service.TransferResult
			err error
		)
		if req.PayeeID != 0 {
			res, err = svc.TransferToPayee(c.Request.Context(), currentSession(c), cardRef(id), req.PayeeID, amt, req.IdempotencyKey)
		} else {
			res, err = svc.Transfer(c.Request.Context(), currentSession(c), service.TransferRequest{
				Source: cardRef(id),
				Destination: service.Destination{External: &service.ExternalAccount{
					BankName: req.BankName, AccountNumber: req.AccountNumber,
				}},
				Amount:         amt,
				IdempotencyKey: req.IdempotencyKey,
			})
		}
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
