package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/digibank/digibank-service/internal/session"
	"github.com/shopspring/decimal"
)

type AddCardRequest struct {
	CardHolderName string          `json:"card_holder_name" validate:"required,max=128"`
	ExpiryDate     string          `json:"expiry_date" validate:"required,datetime=01/06"`
	CVV            string          `json:"cvv" validate:"required,numeric,len=3"`
	CardType       string          `json:"card_type" validate:"required,max=32"`
	Balance        decimal.Decimal `json:"balance"`
	PIN            string          `json:"pin" validate:"omitempty,numeric,min=4,max=6"`
}

// AddCard registers a card for the session user with a generated 16-digit number.
func (s *WalletService) AddCard(ctx context.Context, sess *session.Session, req AddCardRequest) (*model.Card, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	req.CardHolderName = strings.TrimSpace(req.CardHolderName)
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.Balance.IsNegative() || !model.FitsMoney(req.Balance) {
		return nil, fmt.Errorf("%w: opening balance must be a non-negative amount with at most %d decimal places", ErrValidation, model.MoneyScale)
	}
	number, err := cardNumber()
	if err != nil {
		return nil, err
	}
	c := &model.Card{
		UserID:         sess.UserID,
		CardNumber:     number,
		CardHolderName: req.CardHolderName,
		ExpiryDate:     req.ExpiryDate,
		CVV:            req.CVV,
		CardType:       req.CardType,
		Balance:        model.NewMoney(req.Balance),
	}
	if req.PIN != "" {
		pin := req.PIN
		c.Pin = &pin
	}
	if err := s.repo.CreateCard(ctx, c); err != nil {
		return nil, err
	}
	s.log.Infow("card added", "user_id", sess.UserID, "card_id", c.ID, "last4", c.LastFour())
	return c, nil
}

func (s *WalletService) ListCards(ctx context.Context, sess *session.Session) ([]model.Card, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	return s.repo.ListCards(ctx, sess.UserID)
}

// GetCard returns a card owned by the session user. Other users' cards are reported missing.
func (s *WalletService) GetCard(ctx context.Context, sess *session.Session, id uint64) (*model.Card, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	c, err := s.repo.GetCard(ctx, id)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("card %d", id))
	}
	if c.UserID != sess.UserID {
		return nil, fmt.Errorf("%w: card %d", ErrNotFound, id)
	}
	return c, nil
}

// SetCardPIN sets or replaces a card's PIN.
func (s *WalletService) SetCardPIN(ctx context.Context, sess *session.Session, id uint64, pin string) error {
	if err := s.validate.Var(pin, "required,numeric,min=4,max=6"); err != nil {
		return fmt.Errorf("%w: PIN must be 4 to 6 digits", ErrValidation)
	}
	if _, err := s.GetCard(ctx, sess, id); err != nil {
		return err
	}
	if err := s.repo.UpdateCardPin(ctx, id, pin); err != nil {
		return notFound(err, fmt.Sprintf("card %d", id))
	}
	return nil
}

// DeleteCard removes a card. Its audit trail stays.
func (s *WalletService) DeleteCard(ctx context.Context, sess *session.Session, id uint64) error {
	if _, err := s.GetCard(ctx, sess, id); err != nil {
		return err
	}
	if err := s.repo.DeleteCard(ctx, id); err != nil {
		return notFound(err, fmt.Sprintf("card %d", id))
	}
	if err := s.repo.InvalidateBalance(ctx, model.AccountKindCard, id); err != nil {
		s.log.Warn(err)
	}
	s.log.Infow("card deleted", "user_id", sess.UserID, "card_id", id)
	return nil
}

func cardNumber() (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < 16; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
