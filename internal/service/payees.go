package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/digibank/digibank-service/internal/session"
)

type AddPayeeRequest struct {
	Name          string `json:"name" validate:"required,max=128"`
	BankName      string `json:"bank_name" validate:"required,max=64"`
	AccountNumber string `json:"account_number" validate:"required,alphanum,max=34"`
}

// AddPayee saves an external destination. Saving the same bank account twice returns the stored payee.
func (s *WalletService) AddPayee(ctx context.Context, sess *session.Session, req AddPayeeRequest) (*model.Payee, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	req.Name = strings.TrimSpace(req.Name)
	req.BankName = strings.TrimSpace(req.BankName)
	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	p := &model.Payee{UserID: sess.UserID, Name: req.Name, BankName: req.BankName, AccountNumber: req.AccountNumber}
	if err := s.repo.CreatePayee(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *WalletService) ListPayees(ctx context.Context, sess *session.Session) ([]model.Payee, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	return s.repo.ListPayees(ctx, sess.UserID)
}

func (s *WalletService) DeletePayee(ctx context.Context, sess *session.Session, id uint64) error {
	if sess == nil {
		return ErrUnauthorized
	}
	p, err := s.repo.GetPayee(ctx, id)
	if err != nil {
		return notFound(err, fmt.Sprintf("payee %d", id))
	}
	if p.UserID != sess.UserID {
		return fmt.Errorf("%w: payee %d", ErrNotFound, id)
	}
	return notFound(s.repo.DeletePayee(ctx, id), fmt.Sprintf("payee %d", id))
}
