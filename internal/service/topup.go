package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/digibank/digibank-service/internal/repo"
	"github.com/digibank/digibank-service/internal/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TopUpRequest struct {
	Account        AccountRef
	Amount         decimal.Decimal
	IdempotencyKey string
}

type TopUpResult struct {
	Reference string          `json:"reference"`
	Balance   decimal.Decimal `json:"balance"`
	Replayed  bool            `json:"replayed"`
}

// TopUp adds money to one of the session user's accounts. No credential is required.
func (s *WalletService) TopUp(ctx context.Context, sess *session.Session, req TopUpRequest) (*TopUpResult, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	if err := checkAmount(req.Amount); err != nil {
		return nil, err
	}
	if !req.Account.valid() {
		return nil, fmt.Errorf("%w: invalid account", ErrValidation)
	}

	var (
		res    *TopUpResult
		change repo.BalanceChange
	)
	err := s.inTx(ctx, "topup", func(tx *gorm.DB) error {
		res = nil
		acc, err := s.repo.LockAccount(ctx, tx, req.Account.Kind, req.Account.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, req.Account)
			}
			return err
		}
		if acc.OwnerID != sess.UserID {
			return fmt.Errorf("%w: %s", ErrNotFound, req.Account)
		}

		existed, prev, err := s.repo.TxExists(ctx, tx, acc.Kind, acc.ID, req.IdempotencyKey, model.KindTopUp, false)
		if err != nil {
			return err
		}
		if existed {
			if !prev.Amount.Equal(req.Amount) {
				return fmt.Errorf("%w: idempotency key reused with different parameters", ErrInvalidOperation)
			}
			res = &TopUpResult{Reference: prev.Reference, Balance: prev.BalanceAfter.Decimal, Replayed: true}
			return nil
		}

		ref := uuid.NewString()
		newBal := acc.Balance.Add(req.Amount)
		if !model.FitsMoney(newBal) {
			return fmt.Errorf("%w: balance would exceed the account limit", ErrInvalidOperation)
		}
		if err := s.repo.UpdateBalance(ctx, tx, acc.Kind, acc.ID, newBal, acc.Version); err != nil {
			return err
		}
		t := &model.Transaction{
			AccountKind: acc.Kind, AccountID: acc.ID, Kind: model.KindTopUp, Description: model.KindTopUp,
			Amount: model.NewMoney(req.Amount), BalanceBefore: model.NewMoney(acc.Balance), BalanceAfter: model.NewMoney(newBal),
			Reference: ref, IdempotencyKey: keyPtr(req.IdempotencyKey),
		}
		if err := s.repo.CreateTransaction(ctx, tx, t); err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"reference": ref, "account_kind": acc.Kind, "account_id": acc.ID, "amount": req.Amount, "balance": newBal,
		})
		evt := &model.OutboxEvent{
			Aggregate: string(acc.Kind), AggregateID: acc.ID, EventType: "TopUp", Payload: string(payload),
		}
		if err := s.repo.CreateOutboxEvent(ctx, tx, evt); err != nil {
			return err
		}
		res = &TopUpResult{Reference: ref, Balance: newBal}
		change = repo.BalanceChange{
			Kind: acc.Kind, AccountID: acc.ID, OwnerID: acc.OwnerID, Balance: newBal, Version: acc.Version + 1, Reference: ref,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return res, nil
	}
	s.log.Infow("top up committed", "reference", res.Reference, "account", req.Account.String(), "amount", req.Amount.String())
	s.publish(ctx, []repo.BalanceChange{change})
	return res, nil
}
