package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/digibank/digibank-service/internal/repo"
	"github.com/digibank/digibank-service/internal/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExternalAccount is a destination held at another bank. It has no balance in this store.
type ExternalAccount struct {
	BankName      string
	AccountNumber string
}

// Destination is either an internal account or an external one, never both.
type Destination struct {
	Account  *AccountRef
	External *ExternalAccount
}

// TransferRequest moves Amount from Source to Destination.
// PIN is checked only when both sides are internal.
type TransferRequest struct {
	Source         AccountRef
	Destination    Destination
	Amount         decimal.Decimal
	PIN            *string
	IdempotencyKey string
}

// TransferResult reports balances after the movement. DestinationBalance is nil for external transfers.
type TransferResult struct {
	Reference          string           `json:"reference"`
	SourceBalance      decimal.Decimal  `json:"source_balance"`
	DestinationBalance *decimal.Decimal `json:"destination_balance,omitempty"`
	Replayed           bool             `json:"replayed"`
}

func (r TransferRequest) check() error {
	if err := checkAmount(r.Amount); err != nil {
		return err
	}
	if !r.Source.valid() {
		return fmt.Errorf("%w: invalid source account", ErrValidation)
	}
	d := r.Destination
	switch {
	case d.Account != nil && d.External != nil, d.Account == nil && d.External == nil:
		return fmt.Errorf("%w: exactly one destination is required", ErrValidation)
	case d.Account != nil:
		if !d.Account.valid() {
			return fmt.Errorf("%w: invalid destination account", ErrValidation)
		}
		if d.Account.Kind != r.Source.Kind {
			return fmt.Errorf("%w: cannot transfer from a %s to a %s", ErrInvalidOperation, r.Source.Kind, d.Account.Kind)
		}
	default:
		if strings.TrimSpace(d.External.BankName) == "" || strings.TrimSpace(d.External.AccountNumber) == "" {
			return fmt.Errorf("%w: bank name and account number are required", ErrValidation)
		}
	}
	return nil
}

// Transfer moves money out of one of the session user's accounts.
// The whole read-check-write sequence runs in one transaction and is retried on version conflicts.
func (s *WalletService) Transfer(ctx context.Context, sess *session.Session, req TransferRequest) (*TransferResult, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	if err := req.check(); err != nil {
		return nil, err
	}

	var (
		res     *TransferResult
		changes []repo.BalanceChange
	)
	err := s.inTx(ctx, "transfer", func(tx *gorm.DB) error {
		res, changes = nil, nil

		src, dst, err := s.lockPair(ctx, tx, req)
		if err != nil {
			return err
		}
		if src == nil || src.OwnerID != sess.UserID {
			return fmt.Errorf("%w: source %s", ErrNotFound, req.Source)
		}

		internal := req.Destination.Account != nil
		if internal && dst == nil {
			return fmt.Errorf("%w: destination %s", ErrNotFound, *req.Destination.Account)
		}
		if internal && !verifyCredential(src, req.PIN) {
			return fmt.Errorf("%w: incorrect PIN", ErrUnauthorized)
		}

		replayed, err := s.replayTransfer(ctx, tx, src, dst, req)
		if err != nil || replayed != nil {
			res = replayed
			return err
		}

		if src.Balance.LessThan(req.Amount) {
			return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, src.Balance, req.Amount)
		}
		if internal && src.ID == dst.ID {
			return fmt.Errorf("%w: cannot transfer to the same account", ErrInvalidOperation)
		}
		if internal && !model.FitsMoney(dst.Balance.Add(req.Amount)) {
			return fmt.Errorf("%w: destination balance would exceed the account limit", ErrInvalidOperation)
		}

		ref := uuid.NewString()
		key := keyPtr(req.IdempotencyKey)
		newSrc := src.Balance.Sub(req.Amount)
		if err := s.repo.UpdateBalance(ctx, tx, src.Kind, src.ID, newSrc, src.Version); err != nil {
			return err
		}
		debit := &model.Transaction{
			AccountKind: src.Kind, AccountID: src.ID, Kind: model.KindTransfer,
			Amount: model.NewMoney(req.Amount.Neg()), BalanceBefore: model.NewMoney(src.Balance), BalanceAfter: model.NewMoney(newSrc),
			Reference: ref, IdempotencyKey: key,
		}
		res = &TransferResult{Reference: ref, SourceBalance: newSrc}
		changes = append(changes, repo.BalanceChange{
			Kind: src.Kind, AccountID: src.ID, OwnerID: src.OwnerID, Balance: newSrc, Version: src.Version + 1, Reference: ref,
		})

		if internal {
			newDst := dst.Balance.Add(req.Amount)
			if err := s.repo.UpdateBalance(ctx, tx, dst.Kind, dst.ID, newDst, dst.Version); err != nil {
				return err
			}
			debit.Description = "Transfer to " + dst.Label
			debit.CounterpartyID = &dst.ID
			credit := &model.Transaction{
				AccountKind: dst.Kind, AccountID: dst.ID, Kind: model.KindTransfer,
				Description: "Transfer from " + src.Label, Amount: model.NewMoney(req.Amount),
				BalanceBefore: model.NewMoney(dst.Balance), BalanceAfter: model.NewMoney(newDst), CounterpartyID: &src.ID,
				Reference: ref, IdempotencyKey: key,
			}
			if err := s.repo.CreateTransaction(ctx, tx, debit); err != nil {
				return err
			}
			if err := s.repo.CreateTransaction(ctx, tx, credit); err != nil {
				return err
			}
			res.DestinationBalance = &newDst
			changes = append(changes, repo.BalanceChange{
				Kind: dst.Kind, AccountID: dst.ID, OwnerID: dst.OwnerID, Balance: newDst, Version: dst.Version + 1, Reference: ref,
			})
		} else {
			debit.Description = externalDescription(req.Destination.External)
			if err := s.repo.CreateTransaction(ctx, tx, debit); err != nil {
				return err
			}
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"reference": ref, "source_kind": src.Kind, "source_id": src.ID,
			"destination": describeDestination(req.Destination), "amount": req.Amount,
		})
		evt := &model.OutboxEvent{
			Aggregate: string(src.Kind), AggregateID: src.ID, EventType: "Transfer", Payload: string(payload),
		}
		return s.repo.CreateOutboxEvent(ctx, tx, evt)
	})
	if err != nil {
		return nil, err
	}
	if res.Replayed {
		return res, nil
	}
	s.log.Infow("transfer committed", "reference", res.Reference, "source", req.Source.String(),
		"destination", describeDestination(req.Destination), "amount", req.Amount.String())
	s.publish(ctx, changes)
	return res, nil
}

// lockPair locks source and internal destination in ascending id order.
// A missing row comes back as nil so the caller can report failures in precondition order.
func (s *WalletService) lockPair(ctx context.Context, tx *gorm.DB, req TransferRequest) (*repo.Account, *repo.Account, error) {
	lock := func(ref AccountRef) (*repo.Account, error) {
		acc, err := s.repo.LockAccount(ctx, tx, ref.Kind, ref.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return acc, err
	}
	if req.Destination.Account == nil {
		src, err := lock(req.Source)
		return src, nil, err
	}
	dstRef := *req.Destination.Account
	if dstRef.ID == req.Source.ID {
		src, err := lock(req.Source)
		return src, src, err
	}
	first, second := req.Source, dstRef
	if second.ID < first.ID {
		first, second = second, first
	}
	a, err := lock(first)
	if err != nil {
		return nil, nil, err
	}
	b, err := lock(second)
	if err != nil {
		return nil, nil, err
	}
	if first == req.Source {
		return a, b, nil
	}
	return b, a, nil
}

// replayTransfer rebuilds the result of an earlier transfer carrying the same idempotency key.
// A key reused for a different amount or destination is rejected.
func (s *WalletService) replayTransfer(ctx context.Context, tx *gorm.DB, src, dst *repo.Account, req TransferRequest) (*TransferResult, error) {
	existed, leg, err := s.repo.TxExists(ctx, tx, src.Kind, src.ID, req.IdempotencyKey, model.KindTransfer, true)
	if err != nil || !existed {
		return nil, err
	}
	same := leg.Amount.Equal(req.Amount.Neg())
	if dst != nil {
		same = same && leg.CounterpartyID != nil && *leg.CounterpartyID == dst.ID
	} else {
		same = same && leg.CounterpartyID == nil && leg.Description == externalDescription(req.Destination.External)
	}
	if !same {
		return nil, fmt.Errorf("%w: idempotency key reused with different parameters", ErrInvalidOperation)
	}
	legs, err := s.repo.TransactionsByReference(ctx, tx, leg.Reference)
	if err != nil {
		return nil, err
	}
	res := &TransferResult{Reference: leg.Reference, SourceBalance: leg.BalanceAfter.Decimal, Replayed: true}
	for _, l := range legs {
		if l.Amount.IsPositive() {
			bal := l.BalanceAfter.Decimal
			res.DestinationBalance = &bal
		}
	}
	return res, nil
}

func externalDescription(ext *ExternalAccount) string {
	return fmt.Sprintf("Transfer to %s - %s", ext.BankName, ext.AccountNumber)
}

func describeDestination(d Destination) string {
	if d.Account != nil {
		return d.Account.String()
	}
	return d.External.BankName + " " + d.External.AccountNumber
}

// TransferToUser moves money from the session user's wallet to another user's wallet.
func (s *WalletService) TransferToUser(ctx context.Context, sess *session.Session, toUsername string, amount decimal.Decimal, pin, key string) (*TransferResult, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(toUsername) == "" {
		return nil, fmt.Errorf("%w: recipient username is required", ErrValidation)
	}
	to, err := s.repo.FindUserByUsername(ctx, strings.ToLower(strings.TrimSpace(toUsername)))
	if err != nil {
		return nil, notFound(err, "user "+toUsername)
	}
	return s.Transfer(ctx, sess, TransferRequest{
		Source:         AccountRef{Kind: model.AccountKindUser, ID: sess.UserID},
		Destination:    Destination{Account: &AccountRef{Kind: model.AccountKindUser, ID: to.ID}},
		Amount:         amount,
		PIN:            &pin,
		IdempotencyKey: key,
	})
}

// TransferToPayee sends money from source to a saved payee.
func (s *WalletService) TransferToPayee(ctx context.Context, sess *session.Session, source AccountRef, payeeID uint64, amount decimal.Decimal, key string) (*TransferResult, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	p, err := s.repo.GetPayee(ctx, payeeID)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("payee %d", payeeID))
	}
	if p.UserID != sess.UserID {
		return nil, fmt.Errorf("%w: payee %d", ErrNotFound, payeeID)
	}
	return s.Transfer(ctx, sess, TransferRequest{
		Source:         source,
		Destination:    Destination{External: &ExternalAccount{BankName: p.BankName, AccountNumber: p.AccountNumber}},
		Amount:         amount,
		IdempotencyKey: key,
	})
}
