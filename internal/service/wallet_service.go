package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/digibank/digibank-service/internal/repo"
	"github.com/digibank/digibank-service/internal/session"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccountRef names an account-like entity.
type AccountRef struct {
	Kind model.AccountKind
	ID   uint64
}

func (a AccountRef) String() string { return fmt.Sprintf("%s %d", a.Kind, a.ID) }

func (a AccountRef) valid() bool {
	return (a.Kind == model.AccountKindCard || a.Kind == model.AccountKindUser) && a.ID != 0
}

// WalletService glues business logic and repository.
type WalletService struct {
	repo       repo.RepositoryInterface
	log        *zap.SugaredLogger
	validate   *validator.Validate
	maxRetries int
}

// NewWalletService returns WalletService. maxRetries bounds optimistic-conflict retries.
func NewWalletService(r repo.RepositoryInterface, logger *zap.SugaredLogger, maxRetries int) *WalletService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &WalletService{repo: r, log: logger, validate: validator.New(), maxRetries: maxRetries}
}

// Repo exposes underlying repository (unit tests helper).
func (s *WalletService) Repo() repo.RepositoryInterface {
	return s.repo
}

// inTx runs fn in one database transaction, retrying the whole unit when a
// balance write loses an optimistic version race.
func (s *WalletService) inTx(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err := s.repo.DB(ctx).Transaction(fn)
		if !errors.Is(err, repo.ErrVersionConflict) {
			return err
		}
		s.log.Warnw("optimistic lock conflict", "op", op, "attempt", attempt)
	}
	return fmt.Errorf("%w: %s gave up after %d attempts", ErrConflict, op, s.maxRetries)
}

// publish refreshes the cache and notifies subscribers once a unit has committed.
func (s *WalletService) publish(ctx context.Context, changes []repo.BalanceChange) {
	for _, c := range changes {
		cached := repo.CachedBalance{OwnerID: c.OwnerID, Balance: c.Balance, Version: c.Version}
		if err := s.repo.CacheBalance(ctx, c.Kind, c.AccountID, cached); err != nil {
			s.log.Warn(err)
		}
		if err := s.repo.PublishBalanceChange(ctx, c); err != nil {
			s.log.Warn(err)
		}
	}
}

// ownerOf loads the owner, balance and version of ref without locking. Missing rows map to ErrNotFound.
func (s *WalletService) ownerOf(ctx context.Context, ref AccountRef) (*repo.CachedBalance, error) {
	switch ref.Kind {
	case model.AccountKindCard:
		c, err := s.repo.GetCard(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err, ref.String())
		}
		return &repo.CachedBalance{OwnerID: c.UserID, Balance: c.Balance.Decimal, Version: c.Version}, nil
	case model.AccountKindUser:
		u, err := s.repo.GetUser(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err, ref.String())
		}
		return &repo.CachedBalance{OwnerID: u.ID, Balance: u.Balance.Decimal, Version: u.Version}, nil
	}
	return nil, fmt.Errorf("%w: unknown account kind %q", ErrValidation, ref.Kind)
}

// GetBalance returns current balance, reading through the cache.
func (s *WalletService) GetBalance(ctx context.Context, sess *session.Session, ref AccountRef) (decimal.Decimal, error) {
	if sess == nil {
		return decimal.Zero, ErrUnauthorized
	}
	if cached, err := s.repo.GetCachedBalance(ctx, ref.Kind, ref.ID); err == nil {
		if cached.OwnerID != sess.UserID {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return cached.Balance, nil
	}
	row, err := s.ownerOf(ctx, ref)
	if err != nil {
		return decimal.Zero, err
	}
	if row.OwnerID != sess.UserID {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if err := s.repo.CacheBalance(ctx, ref.Kind, ref.ID, *row); err != nil {
		s.log.Warn(err)
	}
	return row.Balance, nil
}

// HistoryPage is one page of audit entries, newest first.
type HistoryPage struct {
	Transactions []model.Transaction `json:"transactions"`
	Page         int                 `json:"page"`
	PageSize     int                 `json:"page_size"`
	Total        int64               `json:"total"`
	TotalPages   int                 `json:"total_pages"`
}

// GetHistory fetches an account's audit entries. page starts at 1; pageSize is clamped to 1..100.
func (s *WalletService) GetHistory(ctx context.Context, sess *session.Session, ref AccountRef, page, pageSize int) (*HistoryPage, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	row, err := s.ownerOf(ctx, ref)
	if err != nil {
		return nil, err
	}
	if row.OwnerID != sess.UserID {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	txs, total, err := s.repo.History(ctx, ref.Kind, ref.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{
		Transactions: txs,
		Page:         page,
		PageSize:     pageSize,
		Total:        total,
		TotalPages:   int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// Subscribe streams balance changes of the session user's accounts until ctx ends.
func (s *WalletService) Subscribe(ctx context.Context, sess *session.Session) (<-chan repo.BalanceChange, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	in, closeFn, err := s.repo.SubscribeBalanceChanges(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan repo.BalanceChange)
	go func() {
		defer close(out)
		defer func() {
			if err := closeFn(); err != nil {
				s.log.Warn(err)
			}
		}()
		for c := range in {
			if c.OwnerID != sess.UserID {
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// checkAmount rejects non-positive amounts and amounts the ledger cannot store exactly.
func checkAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidOperation)
	}
	if !model.FitsMoney(amount) {
		return fmt.Errorf("%w: amount must have at most %d decimal places and stay below 10^12", ErrValidation, model.MoneyScale)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func keyPtr(key string) *string {
	if key == "" {
		return nil
	}
	return &key
}

// validationError flattens validator errors into one ErrValidation.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: field %s failed on '%s'", ErrValidation, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
