package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionConflict is returned when a balance row changed since it was read.
var ErrVersionConflict = errors.New("optimistic lock conflict")

// Account is the common view of an account-like entity: a card or a user wallet.
type Account struct {
	Kind    model.AccountKind
	ID      uint64
	OwnerID uint64
	Balance decimal.Decimal
	Version uint64
	// Label names the account in the counterparty's audit description.
	Label string
	// Pin is the card PIN, nil for wallets and for cards without one.
	Pin *string
	// PinHash is the wallet owner's login PIN hash, empty for cards.
	PinHash string
}

// RepositoryInterface restricts Repo methods so the service can be tested against fakes.
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB

	LockAccount(ctx context.Context, tx *gorm.DB, kind model.AccountKind, id uint64) (*Account, error)
	UpdateBalance(ctx context.Context, tx *gorm.DB, kind model.AccountKind, id uint64, newBalance decimal.Decimal, oldVersion uint64) error
	CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error
	TxExists(ctx context.Context, tx *gorm.DB, kind model.AccountKind, id uint64, idemKey, txKind string, debit bool) (bool, *model.Transaction, error)
	TransactionsByReference(ctx context.Context, tx *gorm.DB, reference string) ([]model.Transaction, error)
	History(ctx context.Context, kind model.AccountKind, id uint64, limit, offset int) ([]model.Transaction, int64, error)

	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error

	CacheBalance(ctx context.Context, kind model.AccountKind, id uint64, cached CachedBalance) error
	GetCachedBalance(ctx context.Context, kind model.AccountKind, id uint64) (*CachedBalance, error)
	InvalidateBalance(ctx context.Context, kind model.AccountKind, id uint64) error
	PublishBalanceChange(ctx context.Context, change BalanceChange) error
	SubscribeBalanceChanges(ctx context.Context) (<-chan BalanceChange, func() error, error)

	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id uint64) (*model.User, error)
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)

	CreateCard(ctx context.Context, c *model.Card) error
	GetCard(ctx context.Context, id uint64) (*model.Card, error)
	ListCards(ctx context.Context, userID uint64) ([]model.Card, error)
	UpdateCardPin(ctx context.Context, id uint64, pin string) error
	DeleteCard(ctx context.Context, id uint64) error

	CreatePayee(ctx context.Context, p *model.Payee) error
	GetPayee(ctx context.Context, id uint64) (*model.Payee, error)
	ListPayees(ctx context.Context, userID uint64) ([]model.Payee, error)
	DeletePayee(ctx context.Context, id uint64) error
}

// Repository implements RepositoryInterface. rdb may be nil, which disables cache and notifications.
type Repository struct {
	db  *gorm.DB
	rdb *redis.Client
	log *zap.SugaredLogger
}

// NewRepository constructs repo.
func NewRepository(db *gorm.DB, rdb *redis.Client, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// LockAccount loads an account row with a row lock held until tx ends.
// Dialects without row locks (sqlite) rely on the version check in UpdateBalance.
func (r *Repository) LockAccount(ctx context.Context, tx *gorm.DB, kind model.AccountKind, id uint64) (*Account, error) {
	q := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	switch kind {
	case model.AccountKindCard:
		var c model.Card
		if err := q.Where("id = ?", id).First(&c).Error; err != nil {
			return nil, err
		}
		return &Account{
			Kind: kind, ID: c.ID, OwnerID: c.UserID, Balance: c.Balance.Decimal, Version: c.Version,
			Label: "card .." + c.LastFour(), Pin: c.Pin,
		}, nil
	case model.AccountKindUser:
		var u model.User
		if err := q.Where("id = ?", id).First(&u).Error; err != nil {
			return nil, err
		}
		return &Account{
			Kind: kind, ID: u.ID, OwnerID: u.ID, Balance: u.Balance.Decimal, Version: u.Version,
			Label: u.Name, PinHash: u.PinHash,
		}, nil
	}
	return nil, fmt.Errorf("unknown account kind %q", kind)
}

// UpdateBalance with optimistic lock.
func (r *Repository) UpdateBalance(ctx context.Context, tx *gorm.DB, kind model.AccountKind, id uint64, newBalance decimal.Decimal, oldVersion uint64) error {
	var target interface{}
	switch kind {
	case model.AccountKindCard:
		target = &model.Card{}
	case model.AccountKindUser:
		target = &model.User{}
	default:
		return fmt.Errorf("unknown account kind %q", kind)
	}
	res := tx.WithContext(ctx).
		Model(target).
		Where("id = ? AND version = ?", id, oldVersion).
		Updates(map[string]interface{}{
			"balance":    newBalance,
			"version":    oldVersion + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// CreateTransaction appends an audit entry.
func (r *Repository) CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error {
	return tx.WithContext(ctx).Create(t).Error
}

// TxExists finds the leg an earlier call with the same idempotency key wrote on this account.
// debit selects the negative leg, which is how a transfer's source side is recognised.
// The sign is checked in Go because sqlite keeps amounts as text.
func (r *Repository) TxExists(ctx context.Context, tx *gorm.DB, kind model.AccountKind, id uint64, idemKey, txKind string, debit bool) (bool, *model.Transaction, error) {
	if idemKey == "" {
		return false, nil, nil
	}
	var legs []model.Transaction
	err := tx.WithContext(ctx).
		Where("account_kind = ? AND account_id = ? AND idempotency_key = ? AND kind = ?", kind, id, idemKey, txKind).
		Order("id").
		Find(&legs).Error
	if err != nil {
		return false, nil, err
	}
	for i := range legs {
		if legs[i].Amount.IsNegative() == debit {
			return true, &legs[i], nil
		}
	}
	return false, nil, nil
}

// TransactionsByReference returns every leg of one movement in insertion order.
func (r *Repository) TransactionsByReference(ctx context.Context, tx *gorm.DB, reference string) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := tx.WithContext(ctx).Where("reference = ?", reference).Order("id").Find(&txs).Error
	return txs, err
}

// History pages an account's audit entries, newest first.
func (r *Repository) History(ctx context.Context, kind model.AccountKind, id uint64, limit, offset int) ([]model.Transaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("account_kind = ? AND account_id = ?", kind, id).
		Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []model.Transaction
	err := q.Order("created_at desc").Order("id desc").Offset(offset).Limit(limit).Find(&txs).Error
	return txs, total, err
}
