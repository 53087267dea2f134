package model

import (
	"time"
)

// AccountKind tells which table an account-like entity lives in.
type AccountKind string

const (
	AccountKindCard AccountKind = "card"
	AccountKindUser AccountKind = "user"
)

// Transaction kinds.
const (
	KindTransfer = "Transfer"
	KindTopUp    = "Top Up"
)

// Transaction is an append-only audit entry. Amount is signed: debits are negative.
type Transaction struct {
	ID             uint64      `gorm:"primaryKey" json:"id"`
	AccountKind    AccountKind `gorm:"size:8;not null;index:idx_tx_account" json:"account_kind"`
	AccountID      uint64      `gorm:"not null;index:idx_tx_account" json:"account_id"`
	Kind           string      `gorm:"size:32;not null" json:"kind"`
	Description    string      `gorm:"size:255;not null" json:"description"`
	Amount         Money       `gorm:"not null" json:"amount"`
	BalanceBefore  Money       `gorm:"not null" json:"balance_before"`
	BalanceAfter   Money       `gorm:"not null" json:"balance_after"`
	CounterpartyID *uint64     `json:"counterparty_id,omitempty"`
	Reference      string      `gorm:"size:36;not null;index" json:"reference"`
	IdempotencyKey *string     `gorm:"size:64;index" json:"-"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }
