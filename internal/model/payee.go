package model

import "time"

// Payee is a saved external transfer destination.
type Payee struct {
	ID            uint64    `gorm:"primaryKey;column:id" json:"id"`
	UserID        uint64    `gorm:"not null;uniqueIndex:idx_payee_owner_account" json:"user_id"`
	Name          string    `gorm:"size:128;not null" json:"name"`
	BankName      string    `gorm:"size:64;not null;uniqueIndex:idx_payee_owner_account" json:"bank_name"`
	AccountNumber string    `gorm:"size:34;not null;uniqueIndex:idx_payee_owner_account" json:"account_number"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Payee) TableName() string { return "payees" }
