package model

import (
	"time"
)

type Card struct {
	ID             uint64    `gorm:"primaryKey;column:id" json:"id"`
	UserID         uint64    `gorm:"not null;index" json:"user_id"`
	User           *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CardNumber     string    `gorm:"size:16;not null;uniqueIndex" json:"card_number"`
	CardHolderName string    `gorm:"size:128;not null" json:"card_holder_name"`
	ExpiryDate     string    `gorm:"size:5;not null" json:"expiry_date"`
	CVV            string    `gorm:"size:3;not null" json:"-"`
	CardType       string    `gorm:"size:32;not null" json:"card_type"`
	Balance        Money     `gorm:"not null;default:0" json:"balance"`
	Pin            *string   `gorm:"size:6" json:"-"`
	Version        uint64    `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Card) TableName() string { return "cards" }

// LastFour is the suffix shown in audit descriptions.
func (c Card) LastFour() string {
	if len(c.CardNumber) <= 4 {
		return c.CardNumber
	}
	return c.CardNumber[len(c.CardNumber)-4:]
}

// HasPin reports whether a PIN was ever set.
func (c Card) HasPin() bool { return c.Pin != nil && *c.Pin != "" }
