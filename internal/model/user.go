package model

import (
	"time"
)

// User owns cards and payees and carries the user-centric wallet balance.
type User struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"id"`
	Username  string    `gorm:"size:32;not null;uniqueIndex" json:"username"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	PinHash   string    `gorm:"size:72;not null" json:"-"`
	Balance   Money     `gorm:"not null;default:0" json:"balance"`
	Version   uint64    `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }
