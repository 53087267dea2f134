package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/digibank/digibank-service/internal/session"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=32"`
	Name     string `json:"name" validate:"required,max=128"`
	PIN      string `json:"pin" validate:"required,numeric,len=6"`
}

// Register creates a user with an empty wallet. Usernames are case-insensitive.
func (s *WalletService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if _, err := s.repo.FindUserByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: username already taken", ErrInvalidOperation)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	hash, err := HashLoginPIN(req.PIN)
	if err != nil {
		return nil, err
	}
	u := &model.User{Username: req.Username, Name: req.Name, PinHash: hash, Balance: model.NewMoney(decimal.Zero)}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		// a concurrent registration won the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: username already taken", ErrInvalidOperation)
		}
		return nil, err
	}
	s.log.Infow("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Login checks the login PIN and opens a session.
// Unknown users and wrong PINs produce the same error.
func (s *WalletService) Login(ctx context.Context, username, pin string) (*model.User, *session.Session, error) {
	u, err := s.repo.FindUserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}
	if u == nil || !VerifyLoginPIN(u.PinHash, pin) {
		return nil, nil, fmt.Errorf("%w: invalid username or PIN", ErrUnauthorized)
	}
	return u, &session.Session{UserID: u.ID, Username: u.Username}, nil
}

// Profile returns the session user.
func (s *WalletService) Profile(ctx context.Context, sess *session.Session) (*model.User, error) {
	if sess == nil {
		return nil, ErrUnauthorized
	}
	u, err := s.repo.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("user %d", sess.UserID))
	}
	return u, nil
}
