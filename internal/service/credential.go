package service

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/digibank/digibank-service/internal/repo"
)

// VerifyPIN compares a presented card PIN with the stored one by exact string
// equality. An unset PIN never verifies. There is no attempt counting.
func VerifyPIN(stored *string, presented string) bool {
	return stored != nil && *stored != "" && *stored == presented
}

// HashLoginPIN hashes a user's login PIN for storage.
func HashLoginPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyLoginPIN checks a presented login PIN against its bcrypt hash.
func VerifyLoginPIN(hash, presented string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)) == nil
}

// verifyCredential applies the credential rule of the account's kind.
func verifyCredential(acc *repo.Account, presented *string) bool {
	if presented == nil {
		return false
	}
	switch acc.Kind {
	case model.AccountKindCard:
		return VerifyPIN(acc.Pin, *presented)
	case model.AccountKindUser:
		return VerifyLoginPIN(acc.PinHash, *presented)
	}
	return false
}
