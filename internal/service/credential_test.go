package service

import (
	"testing"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/digibank/digibank-service/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPIN(t *testing.T) {
	cases := []struct {
		name      string
		stored    *string
		presented string
		want      bool
	}{
		{"match", strPtr("1234"), "1234", true},
		{"six digits", strPtr("123456"), "123456", true},
		{"mismatch", strPtr("1234"), "1235", false},
		{"prefix is not enough", strPtr("1234"), "123", false},
		{"whitespace matters", strPtr("1234"), " 1234", false},
		{"unset", nil, "", false},
		{"empty stored", strPtr(""), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, VerifyPIN(tc.stored, tc.presented))
		})
	}
}

func TestLoginPIN(t *testing.T) {
	hash, err := HashLoginPIN("654321")
	require.NoError(t, err)
	assert.NotEqual(t, "654321", hash)
	assert.True(t, VerifyLoginPIN(hash, "654321"))
	assert.False(t, VerifyLoginPIN(hash, "123456"))
	assert.False(t, VerifyLoginPIN("", ""))
}

func TestVerifyCredential_ByKind(t *testing.T) {
	hash, err := HashLoginPIN("111111")
	require.NoError(t, err)

	card := &repo.Account{Kind: model.AccountKindCard, Pin: strPtr("4321")}
	wallet := &repo.Account{Kind: model.AccountKindUser, PinHash: hash}

	assert.True(t, verifyCredential(card, strPtr("4321")))
	assert.False(t, verifyCredential(card, nil))
	assert.True(t, verifyCredential(wallet, strPtr("111111")))
	// a wallet is never unlocked by a card-style plain comparison
	assert.False(t, verifyCredential(wallet, strPtr(hash)))
}
