package service

import (
	"context"
	"testing"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/digibank/digibank-service/internal/repo"
	"github.com/digibank/digibank-service/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRegisterAndLogin(t *testing.T) {
	svc, ctx := newTestService(t)

	u, err := svc.Register(ctx, RegisterRequest{Username: " Alice ", Name: "Alice A", PIN: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.Balance.IsZero())
	assert.NotEqual(t, "123456", u.PinHash)

	_, err = svc.Register(ctx, RegisterRequest{Username: "ALICE", Name: "Other", PIN: "123456"})
	assert.ErrorIs(t, err, ErrInvalidOperation)

	for _, bad := range []RegisterRequest{
		{Username: "ab", Name: "x", PIN: "123456"},
		{Username: "bob!", Name: "x", PIN: "123456"},
		{Username: "bob", Name: "", PIN: "123456"},
		{Username: "bob", Name: "x", PIN: "1234"},
		{Username: "bob", Name: "x", PIN: "12345a"},
	} {
		_, err := svc.Register(ctx, bad)
		assert.ErrorIs(t, err, ErrValidation, "%+v", bad)
	}

	got, sess, err := svc.Login(ctx, "ALICE", "123456")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, session.Session{UserID: u.ID, Username: "alice"}, *sess)

	_, _, err = svc.Login(ctx, "alice", "000000")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, _, err = svc.Login(ctx, "nobody", "123456")
	assert.ErrorIs(t, err, ErrUnauthorized)

	p, err := svc.Profile(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "Alice A", p.Name)
	_, err = svc.Profile(ctx, &session.Session{UserID: 404})
	assert.ErrorIs(t, err, ErrNotFound)
}

// staleLookupRepo never sees existing usernames, as when a concurrent
// registration commits between the lookup and the insert.
type staleLookupRepo struct {
	*repo.Repository
}

func (staleLookupRepo) FindUserByUsername(context.Context, string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func TestRegister_DuplicateInsert(t *testing.T) {
	base, ctx := newTestService(t)
	_, err := base.Register(ctx, RegisterRequest{Username: "alice", Name: "Alice", PIN: "123456"})
	require.NoError(t, err)

	svc := NewWalletService(staleLookupRepo{Repository: base.Repo().(*repo.Repository)}, base.log, 3)
	_, err = svc.Register(ctx, RegisterRequest{Username: "alice", Name: "Other", PIN: "654321"})
	assert.ErrorIs(t, err, ErrInvalidOperation)

	var n int64
	require.NoError(t, base.Repo().DB(ctx).Model(&model.User{}).Where("username = ?", "alice").Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestCards(t *testing.T) {
	svc, ctx := newTestService(t)
	_, alice := seedUser(t, svc, ctx, "alice", "")
	_, bob := seedUser(t, svc, ctx, "bob", "")

	c := seedCard(t, svc, ctx, alice, "10", "")
	assert.Len(t, c.CardNumber, 16)
	assert.Regexp(t, `^\d{16}$`, c.CardNumber)
	assert.False(t, c.HasPin())
	seedCard(t, svc, ctx, alice, "0", "9876")

	cards, err := svc.ListCards(ctx, alice)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, c.ID, cards[0].ID)
	other, err := svc.ListCards(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = svc.GetCard(ctx, bob, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	for _, bad := range []AddCardRequest{
		{CardHolderName: "", ExpiryDate: "12/29", CVV: "123", CardType: "Visa"},
		{CardHolderName: "A", ExpiryDate: "13/29", CVV: "123", CardType: "Visa"},
		{CardHolderName: "A", ExpiryDate: "12/29", CVV: "12", CardType: "Visa"},
		{CardHolderName: "A", ExpiryDate: "12/29", CVV: "123", CardType: ""},
		{CardHolderName: "A", ExpiryDate: "12/29", CVV: "123", CardType: "Visa", PIN: "12"},
		{CardHolderName: "A", ExpiryDate: "12/29", CVV: "123", CardType: "Visa", Balance: dec("-1")},
	} {
		_, err := svc.AddCard(ctx, alice, bad)
		assert.ErrorIs(t, err, ErrValidation, "%+v", bad)
	}

	// pin
	assert.ErrorIs(t, svc.SetCardPIN(ctx, alice, c.ID, "12"), ErrValidation)
	assert.ErrorIs(t, svc.SetCardPIN(ctx, bob, c.ID, "1234"), ErrNotFound)
	require.NoError(t, svc.SetCardPIN(ctx, alice, c.ID, "1234"))
	got, err := svc.GetCard(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.True(t, VerifyPIN(got.Pin, "1234"))

	// delete keeps the audit trail
	_, err = svc.TopUp(ctx, alice, TopUpRequest{Account: cardRef(c), Amount: dec("1")})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteCard(ctx, bob, c.ID), ErrNotFound)
	require.NoError(t, svc.DeleteCard(ctx, alice, c.ID))
	_, err = svc.GetCard(ctx, alice, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 1, auditCount(t, svc, ctx, AccountRef{Kind: model.AccountKindCard, ID: c.ID}))
}

func TestPayees(t *testing.T) {
	svc, ctx := newTestService(t)
	_, alice := seedUser(t, svc, ctx, "alice", "")
	_, bob := seedUser(t, svc, ctx, "bob", "")

	zed, err := svc.AddPayee(ctx, alice, AddPayeeRequest{Name: "Zed", BankName: "ACME", AccountNumber: "111"})
	require.NoError(t, err)
	_, err = svc.AddPayee(ctx, alice, AddPayeeRequest{Name: "Amy", BankName: "ACME", AccountNumber: "222"})
	require.NoError(t, err)

	dup, err := svc.AddPayee(ctx, alice, AddPayeeRequest{Name: "Zed again", BankName: "ACME", AccountNumber: "111"})
	require.NoError(t, err)
	assert.Equal(t, zed.ID, dup.ID)
	assert.Equal(t, "Zed", dup.Name)

	_, err = svc.AddPayee(ctx, alice, AddPayeeRequest{Name: "x", BankName: "", AccountNumber: "1"})
	assert.ErrorIs(t, err, ErrValidation)

	list, err := svc.ListPayees(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Amy", list[0].Name)
	assert.Equal(t, "Zed", list[1].Name)

	assert.ErrorIs(t, svc.DeletePayee(ctx, bob, zed.ID), ErrNotFound)
	require.NoError(t, svc.DeletePayee(ctx, alice, zed.ID))
	assert.ErrorIs(t, svc.DeletePayee(ctx, alice, zed.ID), ErrNotFound)

	list, err = svc.ListPayees(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
