package service

import (
	"testing"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopUp(t *testing.T) {
	svc, ctx := newTestService(t)
	_, alice := seedUser(t, svc, ctx, "alice", "")
	c := seedCard(t, svc, ctx, alice, "10.50", "")

	res, err := svc.TopUp(ctx, alice, TopUpRequest{Account: cardRef(c), Amount: dec("89.50")})
	require.NoError(t, err)
	assert.Equal(t, "100.00", res.Balance.StringFixed(2))
	assert.Equal(t, "100.00", balanceOf(t, svc, ctx, c).StringFixed(2))

	hist, err := svc.GetHistory(ctx, alice, cardRef(c), 1, 10)
	require.NoError(t, err)
	require.Len(t, hist.Transactions, 1)
	entry := hist.Transactions[0]
	assert.Equal(t, model.KindTopUp, entry.Kind)
	assert.Equal(t, "89.50", entry.Amount.StringFixed(2))
	assert.Equal(t, "10.50", entry.BalanceBefore.StringFixed(2))
	assert.Equal(t, res.Reference, entry.Reference)
}

func TestTopUp_Wallet(t *testing.T) {
	svc, ctx := newTestService(t)
	u, sess := seedUser(t, svc, ctx, "alice", "")

	res, err := svc.TopUp(ctx, sess, TopUpRequest{Account: userRef(u), Amount: dec("25")})
	require.NoError(t, err)
	assert.Equal(t, "25", res.Balance.StringFixed(0))

	p, err := svc.Profile(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "25", p.Balance.StringFixed(0))
}

func TestTopUp_Rejects(t *testing.T) {
	svc, ctx := newTestService(t)
	_, alice := seedUser(t, svc, ctx, "alice", "")
	_, bob := seedUser(t, svc, ctx, "bob", "")
	c := seedCard(t, svc, ctx, alice, "0", "")

	_, err := svc.TopUp(ctx, alice, TopUpRequest{Account: cardRef(c), Amount: dec("0")})
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = svc.TopUp(ctx, alice, TopUpRequest{Account: cardRef(c), Amount: dec("-1")})
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = svc.TopUp(ctx, bob, TopUpRequest{Account: cardRef(c), Amount: dec("1")})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.TopUp(ctx, alice, TopUpRequest{Account: AccountRef{Kind: model.AccountKindCard, ID: 404}, Amount: dec("1")})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.TopUp(ctx, nil, TopUpRequest{Account: cardRef(c), Amount: dec("1")})
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Zero(t, auditCount(t, svc, ctx, cardRef(c)))
}

func TestTopUp_IdempotencyKey(t *testing.T) {
	svc, ctx := newTestService(t)
	_, alice := seedUser(t, svc, ctx, "alice", "")
	c := seedCard(t, svc, ctx, alice, "0", "")

	first, err := svc.TopUp(ctx, alice, TopUpRequest{Account: cardRef(c), Amount: dec("5"), IdempotencyKey: "t1"})
	require.NoError(t, err)
	again, err := svc.TopUp(ctx, alice, TopUpRequest{Account: cardRef(c), Amount: dec("5"), IdempotencyKey: "t1"})
	require.NoError(t, err)

	assert.True(t, again.Replayed)
	assert.Equal(t, first.Reference, again.Reference)
	assert.Equal(t, "5", balanceOf(t, svc, ctx, c).StringFixed(0))
	assert.EqualValues(t, 1, auditCount(t, svc, ctx, cardRef(c)))

	_, err = svc.TopUp(ctx, alice, TopUpRequest{Account: cardRef(c), Amount: dec("7"), IdempotencyKey: "t1"})
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, "5", balanceOf(t, svc, ctx, c).StringFixed(0))
}
