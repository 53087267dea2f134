package repo

import (
	"context"
	"testing"
	"time"

	"github.com/digibank/digibank-service/internal/logger"
	"github.com/digibank/digibank-service/internal/model"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	r := NewRepository(nil, rdb, must(logger.NewLogger("error")))
	ctx := context.Background()

	entry := `{"owner_id":7,"balance":"42.5","version":3}`
	mock.ExpectEvalSha(setIfNewer.Hash(), []string{"balance:card:3"}, entry, "3", "300").SetVal(int64(1))
	mock.ExpectGet("balance:card:3").SetVal(entry)
	mock.ExpectGet("balance:user:7").RedisNil()
	mock.ExpectDel("balance:card:3").SetVal(1)

	require.NoError(t, r.CacheBalance(ctx, model.AccountKindCard, 3,
		CachedBalance{OwnerID: 7, Balance: decimal.RequireFromString("42.5"), Version: 3}))

	got, err := r.GetCachedBalance(ctx, model.AccountKindCard, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.OwnerID)
	assert.EqualValues(t, 3, got.Version)
	assert.Equal(t, "42.5", got.Balance.String())

	_, err = r.GetCachedBalance(ctx, model.AccountKindUser, 7)
	assert.ErrorIs(t, err, redis.Nil)

	require.NoError(t, r.InvalidateBalance(ctx, model.AccountKindCard, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceCache_OutOfOrderWriters(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	r := NewRepository(nil, rdb, must(logger.NewLogger("error")))
	ctx := context.Background()

	// the writer that committed second publishes first
	newer := `{"owner_id":7,"balance":"80","version":5}`
	older := `{"owner_id":7,"balance":"100","version":4}`
	mock.ExpectEvalSha(setIfNewer.Hash(), []string{"balance:user:7"}, newer, "5", "300").SetVal(int64(1))
	mock.ExpectEvalSha(setIfNewer.Hash(), []string{"balance:user:7"}, older, "4", "300").SetVal(int64(0))
	mock.ExpectGet("balance:user:7").SetVal(newer)

	require.NoError(t, r.CacheBalance(ctx, model.AccountKindUser, 7,
		CachedBalance{OwnerID: 7, Balance: decimal.NewFromInt(80), Version: 5}))
	require.NoError(t, r.CacheBalance(ctx, model.AccountKindUser, 7,
		CachedBalance{OwnerID: 7, Balance: decimal.NewFromInt(100), Version: 4}))

	got, err := r.GetCachedBalance(ctx, model.AccountKindUser, 7)
	require.NoError(t, err)
	assert.Equal(t, "80", got.Balance.String())
	assert.EqualValues(t, 5, got.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishBalanceChange(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	r := NewRepository(nil, rdb, must(logger.NewLogger("error")))

	mock.ExpectPublish(BalanceChannel,
		`{"kind":"user","account_id":7,"owner_id":7,"balance":"10","version":2,"reference":"ref-1"}`).SetVal(1)

	err := r.PublishBalanceChange(context.Background(), BalanceChange{
		Kind: model.AccountKindUser, AccountID: 7, OwnerID: 7, Balance: decimal.NewFromInt(10), Version: 2, Reference: "ref-1",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_WithoutRedis(t *testing.T) {
	r := NewRepository(nil, nil, must(logger.NewLogger("error")))
	ctx := context.Background()

	assert.NoError(t, r.CacheBalance(ctx, model.AccountKindCard, 1, CachedBalance{OwnerID: 1}))
	_, err := r.GetCachedBalance(ctx, model.AccountKindCard, 1)
	assert.ErrorIs(t, err, redis.Nil)
	assert.NoError(t, r.InvalidateBalance(ctx, model.AccountKindCard, 1))
	assert.NoError(t, r.PublishBalanceChange(ctx, BalanceChange{}))

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_, _, err = r.SubscribeBalanceChanges(ctx)
	assert.ErrorIs(t, err, ErrNoRedis)
}
