package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/digibank/digibank-service/internal/model"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const (
	balanceTTL = 5 * time.Minute

	// BalanceChannel is the pub/sub channel carrying BalanceChange messages.
	BalanceChannel = "balance-changes"
)

// ErrNoRedis is returned by subscriptions when the repository runs without Redis.
var ErrNoRedis = errors.New("redis not configured")

// BalanceChange is published after a committed balance mutation.
type BalanceChange struct {
	Kind      model.AccountKind `json:"kind"`
	AccountID uint64            `json:"account_id"`
	OwnerID   uint64            `json:"owner_id"`
	Balance   decimal.Decimal   `json:"balance"`
	Version   uint64            `json:"version"`
	Reference string            `json:"reference"`
}

func balanceKey(kind model.AccountKind, id uint64) string {
	return fmt.Sprintf("balance:%s:%d", kind, id)
}

// CachedBalance is the value stored under balance:<kind>:<id>. The owner travels
// with it so reads can be authorised without touching the database. Version is
// the row version the balance was read at.
type CachedBalance struct {
	OwnerID uint64          `json:"owner_id"`
	Balance decimal.Decimal `json:"balance"`
	Version uint64          `json:"version"`
}

// setIfNewer stores ARGV[1] unless the cached entry already carries a version >= ARGV[2].
// Writers publish after commit in no particular order, so a slower writer must not
// overwrite a fresher balance.
var setIfNewer = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local ok, entry = pcall(cjson.decode, cur)
	if ok and type(entry) == 'table' and tonumber(entry.version or 0) >= tonumber(ARGV[2]) then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[3])
return 1
`)

// CacheBalance writes Redis, keeping whichever of the stored and given entries has the higher version.
func (r *Repository) CacheBalance(ctx context.Context, kind model.AccountKind, id uint64, cached CachedBalance) error {
	if r.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return setIfNewer.Run(ctx, r.rdb, []string{balanceKey(kind, id)},
		string(payload),
		strconv.FormatUint(cached.Version, 10),
		strconv.Itoa(int(balanceTTL/time.Second)),
	).Err()
}

// GetCachedBalance reads Redis. A miss returns redis.Nil.
func (r *Repository) GetCachedBalance(ctx context.Context, kind model.AccountKind, id uint64) (*CachedBalance, error) {
	if r.rdb == nil {
		return nil, redis.Nil
	}
	str, err := r.rdb.Get(ctx, balanceKey(kind, id)).Result()
	if err != nil {
		return nil, err
	}
	var cached CachedBalance
	if err := json.Unmarshal([]byte(str), &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

// InvalidateBalance drops a cached balance, used when the account row goes away.
func (r *Repository) InvalidateBalance(ctx context.Context, kind model.AccountKind, id uint64) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Del(ctx, balanceKey(kind, id)).Err()
}

// PublishBalanceChange announces a committed balance on BalanceChannel.
func (r *Repository) PublishBalanceChange(ctx context.Context, change BalanceChange) error {
	if r.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, BalanceChannel, string(payload)).Err()
}

// SubscribeBalanceChanges streams BalanceChannel until ctx ends or close is called.
func (r *Repository) SubscribeBalanceChanges(ctx context.Context) (<-chan BalanceChange, func() error, error) {
	if r.rdb == nil {
		return nil, nil, ErrNoRedis
	}
	sub := r.rdb.Subscribe(ctx, BalanceChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", BalanceChannel, err)
	}
	out := make(chan BalanceChange)
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change BalanceChange
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					r.log.Warnf("drop malformed balance change: %v", err)
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, sub.Close, nil
}
