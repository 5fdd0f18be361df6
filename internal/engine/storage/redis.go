package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rendis/leadsweep/internal/apperr"
	"github.com/rendis/leadsweep/internal/model"
)

var _ SeenLog = (*RedisSeenLog)(nil)

// RedisSeenLog keeps entity ids in a set at key and the full rows, as JSON,
// in a list at key+":rows".
type RedisSeenLog struct {
	client *redis.Client
	key    string
}

type RedisOptions struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// NewRedisSeenLog connects and pings the server.
func NewRedisSeenLog(ctx context.Context, opts RedisOptions) (*RedisSeenLog, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Address,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, apperr.Persistence("redis ping", err)
	}
	return &RedisSeenLog{client: rdb, key: opts.Key}, nil
}

func (r *RedisSeenLog) rowsKey() string { return r.key + ":rows" }

func (r *RedisSeenLog) SeenIDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, apperr.Persistence("read seen log", err)
	}
	return ids, nil
}

func (r *RedisSeenLog) Append(ctx context.Context, e model.SeenEntry) error {
	row, err := json.Marshal(e)
	if err != nil {
		return apperr.Persistence("append seen log", err)
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, r.key, e.EntityID)
		p.RPush(ctx, r.rowsKey(), row)
		return nil
	})
	if err != nil {
		return apperr.Persistence("append seen log", err)
	}
	return nil
}

// Entries returns every logged row in append order.
func (r *RedisSeenLog) Entries(ctx context.Context) ([]model.SeenEntry, error) {
	raw, err := r.client.LRange(ctx, r.rowsKey(), 0, -1).Result()
	if err != nil {
		return nil, apperr.Persistence("read seen log rows", err)
	}
	out := make([]model.SeenEntry, 0, len(raw))
	for _, s := range raw {
		var e model.SeenEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, apperr.Persistence("decode seen log row", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *RedisSeenLog) Close() error {
	return r.client.Close()
}
