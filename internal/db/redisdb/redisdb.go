// Package redisdb keeps users and subscription options in two Redis hashes,
// each field holding the JSON form of one record.
package redisdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/patric-chuzhbe/wikisubs/internal/db/storage"
	"github.com/patric-chuzhbe/wikisubs/internal/option"
	"github.com/patric-chuzhbe/wikisubs/internal/user"
)

const (
	usersKey   = "wikisubs:users"
	optionsKey = "wikisubs:options"
)

type redisClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HSetNX(ctx context.Context, key, field string, value interface{}) *redis.BoolCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HLen(ctx context.Context, key string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

type RedisDB struct {
	client redisClient
	now    func() time.Time
}

type initOptions struct {
	now func() time.Time
}

type InitOption func(*initOptions)

func WithClock(now func() time.Time) InitOption {
	return func(options *initOptions) {
		options.now = now
	}
}

// New connects to the server described by a redis:// URL and waits up to
// connectionTimeout for the first PING.
func New(ctx context.Context, databaseDSN string, connectionTimeout time.Duration, optionsProto ...InitOption) (*RedisDB, error) {
	redisOptions, err := redis.ParseURL(databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/redisdb/redisdb.go/New(): error while `redis.ParseURL()` calling: %w", err)
	}
	client := redis.NewClient(redisOptions)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("in internal/db/redisdb/redisdb.go/New(): error while `client.Ping()` calling: %w", err)
	}

	return newWithClient(client, optionsProto...), nil
}

func newWithClient(client redisClient, optionsProto ...InitOption) *RedisDB {
	options := &initOptions{
		now: time.Now,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	return &RedisDB{
		client: client,
		now:    options.now,
	}
}

func (db *RedisDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	raw, err := db.client.HGet(ctx, usersKey, email).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("hget user: %w", err)
	}

	var usr user.User
	if err := json.Unmarshal([]byte(raw), &usr); err != nil {
		return nil, fmt.Errorf("decode user %q: %w", email, err)
	}
	usr.Subscriptions = user.CopySubscriptions(usr.Subscriptions)

	return &usr, nil
}

func (db *RedisDB) CreateUser(ctx context.Context, email string, subscriptions []string) (*user.User, error) {
	if subscriptions == nil {
		subscriptions = user.DefaultSubscriptions()
	}

	now := db.now().UTC()
	usr := &user.User{
		ID:            uuid.NewString(),
		Email:         email,
		Subscriptions: user.CopySubscriptions(subscriptions),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	raw, err := json.Marshal(usr)
	if err != nil {
		return nil, err
	}

	created, err := db.client.HSetNX(ctx, usersKey, email, string(raw)).Result()
	if err != nil {
		return nil, fmt.Errorf("hsetnx user: %w", err)
	}
	if !created {
		return nil, storage.ErrUserExists
	}

	return usr, nil
}

func (db *RedisDB) ReplaceSubscriptions(ctx context.Context, email string, subscriptions []string) (*user.User, error) {
	usr, err := db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	usr.Subscriptions = user.CopySubscriptions(subscriptions)
	usr.UpdatedAt = db.now().UTC()

	raw, err := json.Marshal(usr)
	if err != nil {
		return nil, err
	}
	if err := db.client.HSet(ctx, usersKey, email, string(raw)).Err(); err != nil {
		return nil, fmt.Errorf("hset user: %w", err)
	}

	return usr, nil
}

func (db *RedisDB) CountUsers(ctx context.Context) (int64, error) {
	return db.client.HLen(ctx, usersKey).Result()
}

func (db *RedisDB) CountSubscriptionOptions(ctx context.Context) (int64, error) {
	return db.client.HLen(ctx, optionsKey).Result()
}

func (db *RedisDB) GetSubscriptionOptions(ctx context.Context) ([]option.Option, error) {
	fields, err := db.client.HGetAll(ctx, optionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall options: %w", err)
	}

	options := make([]option.Option, 0, len(fields))
	for name, raw := range fields {
		var opt option.Option
		if err := json.Unmarshal([]byte(raw), &opt); err != nil {
			return nil, fmt.Errorf("decode option %q: %w", name, err)
		}
		options = append(options, opt)
	}

	return option.ActiveSortedByName(options), nil
}

// SaveSubscriptionOptions adds the options whose names are not stored yet.
func (db *RedisDB) SaveSubscriptionOptions(ctx context.Context, options []option.Option) error {
	now := db.now().UTC()
	for _, opt := range options {
		if opt.CreatedAt.IsZero() {
			opt.CreatedAt = now
		}
		raw, err := json.Marshal(opt)
		if err != nil {
			return err
		}
		if err := db.client.HSetNX(ctx, optionsKey, opt.Name, string(raw)).Err(); err != nil {
			return fmt.Errorf("hsetnx option %q: %w", opt.Name, err)
		}
	}

	return nil
}

func (db *RedisDB) Ping(ctx context.Context) error {
	return db.client.Ping(ctx).Err()
}

func (db *RedisDB) Close() error {
	return db.client.Close()
}
