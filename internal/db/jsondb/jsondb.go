// Package jsondb provides a map-backed user store that is loaded from a JSON file
// on start and written back on Close. With an empty file name it keeps everything
// in memory only, which is how memorystorage reuses it.
package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/wikisubs/internal/db/storage"
	"github.com/patric-chuzhbe/wikisubs/internal/option"
	"github.com/patric-chuzhbe/wikisubs/internal/user"
)

// JSONDB keeps users and subscription options in maps guarded by a single RWMutex.
type JSONDB struct {
	fileName          string
	overwriteOnCreate bool
	now               func() time.Time

	mu    sync.RWMutex
	Cache CacheStruct
}

// CacheStruct is the on-disk layout of the JSON file.
type CacheStruct struct {
	Users   map[string]*user.User    `json:"users"`
	Options map[string]option.Option `json:"options"`
}

type initOptions struct {
	overwriteOnCreate bool
	now               func() time.Time
}

// InitOption configures New.
type InitOption func(*initOptions)

// WithOverwriteOnCreate makes CreateUser replace an existing user instead of
// failing with storage.ErrUserExists.
func WithOverwriteOnCreate(overwrite bool) InitOption {
	return func(options *initOptions) {
		options.overwriteOnCreate = overwrite
	}
}

// WithClock sets the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) InitOption {
	return func(options *initOptions) {
		options.now = now
	}
}

func newCache() CacheStruct {
	return CacheStruct{
		Users:   map[string]*user.User{},
		Options: map[string]option.Option{},
	}
}

func writeToJSONFile(fileName string, cache CacheStruct) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(jsonData); err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cache)
}

// New loads fileName if it exists, creating it otherwise. An empty fileName
// gives a store that never touches the disk.
func New(fileName string, optionsProto ...InitOption) (*JSONDB, error) {
	options := &initOptions{
		overwriteOnCreate: false,
		now:               time.Now,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	db := &JSONDB{
		fileName:          fileName,
		overwriteOnCreate: options.overwriteOnCreate,
		now:               options.now,
		Cache:             newCache(),
	}
	if fileName == "" {
		return db, nil
	}

	err := parseJSONFile(fileName, &db.Cache)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `parseJSONFile()` calling: %w", err)
		}
		if err := writeToJSONFile(fileName, db.Cache); err != nil {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `writeToJSONFile()` calling: %w", err)
		}
	}
	if db.Cache.Users == nil {
		db.Cache.Users = map[string]*user.User{}
	}
	if db.Cache.Options == nil {
		db.Cache.Options = map[string]option.Option{}
	}

	return db, nil
}

// GetUserByEmail returns a copy of the stored user.
func (db *JSONDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	usr, found := db.Cache.Users[email]
	if !found {
		return nil, storage.ErrUserNotFound
	}

	return usr.Clone(), nil
}

// CreateUser adds a user, or replaces it when the store was built WithOverwriteOnCreate.
func (db *JSONDB) CreateUser(ctx context.Context, email string, subscriptions []string) (*user.User, error) {
	if subscriptions == nil {
		subscriptions = user.DefaultSubscriptions()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, found := db.Cache.Users[email]; found && !db.overwriteOnCreate {
		return nil, storage.ErrUserExists
	}

	now := db.now().UTC()
	usr := &user.User{
		ID:            uuid.NewString(),
		Email:         email,
		Subscriptions: user.CopySubscriptions(subscriptions),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	db.Cache.Users[email] = usr

	return usr.Clone(), nil
}

// ReplaceSubscriptions overwrites the subscriptions of an existing user.
func (db *JSONDB) ReplaceSubscriptions(ctx context.Context, email string, subscriptions []string) (*user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	usr, found := db.Cache.Users[email]
	if !found {
		return nil, storage.ErrUserNotFound
	}
	usr.Subscriptions = user.CopySubscriptions(subscriptions)
	usr.UpdatedAt = db.now().UTC()

	return usr.Clone(), nil
}

func (db *JSONDB) CountUsers(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Users)), nil
}

func (db *JSONDB) GetSubscriptionOptions(ctx context.Context) ([]option.Option, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	options := make([]option.Option, 0, len(db.Cache.Options))
	for _, opt := range db.Cache.Options {
		options = append(options, opt)
	}

	return option.ActiveSortedByName(options), nil
}

func (db *JSONDB) CountSubscriptionOptions(ctx context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return int64(len(db.Cache.Options)), nil
}

func (db *JSONDB) SaveSubscriptionOptions(ctx context.Context, options []option.Option) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.now().UTC()
	for _, opt := range options {
		if _, found := db.Cache.Options[opt.Name]; found {
			continue
		}
		if opt.CreatedAt.IsZero() {
			opt.CreatedAt = now
		}
		db.Cache.Options[opt.Name] = opt
	}

	return nil
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close flushes the cache to the JSON file.
func (db *JSONDB) Close() error {
	if db.fileName == "" {
		return nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}
