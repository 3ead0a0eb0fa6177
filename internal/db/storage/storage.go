// Package storage declares the contract every user store satisfies
// and the errors they report.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/wikisubs/internal/option"
	"github.com/patric-chuzhbe/wikisubs/internal/user"
)

var (
	// ErrUserNotFound is returned when no user has the requested email.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned by stores that refuse to overwrite an existing user on create.
	ErrUserExists = errors.New("user already exists")
)

// Storage is implemented by memorystorage, jsondb, sqldb and redisdb.
type Storage interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	// CreateUser stores a new user. A nil subscriptions slice means user.DefaultSubscriptions.
	CreateUser(ctx context.Context, email string, subscriptions []string) (*user.User, error)

	// ReplaceSubscriptions overwrites the whole list. The last writer wins.
	ReplaceSubscriptions(ctx context.Context, email string, subscriptions []string) (*user.User, error)

	CountUsers(ctx context.Context) (int64, error)

	// GetSubscriptionOptions returns active options ordered by name.
	GetSubscriptionOptions(ctx context.Context) ([]option.Option, error)

	CountSubscriptionOptions(ctx context.Context) (int64, error)

	// SaveSubscriptionOptions inserts options, leaving already stored names untouched.
	SaveSubscriptionOptions(ctx context.Context, options []option.Option) error

	Ping(ctx context.Context) error

	Close() error
}
