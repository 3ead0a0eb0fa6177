// Package memorystorage is the ephemeral user store. It lives only as long as the
// process and, unlike the durable stores, overwrites a user on repeated create.
package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/wikisubs/internal/db/jsondb"
)

type MemoryStorage struct {
	*jsondb.JSONDB
}

// New builds an empty store. CreateUser overwrites an existing user, so two first
// sign-ins racing for the same email may reset subscriptions the first caller
// already replaced; the last create wins.
func New(optionsProto ...jsondb.InitOption) (*MemoryStorage, error) {
	options := append([]jsondb.InitOption{jsondb.WithOverwriteOnCreate(true)}, optionsProto...)

	db, err := jsondb.New("", options...)
	if err != nil {
		return nil, err
	}

	return &MemoryStorage{JSONDB: db}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
