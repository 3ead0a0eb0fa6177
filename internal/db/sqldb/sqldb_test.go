package sqldb

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/wikisubs/internal/db/storage"
	"github.com/patric-chuzhbe/wikisubs/internal/option"
)

var _ storage.Storage = (*SQLDB)(nil)

func newSQLiteStorage(t *testing.T, optionsProto ...InitOption) *SQLDB {
	t.Helper()

	theStorage, err := New(context.Background(), SQLite, ":memory:", 5*time.Second, optionsProto...)
	require.NoError(t, err)
	t.Cleanup(func() {
		theStorage.Close()
	})

	return theStorage
}

func TestSQLiteUsers(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	theStorage := newSQLiteStorage(t, WithClock(func() time.Time { return fixed }))

	_, err := theStorage.GetUserByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	created, err := theStorage.CreateUser(ctx, "a@x.com", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "a@x.com", created.Email)
	assert.Equal(t, []string{"true-random", "brand-new"}, created.Subscriptions)
	assert.True(t, fixed.Equal(created.CreatedAt))

	_, err = theStorage.CreateUser(ctx, "a@x.com", []string{"science"})
	assert.ErrorIs(t, err, storage.ErrUserExists)

	updated, err := theStorage.ReplaceSubscriptions(ctx, "a@x.com", []string{})
	require.NoError(t, err)
	assert.Equal(t, []string{}, updated.Subscriptions)

	updated, err = theStorage.ReplaceSubscriptions(ctx, "a@x.com", []string{"science", "history"})
	require.NoError(t, err)
	assert.Equal(t, []string{"science", "history"}, updated.Subscriptions)

	found, err := theStorage.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, []string{"science", "history"}, found.Subscriptions)

	_, err = theStorage.ReplaceSubscriptions(ctx, "missing@x.com", []string{"science"})
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	count, err := theStorage.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	assert.NoError(t, theStorage.Ping(ctx))
}

func TestSQLiteSubscriptionOptions(t *testing.T) {
	ctx := context.Background()
	theStorage := newSQLiteStorage(t)

	count, err := theStorage.CountSubscriptionOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	defaults := append(option.Defaults(), option.Option{Name: "archived", Description: "Archived", IsActive: false})
	require.NoError(t, theStorage.SaveSubscriptionOptions(ctx, defaults))
	require.NoError(t, theStorage.SaveSubscriptionOptions(ctx, option.Defaults()), "saving twice skips present names")

	count, err = theStorage.CountSubscriptionOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	options, err := theStorage.GetSubscriptionOptions(ctx)
	require.NoError(t, err)

	var names []string
	for _, opt := range options {
		names = append(names, opt.Name)
		assert.True(t, opt.IsActive)
	}
	assert.Equal(t, []string{"brand-new", "culture", "history", "science", "trending", "true-random"}, names)
}

func newPostgresMock(t *testing.T) (*SQLDB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	return Wrap(db, Postgres), mock
}

var userRowColumns = []string{"id", "email", "subscriptions", "created_at", "updated_at"}

func TestPostgresCreateUserConflict(t *testing.T) {
	theStorage, mock := newPostgresMock(t)

	mock.ExpectQuery(`INSERT INTO users .* VALUES \(\$1, \$2, \$3, \$4, \$5\)\s+ON CONFLICT \(email\) DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "a@x.com", `["true-random","brand-new"]`, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := theStorage.CreateUser(context.Background(), "a@x.com", nil)
	assert.ErrorIs(t, err, storage.ErrUserExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetUserByEmail(t *testing.T) {
	theStorage, mock := newPostgresMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, email, subscriptions, created_at, updated_at FROM users WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("id-1", "a@x.com", `["science"]`, now, now))
	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("b@x.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	usr, err := theStorage.GetUserByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", usr.ID)
	assert.Equal(t, []string{"science"}, usr.Subscriptions)

	_, err = theStorage.GetUserByEmail(context.Background(), "b@x.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReplaceSubscriptions(t *testing.T) {
	theStorage, mock := newPostgresMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE users\s+SET subscriptions = \$1, updated_at = \$2\s+WHERE email = \$3`).
		WithArgs(`["culture"]`, sqlmock.AnyArg(), "a@x.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("id-1", "a@x.com", `["culture"]`, now, now))
	mock.ExpectQuery(`UPDATE users`).
		WithArgs(`[]`, sqlmock.AnyArg(), "ghost@x.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	usr, err := theStorage.ReplaceSubscriptions(context.Background(), "a@x.com", []string{"culture"})
	require.NoError(t, err)
	assert.Equal(t, []string{"culture"}, usr.Subscriptions)

	_, err = theStorage.ReplaceSubscriptions(context.Background(), "ghost@x.com", nil)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveSubscriptionOptions(t *testing.T) {
	theStorage, mock := newPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO subscription_options .* VALUES \(\$1, \$2, \$3, \$4\)\s+ON CONFLICT \(name\) DO NOTHING`).
		WithArgs("science", "Science", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectClose()

	err := theStorage.SaveSubscriptionOptions(context.Background(), []option.Option{
		{Name: "science", Description: "Science", IsActive: true},
	})
	require.NoError(t, err)
	require.NoError(t, theStorage.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRebind(t *testing.T) {
	postgres := Wrap(nil, Postgres)
	sqlite := Wrap(nil, SQLite)

	query := `UPDATE users SET subscriptions = ? WHERE email = ?`
	assert.Equal(t, `UPDATE users SET subscriptions = $1 WHERE email = $2`, postgres.rebind(query))
	assert.Equal(t, query, sqlite.rebind(query))

	insert := `INSERT INTO users (id, email, subscriptions) VALUES (?, ?, ?)`
	assert.Equal(t, `INSERT INTO users (id, email, subscriptions) VALUES ($1, $2, $3)`, postgres.rebind(insert))
}
