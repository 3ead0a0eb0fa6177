// Package sqldb is the durable user store on top of database/sql. The same queries
// serve PostgreSQL (through the pgx stdlib driver) and SQLite (through modernc.org/sqlite);
// the dialect only changes the driver, the goose dialect and the placeholder style.
// The schema is kept in embedded goose migrations applied by New.
package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/patric-chuzhbe/wikisubs/internal/db/storage"
	"github.com/patric-chuzhbe/wikisubs/internal/option"
	"github.com/patric-chuzhbe/wikisubs/internal/user"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its dialect and base FS in package globals.
var migrateMu sync.Mutex

// Dialect describes how to talk to one SQL engine.
type Dialect struct {
	DriverName   string
	GooseDialect string
	BindType     int
}

var (
	Postgres = Dialect{DriverName: "pgx", GooseDialect: "postgres", BindType: sqlx.DOLLAR}
	SQLite   = Dialect{DriverName: "sqlite", GooseDialect: "sqlite3", BindType: sqlx.QUESTION}
)

// SQLDB implements storage.Storage over a *sql.DB.
type SQLDB struct {
	database *sql.DB
	dialect  Dialect
	now      func() time.Time
}

type initOptions struct {
	now func() time.Time
}

// InitOption configures New and Wrap.
type InitOption func(*initOptions)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) InitOption {
	return func(options *initOptions) {
		options.now = now
	}
}

const userColumns = `id, email, subscriptions, created_at, updated_at`

// New opens the database, checks it answers within connectionTimeout
// and runs the embedded migrations.
func New(
	ctx context.Context,
	dialect Dialect,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*SQLDB, error) {
	database, err := sql.Open(dialect.DriverName, databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/New(): error while `sql.Open()` calling: %w", err)
	}
	if dialect == SQLite {
		// A second connection to ":memory:" would see an empty database, and SQLite serialises writers anyway.
		database.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		database.Close()
		return nil, fmt.Errorf("in internal/db/sqldb/sqldb.go/New(): error while `database.PingContext()` calling: %w", err)
	}

	if err := migrate(database, dialect); err != nil {
		database.Close()
		return nil, err
	}

	return Wrap(database, dialect, optionsProto...), nil
}

// Wrap builds a store around an already opened and migrated database.
func Wrap(database *sql.DB, dialect Dialect, optionsProto ...InitOption) *SQLDB {
	options := &initOptions{
		now: time.Now,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	return &SQLDB{
		database: database,
		dialect:  dialect,
		now:      options.now,
	}
}

func migrate(database *sql.DB, dialect Dialect) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect.GooseDialect); err != nil {
		return fmt.Errorf("in internal/db/sqldb/sqldb.go/migrate(): error while `goose.SetDialect()` calling: %w", err)
	}

	if err := goose.Up(database, "migrations"); err != nil {
		return fmt.Errorf("in internal/db/sqldb/sqldb.go/migrate(): error while `goose.Up()` calling: %w", err)
	}

	return nil
}

// rebind turns "?" placeholders into the style of the dialect.
func (db *SQLDB) rebind(query string) string {
	return sqlx.Rebind(db.dialect.BindType, query)
}

// timestamp accepts both native time values and the text form SQLite hands back
// when it cannot tell a column holds a time.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (ts *timestamp) Scan(src any) error {
	var text string
	switch value := src.(type) {
	case time.Time:
		ts.Time = value
		return nil
	case string:
		text = value
	case []byte:
		text = string(value)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}

	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, text)
		if err == nil {
			ts.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("unparsable timestamp %q", text)
}

func scanUser(row interface{ Scan(...any) error }) (*user.User, error) {
	var (
		usr                  user.User
		subscriptions        string
		createdAt, updatedAt timestamp
	)
	if err := row.Scan(&usr.ID, &usr.Email, &subscriptions, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	usr.CreatedAt = createdAt.UTC()
	usr.UpdatedAt = updatedAt.UTC()
	if err := json.Unmarshal([]byte(subscriptions), &usr.Subscriptions); err != nil {
		return nil, fmt.Errorf("decode subscriptions of %q: %w", usr.Email, err)
	}
	if usr.Subscriptions == nil {
		usr.Subscriptions = []string{}
	}

	return &usr, nil
}

func encodeSubscriptions(subscriptions []string) (string, error) {
	raw, err := json.Marshal(user.CopySubscriptions(subscriptions))
	if err != nil {
		return "", err
	}

	return string(raw), nil
}

func (db *SQLDB) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		db.rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`),
		email,
	)
	usr, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return usr, nil
}

// CreateUser inserts a user and reports storage.ErrUserExists when the email is taken.
func (db *SQLDB) CreateUser(ctx context.Context, email string, subscriptions []string) (*user.User, error) {
	if subscriptions == nil {
		subscriptions = user.DefaultSubscriptions()
	}
	encoded, err := encodeSubscriptions(subscriptions)
	if err != nil {
		return nil, err
	}

	now := db.now().UTC()
	row := db.database.QueryRowContext(
		ctx,
		db.rebind(`
			INSERT INTO users (id, email, subscriptions, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (email) DO NOTHING
				RETURNING `+userColumns,
		),
		uuid.NewString(),
		email,
		encoded,
		now,
		now,
	)
	usr, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return usr, nil
}

// ReplaceSubscriptions rewrites the list in a single UPDATE, so concurrent writers resolve to the last one.
func (db *SQLDB) ReplaceSubscriptions(ctx context.Context, email string, subscriptions []string) (*user.User, error) {
	encoded, err := encodeSubscriptions(subscriptions)
	if err != nil {
		return nil, err
	}

	row := db.database.QueryRowContext(
		ctx,
		db.rebind(`
			UPDATE users
				SET subscriptions = ?, updated_at = ?
				WHERE email = ?
				RETURNING `+userColumns,
		),
		encoded,
		db.now().UTC(),
		email,
	)
	usr, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update subscriptions: %w", err)
	}

	return usr, nil
}

func (db *SQLDB) count(ctx context.Context, table string) (int64, error) {
	var count int64
	err := db.database.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}

	return count, nil
}

func (db *SQLDB) CountUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, "users")
}

func (db *SQLDB) CountSubscriptionOptions(ctx context.Context) (int64, error) {
	return db.count(ctx, "subscription_options")
}

func (db *SQLDB) GetSubscriptionOptions(ctx context.Context) ([]option.Option, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT name, description, is_active, created_at
				FROM subscription_options
				WHERE is_active = TRUE
				ORDER BY name ASC
		`,
	)
	if err != nil {
		return nil, fmt.Errorf("select subscription options: %w", err)
	}
	defer rows.Close()

	result := []option.Option{}
	for rows.Next() {
		var (
			opt       option.Option
			createdAt timestamp
		)
		if err := rows.Scan(&opt.Name, &opt.Description, &opt.IsActive, &createdAt); err != nil {
			return nil, fmt.Errorf("scan subscription option: %w", err)
		}
		opt.CreatedAt = createdAt.UTC()
		result = append(result, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// SaveSubscriptionOptions inserts all options in one transaction, skipping names already present.
func (db *SQLDB) SaveSubscriptionOptions(ctx context.Context, options []option.Option) error {
	transaction, err := db.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = transaction.Rollback()
	}()

	now := db.now().UTC()
	for _, opt := range options {
		createdAt := opt.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := transaction.ExecContext(
			ctx,
			db.rebind(`
				INSERT INTO subscription_options (name, description, is_active, created_at)
					VALUES (?, ?, ?, ?)
					ON CONFLICT (name) DO NOTHING
			`),
			opt.Name,
			opt.Description,
			opt.IsActive,
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("insert subscription option %q: %w", opt.Name, err)
		}
	}

	return transaction.Commit()
}

func (db *SQLDB) Ping(ctx context.Context) error {
	return db.database.PingContext(ctx)
}

func (db *SQLDB) Close() error {
	return db.database.Close()
}
