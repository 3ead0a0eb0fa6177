package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/wikisubs/internal/config"
	"github.com/patric-chuzhbe/wikisubs/internal/db/memorystorage"
	"github.com/patric-chuzhbe/wikisubs/internal/db/storage"
	"github.com/patric-chuzhbe/wikisubs/internal/grpcserver"
	"github.com/patric-chuzhbe/wikisubs/internal/models"
)

type closeCountingStorage struct {
	storage.Storage
	closed int
}

func (s *closeCountingStorage) Close() error {
	s.closed++
	return s.Storage.Close()
}

func TestGetAvailableStorageType(t *testing.T) {
	testCases := []struct {
		name     string
		cfg      config.Config
		expected int
	}{
		{name: "explicit memory", cfg: config.Config{StorageType: config.StorageMemory, DatabaseDSN: "postgres://x"}, expected: models.StorageTypeMemory},
		{name: "explicit redis", cfg: config.Config{StorageType: config.StorageRedis}, expected: models.StorageTypeRedis},
		{name: "unknown", cfg: config.Config{StorageType: "mongo"}, expected: models.StorageTypeUnknown},
		{name: "auto postgres", cfg: config.Config{StorageType: config.StorageAuto, DatabaseDSN: "postgres://u:p@localhost/db"}, expected: models.StorageTypePostgresql},
		{name: "auto postgresql scheme", cfg: config.Config{StorageType: config.StorageAuto, DatabaseDSN: "postgresql://localhost/db"}, expected: models.StorageTypePostgresql},
		{name: "auto redis", cfg: config.Config{StorageType: config.StorageAuto, DatabaseDSN: "redis://localhost:6379/0"}, expected: models.StorageTypeRedis},
		{name: "auto default sqlite", cfg: config.Config{StorageType: config.StorageAuto, DatabaseDSN: config.DefaultDatabaseURL}, expected: models.StorageTypeSqlite},
		{name: "auto sqlite path", cfg: config.Config{StorageType: config.StorageAuto, DatabaseDSN: "/var/lib/wikisubs.db"}, expected: models.StorageTypeSqlite},
		{name: "auto file over default dsn", cfg: config.Config{StorageType: config.StorageAuto, DatabaseDSN: config.DefaultDatabaseURL, DBFileName: "db.json"}, expected: models.StorageTypeFile},
		{name: "auto dsn over file", cfg: config.Config{StorageType: config.StorageAuto, DatabaseDSN: "postgres://localhost/db", DBFileName: "db.json"}, expected: models.StorageTypePostgresql},
		{name: "auto unrecognised dsn with file", cfg: config.Config{StorageType: config.StorageAuto, DatabaseDSN: "mysql://x", DBFileName: "db.json"}, expected: models.StorageTypeFile},
		{name: "auto unrecognised dsn", cfg: config.Config{StorageType: config.StorageAuto, DatabaseDSN: "mysql://x"}, expected: models.StorageTypeMemory},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expected, getAvailableStorageType(&testCase.cfg))
		})
	}
}

func TestNewWithMemoryStorage(t *testing.T) {
	t.Setenv("STORAGE_TYPE", config.StorageMemory)

	app, err := New(config.WithDisableFlagsParsing(true))
	require.NoError(t, err)
	defer app.Close()

	recorder := httptest.NewRecorder()
	app.httpHandler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/subscriptions/options", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"id":"true-random"`)
	require.NoError(t, app.db.Close())
}

func TestNewWithSqliteStorage(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:"+filepath.Join(t.TempDir(), "test.db"))

	app, err := New(config.WithDisableFlagsParsing(true))
	require.NoError(t, err)
	defer app.Close()

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/api/auth/signin", strings.NewReader(`{"email":"a@x.com"}`))
	request.Header.Set("Content-Type", "application/json")
	app.httpHandler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"subscriptions":["true-random","brand-new"]`)
	require.NoError(t, app.db.Close())
}

func TestNewRefusesInsecureProduction(t *testing.T) {
	t.Setenv("APP_ENV", config.EnvironmentProduction)
	t.Setenv("STORAGE_TYPE", config.StorageMemory)

	_, err := New(config.WithDisableFlagsParsing(true))
	assert.ErrorIs(t, err, config.ErrInsecureDefaults)
}

func TestRunClosesStorageWhenGRPCListenFails(t *testing.T) {
	memory, err := memorystorage.New()
	require.NoError(t, err)
	db := &closeCountingStorage{Storage: memory}

	app := &App{
		cfg: &config.Config{
			RunAddr:  "127.0.0.1:0",
			GRPCAddr: "127.0.0.1:-1",
		},
		db:          db,
		httpHandler: http.NotFoundHandler(),
		healthCheck: grpcserver.NewHealthHandler(db),
	}

	err = app.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grpcserver.NewGRPCServer()")
	assert.Equal(t, 1, db.closed)
}

func TestRunClosesStorageWhenHTTPListenFails(t *testing.T) {
	memory, err := memorystorage.New()
	require.NoError(t, err)
	db := &closeCountingStorage{Storage: memory}

	app := &App{
		cfg:         &config.Config{RunAddr: "127.0.0.1:-1"},
		db:          db,
		httpHandler: http.NotFoundHandler(),
	}

	err = app.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")
	assert.Equal(t, 1, db.closed)
}
