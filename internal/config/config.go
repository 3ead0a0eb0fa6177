// Package config assembles the runtime configuration from built-in defaults,
// an optional JSON file, environment variables (with .env support) and
// command-line flags, in increasing order of priority.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"reflect"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
	EnvironmentTest        = "test"
)

const (
	StorageAuto     = "auto"
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSqlite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

const (
	DefaultJWTSecret   = "your-super-secret-jwt-key-change-in-production"
	DefaultDatabaseURL = "file:./dev.db"
)

// ErrInsecureDefaults is returned by New when a production configuration still uses the built-in JWT secret.
var ErrInsecureDefaults = errors.New("production configuration uses the default JWT secret")

type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	GRPCAddr            string        `env:"GRPC_ADDRESS" json:"grpc_address" validate:"omitempty,hostname_port"`
	Environment         string        `env:"APP_ENV" json:"app_env" validate:"oneof=development production test"`
	FrontendURL         string        `env:"FRONTEND_URL" json:"frontend_url" validate:"url"`
	JWTSecret           string        `env:"JWT_SECRET" json:"jwt_secret" validate:"required"`
	StorageType         string        `env:"STORAGE_TYPE" json:"storage_type" validate:"storagetype"`
	DatabaseDSN         string        `env:"DATABASE_URL" json:"database_url"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" json:"file_storage_path"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"-" validate:"gt=0"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"cidr_or_empty"`
	LogLevel            string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
}

// fileConfig is the JSON file layout. Durations are written as strings like "5s".
type fileConfig struct {
	Config
	DBConnectionTimeout string `json:"db_connection_timeout"`
}

var defaultConfig = Config{
	RunAddr:             ":3001",
	GRPCAddr:            "",
	Environment:         EnvironmentDevelopment,
	FrontendURL:         "http://localhost:3000",
	JWTSecret:           DefaultJWTSecret,
	StorageType:         StorageAuto,
	DatabaseDSN:         DefaultDatabaseURL,
	DBFileName:          "",
	DBConnectionTimeout: 10 * time.Second,
	TrustedSubnet:       "",
	LogLevel:            "info",
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// applyDefaults fills every zero field of values from defaults.
func applyDefaults(values *Config, defaults Config) {
	target := reflect.ValueOf(values).Elem()
	source := reflect.ValueOf(defaults)
	for i := 0; i < target.NumField(); i++ {
		if target.Field(i).IsZero() {
			target.Field(i).Set(source.Field(i))
		}
	}
}

func parseFlags(values *Config) (string, error) {
	var configFile string

	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flags.StringVar(&configFile, "c", "", "path to the JSON config file")
	flags.StringVar(&values.RunAddr, "a", "", "address and port to run the HTTP server")
	flags.StringVar(&values.GRPCAddr, "g", "", "address and port to run the gRPC health server")
	flags.StringVar(&values.Environment, "e", "", "environment: development, production or test")
	flags.StringVar(&values.FrontendURL, "o", "", "frontend origin allowed by CORS")
	flags.StringVar(&values.JWTSecret, "s", "", "secret used to sign session tokens")
	flags.StringVar(&values.StorageType, "t", "", "storage: auto, memory, file, sqlite, postgres or redis")
	flags.StringVar(&values.DatabaseDSN, "d", "", "database connection URL")
	flags.StringVar(&values.DBFileName, "f", "", "JSON file name with database")
	flags.StringVar(&values.TrustedSubnet, "n", "", "CIDR allowed to read /metrics")
	flags.StringVar(&values.LogLevel, "l", "", "logger level")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return "", err
	}

	return configFile, nil
}

func parseFile(fileName string) (Config, error) {
	raw, err := os.ReadFile(fileName)
	if err != nil {
		return Config{}, err
	}

	var values fileConfig
	if err := json.Unmarshal(raw, &values); err != nil {
		return Config{}, err
	}
	if values.DBConnectionTimeout != "" {
		timeout, err := time.ParseDuration(values.DBConnectionTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("db_connection_timeout: %w", err)
		}
		values.Config.DBConnectionTimeout = timeout
	}

	return values.Config, nil
}

// New builds the configuration. Flags win over environment variables, which win over
// the JSON file named by -c or CONFIG, which wins over the built-in defaults.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := Config{}
	configFile := ""
	if !options.disableFlagsParsing {
		configFile, err = parseFlags(&values)
		if err != nil {
			return nil, fmt.Errorf("in internal/config/config.go/New(): error while `parseFlags()` calling: %w", err)
		}
	}

	var valuesFromEnv Config
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}
	applyDefaults(&values, valuesFromEnv)

	if configFile == "" {
		configFile = os.Getenv("CONFIG")
	}
	if configFile != "" {
		valuesFromFile, err := parseFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("in internal/config/config.go/New(): error while `parseFile()` calling: %w", err)
		}
		applyDefaults(&values, valuesFromFile)
	}

	applyDefaults(&values, defaultConfig)

	if err := values.validate(); err != nil {
		return nil, err
	}

	if values.IsProduction() && values.UsesDefaultJWTSecret() {
		return nil, ErrInsecureDefaults
	}

	return &values, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

func (c *Config) UsesDefaultJWTSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

func (c *Config) UsesDefaultDatabaseURL() bool {
	return c.DatabaseDSN == DefaultDatabaseURL
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug":  true,
		"info":   true,
		"warn":   true,
		"error":  true,
		"dpanic": true,
		"panic":  true,
		"fatal":  true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

func validateStorageType(fieldLevel validator.FieldLevel) bool {
	switch fieldLevel.Field().String() {
	case StorageAuto, StorageMemory, StorageFile, StorageSqlite, StoragePostgres, StorageRedis:
		return true
	}

	return false
}

func validateCIDROrEmpty(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()
	if value == "" {
		return true
	}
	_, _, err := net.ParseCIDR(value)

	return err == nil
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("storagetype", validateStorageType)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("cidr_or_empty", validateCIDROrEmpty)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}
