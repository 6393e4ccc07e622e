package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverFile  = "file"
	DriverMySQL = "mysql"
)

// Config holds application level configuration loaded from .env and the environment.
type Config struct {
	Env         string
	ServerPort  string
	LogLevel    string
	SwaggerHost string

	DataDir          string
	PublicDir        string
	StoreDriver      string
	MySQLDSN         string
	StoreLockTimeout time.Duration

	JWTSecret       string
	FederatedSecret string
	BcryptCost      int

	LoginRatePerSec float64
	LoginRateBurst  int

	Rates Rates
}

// Rates are the USD multipliers used to derive omitted product prices.
type Rates struct {
	INR decimal.Decimal
	GBP decimal.Decimal
	CAD decimal.Decimal
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load builds Config from an optional .env file and the environment.
func Load() (*Config, error) {
	return load(".env")
}

// LoadWithPath is Load with an explicit env file, which must exist.
func LoadWithPath(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != ".env" || !(errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg, err := bindConfig(v)
	if err != nil {
		return nil, fmt.Errorf("bind config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SWAGGER_HOST", "")

	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("PUBLIC_DIR", "public")
	v.SetDefault("STORE_DRIVER", DriverFile)
	v.SetDefault("MYSQL_DSN", "user:password@tcp(localhost:3306)/storefront?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("STORE_LOCK_TIMEOUT", "5s")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("FEDERATED_SECRET", "")
	v.SetDefault("BCRYPT_COST", 10)

	v.SetDefault("LOGIN_RATE_PER_SEC", 1.0)
	v.SetDefault("LOGIN_RATE_BURST", 5)

	v.SetDefault("RATE_INR", "82")
	v.SetDefault("RATE_GBP", "0.79")
	v.SetDefault("RATE_CAD", "1.35")
}

func bindConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:         strings.ToLower(v.GetString("APP_ENV")),
		ServerPort:  v.GetString("SERVER_PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		SwaggerHost: v.GetString("SWAGGER_HOST"),

		DataDir:          v.GetString("DATA_DIR"),
		PublicDir:        v.GetString("PUBLIC_DIR"),
		StoreDriver:      strings.ToLower(v.GetString("STORE_DRIVER")),
		MySQLDSN:         v.GetString("MYSQL_DSN"),
		StoreLockTimeout: v.GetDuration("STORE_LOCK_TIMEOUT"),

		JWTSecret:       v.GetString("JWT_SECRET"),
		FederatedSecret: v.GetString("FEDERATED_SECRET"),
		BcryptCost:      v.GetInt("BCRYPT_COST"),

		LoginRatePerSec: v.GetFloat64("LOGIN_RATE_PER_SEC"),
		LoginRateBurst:  v.GetInt("LOGIN_RATE_BURST"),
	}

	var err error
	if cfg.Rates.INR, err = decimal.NewFromString(v.GetString("RATE_INR")); err != nil {
		return nil, fmt.Errorf("RATE_INR: %w", err)
	}
	if cfg.Rates.GBP, err = decimal.NewFromString(v.GetString("RATE_GBP")); err != nil {
		return nil, fmt.Errorf("RATE_GBP: %w", err)
	}
	if cfg.Rates.CAD, err = decimal.NewFromString(v.GetString("RATE_CAD")); err != nil {
		return nil, fmt.Errorf("RATE_CAD: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	switch c.StoreDriver {
	case DriverFile:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for the file store")
		}
	case DriverMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN is required for the mysql store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreLockTimeout <= 0 {
		return fmt.Errorf("STORE_LOCK_TIMEOUT must be positive")
	}
	if c.LoginRatePerSec <= 0 || c.LoginRateBurst <= 0 {
		return fmt.Errorf("LOGIN_RATE_PER_SEC and LOGIN_RATE_BURST must be positive")
	}
	for name, r := range map[string]decimal.Decimal{"RATE_INR": c.Rates.INR, "RATE_GBP": c.Rates.GBP, "RATE_CAD": c.Rates.CAD} {
		if !r.IsPositive() {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
