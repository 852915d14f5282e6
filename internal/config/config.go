package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/rtr-ops/backend/internal/service"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	AdminKey        string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB int64         `mapstructure:"MAX_UPLOAD_MB"`
	AutoMigrate     bool          `mapstructure:"AUTO_MIGRATE"`

	HeaderScanRows           int     `mapstructure:"HEADER_SCAN_ROWS"`
	TicketHeaderThreshold    int     `mapstructure:"TICKET_HEADER_THRESHOLD"`
	FinancialHeaderThreshold int     `mapstructure:"FINANCIAL_HEADER_THRESHOLD"`
	HeaderMinCoverage        float64 `mapstructure:"HEADER_MIN_COVERAGE"`
	ExpiryWindowDays         int     `mapstructure:"EXPIRY_WINDOW_DAYS"`
	ImportRowAtomic          bool    `mapstructure:"IMPORT_ROW_ATOMIC"`
	Timezone                 string  `mapstructure:"TIMEZONE"`
}

// Load reads .env (when present) and the environment.
func Load() (Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom is Load on a caller-owned viper, so flags and test overrides
// bound to v take precedence.
func LoadFrom(v *viper.Viper) (Config, error) {
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ADMIN_KEY", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("AUTO_MIGRATE", false)

	v.SetDefault("HEADER_SCAN_ROWS", 15)
	v.SetDefault("TICKET_HEADER_THRESHOLD", 4)
	v.SetDefault("FINANCIAL_HEADER_THRESHOLD", 3)
	v.SetDefault("HEADER_MIN_COVERAGE", 0.6)
	v.SetDefault("EXPIRY_WINDOW_DAYS", 7)
	v.SetDefault("IMPORT_ROW_ATOMIC", true)
	v.SetDefault("TIMEZONE", "UTC")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ImportOptions maps the import settings onto the service options.
func (c Config) ImportOptions() (service.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return service.Options{}, err
	}
	return service.Options{
		ScanRows:           c.HeaderScanRows,
		MinCoverage:        c.HeaderMinCoverage,
		TicketThreshold:    c.TicketHeaderThreshold,
		FinancialThreshold: c.FinancialHeaderThreshold,
		Atomic:             c.ImportRowAtomic,
		Window:             c.ExpiryWindowDays,
		Location:           loc,
	}, nil
}
