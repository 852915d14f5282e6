package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.Equal(t, 15, cfg.HeaderScanRows)
	require.Equal(t, 4, cfg.TicketHeaderThreshold)
	require.Equal(t, 3, cfg.FinancialHeaderThreshold)
	require.InDelta(t, 0.6, cfg.HeaderMinCoverage, 1e-9)
	require.Equal(t, 7, cfg.ExpiryWindowDays)
	require.True(t, cfg.ImportRowAtomic)
	require.False(t, cfg.AutoMigrate)

	opts, err := cfg.ImportOptions()
	require.NoError(t, err)
	require.Equal(t, time.UTC, opts.Location)
	require.True(t, opts.Atomic)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("IMPORT_ROW_ATOMIC", "false")
	t.Setenv("EXPIRY_WINDOW_DAYS", "10")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("DATABASE_URL", "postgres://rtr@localhost/rtr")
	t.Setenv("ADMIN_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.ImportRowAtomic)
	require.Equal(t, 10, cfg.ExpiryWindowDays)
	require.Equal(t, "postgres://rtr@localhost/rtr", cfg.DatabaseURL)
	require.Equal(t, "secret", cfg.AdminKey)
}

func TestLoadFromOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	v := viper.New()
	v.Set("TIMEZONE", "Not/AZone")

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	_, err = cfg.ImportOptions()
	require.Error(t, err)
}
