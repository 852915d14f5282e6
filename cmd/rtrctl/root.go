package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rtr-ops/backend/internal/config"
	"github.com/rtr-ops/backend/internal/db"
	"github.com/rtr-ops/backend/internal/models"
)

type app struct {
	v      *viper.Viper
	cfg    config.Config
	logger zerolog.Logger
	actor  string
	asOf   string
}

type output struct {
	Command    string `json:"command"`
	DryRun     bool   `json:"dry_run,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Result     any    `json:"result"`
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	cmd := &cobra.Command{
		Use:          "rtrctl",
		Short:        "RTR work-order imports and permit maintenance",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFrom(a.v)
			if err != nil {
				return errors.Wrap(err, "load config")
			}
			a.cfg = cfg
			level, err := zerolog.ParseLevel(cfg.LogLevel)
			if err != nil {
				level = zerolog.InfoLevel
			}
			a.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}).
				Level(level).With().Timestamp().Str("service", "rtrctl").Logger()
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("database-url", "", "Postgres DSN (DATABASE_URL)")
	flags.String("timezone", "", "timezone used for today (TIMEZONE)")
	flags.String("log-level", "", "log level (LOG_LEVEL)")
	_ = a.v.BindPFlag("DATABASE_URL", flags.Lookup("database-url"))
	_ = a.v.BindPFlag("TIMEZONE", flags.Lookup("timezone"))
	_ = a.v.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))
	flags.StringVar(&a.actor, "actor", "rtrctl", "operator recorded as created_by/updated_by")
	flags.StringVar(&a.asOf, "as-of", "", "as-of date YYYY-MM-DD (default: today)")

	cmd.AddCommand(newImportCmd(a), newResolveCmd(a), newPermitsCmd(a), newMigrateCmd(a))
	return cmd
}

func (a *app) audit() models.Audit {
	actor := strings.TrimSpace(a.actor)
	return models.Audit{CreatedBy: actor, UpdatedBy: actor}
}

func (a *app) asOfTime() (time.Time, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return time.Time{}, errors.Wrap(err, "timezone")
	}
	if a.asOf == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", a.asOf, loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid --as-of %q", a.asOf)
	}
	return t, nil
}

func (a *app) openStore(ctx context.Context) (*db.Store, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	return db.New(ctx, a.cfg.DatabaseURL)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
