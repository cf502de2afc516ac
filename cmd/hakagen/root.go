package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HerbHall/hakagen/internal/config"
	"github.com/HerbHall/hakagen/internal/notify"
	"github.com/HerbHall/hakagen/internal/output"
	"github.com/HerbHall/hakagen/internal/store"
	"github.com/HerbHall/hakagen/internal/synth"
	"github.com/HerbHall/hakagen/internal/version"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "hakagen",
	Short: "Synthetic camera detections from historical statistics",
	Long: `hakagen reads a month of camera detections, estimates how often each
(weekday, minute, zone, camera) slot fires per week and samples a
synthetic window of events for a target day.`,
	Version:       version.Short(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hakagen:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file (default: hakagen.yaml in ., ./configs or /etc/hakagen)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")

	rootCmd.AddCommand(generateCmd, serveCmd, seedCmd, statsCmd, versionCmd)
}

// app is what every subcommand needs after configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	loc    *time.Location
}

// setup loads configuration, binding the named command flags over their
// config keys, and builds the logger.
func setup(cmd *cobra.Command, flagKeys map[string]string) (*app, error) {
	v, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd.Flags(), flagKeys); err != nil {
		return nil, err
	}
	if logLevel != "" {
		v.Set("logging.level", logLevel)
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if f := v.ConfigFileUsed(); f != "" {
		logger.Debug("configuration loaded", zap.String("component", "config"), zap.String("source", f))
	}
	return &app{cfg: cfg, logger: logger, loc: loc}, nil
}

// bindFlags makes explicitly set flags override the config key they map to.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, flagKeys map[string]string) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

// openHistory connects to the configured detection table. The returned
// closer releases the connection.
func (a *app) openHistory(ctx context.Context) (*store.HistorySource, func() error, error) {
	dialect, err := a.cfg.Database.Dialect()
	if err != nil {
		return nil, nil, err
	}

	var closer func() error
	var h *store.HistorySource
	switch dialect {
	case store.DialectSQLite:
		path := a.cfg.Database.SQLitePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
		s, err := store.New(path)
		if err != nil {
			return nil, nil, err
		}
		if err := s.CheckVersion(ctx, version.Short()); err != nil {
			s.Close()
			return nil, nil, err
		}
		closer = s.Close
		h, err = store.NewHistorySource(s.DB(), dialect, a.cfg.Database.Table, a.logger.Named("history"))
		if err != nil {
			s.Close()
			return nil, nil, err
		}
		a.logger.Info("history database opened", zap.String("component", "database"), zap.String("path", path))
	case store.DialectPostgres:
		db, err := store.OpenPostgres(ctx, a.cfg.Database.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		closer = db.Close
		h, err = store.NewHistorySource(db, dialect, a.cfg.Database.Table, a.logger.Named("history"))
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		a.logger.Info("history database opened", zap.String("component", "database"), zap.String("host", a.cfg.Database.Host))
	}
	return h, closer, nil
}

// pipeline wires history, artifact store and notifier into a Pipeline.
func (a *app) pipeline(ctx context.Context) (*synth.Pipeline, *store.HistorySource, func(), error) {
	history, closeDB, err := a.openHistory(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	blobs, err := output.NewStore(ctx, a.cfg.Output)
	if err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	writer := output.NewWriter(blobs, a.cfg.Output.Prefix, a.logger.Named("output"))

	notifier, err := notify.New(a.cfg.Notify, a.logger.Named("notify"))
	if err != nil {
		closeDB()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := notifier.Close(); err != nil {
			a.logger.Warn("closing notifier", zap.Error(err))
		}
		if err := closeDB(); err != nil {
			a.logger.Warn("closing database", zap.Error(err))
		}
	}
	return synth.New(history, writer, notifier, a.loc, a.logger.Named("synth")), history, cleanup, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
