package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/hakagen/internal/config"
	"github.com/HerbHall/hakagen/internal/server"
	"github.com/HerbHall/hakagen/internal/synth"
	"github.com/HerbHall/hakagen/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run trigger over HTTP",
	Long: `Start the HTTP trigger. POST /api/v1/runs starts a run; the JSON body may
override date, start, end, anomalous_week and seed.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "listen host")
	serveCmd.Flags().Int("port", 0, "listen port")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd, map[string]string{"host": "server.host", "port": "server.port"})
	if err != nil {
		return err
	}
	defer func() { _ = a.logger.Sync() }()

	ctx, stop := signalContext()
	defer stop()

	p, history, cleanup, err := a.pipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := a.cfg.Server.Addr()
	srv := server.New(addr, p, requestParams(a.cfg, a.loc), a.logger.Named("server"),
		history.Ping,
		server.Options{
			RateLimit:  a.cfg.Server.RateLimit,
			RateBurst:  a.cfg.Server.RateBurst,
			RunTimeout: a.cfg.Run.Timeout,
			Target:     a.cfg.Notify.Target,
		})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	a.logger.Info("hakagen server ready", zap.String("addr", addr), zap.String("version", version.Short()))
	fmt.Fprintf(os.Stderr, "\n  hakagen %s listening on %s\n\n", version.Short(), addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.logger.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.logger.Info("hakagen server stopped")
	return nil
}

// requestParams applies the overrides of a run request to a copy of the
// configured run section.
func requestParams(cfg *config.Config, loc *time.Location) server.ParamsFunc {
	return func(req server.RunRequest) (synth.Params, error) {
		c := *cfg
		if req.Date != "" {
			c.Run.Date = req.Date
		}
		if req.Start != "" {
			c.Run.Start = req.Start
		}
		if req.End != "" {
			c.Run.End = req.End
		}
		if req.AnomalousWeek != nil {
			c.Run.AnomalousWeek = *req.AnomalousWeek
		}
		if req.Seed != nil {
			c.Run.Seed = *req.Seed
		}
		return c.RunParams(loc)
	}
}
