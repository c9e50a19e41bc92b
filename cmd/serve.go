package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crystaldolphin/pantrychef/internal/dependency"
	"github.com/crystaldolphin/pantrychef/internal/shared/cmdutils"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides server.port)")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	// Graceful shutdown context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := dependency.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			slog.Warn("close services", "err", err)
		}
	}()

	if len(c.Providers()) == 0 {
		cmdutils.Warn("no providers configured: run `pantrychef status` to see what is missing")
	}
	if jobs := c.Scheduler().ListJobs(); len(jobs) > 0 {
		for _, j := range jobs {
			cmdutils.Success(fmt.Sprintf("Scheduled %s (%s)", j.Name, j.Schedule))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Server().Start(gctx) })
	g.Go(func() error { return c.Scheduler().Start(gctx) })

	fmt.Printf("%s Serving on %s:%d. Press Ctrl+C to stop.\n", logo, cfg.Server.Host, cfg.Server.Port)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
