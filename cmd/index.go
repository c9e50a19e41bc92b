package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/pantrychef/internal/dependency"
	"github.com/crystaldolphin/pantrychef/internal/shared/cmdutils"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed every stored recipe into the vector index",
	RunE:  runIndex,
}

func runIndex(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := dependency.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	start := time.Now()
	n, err := c.Reindex(ctx)
	if err != nil {
		cmdutils.Fail(fmt.Sprintf("Indexing failed: %v", err))
		return err
	}
	cmdutils.Success(fmt.Sprintf("Indexed %d recipes into %s in %s", n, cfg.Vector.Collection, time.Since(start).Round(time.Millisecond)))
	return nil
}
