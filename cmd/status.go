package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/pantrychef/internal/config"
	"github.com/crystaldolphin/pantrychef/internal/config/store"
	"github.com/crystaldolphin/pantrychef/internal/cron"
	"github.com/crystaldolphin/pantrychef/internal/providers"
	"github.com/crystaldolphin/pantrychef/internal/shared/cmdutils"
)

var statusEnv bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, provider and job status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusEnv, "env", false, "List the environment variables that override config values")
}

func runStatus(_ *cobra.Command, _ []string) error {
	if statusEnv {
		help, err := config.EnvHelp()
		if err != nil {
			return err
		}
		fmt.Println(help)
		return nil
	}

	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}

	fmt.Printf("%s pantrychef Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	fmt.Printf("Config:    %s %s\n", cfgPath, cmdutils.Mark(statErr == nil))

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	fmt.Printf("Chef:      %s\n", cfg.Agent.ChefName)
	fmt.Printf("Model:     %s\n", cfg.Agent.DefaultModel)
	fmt.Printf("Server:    %s:%d (timeout %s)\n\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.Timeout())

	fmt.Println("Providers:")
	for _, spec := range providers.PROVIDERS {
		p := cfg.Providers.ByName(spec.Name)
		label := spec.Label()
		switch {
		case !cfg.Configured(spec):
			fmt.Printf("  %-20s %s %s\n", label, cmdutils.Mark(false), cmdutils.Faint("(set "+spec.EnvKey+")"))
		case !spec.NeedsAPIKey:
			base := spec.DefaultAPIBase
			if p != nil && p.APIBase != "" {
				base = p.APIBase
			}
			fmt.Printf("  %-20s %s %s\n", label, cmdutils.Mark(true), base)
		default:
			fmt.Printf("  %-20s %s\n", label, cmdutils.Mark(true))
		}
	}

	fmt.Println("\nStorage:")
	fmt.Printf("  %-20s %s\n", "Recipe store", describeStore(cfg))
	if cfg.Vector.InProcess() {
		fmt.Printf("  %-20s %s in process %s\n", "Vector index", cmdutils.Mark(true), cmdutils.Faint("(lost on exit)"))
	} else if cfg.Vector.Enabled() {
		fmt.Printf("  %-20s %s qdrant %s:%d/%s\n", "Vector index", cmdutils.Mark(true), cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
	} else {
		fmt.Printf("  %-20s %s %s\n", "Vector index", cmdutils.Mark(false), cmdutils.Faint("(exact ingredient match only)"))
	}
	switch {
	case !cfg.Firebase.Enabled():
		fmt.Printf("  %-20s %s\n", "Firebase", cmdutils.Mark(false))
	case cfg.Firebase.AuthDisabled:
		fmt.Printf("  %-20s %s %s %s\n", "Firebase", cmdutils.Mark(true), cfg.Firebase.ProjectID, cmdutils.Faint("(auth disabled)"))
	default:
		fmt.Printf("  %-20s %s %s\n", "Firebase", cmdutils.Mark(true), cfg.Firebase.ProjectID)
	}

	jobs, err := cron.LoadState(cfg.JobsPath())
	if err != nil {
		fmt.Printf("\nJobs: (could not read %s: %v)\n", cfg.JobsPath(), err)
		return nil
	}
	if len(jobs) == 0 {
		return nil
	}
	fmt.Println("\nJobs:")
	for _, j := range jobs {
		last := "never"
		if j.State.LastRunAtMs != nil {
			last = time.UnixMilli(*j.State.LastRunAtMs).Format(time.RFC3339)
		}
		fmt.Printf("  %-20s %s  last: %s %s  runs: %d\n", j.Name, j.Schedule, last, j.State.LastStatus, j.State.Runs)
		if j.State.LastError != "" {
			fmt.Printf("  %-20s %s\n", "", cmdutils.Faint(j.State.LastError))
		}
	}
	return nil
}

func describeStore(cfg *config.Config) string {
	sc := cfg.Store
	switch sc.Driver {
	case store.DriverSQLite:
		return "sqlite " + cfg.SQLitePath()
	case store.DriverRedis:
		return "redis " + sc.Addr
	case store.DriverFirestore:
		return "firestore " + sc.Collection
	case "", store.DriverMemory:
		if sc.Seed != "" {
			return "memory (seed " + sc.Seed + ")"
		}
		return "memory"
	}
	return sc.Driver + " (unknown driver)"
}
