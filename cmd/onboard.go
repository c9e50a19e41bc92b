package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/pantrychef/internal/config"
	"github.com/crystaldolphin/pantrychef/internal/shared/cmdutils"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration and data directories",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		cmdutils.Success("Config refreshed at " + cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		cmdutils.Success("Created config at " + cfgPath)
	}

	def := config.DefaultConfig()
	for _, dir := range []string{def.SessionsDir(), config.DataDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	cmdutils.Success("Data directory at " + config.DataDir())

	fmt.Printf("\n%s pantrychef is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add an API key to %s (or set OPENAI_API_KEY / GEMINI_API_KEY)\n", cfgPath)
	fmt.Println("     or point providers.ollama.apiBase at a local Ollama")
	fmt.Println("  2. Chat:  pantrychef chat -m \"I have eggs and spinach\"")
	fmt.Println("  3. Serve: pantrychef serve")
	return nil
}
