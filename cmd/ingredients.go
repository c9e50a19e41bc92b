package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/pantrychef/internal/agent"
	"github.com/crystaldolphin/pantrychef/internal/dependency"
	"github.com/crystaldolphin/pantrychef/internal/recipes"
	"github.com/crystaldolphin/pantrychef/internal/shared/cmdutils"
)

var (
	ingredientsFile  string
	ingredientsModel string
	ingredientsJSON  bool
)

var ingredientsCmd = &cobra.Command{
	Use:   "ingredients [raw ingredient]...",
	Short: "Canonicalise ingredient strings and assign dictionary ids",
	Example: `  pantrychef ingredients "2 Eggs" "1 cup whole milk"
  pantrychef ingredients --file pantry.txt --json`,
	RunE: runIngredients,
}

func init() {
	ingredientsCmd.Flags().StringVarP(&ingredientsFile, "file", "f", "", "Read one raw ingredient per line from a file")
	ingredientsCmd.Flags().StringVar(&ingredientsModel, "model", "", "Model as <provider>-<model> (default agent.defaultModel)")
	ingredientsCmd.Flags().BoolVar(&ingredientsJSON, "json", false, "Print the tags as JSON")
}

func runIngredients(_ *cobra.Command, args []string) error {
	raw := args
	if ingredientsFile != "" {
		lines, err := readLines(ingredientsFile)
		if err != nil {
			return err
		}
		raw = append(raw, lines...)
	}
	if len(raw) == 0 {
		return fmt.Errorf("no ingredients: pass them as arguments or with --file")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	model := ingredientsModel
	if model == "" {
		model = cfg.Agent.DefaultModel
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := dependency.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	chef, err := c.Factory().GetChef(agent.ChefOptions{Name: cfg.Agent.ChefName, SpecifiedModel: model})
	if err != nil {
		return fmt.Errorf("create chef for %q: %w", model, err)
	}

	tags, err := recipes.NewTagger(chef, c.Dictionary()).Tag(ctx, raw)
	if err != nil {
		return err
	}

	if ingredientsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tags)
	}
	for _, t := range tags {
		fmt.Printf("  %-30s %s %-20s %s\n", t.Raw, cmdutils.Faint("→"), t.Name.Word, cmdutils.Faint(fmt.Sprintf("#%d", t.ID)))
	}
	if skipped := distinct(raw) - len(tags); skipped > 0 {
		cmdutils.Warn(fmt.Sprintf("%d ingredient(s) could not be named", skipped))
	}
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

func distinct(ss []string) int {
	seen := make(map[string]bool, len(ss))
	for _, s := range ss {
		seen[s] = true
	}
	return len(seen)
}
