package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/pantrychef/internal/agent"
	"github.com/crystaldolphin/pantrychef/internal/dependency"
	"github.com/crystaldolphin/pantrychef/internal/schema"
	"github.com/crystaldolphin/pantrychef/internal/session"
	"github.com/crystaldolphin/pantrychef/internal/shared/cmdutils"
)

var (
	chatMessage string
	chatSession string
	chatModel   string
	chatToken   string
	chatReset   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to Chef",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "cli:kitchen", "Session key; the conversation is saved between runs")
	chatCmd.Flags().StringVar(&chatModel, "model", "", "Model as <provider>-<model>, e.g. gpt-4o-mini (defaults to the session's, then agent.defaultModel)")
	chatCmd.Flags().StringVar(&chatToken, "token", "", "Firebase ID token identifying the user")
	chatCmd.Flags().BoolVar(&chatReset, "reset", false, "Clear the session before starting")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runChat(_ *cobra.Command, _ []string) error {
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

	sess := c.Sessions().GetOrCreate(chatSession)
	if chatReset {
		sess.Clear()
	}
	model := chatModel
	if model == "" {
		model = sess.Model
	}
	if model == "" {
		model = cfg.Agent.DefaultModel
	}
	sess.Model = model

	conv := &conversation{
		factory:  c.Factory(),
		sessions: c.Sessions(),
		sess:     sess,
		name:     cfg.Agent.ChefName,
		model:    model,
		identity: c.Factory().Identify(ctx, chatToken),
		counter:  c.TokenCounter(),
	}
	// Fail on a bad model before reading any input.
	if _, err := conv.newChef(); err != nil {
		return err
	}

	turn := func(line string) error {
		chef, reply, err := conv.turn(ctx, line)
		if err != nil {
			return err
		}
		cmdutils.PrintResponse(chef.Name(), reply)
		if chef.HasRecipeRecommendations() {
			cmdutils.PrintRecipes(chef.Recommendations())
		}
		return nil
	}

	if chatMessage != "" {
		fmt.Fprintln(os.Stderr, cmdutils.Faint("  ↳ thinking..."))
		return turn(chatMessage)
	}
	return runInteractive(ctx, conv, turn)
}

// conversation runs CLI turns against a saved session. Every turn gets a
// fresh Chef seeded with the windowed session history; the identity is
// verified once per run.
type conversation struct {
	factory  *agent.Factory
	sessions *session.Manager
	sess     *session.Session
	name     string
	model    string
	identity schema.Identity
	counter  agent.TokenCounter
}

func (cv *conversation) newChef() (*agent.Chef, error) {
	settings := cv.factory.Settings()
	id := cv.identity
	chef, err := cv.factory.GetChef(agent.ChefOptions{
		Name:           cv.name,
		SpecifiedModel: cv.model,
		History:        agent.ContextWindow(cv.sess.History(), settings.ContextWindow, settings.MaxContextTokens, cv.counter),
		Identity:       &id,
	})
	if err != nil {
		return nil, fmt.Errorf("create chef for %q: %w", cv.model, err)
	}
	return chef, nil
}

// turn answers line and appends the turn's messages to the session.
func (cv *conversation) turn(ctx context.Context, line string) (*agent.Chef, string, error) {
	chef, err := cv.newChef()
	if err != nil {
		return nil, "", err
	}
	reply := chef.GetResponse(ctx, line, "")
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	cv.sess.Append(chef.LatestHistory()...)
	if err := cv.sessions.Save(cv.sess); err != nil {
		cmdutils.Warn(fmt.Sprintf("session not saved: %v", err))
	}
	return chef, reply, nil
}

// runInteractive reads lines from stdin and runs one turn per line.
func runInteractive(ctx context.Context, conv *conversation, turn func(string) error) error {
	name := conv.name
	if name == "" {
		name = agent.DefaultChefName
	}
	fmt.Printf("%s Chatting with %s on %s (type 'exit' or Ctrl+C to quit)\n", logo, name, conv.model)
	if n := conv.sess.Len(); n > 0 {
		fmt.Println(cmdutils.Faint(fmt.Sprintf("Resuming %s with %d earlier messages.", conv.sess.Key, n)))
	}
	fmt.Println()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print(cmdutils.Prompt())

		var line string
		select {
		case <-ctx.Done():
			fmt.Println("\nGoodbye!")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Println("\nGoodbye!")
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		if err := turn(line); err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}
	}
}
