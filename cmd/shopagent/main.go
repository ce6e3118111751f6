// shopagent is a terminal client for the storefront shopping agent.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ashureev/shopagent/internal/app"
	"github.com/ashureev/shopagent/internal/config"
	"github.com/ashureev/shopagent/internal/overlay"
	"github.com/ashureev/shopagent/internal/render"
	"github.com/ashureev/shopagent/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verbose  bool
	apiBase  string
	deviceID string
	backend  string
)

var rootCmd = &cobra.Command{
	Use:   "shopagent",
	Short: "Chat with the storefront shopping agent",
	Long: `shopagent talks to the storefront agent API from a terminal.

Commands typed in chat are sent to the agent; its replies are shown as
notifications, dialogs and suggestions. The cart and agent mode persist
between runs.

Run without arguments to start the interactive chat.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
	RunE: runChat,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", "", "agent API base URL (overrides AGENT_API_BASE)")
	rootCmd.PersistentFlags().StringVar(&deviceID, "device", "cli", "device namespace for the cart and preferences")
	rootCmd.PersistentFlags().StringVar(&backend, "store", "", "key-value backend: memory, sqlite or redis (overrides KV_BACKEND)")

	rootCmd.AddCommand(chatCmd, cartCmd, suggestionsCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// terminalHost presents effects on the terminal.
type terminalHost struct {
	*overlay.Layer
	*render.TerminalSurface
	out io.Writer
}

func (h *terminalHost) ShowCartCount(n int) {
	_, _ = fmt.Fprintf(h.out, "🛒 Cart: %d\n", n)
}

// session is an opened client and the resources it holds.
type session struct {
	app *app.App
	kv  store.Store
}

func (s *session) Close() {
	if err := s.kv.Close(); err != nil {
		slog.Warn("Failed to close store", "error", err)
	}
}

func loadConfig() (*config.Config, error) {
	if apiBase != "" {
		if err := os.Setenv("AGENT_API_BASE", apiBase); err != nil {
			return nil, err
		}
	}
	if backend != "" {
		if err := os.Setenv("KV_BACKEND", backend); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

func openSession(ctx context.Context, out io.Writer) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	kv, err := store.Open(cfg.KV)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	host := &terminalHost{
		Layer: overlay.NewLayer(overlay.NewTerminalSink(out), overlay.Config{
			NotificationTTL: cfg.Overlay.NotificationTTL,
			SuggestionTTL:   cfg.Overlay.SuggestionTTL,
			ExitTransition:  cfg.Overlay.ExitTransition,
		}),
		TerminalSurface: render.NewTerminalSurface(out),
		out:             out,
	}

	a, err := app.New(ctx, app.Deps{
		DeviceKV:        store.WithPrefix(kv, "device:"+deviceID+":"),
		TabKV:           store.WithPrefix(kv, "tab:"+deviceID+":cli:"),
		APIBase:         cfg.AgentAPIBase,
		SuggestionLimit: cfg.Overlay.SuggestionLimit,
		Host:            host,
		Logger:          slog.Default(),
	})
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return &session{app: a, kv: kv}, nil
}
