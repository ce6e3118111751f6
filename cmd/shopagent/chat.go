package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/ashureev/shopagent/internal/app"
	"github.com/ashureev/shopagent/internal/cart"
	"github.com/ashureev/shopagent/internal/page"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const chatHelp = `Starts an interactive session with the shopping agent.

Anything not starting with "/" is sent to the agent. Commands:
  /add <id> <price> <name>   add a product to the cart
  /cart                      show the cart
  /clear                     empty the cart
  /go <page>                 open a page, e.g. /go products.html?search=phone
  /mode on|off               toggle agent mode
  /help                      show this help
  /quit                      leave`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat",
	Long:  chatHelp,
	RunE:  runChat,
}

var (
	pageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0071DC")).Italic(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E53935"))
)

func historyPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "shopagent", "history")
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	sess, err := openSession(ctx, out)
	if err != nil {
		return err
	}
	defer sess.Close()

	line := liner.NewLiner()
	defer func() { _ = line.Close() }()
	line.SetCtrlCAborts(true)

	if p := historyPath(); p != "" {
		if f, err := os.Open(p); err == nil {
			_, _ = line.ReadHistory(f)
			_ = f.Close()
		}
		defer saveHistory(line, p)
	}

	repl := &repl{app: sess.app, out: out, current: page.Home}
	repl.open(ctx, page.Home)
	if sess.app.AgentMode(ctx) {
		_, _ = fmt.Fprintln(out, "Agent mode is on.")
	}

	for {
		input, err := line.Prompt(repl.prompt())
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if quit := repl.handle(ctx, input); quit {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func saveHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()
	_, _ = line.WriteHistory(f)
}

type repl struct {
	app     *app.App
	out     io.Writer
	current string
}

func (r *repl) prompt() string {
	return page.Parse(r.current).Name() + " › "
}

func (r *repl) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// handle runs one line of input and reports whether to quit.
func (r *repl) handle(ctx context.Context, input string) bool {
	if !strings.HasPrefix(input, "/") {
		r.app.Submit(ctx, input)
		if target, ok := r.app.Navigator.TakePending(); ok {
			r.open(ctx, target)
		}
		return false
	}

	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		r.printf("%s\n", chatHelp)
	case "/add":
		r.add(ctx, fields[1:])
	case "/cart":
		printCart(r.out, r.app.Cart.Load(ctx))
	case "/clear":
		if err := r.app.Cart.Clear(ctx); err != nil {
			r.printf("%s\n", errStyle.Render("failed to clear cart: "+err.Error()))
			return false
		}
		r.app.RefreshCart(ctx)
	case "/go":
		if len(fields) < 2 {
			r.printf("usage: /go <page>\n")
			return false
		}
		r.open(ctx, fields[1])
	case "/mode":
		if len(fields) < 2 || (fields[1] != "on" && fields[1] != "off") {
			r.printf("usage: /mode on|off\n")
			return false
		}
		if err := r.app.SetAgentMode(ctx, fields[1] == "on"); err != nil {
			r.printf("%s\n", errStyle.Render(err.Error()))
		}
	default:
		r.printf("unknown command %s, try /help\n", fields[0])
	}
	return false
}

func (r *repl) add(ctx context.Context, args []string) {
	if len(args) < 3 {
		r.printf("usage: /add <id> <price> <name>\n")
		return
	}
	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil || price < 0 {
		r.printf("invalid price %q\n", args[1])
		return
	}
	if _, err := r.app.AddToCart(ctx, cart.ProductID(args[0]), strings.Join(args[2:], " "), price); err != nil {
		r.printf("%s\n", errStyle.Render("cart not saved: "+err.Error()))
	}
}

func (r *repl) open(ctx context.Context, target string) {
	v, err := r.app.Open(ctx, target)
	if err != nil {
		r.printf("%s\n", errStyle.Render(err.Error()))
	}
	r.current = v.Location.String()
	r.printf("%s\n", pageStyle.Render("→ "+r.current))

	if v.Products != nil {
		printListing(r.out, "Search results", v.Products)
	}
	if v.Orders != nil {
		printListing(r.out, "Orders", v.Orders)
	}
}

// printListing prints the name (or id) of each entry in a JSON array.
func printListing(w io.Writer, title string, raw json.RawMessage) {
	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "%s (%d)\n", title, len(entries))
	for _, e := range entries {
		label := fmt.Sprint(e["id"])
		if name, ok := e["name"].(string); ok && name != "" {
			label = name
		}
		if price, ok := e["price"]; ok {
			label += fmt.Sprintf("  ₹%v", price)
		}
		if status, ok := e["status"].(string); ok {
			label += "  " + status
		}
		_, _ = fmt.Fprintf(w, "  • %s\n", label)
	}
}
