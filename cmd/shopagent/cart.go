package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ashureev/shopagent/internal/agent"
	"github.com/ashureev/shopagent/internal/cart"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Inspect or change the persisted cart",
}

var cartListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, err := openSession(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer sess.Close()

		printCart(cmd.OutOrStdout(), sess.app.Cart.Load(cmd.Context()))
		return nil
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add <id> <price> <name>",
	Short: "Add one unit of a product",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := strconv.ParseFloat(args[1], 64)
		if err != nil || price < 0 {
			return fmt.Errorf("invalid price %q", args[1])
		}
		sess, err := openSession(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer sess.Close()

		_, err = sess.app.AddToCart(cmd.Context(), cart.ProductID(args[0]), strings.Join(args[2:], " "), price)
		return err
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, err := openSession(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer sess.Close()

		if err := sess.app.Cart.Clear(cmd.Context()); err != nil {
			return err
		}
		sess.app.RefreshCart(cmd.Context())
		return nil
	},
}

var suggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "List example commands from the agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sess, err := openSession(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer sess.Close()

		items, err := sess.app.Channel.Suggestions(cmd.Context(), 0)
		if err != nil {
			return err
		}
		for _, s := range items {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

func init() {
	cartCmd.AddCommand(cartListCmd, cartAddCmd, cartClearCmd)
}

func printCart(w io.Writer, c cart.Cart) {
	if len(c.Items) == 0 {
		_, _ = fmt.Fprintln(w, "Your cart is empty.")
		return
	}

	var total float64
	rows := make([][]string, 0, len(c.Items))
	for _, it := range c.Items {
		line := it.Price * float64(it.Quantity)
		total += line
		rows = append(rows, []string{
			string(it.ID),
			it.Name,
			"₹" + agent.FormatNumber(it.Price),
			strconv.Itoa(it.Quantity),
			"₹" + agent.FormatNumber(line),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ID", "Product", "Price", "Qty", "Total").
		Rows(rows...)
	_, _ = fmt.Fprintln(w, t.Render())
	_, _ = fmt.Fprintf(w, "%d items, ₹%s\n", c.Count, agent.FormatNumber(total))
}
