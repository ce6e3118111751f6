package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	accent = lipgloss.Color("#0071DC")

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#667EEA")).
			Padding(1, 2)
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#764BA2"))
	statsStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F57C00"))
	cardTitleStyle = lipgloss.NewStyle().Bold(true)
	highlightStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(accent).
			PaddingLeft(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// TerminalSurface draws modals as boxed blocks of text.
type TerminalSurface struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminalSurface writes to w.
func NewTerminalSurface(w io.Writer) *TerminalSurface {
	return &TerminalSurface{out: w}
}

func (s *TerminalSurface) ShowModal(m Modal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.out, Draw(m))
}

// Draw renders m for a terminal.
func Draw(m Modal) string {
	parts := []string{titleStyle.Render(m.Title)}
	for _, b := range m.Blocks {
		parts = append(parts, drawBlock(b))
	}
	return modalStyle.Render(strings.Join(parts, "\n\n"))
}

func drawBlock(b Block) string {
	switch b.Kind {
	case BlockStats:
		return statsStyle.Render(strings.Join(b.Lines, "   "))
	case BlockTable:
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#DDDDDD"))).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			}).
			Headers(b.Header...).
			Rows(b.Rows...)
		return t.Render()
	case BlockCard:
		return cardTitleStyle.Render(b.Title) + "\n" + strings.Join(b.Lines, "\n")
	case BlockHighlight:
		body := strings.Join(b.Lines, "\n")
		if b.Title != "" {
			body = cardTitleStyle.Render(b.Title) + "\n" + body
		}
		return highlightStyle.Render(body)
	default:
		return strings.Join(b.Lines, "\n")
	}
}
