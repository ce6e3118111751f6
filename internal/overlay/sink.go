package overlay

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	notifyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#667EEA")).
			Padding(0, 1)
	suggestTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#764BA2"))
	chipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#667EEA"))
)

// TerminalSink prints elements as they enter. Exits are silent.
type TerminalSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminalSink writes to w.
func NewTerminalSink(w io.Writer) *TerminalSink {
	return &TerminalSink{out: w}
}

func (s *TerminalSink) OnEvent(ev Event) {
	if ev.Phase != PhaseEnter {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Element.Kind {
	case KindNotification:
		_, _ = fmt.Fprintln(s.out, notifyStyle.Render(ev.Element.Text))
	case KindSuggestions:
		var b strings.Builder
		b.WriteString(suggestTitle.Render("💡 Try these commands:"))
		for _, item := range ev.Element.Items {
			b.WriteString("\n  ")
			b.WriteString(chipStyle.Render("› " + item))
		}
		_, _ = fmt.Fprintln(s.out, b.String())
	}
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) OnEvent(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Phases returns the recorded phases for element id.
func (r *Recorder) Phases(id uint64) []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Phase
	for _, ev := range r.events {
		if ev.Element.ID == id {
			out = append(out, ev.Phase)
		}
	}
	return out
}
