// Package render turns agent actions into presentation effects.
package render

import "sync"

// BlockKind identifies how a Block is laid out.
type BlockKind string

const (
	BlockText      BlockKind = "text"      // Lines as paragraphs
	BlockStats     BlockKind = "stats"     // Lines side by side
	BlockTable     BlockKind = "table"     // Header + Rows
	BlockCard      BlockKind = "card"      // Title + Lines
	BlockHighlight BlockKind = "highlight" // emphasized Title + Lines
)

// Block is one section of a modal.
type Block struct {
	Kind   BlockKind  `json:"kind"`
	Title  string     `json:"title,omitempty"`
	Lines  []string   `json:"lines,omitempty"`
	Header []string   `json:"header,omitempty"`
	Rows   [][]string `json:"rows,omitempty"`
}

// Modal kinds.
const (
	ModalSummary         = "summary"
	ModalComparison      = "comparison"
	ModalRecommendations = "recommendations"
)

// Modal is a dismissible dialog.
type Modal struct {
	Kind   string  `json:"kind"`
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`
}

// Surface displays modals.
type Surface interface {
	ShowModal(Modal)
}

// Recorder is a Surface that keeps what it was shown.
type Recorder struct {
	mu     sync.Mutex
	modals []Modal
}

func (r *Recorder) ShowModal(m Modal) {
	r.mu.Lock()
	r.modals = append(r.modals, m)
	r.mu.Unlock()
}

// Modals returns the recorded modals.
func (r *Recorder) Modals() []Modal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Modal(nil), r.modals...)
}

// Drain returns the recorded modals and forgets them.
func (r *Recorder) Drain() []Modal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.modals
	r.modals = nil
	return out
}
