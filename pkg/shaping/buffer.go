package shaping

// Turn is one conversation entry in a shaping session.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// DefaultBufferLimit bounds the rolling conversation window.
const DefaultBufferLimit = 50

// Buffer is a bounded rolling window of recent turns. It is a pure
// read/append log with truncation; rendering and debugging read it, the
// state machine never does.
type Buffer struct {
	limit int
	turns []Turn
}

// NewBuffer creates a buffer keeping at most limit turns. A non-positive
// limit falls back to DefaultBufferLimit.
func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	return &Buffer{limit: limit}
}

// Append records a turn, discarding the oldest once the window is full.
func (b *Buffer) Append(role, text string) {
	b.turns = append(b.turns, Turn{Role: role, Text: text})
	if len(b.turns) > b.limit {
		b.turns = b.turns[len(b.turns)-b.limit:]
	}
}

// Turns returns a copy of the current window, oldest first.
func (b *Buffer) Turns() []Turn {
	out := make([]Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

// Len reports the number of retained turns.
func (b *Buffer) Len() int {
	return len(b.turns)
}
