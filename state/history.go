package state

// History is a fixed-capacity ring buffer of round results.
type History struct {
	buf  []HistoryEntry
	head int // next write position
	size int
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]HistoryEntry, capacity)}
}

// Push records e, evicting the oldest entry when full.
func (h *History) Push(e HistoryEntry) {
	h.buf[h.head] = e
	h.head = (h.head + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

// Entries returns a copy, newest first.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, 0, h.size)
	for i := 0; i < h.size; i++ {
		idx := (h.head - 1 - i + len(h.buf)) % len(h.buf)
		out = append(out, h.buf[idx])
	}
	return out
}

func (h *History) Len() int { return h.size }

func (h *History) Cap() int { return len(h.buf) }

func (h *History) Clear() {
	clear(h.buf)
	h.head = 0
	h.size = 0
}
