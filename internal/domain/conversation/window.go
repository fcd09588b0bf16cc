package conversation

import (
	"sync"

	domainerrors "github.com/jbctechsolutions/spendgate/internal/domain/errors"
)

// DefaultMaxSize is the default number of turns retained per user.
const DefaultMaxSize = 10

// Window holds a bounded, ordered conversation history per user. Appends for
// the same user are serialized by the window mutex; once the history exceeds
// the configured size the oldest turns are dropped immediately.
type Window struct {
	mu      sync.RWMutex
	turns   map[string][]Turn
	maxSize int
}

// NewWindow creates a context window retaining at most maxSize turns per
// user. A size of zero or less falls back to DefaultMaxSize.
func NewWindow(maxSize int) *Window {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Window{
		turns:   make(map[string][]Turn),
		maxSize: maxSize,
	}
}

// MaxSize returns the configured per-user turn bound.
func (w *Window) MaxSize() int {
	return w.maxSize
}

// Append adds a turn to the user's history, evicting the oldest turns if the
// bound is exceeded. The error is non-fatal to the request that produced the
// turn, but callers should log it: a dropped append silently degrades future
// context quality.
func (w *Window) Append(userID string, turn Turn) error {
	if userID == "" {
		return domainerrors.ErrUserIDRequired
	}
	if err := turn.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	turns := append(w.turns[userID], turn)
	if excess := len(turns) - w.maxSize; excess > 0 {
		turns = turns[excess:]
	}
	// Reallocate so the retained slice never pins evicted turns.
	w.turns[userID] = append(make([]Turn, 0, len(turns)), turns...)
	return nil
}

// Get returns the user's retained turns, oldest first. The returned slice is
// a copy and safe for the caller to hold.
func (w *Window) Get(userID string) []Turn {
	w.mu.RLock()
	defer w.mu.RUnlock()

	turns := w.turns[userID]
	if len(turns) == 0 {
		return nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Clear removes all turns for the user.
func (w *Window) Clear(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.turns, userID)
}

// Users returns the number of users with retained history.
func (w *Window) Users() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.turns)
}
