package budget

import (
	"fmt"
	"sync"
	"time"

	domainerrors "github.com/jbctechsolutions/spendgate/internal/domain/errors"
	"github.com/jbctechsolutions/spendgate/internal/domain/request"
)

// DefaultDailyCap is the default per-user daily spending limit in USD.
const DefaultDailyCap = 1.00

// ExceededError indicates a charge was rejected because it would cross the
// user's daily cap. The ledger is left untouched when this is returned.
type ExceededError struct {
	UserID    string
	Cap       float64
	Spent     float64
	Attempted float64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("daily budget exceeded: user=%s spent=%.6f attempted=%.6f cap=%.2f",
		e.UserID, e.Spent, e.Attempted, e.Cap)
}

// Is makes errors.Is(err, errors.ErrBudgetExceeded) match.
func (e *ExceededError) Is(target error) bool {
	return target == domainerrors.ErrBudgetExceeded
}

// DailyStats is a snapshot of a user's spend for the current UTC day.
type DailyStats struct {
	TotalCost     float64
	RequestCounts map[request.ProviderType]int
}

// dayEntry is the ledger record for one (user, UTC day) pair.
type dayEntry struct {
	totalCost float64
	requests  map[request.ProviderType]int
}

// Governor tracks per-user spend against a fixed daily cap. Check-then-charge
// is linearizable: the governor mutex covers the read-modify-write, so two
// concurrent charges for the same user can never both be admitted against a
// stale balance. Entries are keyed by (userID, UTC calendar day) and stale
// days are discarded by RolloverSweep.
//
// The ledger is memory-only: a process restart starts every user with a full
// budget for the day.
type Governor struct {
	mu       sync.Mutex
	ledger   map[string]*dayEntry
	dailyCap float64
	now      func() time.Time

	// Sweep
	sweepInterval time.Duration
	sweepTicker   *time.Ticker
	stopSweep     chan struct{}
	closeOnce     sync.Once
}

// GovernorOption configures a Governor.
type GovernorOption func(*Governor)

// WithClock replaces the governor's time source. Used in tests to simulate
// day rollover.
func WithClock(now func() time.Time) GovernorOption {
	return func(g *Governor) {
		g.now = now
	}
}

// WithSweepInterval starts a background goroutine that runs RolloverSweep on
// the given interval. Close stops it.
func WithSweepInterval(interval time.Duration) GovernorOption {
	return func(g *Governor) {
		g.sweepInterval = interval
	}
}

// NewGovernor creates a governor with the given daily cap. A cap of zero or
// less falls back to DefaultDailyCap.
func NewGovernor(dailyCap float64, opts ...GovernorOption) *Governor {
	if dailyCap <= 0 {
		dailyCap = DefaultDailyCap
	}
	g := &Governor{
		ledger:    make(map[string]*dayEntry),
		dailyCap:  dailyCap,
		now:       time.Now,
		stopSweep: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.sweepInterval > 0 {
		g.sweepTicker = time.NewTicker(g.sweepInterval)
		go g.sweepLoop()
	}

	return g
}

// sweepLoop runs the periodic stale-day sweep.
func (g *Governor) sweepLoop() {
	for {
		select {
		case <-g.sweepTicker.C:
			g.RolloverSweep()
		case <-g.stopSweep:
			g.sweepTicker.Stop()
			return
		}
	}
}

// Close stops the sweep goroutine.
func (g *Governor) Close() error {
	if g.sweepTicker != nil {
		g.closeOnce.Do(func() {
			close(g.stopSweep)
		})
	}
	return nil
}

// DailyCap returns the configured cap.
func (g *Governor) DailyCap() float64 {
	return g.dailyCap
}

// CheckAndCharge admits the charge and records it, or rejects it with
// *ExceededError if the user's spend for the current UTC day would cross the
// cap. A rejected charge is never partially recorded. Negative costs are a
// programming error and are rejected as validation failures.
func (g *Governor) CheckAndCharge(userID string, cost float64, requestType request.ProviderType) error {
	if userID == "" {
		return domainerrors.ErrUserIDRequired
	}
	if cost < 0 {
		return domainerrors.NewError(domainerrors.CodeValidation, "charge cost must be non-negative", nil)
	}

	key := g.dayKey(userID)

	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.ledger[key]
	if !ok {
		entry = &dayEntry{requests: make(map[request.ProviderType]int)}
	}

	if entry.totalCost+cost > g.dailyCap {
		return &ExceededError{
			UserID:    userID,
			Cap:       g.dailyCap,
			Spent:     entry.totalCost,
			Attempted: cost,
		}
	}

	entry.totalCost += cost
	entry.requests[requestType]++
	g.ledger[key] = entry
	return nil
}

// Settle adjusts an admitted charge to the provider's actual cost. The delta
// may be negative when the estimate overshot; the day total never drops below
// zero. Settling may push the total past the cap when the actual cost exceeds
// the estimate; subsequent charges are then rejected until rollover.
func (g *Governor) Settle(userID string, estimated, actual float64) {
	if userID == "" {
		return
	}
	delta := actual - estimated
	if delta == 0 {
		return
	}

	key := g.dayKey(userID)

	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.ledger[key]
	if !ok {
		return
	}
	entry.totalCost += delta
	if entry.totalCost < 0 {
		entry.totalCost = 0
	}
}

// GetDailyStats returns the user's spend for the current UTC day. A user with
// no ledger entry reads as all-zero.
func (g *Governor) GetDailyStats(userID string) DailyStats {
	key := g.dayKey(userID)

	g.mu.Lock()
	defer g.mu.Unlock()

	stats := DailyStats{RequestCounts: make(map[request.ProviderType]int)}
	entry, ok := g.ledger[key]
	if !ok {
		return stats
	}

	stats.TotalCost = entry.totalCost
	for t, n := range entry.requests {
		stats.RequestCounts[t] = n
	}
	return stats
}

// RolloverSweep discards ledger entries whose calendar day is no longer
// today. It only bounds memory: CheckAndCharge always keys by the current
// day, so correctness never depends on the sweep running. Returns the number
// of entries removed.
func (g *Governor) RolloverSweep() int {
	suffix := ":" + g.today()

	g.mu.Lock()
	defer g.mu.Unlock()

	var removed int
	for key := range g.ledger {
		if len(key) < len(suffix) || key[len(key)-len(suffix):] != suffix {
			delete(g.ledger, key)
			removed++
		}
	}
	return removed
}

// LedgerSize returns the number of (user, day) entries currently held.
func (g *Governor) LedgerSize() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ledger)
}

// today returns the current UTC calendar day. Day boundaries are UTC, so
// the cap rolls over at the same instant for every user.
func (g *Governor) today() string {
	return g.now().UTC().Format("2006-01-02")
}

func (g *Governor) dayKey(userID string) string {
	return userID + ":" + g.today()
}
