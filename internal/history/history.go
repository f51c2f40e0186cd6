package history

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"CandleSync/internal/model"
)

// ErrNoForming is returned by Update when no bar is currently forming.
var ErrNoForming = errors.New("no forming bar")

// History is the local view of the bar series: closed bars ordered by end
// time plus at most one forming bar.
//
// The closed slice is replaced copy-on-write and may be read without
// locking. The forming bar and the reference timestamp are guarded by mu,
// which is also held across a whole load-and-promote so a merge never
// observes a half-reconciled history.
type History struct {
	mu           sync.Mutex
	forming      *model.Bar
	csvTimestamp string

	closed  atomic.Pointer[[]model.Bar]
	version atomic.Uint64
}

// New returns an empty history.
func New() *History {
	h := &History{}
	empty := []model.Bar{}
	h.closed.Store(&empty)
	return h
}

// Load replaces the closed bars with the decoded payload and clears the
// forming bar. Rows that fail to decode are skipped and returned as rowErrs.
// The history is left untouched when err is non-nil.
func (h *History) Load(payload []json.RawMessage) (rowErrs []error, err error) {
	ref, bars, rowErrs, err := ParseBars(payload)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load(ref, bars)
	return rowErrs, nil
}

// Reconcile loads the payload and promotes the newest closed bar to forming
// in one step. It reports whether a forming bar was established.
func (h *History) Reconcile(payload []json.RawMessage) (promoted bool, rowErrs []error, err error) {
	ref, bars, rowErrs, err := ParseBars(payload)
	if err != nil {
		return false, nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load(ref, bars)
	return h.popLast(), rowErrs, nil
}

func (h *History) load(ref string, bars []model.Bar) {
	h.csvTimestamp = ref
	h.forming = nil
	h.closed.Store(&bars)
	h.version.Add(1)
}

// PopLastClosedAsForming removes the newest closed bar and makes it the
// forming bar. The server may still consider that bar open, so later ticks
// keep refining it. Returns false when there are no closed bars.
func (h *History) PopLastClosedAsForming() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.popLast()
}

func (h *History) popLast() bool {
	cur := *h.closed.Load()
	n := len(cur)
	if n == 0 {
		return false
	}
	last := cur[n-1]
	rest := make([]model.Bar, n-1)
	copy(rest, cur[:n-1])
	h.forming = &last
	h.closed.Store(&rest)
	h.version.Add(1)
	return true
}

// Forming returns a copy of the forming bar.
func (h *History) Forming() (model.Bar, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.forming == nil {
		return model.Bar{}, false
	}
	return *h.forming, true
}

// ClosedBars returns the current closed-bar snapshot. The slice is shared
// and must not be modified.
func (h *History) ClosedBars() []model.Bar {
	return *h.closed.Load()
}

// CSVTimestamp returns the reference timestamp retained by the last load.
func (h *History) CSVTimestamp() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.csvTimestamp
}

// Version increases every time the closed-bar set changes.
func (h *History) Version() uint64 {
	return h.version.Load()
}

// Update applies fn to a copy of the forming bar and commits the copy only
// if fn returns nil. It is the single mutation point for the forming bar.
func (h *History) Update(fn func(bar *model.Bar) error) (model.Bar, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.forming == nil {
		return model.Bar{}, ErrNoForming
	}
	next := *h.forming
	if err := fn(&next); err != nil {
		return *h.forming, err
	}
	h.forming = &next
	return next, nil
}

// Snapshot returns the closed bars together with the reference timestamp and
// version they were loaded under.
func (h *History) Snapshot() (closed []model.Bar, ref string, version uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return *h.closed.Load(), h.csvTimestamp, h.version.Load()
}
