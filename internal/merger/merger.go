package merger

import (
	"errors"
	"fmt"
	"math"

	"CandleSync/internal/history"
	"CandleSync/internal/model"
)

// Outcome tells the caller what a merge did to the forming bar.
type Outcome int

const (
	// Updated means the tick was folded into the forming bar.
	Updated Outcome = iota
	// BoundaryCrossed means the forming bar's period has expired (or no bar
	// is forming) and history must be resynchronized before ticks apply again.
	BoundaryCrossed
)

func (o Outcome) String() string {
	switch o {
	case Updated:
		return "updated"
	case BoundaryCrossed:
		return "boundary_crossed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of a merge plus the forming bar as it stands after it.
type Result struct {
	Outcome Outcome
	Bar     model.Bar
}

var errExpired = errors.New("forming bar expired")

// Merge applies a last-trade observation to the forming bar of h.
//
// Local duration bookkeeping only detects that a boundary has probably
// passed; the expired bar is left as is and the authoritative close comes
// from the next resync.
func Merge(h *history.History, tick model.PriceTick) (Result, error) {
	if !tick.Valid() {
		return Result{}, fmt.Errorf("%w: price=%v duration=%d", model.ErrInvalidTick, tick.Price, tick.BarDuration)
	}

	bar, err := h.Update(func(b *model.Bar) error {
		elapsed := tick.ObservedAt - b.Start
		if elapsed > tick.BarDuration {
			return errExpired
		}
		b.High = math.Max(b.High, tick.Price)
		b.Low = math.Min(b.Low, tick.Price)
		b.Close = tick.Price
		return nil
	})
	switch {
	case err == nil:
		return Result{Outcome: Updated, Bar: bar}, nil
	case errors.Is(err, errExpired), errors.Is(err, history.ErrNoForming):
		return Result{Outcome: BoundaryCrossed, Bar: bar}, nil
	default:
		return Result{}, err
	}
}
