package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"CandleSync/internal/model"
)

// MockSource returns controllable fixed data for development and testing.
// It is safe for concurrent use.
type MockSource struct {
	mu sync.Mutex

	Bars        []json.RawMessage
	Tick        model.PriceTick
	Indicators  map[string][]json.RawMessage
	Signals     []json.RawMessage
	Duration    int64
	Err         error // returned by every call when set
	BarsCalls   int
	LastSince   string
	BarsRelease chan struct{} // when set, FetchBars blocks until it is closed
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) FetchBars(ctx context.Context, _ string, since string) ([]json.RawMessage, error) {
	m.mu.Lock()
	m.BarsCalls++
	m.LastSince = since
	release := m.BarsRelease
	m.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, &model.TransportError{Op: "fetch bars", URL: "mock", Err: ctx.Err()}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Bars, nil
}

func (m *MockSource) FetchLastTrade(_ context.Context) (model.PriceTick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return model.PriceTick{}, m.Err
	}
	return m.Tick, nil
}

func (m *MockSource) FetchIndicator(_ context.Context, name, _ string, _ string) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	rows, ok := m.Indicators[name]
	if !ok {
		return nil, &model.TransportError{Op: "fetch indicator", URL: "mock/" + name, Status: 404, Err: fmt.Errorf("unknown indicator")}
	}
	return rows, nil
}

func (m *MockSource) FetchSignals(_ context.Context, _ string) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Signals, nil
}

func (m *MockSource) FetchBarDuration(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Duration, nil
}

// SetTick replaces the tick served by FetchLastTrade.
func (m *MockSource) SetTick(t model.PriceTick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tick = t
}

// SetBars replaces the bar payload served by FetchBars.
func (m *MockSource) SetBars(rows []json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bars = rows
}

// SetErr makes every subsequent call fail with err (nil clears it).
func (m *MockSource) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// Calls returns how many times FetchBars has been called.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.BarsCalls
}

// RawRows builds a raw payload from Go values.
func RawRows(rows ...any) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		b, err := json.Marshal(r)
		if err != nil {
			panic(fmt.Sprintf("collector: marshal row: %v", err))
		}
		out = append(out, b)
	}
	return out
}
