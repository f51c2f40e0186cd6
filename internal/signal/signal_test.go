package signal

import (
	"encoding/json"
	"testing"

	"CandleSync/internal/model"
)

func TestMap(t *testing.T) {
	rows := []json.RawMessage{
		json.RawMessage(`[120, "B", "RSI"]`),
		json.RawMessage(`["180", "S"]`),
		json.RawMessage(`[240, " BUY ", null]`),
		json.RawMessage(`[300, "X"]`),
	}
	got, errs := Map(rows)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := []model.SignalMarker{
		{Time: 120, Side: model.SideBuy, Label: "RSI"},
		{Time: 180, Side: model.SideSell, Label: DefaultLabel},
		{Time: 240, Side: model.SideBuy, Label: DefaultLabel},
		{Time: 300, Side: model.SideSell, Label: DefaultLabel},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d markers, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("marker %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestMap_SkipsBadTimestamps(t *testing.T) {
	rows := []json.RawMessage{
		json.RawMessage(`["later", "B"]`),
		json.RawMessage(`[null, "S"]`),
		json.RawMessage(`[60, "S"]`),
	}
	got, errs := Map(rows)
	if len(errs) != 2 {
		t.Errorf("expected 2 errors, got %d", len(errs))
	}
	if len(got) != 1 || got[0].Time != 60 {
		t.Errorf("unexpected markers: %+v", got)
	}
}

func TestMap_Empty(t *testing.T) {
	got, errs := Map(nil)
	if got == nil || len(got) != 0 || errs != nil {
		t.Errorf("expected empty markers and no errors, got %v %v", got, errs)
	}
}

func TestOutOfRange(t *testing.T) {
	closed := []model.Bar{
		{Start: 100, End: 160, Open: 1, High: 1, Low: 1, Close: 1},
		{Start: 160, End: 220, Open: 1, High: 1, Low: 1, Close: 1},
	}
	markers := []model.SignalMarker{
		{Time: 50, Side: model.SideBuy},
		{Time: 100, Side: model.SideBuy},
		{Time: 220, Side: model.SideSell},
		{Time: 221, Side: model.SideSell},
	}
	got := OutOfRange(markers, closed)
	if len(got) != 2 || got[0].Time != 50 || got[1].Time != 221 {
		t.Errorf("unexpected out-of-range markers: %+v", got)
	}
	if len(OutOfRange(markers, nil)) != len(markers) {
		t.Error("expected every marker to be out of range without bars")
	}
}
