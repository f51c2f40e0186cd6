package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CandleSync/internal/model"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *HTTPSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	src := NewHTTPSource(srv.URL+"/", "secret", "", time.Second)
	src.Now = func() time.Time { return time.Unix(1700000000, 0) }
	return src
}

func TestFetchBarsRequest(t *testing.T) {
	var gotPath, gotSince, gotAuth string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSince = r.URL.Query().Get("since")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`["1625679938", ["0","100",null,"10","12","13","9"]]`))
	})

	rows, err := src.FetchBars(context.Background(), "BTCUSDT", "1625679000")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "/bars/BTCUSDT", gotPath)
	assert.Equal(t, "1625679000", gotSince)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestFetchBarsWithoutSince(t *testing.T) {
	var rawQuery string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`["0"]`))
	})
	_, err := src.FetchBars(context.Background(), "BTCUSDT", "")
	require.NoError(t, err)
	assert.Empty(t, rawQuery)
}

func TestFetchIndicatorPath(t *testing.T) {
	var gotPath string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`["1.5", "2.5"]`))
	})

	rows, err := src.FetchIndicator(context.Background(), "short", "BTCUSDT", "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "/indicator/short/BTCUSDT/0", gotPath)
}

func TestFetchSignalsPath(t *testing.T) {
	var gotPath string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[["100","B"]]`))
	})
	rows, err := src.FetchSignals(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "/signals/ETHUSDT", gotPath)
}

func TestFetchLastTrade(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lastTrade", r.URL.Path)
		_, _ = w.Write([]byte(`["35012.5", "60"]`))
	})
	tick, err := src.FetchLastTrade(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.PriceTick{Price: 35012.5, BarDuration: 60, ObservedAt: 1700000000}, tick)
}

func TestFetchBarDuration(t *testing.T) {
	body := `"300"`
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
	d, err := src.FetchBarDuration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(300), d)

	body = `0`
	_, err = src.FetchBarDuration(context.Background())
	assert.Error(t, err)
}

func TestTransportErrors(t *testing.T) {
	status := http.StatusBadGateway
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "upstream down", status)
			return
		}
		_, _ = w.Write([]byte(`{not json`))
	})

	_, err := src.FetchBars(context.Background(), "BTCUSDT", "")
	var te *model.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadGateway, te.Status)
	assert.Equal(t, "fetch bars", te.Op)

	status = http.StatusOK
	_, err = src.FetchSignals(context.Background(), "BTCUSDT")
	assert.True(t, model.IsTransport(err))
}

func TestParseLastTrade(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    model.PriceTick
		invalid bool
	}{
		{"numbers", `[101.5, 60]`, model.PriceTick{Price: 101.5, BarDuration: 60, ObservedAt: 42}, false},
		{"strings", `["101.5", "60"]`, model.PriceTick{Price: 101.5, BarDuration: 60, ObservedAt: 42}, false},
		{"no duration", `["101.5"]`, model.PriceTick{Price: 101.5, ObservedAt: 42}, false},
		{"bare price", `101.5`, model.PriceTick{Price: 101.5, ObservedAt: 42}, false},
		{"non-numeric price", `["abc", "60"]`, model.PriceTick{}, true},
		{"null price", `[null, "60"]`, model.PriceTick{}, true},
		{"empty", ``, model.PriceTick{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLastTrade(json.RawMessage(tt.raw), 42)
			if tt.invalid {
				assert.ErrorIs(t, err, model.ErrInvalidTick)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
