package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CandleSync/internal/model"
)

// HTTPSource implements Source against the chart backend REST API.
type HTTPSource struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Now     func() time.Time
}

// NewHTTPSource creates a source with optional proxy support. Every request
// is bounded by timeout.
func NewHTTPSource(baseURL, apiKey, proxyURL string, timeout time.Duration) *HTTPSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		Now: time.Now,
	}
}

func (s *HTTPSource) Name() string { return "http" }

func (s *HTTPSource) FetchBars(ctx context.Context, symbol, since string) ([]json.RawMessage, error) {
	endpoint := "bars/" + url.PathEscape(symbol)
	if since != "" {
		endpoint += "?since=" + url.QueryEscape(since)
	}
	var rows []json.RawMessage
	if err := s.getJSON(ctx, "fetch bars", endpoint, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *HTTPSource) FetchIndicator(ctx context.Context, name, symbol, since string) ([]json.RawMessage, error) {
	if since == "" {
		since = "0"
	}
	endpoint := fmt.Sprintf("indicator/%s/%s/%s", url.PathEscape(name), url.PathEscape(symbol), url.PathEscape(since))
	var rows []json.RawMessage
	if err := s.getJSON(ctx, "fetch indicator", endpoint, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *HTTPSource) FetchSignals(ctx context.Context, symbol string) ([]json.RawMessage, error) {
	var rows []json.RawMessage
	if err := s.getJSON(ctx, "fetch signals", "signals/"+url.PathEscape(symbol), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// FetchLastTrade decodes a [price, nominalBarDurationSeconds] body. A missing
// duration is returned as zero and left to the caller to fill in.
func (s *HTTPSource) FetchLastTrade(ctx context.Context) (model.PriceTick, error) {
	var raw json.RawMessage
	if err := s.getJSON(ctx, "fetch last trade", "lastTrade", &raw); err != nil {
		return model.PriceTick{}, err
	}
	observedAt := s.Now().Unix()
	return ParseLastTrade(raw, observedAt)
}

// ParseLastTrade decodes a last-trade body observed at the given unix time.
func ParseLastTrade(raw json.RawMessage, observedAt int64) (model.PriceTick, error) {
	row, err := model.DecodeRow(raw)
	if err != nil {
		return model.PriceTick{}, fmt.Errorf("%w: %v", model.ErrInvalidTick, err)
	}
	price, err := row.At(0).Float()
	if err != nil {
		return model.PriceTick{}, fmt.Errorf("%w: price %q: %v", model.ErrInvalidTick, row.At(0).String(), err)
	}
	tick := model.PriceTick{Price: price, ObservedAt: observedAt}
	if d, err := row.At(1).Seconds(); err == nil {
		tick.BarDuration = d
	}
	return tick, nil
}

func (s *HTTPSource) FetchBarDuration(ctx context.Context) (int64, error) {
	var raw json.RawMessage
	if err := s.getJSON(ctx, "fetch bar duration", "barDuration", &raw); err != nil {
		return 0, err
	}
	d, err := model.Cell(raw).Seconds()
	if err != nil {
		return 0, fmt.Errorf("decode bar duration: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("decode bar duration: non-positive value %d", d)
	}
	return d, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, op, endpoint string, out any) error {
	u := s.BaseURL + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &model.TransportError{Op: op, URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return &model.TransportError{Op: op, URL: u, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &model.TransportError{Op: op, URL: u, Status: resp.StatusCode, Err: fmt.Errorf("body: %s", strings.TrimSpace(string(body)))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &model.TransportError{Op: op, URL: u, Status: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
