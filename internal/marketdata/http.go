package marketdata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"frizo/fee_risk_engine/internal/codec"
	"frizo/fee_risk_engine/internal/errs"
	"frizo/fee_risk_engine/internal/metrics"
	"frizo/fee_risk_engine/pkg/utils"
)

const maxPayloadBytes = 4 << 20

// HTTPProvider GET <endpoint>?symbols=A,B, one request per fetch, no retries.
type HTTPProvider struct {
	endpoint *url.URL
	client   *http.Client
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type HTTPOption func(*HTTPProvider)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(p *HTTPProvider) { p.client = client }
}

func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(p *HTTPProvider) { p.logger = logger }
}

func WithHTTPMetrics(m *metrics.Metrics) HTTPOption {
	return func(p *HTTPProvider) { p.metrics = m }
}

func WithHTTPClock(now func() time.Time) HTTPOption {
	return func(p *HTTPProvider) { p.now = now }
}

func NewHTTPProvider(endpoint string, opts ...HTTPOption) (*HTTPProvider, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, errs.Config("new http provider", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errs.Configf("new http provider", "endpoint must be an absolute http(s) URL, got %q", endpoint)
	}

	p := &HTTPProvider{
		endpoint: u,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = NewHTTPClient(DefaultHTTPClientConfig())
	}
	return p, nil
}

func (p *HTTPProvider) FetchPrices(ctx context.Context, symbols []string) (Prices, error) {
	symbols = utils.NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, errs.InvalidInput("fetch prices", "symbols", "at least one symbol is required")
	}

	start := p.now()
	prices, err := p.fetch(ctx, symbols)
	elapsed := p.now().Sub(start)
	if err != nil {
		p.metrics.ObserveFetch(string(SourceLive), "error", elapsed)
		p.logger.Debug("live price fetch failed", "symbols", symbols, "error", err)
		return nil, errs.MarketData("fetch", string(SourceLive), err)
	}

	p.metrics.ObserveFetch(string(SourceLive), "ok", elapsed)
	p.logger.Debug("live prices fetched", "requested", len(symbols), "received", len(prices), "elapsed", elapsed)
	return prices, nil
}

func (p *HTTPProvider) fetch(ctx context.Context, symbols []string) (Prices, error) {
	u := *p.endpoint
	q := u.Query()
	q.Set("symbols", strings.Join(symbols, ","))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet(body))
	}

	all, err := decodeQuotes(body, codec.JSON, SourceLive, p.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	return all.Subset(symbols), nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		return "<empty body>"
	}
	return s
}
