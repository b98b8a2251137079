package marketdata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"frizo/fee_risk_engine/internal/metrics"
	"frizo/fee_risk_engine/pkg/utils"
)

// FallbackProvider asks the live provider first. When it fails, each symbol is
// served from the last good live snapshot (SourceCache) or else the static
// provider (SourceStatic), both tagged stale. If neither yields anything the
// live error is returned unchanged.
type FallbackProvider struct {
	live    Provider
	static  Provider
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu         sync.RWMutex
	snapshot   Prices
	snapshotAt time.Time
}

type FallbackOption func(*FallbackProvider)

// WithStatic last-resort provider, typically a *StaticProvider.
func WithStatic(p Provider) FallbackOption {
	return func(f *FallbackProvider) { f.static = p }
}

func WithFallbackLogger(logger *slog.Logger) FallbackOption {
	return func(f *FallbackProvider) { f.logger = logger }
}

func WithFallbackMetrics(m *metrics.Metrics) FallbackOption {
	return func(f *FallbackProvider) { f.metrics = m }
}

func NewFallbackProvider(live Provider, opts ...FallbackOption) *FallbackProvider {
	f := &FallbackProvider{
		live:     live,
		logger:   slog.Default(),
		snapshot: make(Prices),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FallbackProvider) FetchPrices(ctx context.Context, symbols []string) (Prices, error) {
	symbols = utils.NormalizeSymbols(symbols)

	prices, liveErr := f.live.FetchPrices(ctx, symbols)
	if liveErr == nil {
		f.remember(prices)
		return prices, nil
	}

	out := f.fromCache(symbols)
	cached := len(out)

	missing := utils.Filter(symbols, func(s string) bool {
		_, ok := out[s]
		return !ok
	})

	static := 0
	if len(missing) > 0 && f.static != nil {
		// the caller's deadline may already be spent on the live call
		staticPrices, err := f.static.FetchPrices(context.WithoutCancel(ctx), missing)
		if err != nil {
			f.logger.Warn("static price fallback failed", "error", err)
		}
		for s, q := range staticPrices {
			out[s] = q
			static++
		}
	}

	if len(out) == 0 {
		return nil, liveErr
	}

	if cached > 0 {
		f.metrics.IncFallback(string(SourceCache))
	}
	if static > 0 {
		f.metrics.IncFallback(string(SourceStatic))
	}
	f.logger.Warn("live prices unavailable, serving stale snapshot",
		"error", liveErr,
		"cached", cached,
		"static", static,
		"missing", len(symbols)-len(out),
	)
	return out, nil
}

// Snapshot a copy of the last good live quotes and when they were stored.
func (f *FallbackProvider) Snapshot() (Prices, time.Time) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(Prices, len(f.snapshot))
	for k, v := range f.snapshot {
		out[k] = v
	}
	return out, f.snapshotAt
}

func (f *FallbackProvider) remember(prices Prices) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for s, q := range prices {
		f.snapshot[s] = q
	}
	f.snapshotAt = time.Now().UTC()
}

func (f *FallbackProvider) fromCache(symbols []string) Prices {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(Prices, len(symbols))
	for _, s := range symbols {
		q, ok := f.snapshot[s]
		if !ok {
			continue
		}
		q.Source = SourceCache
		q.Stale = true
		out[s] = q
	}
	return out
}
