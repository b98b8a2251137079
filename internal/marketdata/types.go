// Package marketdata fetches price snapshots from a live HTTP ticker or a
// static file, and can fall back from one to the other.
package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Source where a quote came from.
type Source string

const (
	SourceLive   Source = "live"
	SourceCache  Source = "cache"  // last good live snapshot, replayed
	SourceStatic Source = "static" // configured fallback file
)

type PriceQuote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
	Source    Source          `json:"source"`
	Stale     bool            `json:"stale"`
}

// Prices symbol -> quote. Symbols are upper-case.
type Prices map[string]PriceQuote

// Stale reports whether any quote in the snapshot is not live.
func (p Prices) Stale() bool {
	for _, q := range p {
		if q.Stale {
			return true
		}
	}
	return false
}

// Oldest the earliest quote timestamp, zero for an empty snapshot.
func (p Prices) Oldest() time.Time {
	var oldest time.Time
	for _, q := range p {
		if oldest.IsZero() || q.Timestamp.Before(oldest) {
			oldest = q.Timestamp
		}
	}
	return oldest
}

// Subset keeps only the requested symbols that are present.
func (p Prices) Subset(symbols []string) Prices {
	out := make(Prices, len(symbols))
	for _, s := range symbols {
		if q, ok := p[s]; ok {
			out[s] = q
		}
	}
	return out
}

// Provider is the only blocking call in a calculation cycle. A requested
// symbol missing from the upstream payload is simply absent from the result.
type Provider interface {
	FetchPrices(ctx context.Context, symbols []string) (Prices, error)
}
