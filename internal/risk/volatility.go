package risk

import (
	"math"
	"strings"
	"sync"
	"time"

	"frizo/fee_risk_engine/internal/marketdata"
)

const (
	DefaultHistorySize = 20
	StressVolatility   = 0.05 // std-dev of returns above 5% means a stressed market
	SpikeThreshold     = 0.02 // a single move above 2%
)

type pricePoint struct {
	price float64
	at    time.Time
}

// VolatilityTracker keeps a bounded price history per symbol.
type VolatilityTracker struct {
	mu      sync.RWMutex
	size    int
	history map[string][]pricePoint
}

// NewVolatilityTracker size < 2 falls back to DefaultHistorySize.
func NewVolatilityTracker(size int) *VolatilityTracker {
	if size < 2 {
		size = DefaultHistorySize
	}
	return &VolatilityTracker{
		size:    size,
		history: make(map[string][]pricePoint),
	}
}

// Observe appends the quote. Quotes not newer than the last point for the
// symbol (replayed cache entries, re-read static files) are ignored, as are
// non-positive prices.
func (v *VolatilityTracker) Observe(q marketdata.PriceQuote) {
	price := q.Price.InexactFloat64()
	if price <= 0 {
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(q.Symbol))

	v.mu.Lock()
	defer v.mu.Unlock()

	points := v.history[symbol]
	if n := len(points); n > 0 && !q.Timestamp.After(points[n-1].at) {
		return
	}
	points = append(points, pricePoint{price: price, at: q.Timestamp})
	if len(points) > v.size {
		points = points[len(points)-v.size:]
	}
	v.history[symbol] = points
}

func (v *VolatilityTracker) ObservePrices(prices marketdata.Prices) {
	for _, q := range prices {
		v.Observe(q)
	}
}

// Points number of observations held for symbol.
func (v *VolatilityTracker) Points(symbol string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.history[strings.ToUpper(symbol)])
}

// Volatility population standard deviation of simple returns; 0 with fewer than two points.
func (v *VolatilityTracker) Volatility(symbol string) float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return volatility(v.history[strings.ToUpper(symbol)])
}

// IsStressed volatility above StressVolatility, or last move above SpikeThreshold.
func (v *VolatilityTracker) IsStressed(symbol string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	points := v.history[strings.ToUpper(symbol)]
	if volatility(points) > StressVolatility {
		return true
	}
	n := len(points)
	if n < 2 {
		return false
	}
	prev, last := points[n-2].price, points[n-1].price
	return math.Abs(last-prev)/prev > SpikeThreshold
}

func volatility(points []pricePoint) float64 {
	if len(points) < 2 {
		return 0
	}

	returns := make([]float64, len(points)-1)
	mean := 0.0
	for i := 1; i < len(points); i++ {
		returns[i-1] = (points[i].price - points[i-1].price) / points[i-1].price
		mean += returns[i-1]
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	return math.Sqrt(variance)
}
