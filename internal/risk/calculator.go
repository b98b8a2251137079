// Package risk computes exposure, concentration and PnL for a set of spot
// positions against one price snapshot.
package risk

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"frizo/fee_risk_engine/internal/common"
	"frizo/fee_risk_engine/internal/errs"
	"frizo/fee_risk_engine/internal/marketdata"
	"frizo/fee_risk_engine/internal/metrics"
	"frizo/fee_risk_engine/internal/position"
)

type Calculator struct {
	volatility *VolatilityTracker
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Calculator)

// WithVolatility adds per-asset and weighted volatility to reports. The
// tracker is read, never fed; callers observe prices themselves.
func WithVolatility(v *VolatilityTracker) Option {
	return func(c *Calculator) { c.volatility = v }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Calculator) { c.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Calculator) { c.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ComputeRisk exposure = quantity × price per position, aggregated per symbol.
// Any invalid position or missing quote fails the whole report.
func (c *Calculator) ComputeRisk(positions []position.Position, prices marketdata.Prices) (*Report, error) {
	const op = "compute risk"

	for _, p := range positions {
		if err := p.Validate(); err != nil {
			c.metrics.ObserveRisk("invalid_input", 0)
			return nil, err
		}
	}

	used := make(marketdata.Prices)
	for _, p := range positions {
		symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
		q, ok := prices[symbol]
		if !ok {
			c.metrics.ObserveRisk("missing_price", 0)
			return nil, errs.MissingPrice(symbol)
		}
		if q.Price.IsNegative() {
			c.metrics.ObserveRisk("invalid_input", 0)
			return nil, errs.InvalidInput(op, "price", "%s: must be non-negative, got %s", symbol, q.Price)
		}
		used[symbol] = q
	}

	report := &Report{
		ID:                 common.GenerateReportID(),
		TotalExposure:      decimal.Zero,
		PerAssetExposure:   make(map[string]decimal.Decimal, len(used)),
		ConcentrationRatio: decimal.Zero,
		UnrealizedPnL:      decimal.Zero,
		PerAssetPnL:        make(map[string]decimal.Decimal, len(used)),
		StalePrices:        used.Stale(),
		PricesAsOf:         used.Oldest(),
		GeneratedAt:        c.now().UTC(),
	}

	for _, p := range positions {
		symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
		price := used[symbol].Price

		exposure := p.MarketValue(price)
		pnl := p.UnrealizedPnL(price)

		report.PerAssetExposure[symbol] = report.PerAssetExposure[symbol].Add(exposure)
		report.PerAssetPnL[symbol] = report.PerAssetPnL[symbol].Add(pnl)
		report.TotalExposure = report.TotalExposure.Add(exposure)
		report.UnrealizedPnL = report.UnrealizedPnL.Add(pnl)
	}

	if report.TotalExposure.IsPositive() {
		largest := decimal.Zero
		// ascending keys, strict comparison: ties go to the first symbol
		for _, symbol := range report.Symbols() {
			if exposure := report.PerAssetExposure[symbol]; exposure.GreaterThan(largest) {
				largest = exposure
				report.LargestAsset = symbol
			}
		}
		report.ConcentrationRatio = largest.Div(report.TotalExposure)
	}

	if c.volatility != nil {
		c.fillVolatility(report)
	}

	c.metrics.ObserveRisk("ok", report.TotalExposure.InexactFloat64())
	c.logger.Debug("risk computed",
		"report", report.ID,
		"positions", len(positions),
		"total_exposure", report.TotalExposure.String(),
		"stale", report.StalePrices,
	)
	return report, nil
}

func (c *Calculator) fillVolatility(report *Report) {
	report.Volatility = make(map[string]float64, len(report.PerAssetExposure))
	for _, symbol := range report.Symbols() {
		vol := c.volatility.Volatility(symbol)
		report.Volatility[symbol] = vol
		report.WeightedVolatility += report.Weight(symbol).InexactFloat64() * vol
		if c.volatility.IsStressed(symbol) {
			report.Stressed = append(report.Stressed, symbol)
		}
	}
}
