package risk

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frizo/fee_risk_engine/internal/errs"
	"frizo/fee_risk_engine/internal/marketdata"
	"frizo/fee_risk_engine/internal/metrics"
	"frizo/fee_risk_engine/internal/position"
)

var asOf = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pos(symbol, qty, entry string) position.Position {
	return position.Position{Symbol: symbol, Quantity: d(qty), EntryPrice: d(entry)}
}

func livePrices(kv ...string) marketdata.Prices {
	prices := make(marketdata.Prices)
	for i := 0; i+1 < len(kv); i += 2 {
		prices[kv[i]] = marketdata.PriceQuote{
			Symbol:    kv[i],
			Price:     d(kv[i+1]),
			Timestamp: asOf,
			Source:    marketdata.SourceLive,
		}
	}
	return prices
}

func TestComputeRiskSameSymbolAggregates(t *testing.T) {
	c := NewCalculator(WithClock(func() time.Time { return asOf }))

	report, err := c.ComputeRisk([]position.Position{
		pos("BTC", "1", "20000"),
		pos("BTC", "1", "22000"),
	}, livePrices("BTC", "25000"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(report.ID, "rpt_"))
	assert.True(t, report.PerAssetExposure["BTC"].Equal(d("50000")))
	assert.True(t, report.TotalExposure.Equal(d("50000")))
	assert.True(t, report.UnrealizedPnL.Equal(d("8000")))
	assert.True(t, report.PerAssetPnL["BTC"].Equal(d("8000")))
	assert.True(t, report.ConcentrationRatio.Equal(d("1")))
	assert.Equal(t, "BTC", report.LargestAsset)
	assert.False(t, report.StalePrices)
	assert.Equal(t, asOf, report.GeneratedAt)
	assert.Equal(t, asOf, report.PricesAsOf)
	assert.Nil(t, report.Volatility)
}

func TestComputeRiskMixedPortfolio(t *testing.T) {
	c := NewCalculator()

	report, err := c.ComputeRisk([]position.Position{
		pos("BTC", "0.5", "30000"),
		pos("eth", "10", "1500"),
		pos("SOL", "100", "100"),
	}, livePrices("BTC", "24000", "ETH", "1800", "SOL", "60", "XRP", "0.5"))
	require.NoError(t, err)

	// 12000 + 18000 + 6000
	assert.True(t, report.TotalExposure.Equal(d("36000")))
	assert.Len(t, report.PerAssetExposure, 3)
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, report.Symbols())
	assert.Equal(t, "ETH", report.LargestAsset)
	assert.True(t, report.ConcentrationRatio.Equal(d("0.5")))
	// -3000 + 3000 - 4000
	assert.True(t, report.UnrealizedPnL.Equal(d("-4000")))
	assert.True(t, report.Weight("SOL").Mul(d("6")).Round(10).Equal(d("1")))
}

func TestComputeRiskZeroExposure(t *testing.T) {
	c := NewCalculator()

	t.Run("NoPositions", func(t *testing.T) {
		report, err := c.ComputeRisk(nil, livePrices("BTC", "25000"))
		require.NoError(t, err)
		assert.True(t, report.TotalExposure.IsZero())
		assert.True(t, report.ConcentrationRatio.IsZero())
		assert.Empty(t, report.LargestAsset)
		assert.True(t, report.PricesAsOf.IsZero())
	})

	t.Run("EmptyPositions", func(t *testing.T) {
		report, err := c.ComputeRisk([]position.Position{pos("BTC", "0", "20000")}, livePrices("BTC", "25000"))
		require.NoError(t, err)
		assert.True(t, report.TotalExposure.IsZero())
		assert.True(t, report.ConcentrationRatio.IsZero())
		assert.True(t, report.Weight("BTC").IsZero())
	})
}

func TestComputeRiskTieGoesToFirstSymbol(t *testing.T) {
	report, err := NewCalculator().ComputeRisk([]position.Position{
		pos("ETH", "1", "100"),
		pos("BTC", "1", "100"),
	}, livePrices("BTC", "100", "ETH", "100"))
	require.NoError(t, err)

	assert.Equal(t, "BTC", report.LargestAsset)
	assert.True(t, report.ConcentrationRatio.Equal(d("0.5")))
}

func TestComputeRiskMissingPrice(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	c := NewCalculator(WithMetrics(m))

	report, err := c.ComputeRisk([]position.Position{
		pos("BTC", "1", "20000"),
		pos("DOGE", "1000", "0.1"),
		pos("ADA", "10", "1"),
	}, livePrices("BTC", "25000"))

	assert.Nil(t, report)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrMissingPrice))
	assert.EqualError(t, err, "missing price: no quote for DOGE")

	var missing *errs.MissingPriceError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "DOGE", missing.Symbol)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RiskComputations.WithLabelValues("missing_price")))
}

func TestComputeRiskInvalidInput(t *testing.T) {
	c := NewCalculator()

	t.Run("NegativeQuantity", func(t *testing.T) {
		report, err := c.ComputeRisk([]position.Position{pos("BTC", "-1", "20000")}, livePrices("BTC", "25000"))
		assert.Nil(t, report)
		assert.True(t, errors.Is(err, errs.ErrInvalidInput))
	})

	t.Run("EmptySymbol", func(t *testing.T) {
		_, err := c.ComputeRisk([]position.Position{pos("", "1", "1")}, livePrices("BTC", "25000"))
		assert.True(t, errors.Is(err, errs.ErrInvalidInput))
	})

	t.Run("InvalidBeatsMissing", func(t *testing.T) {
		_, err := c.ComputeRisk([]position.Position{
			pos("XRP", "1", "1"),
			pos("BTC", "-1", "1"),
		}, livePrices("BTC", "25000"))
		assert.True(t, errors.Is(err, errs.ErrInvalidInput))
	})
}

func TestComputeRiskStalePrices(t *testing.T) {
	prices := livePrices("BTC", "25000", "ETH", "1800")
	eth := prices["ETH"]
	eth.Source = marketdata.SourceCache
	eth.Stale = true
	eth.Timestamp = asOf.Add(-time.Hour)
	prices["ETH"] = eth

	report, err := NewCalculator().ComputeRisk([]position.Position{
		pos("BTC", "1", "20000"),
		pos("ETH", "1", "1500"),
	}, prices)
	require.NoError(t, err)
	assert.True(t, report.StalePrices)
	assert.Equal(t, asOf.Add(-time.Hour), report.PricesAsOf)

	// stale quotes for symbols not held do not taint the report
	report, err = NewCalculator().ComputeRisk([]position.Position{pos("BTC", "1", "20000")}, prices)
	require.NoError(t, err)
	assert.False(t, report.StalePrices)
}

func TestComputeRiskWithVolatility(t *testing.T) {
	tracker := NewVolatilityTracker(0)
	for i, price := range []string{"100", "110", "99"} {
		tracker.Observe(marketdata.PriceQuote{Symbol: "BTC", Price: d(price), Timestamp: asOf.Add(time.Duration(i) * time.Minute)})
	}
	for i, price := range []string{"50", "50.5"} {
		tracker.Observe(marketdata.PriceQuote{Symbol: "ETH", Price: d(price), Timestamp: asOf.Add(time.Duration(i) * time.Minute)})
	}

	report, err := NewCalculator(WithVolatility(tracker)).ComputeRisk([]position.Position{
		pos("BTC", "1", "100"),
		pos("ETH", "2", "50"),
	}, livePrices("BTC", "99", "ETH", "49.5"))
	require.NoError(t, err)

	// BTC returns +0.1, -0.1: std-dev 0.1. ETH has one return: 0.
	assert.InDelta(t, 0.1, report.Volatility["BTC"], 1e-9)
	assert.InDelta(t, 0.0, report.Volatility["ETH"], 1e-12)
	// BTC weight 99 / 198
	assert.InDelta(t, 0.05, report.WeightedVolatility, 1e-9)
	assert.Equal(t, []string{"BTC"}, report.Stressed)
}

// total exposure equals the sum of per-asset exposure, and concentration stays in [0, 1]
func TestComputeRiskInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	symbols := []string{"BTC", "ETH", "SOL", "ADA", "DOT"}
	c := NewCalculator()

	for round := 0; round < 200; round++ {
		prices := make(marketdata.Prices)
		for _, s := range symbols {
			prices[s] = marketdata.PriceQuote{Symbol: s, Price: decimal.NewFromFloat(rng.Float64() * 1000).Round(4), Timestamp: asOf}
		}

		n := rng.Intn(8)
		positions := make([]position.Position, 0, n)
		for i := 0; i < n; i++ {
			positions = append(positions, position.Position{
				Symbol:     symbols[rng.Intn(len(symbols))],
				Quantity:   decimal.NewFromFloat(rng.Float64() * 10).Round(6),
				EntryPrice: decimal.NewFromFloat(rng.Float64() * 1000).Round(4),
			})
		}

		report, err := c.ComputeRisk(positions, prices)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, v := range report.PerAssetExposure {
			sum = sum.Add(v)
		}
		assert.True(t, sum.Equal(report.TotalExposure), fmt.Sprintf("round %d", round))
		assert.True(t, report.ConcentrationRatio.GreaterThanOrEqual(decimal.Zero))
		assert.True(t, report.ConcentrationRatio.LessThanOrEqual(decimal.NewFromInt(1)))
		if report.TotalExposure.IsZero() {
			assert.True(t, report.ConcentrationRatio.IsZero())
		}
	}
}

func BenchmarkComputeRisk(b *testing.B) {
	positions := []position.Position{
		pos("BTC", "1.5", "20000"),
		pos("ETH", "12", "1500"),
		pos("SOL", "300", "20"),
		pos("BTC", "0.25", "26000"),
	}
	prices := livePrices("BTC", "25000", "ETH", "1800", "SOL", "60")
	c := NewCalculator()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.ComputeRisk(positions, prices)
	}
}
