package fee

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frizo/fee_risk_engine/common"
	"frizo/fee_risk_engine/internal/errs"
	"frizo/fee_risk_engine/internal/metrics"
)

func newTestCalculator(t *testing.T, discount string, opts ...Option) *Calculator {
	t.Helper()
	c, err := NewCalculator(twoTierSchedule(t, discount), opts...)
	require.NoError(t, err)
	return c
}

func TestComputeFee(t *testing.T) {
	c := newTestCalculator(t, "0.25")

	tests := []struct {
		name     string
		volume   string
		discount bool
		amount   string
		side     common.TradeSide
		want     string
	}{
		{"BoundaryBelongsToHigherTier", "100", false, "1000", common.TAKER, "0.8"},
		{"LowTierTaker", "99.99", false, "1000", common.TAKER, "1"},
		{"LowTierMaker", "0", false, "1000", common.MAKER, "0.9"},
		{"HighTierMaker", "5000", false, "1000", common.MAKER, "0.6"},
		{"DiscountTaker", "100", true, "1000", common.TAKER, "0.6"},
		{"DiscountMaker", "0", true, "1000", common.MAKER, "0.675"},
		{"ZeroAmount", "100", true, "0", common.TAKER, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := Account{ThirtyDayVolume: d(tt.volume), UsesDiscountToken: tt.discount}
			fee, err := c.ComputeFee(account, d(tt.amount), tt.side)
			require.NoError(t, err)
			assert.True(t, fee.Equal(d(tt.want)), "got %s, want %s", fee, tt.want)
		})
	}
}

func TestComputeFeeSameTierSameRate(t *testing.T) {
	c := newTestCalculator(t, "0")
	amount := d("1234.5")

	for _, side := range []common.TradeSide{common.MAKER, common.TAKER} {
		first, err := c.ComputeFee(Account{ThirtyDayVolume: d("0")}, amount, side)
		require.NoError(t, err)

		for _, v := range []string{"1", "50", "99.5", "99.999999"} {
			fee, err := c.ComputeFee(Account{ThirtyDayVolume: d(v)}, amount, side)
			require.NoError(t, err)
			assert.True(t, fee.Equal(first), "%s volume %s: %s != %s", side, v, fee, first)
		}
	}
}

func TestDiscountNeverIncreasesFee(t *testing.T) {
	for _, discount := range []string{"0", "0.1", "0.25", "1"} {
		c := newTestCalculator(t, discount)
		for _, v := range []string{"0", "50", "100", "1000000"} {
			for _, side := range []common.TradeSide{common.MAKER, common.TAKER} {
				plain, err := c.ComputeFee(Account{ThirtyDayVolume: d(v)}, d("1000"), side)
				require.NoError(t, err)
				discounted, err := c.ComputeFee(Account{ThirtyDayVolume: d(v), UsesDiscountToken: true}, d("1000"), side)
				require.NoError(t, err)

				assert.True(t, discounted.LessThanOrEqual(plain))
				if discount == "0" {
					assert.True(t, discounted.Equal(plain))
				} else {
					assert.True(t, discounted.LessThan(plain))
				}
			}
		}
	}
}

func TestComputeFeeInvalidInput(t *testing.T) {
	c := newTestCalculator(t, "0")

	t.Run("NegativeAmount", func(t *testing.T) {
		_, err := c.ComputeFee(Account{ThirtyDayVolume: d("10")}, d("-1"), common.TAKER)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrInvalidInput))
		assert.EqualError(t, err, "invalid input: compute fee: tradeAmount: must be non-negative, got -1")

		var inputErr *errs.InvalidInputError
		require.True(t, errors.As(err, &inputErr))
		assert.Equal(t, "tradeAmount", inputErr.Field)
	})

	t.Run("NegativeVolume", func(t *testing.T) {
		_, err := c.ComputeFee(Account{ThirtyDayVolume: d("-5")}, d("10"), common.MAKER)
		var inputErr *errs.InvalidInputError
		require.True(t, errors.As(err, &inputErr))
		assert.Equal(t, "thirtyDayVolume", inputErr.Field)
	})

	t.Run("UnknownSide", func(t *testing.T) {
		_, err := c.ComputeFee(Account{}, d("10"), common.TradeSide(7))
		assert.True(t, errors.Is(err, errs.ErrInvalidInput))
	})
}

func TestNewCalculatorRejectsEmptySchedule(t *testing.T) {
	_, err := NewCalculator(nil)
	assert.True(t, errors.Is(err, errs.ErrConfig))

	_, err = NewCalculator(&Schedule{})
	assert.True(t, errors.Is(err, errs.ErrConfig))
}

func TestEffectiveRate(t *testing.T) {
	s, err := Preset("binance")
	require.NoError(t, err)
	c, err := NewCalculator(s)
	require.NoError(t, err)

	rate, err := c.EffectiveRate(Account{ThirtyDayVolume: d("1000000"), UsesDiscountToken: true}, common.MAKER)
	require.NoError(t, err)
	assert.Equal(t, 1, rate.TierIndex)
	assert.True(t, rate.Base.Equal(d("0.0009")))
	assert.True(t, rate.Effective.Equal(d("0.000675")))
	assert.True(t, rate.Discounted)

	rate, err = c.EffectiveRate(Account{ThirtyDayVolume: d("999999.99")}, common.TAKER)
	require.NoError(t, err)
	assert.Equal(t, 0, rate.TierIndex)
	assert.True(t, rate.Effective.Equal(d("0.001")))
	assert.False(t, rate.Discounted)
}

func TestQuote(t *testing.T) {
	s, err := Preset("binance")
	require.NoError(t, err)
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c, err := NewCalculator(s, WithClock(func() time.Time { return at }))
	require.NoError(t, err)

	account := Account{ThirtyDayVolume: d("0"), UsesDiscountToken: true}

	t.Run("DiscountedPair", func(t *testing.T) {
		q, err := c.Quote(account, "btcusdt", d("1000"), common.TAKER)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(q.ID, "fee_"))
		assert.Equal(t, "BTCUSDT", q.Symbol)
		assert.False(t, q.ZeroFee)
		assert.True(t, q.BaseFee.Equal(d("1")))
		assert.True(t, q.Fee.Equal(d("0.75")))
		assert.True(t, q.Savings.Equal(d("0.25")))
		assert.Equal(t, at, q.QuotedAt)
	})

	t.Run("TokenPairIsFree", func(t *testing.T) {
		for _, symbol := range []string{"BNBUSDT", "ETHBNB"} {
			q, err := c.Quote(Account{}, symbol, d("1000"), common.MAKER)
			require.NoError(t, err)
			assert.True(t, q.ZeroFee)
			assert.True(t, q.Fee.IsZero())
			assert.True(t, q.Rate.IsZero())
			assert.True(t, q.Savings.Equal(q.BaseFee))
		}
	})

	t.Run("EmptySymbol", func(t *testing.T) {
		_, err := c.Quote(account, "  ", d("1"), common.TAKER)
		assert.True(t, errors.Is(err, errs.ErrInvalidInput))
	})
}

func TestCalculatorMetrics(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	c := newTestCalculator(t, "0", WithMetrics(m))

	_, err := c.ComputeFee(Account{}, d("10"), common.TAKER)
	require.NoError(t, err)
	_, err = c.ComputeFee(Account{}, d("10"), common.TAKER)
	require.NoError(t, err)
	_, err = c.ComputeFee(Account{}, d("-10"), common.MAKER)
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FeeCalculations.WithLabelValues("taker")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeeErrors))
}

func TestTradeCostHelpers(t *testing.T) {
	rate := d("0.001")

	assert.True(t, TotalBuyCost(d("100"), d("2"), rate).Equal(d("200.2")))
	assert.True(t, NetSellProceeds(d("110"), d("2"), rate).Equal(d("219.78")))
	assert.True(t, RoundTripProfit(d("100"), d("110"), d("2"), rate, rate).Equal(d("19.58")))

	pct, _ := RoundTripProfitPercent(d("100"), d("110"), d("2"), rate, rate).Float64()
	assert.InDelta(t, 9.78021978, pct, 1e-6)
	assert.True(t, RoundTripProfitPercent(d("0"), d("110"), d("2"), rate, rate).IsZero())
}

func BenchmarkComputeFee(b *testing.B) {
	s, err := Preset("binance")
	if err != nil {
		b.Fatal(err)
	}
	c, err := NewCalculator(s)
	if err != nil {
		b.Fatal(err)
	}
	account := Account{ThirtyDayVolume: decimal.NewFromInt(75_000_000), UsesDiscountToken: true}
	amount := decimal.NewFromInt(25_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.ComputeFee(account, amount, common.TAKER)
	}
}
