package fee

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"frizo/fee_risk_engine/common"
	internalcommon "frizo/fee_risk_engine/internal/common"
	"frizo/fee_risk_engine/internal/errs"
	"frizo/fee_risk_engine/internal/metrics"
)

var one = decimal.NewFromInt(1)

// Calculator resolves rates and fees against one immutable schedule.
// Safe for concurrent use.
type Calculator struct {
	schedule *Schedule
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Calculator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Calculator) { c.metrics = m }
}

// WithClock overrides the quote timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

func NewCalculator(schedule *Schedule, opts ...Option) (*Calculator, error) {
	if schedule == nil || schedule.Len() == 0 {
		return nil, errs.Configf("new fee calculator", "schedule is empty")
	}
	c := &Calculator{
		schedule: schedule,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Calculator) Schedule() *Schedule { return c.schedule }

// EffectiveRate the tier and rate the account pays on the given side.
func (c *Calculator) EffectiveRate(account Account, side common.TradeSide) (Rate, error) {
	rate, err := c.resolve("effective rate", account, side)
	if err != nil {
		c.metrics.IncFeeError()
	}
	return rate, err
}

// ComputeFee fee = tradeAmount × effective rate.
func (c *Calculator) ComputeFee(account Account, tradeAmount decimal.Decimal, side common.TradeSide) (decimal.Decimal, error) {
	const op = "compute fee"

	if tradeAmount.IsNegative() {
		c.metrics.IncFeeError()
		return decimal.Zero, errs.InvalidInput(op, "tradeAmount", "must be non-negative, got %s", tradeAmount)
	}
	rate, err := c.resolve(op, account, side)
	if err != nil {
		c.metrics.IncFeeError()
		return decimal.Zero, err
	}

	c.metrics.ObserveFee(side.String())
	return tradeAmount.Mul(rate.Effective), nil
}

// Quote like ComputeFee, plus the zero-fee rule for discount-token pairs
// and a breakdown of what the discount saved.
func (c *Calculator) Quote(account Account, symbol string, tradeAmount decimal.Decimal, side common.TradeSide) (Quote, error) {
	const op = "quote fee"

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		c.metrics.IncFeeError()
		return Quote{}, errs.InvalidInput(op, "symbol", "must not be empty")
	}
	if tradeAmount.IsNegative() {
		c.metrics.IncFeeError()
		return Quote{}, errs.InvalidInput(op, "tradeAmount", "must be non-negative, got %s", tradeAmount)
	}
	rate, err := c.resolve(op, account, side)
	if err != nil {
		c.metrics.IncFeeError()
		return Quote{}, err
	}

	q := Quote{
		ID:        internalcommon.GenerateQuoteID(),
		Symbol:    symbol,
		Side:      side,
		Amount:    tradeAmount,
		Rate:      rate.Effective,
		BaseFee:   tradeAmount.Mul(rate.Base),
		TierIndex: rate.TierIndex,
		QuotedAt:  c.now(),
	}
	if c.schedule.IsZeroFeePair(symbol) {
		q.Rate = decimal.Zero
		q.ZeroFee = true
	}
	q.Fee = tradeAmount.Mul(q.Rate)
	q.Savings = q.BaseFee.Sub(q.Fee)

	c.metrics.ObserveFee(side.String())
	return q, nil
}

func (c *Calculator) resolve(op string, account Account, side common.TradeSide) (Rate, error) {
	if !side.Valid() {
		return Rate{}, errs.InvalidInput(op, "side", "unknown trade side %d", int(side))
	}
	if account.ThirtyDayVolume.IsNegative() {
		return Rate{}, errs.InvalidInput(op, "thirtyDayVolume", "must be non-negative, got %s", account.ThirtyDayVolume)
	}

	idx, tier, ok := c.schedule.TierFor(account.ThirtyDayVolume)
	if !ok {
		// unreachable for a validated schedule
		return Rate{}, errs.Configf(op, "no tier covers volume %s", account.ThirtyDayVolume)
	}

	base := tier.Rate(side)
	rate := Rate{
		TierIndex: idx,
		Tier:      tier,
		Side:      side,
		Base:      base,
		Effective: base,
	}
	if account.UsesDiscountToken && tier.DiscountRate.IsPositive() {
		rate.Effective = base.Mul(one.Sub(tier.DiscountRate))
		rate.Discounted = true
	}
	return rate, nil
}

// ========================================================
// trade cost helpers, rates as fractions (0.001 = 0.1%)

// TotalBuyCost price × qty plus the fee on it.
func TotalBuyCost(price, quantity, rate decimal.Decimal) decimal.Decimal {
	amount := price.Mul(quantity)
	return amount.Add(amount.Mul(rate))
}

// NetSellProceeds price × qty minus the fee on it.
func NetSellProceeds(price, quantity, rate decimal.Decimal) decimal.Decimal {
	amount := price.Mul(quantity)
	return amount.Sub(amount.Mul(rate))
}

// RoundTripProfit buy on one side, sell on the other, fees included.
func RoundTripProfit(buyPrice, sellPrice, quantity, buyRate, sellRate decimal.Decimal) decimal.Decimal {
	return NetSellProceeds(sellPrice, quantity, sellRate).Sub(TotalBuyCost(buyPrice, quantity, buyRate))
}

// RoundTripProfitPercent profit relative to the total buy cost, in percent. 0 when nothing is bought.
func RoundTripProfitPercent(buyPrice, sellPrice, quantity, buyRate, sellRate decimal.Decimal) decimal.Decimal {
	cost := TotalBuyCost(buyPrice, quantity, buyRate)
	if cost.IsZero() {
		return decimal.Zero
	}
	profit := RoundTripProfit(buyPrice, sellPrice, quantity, buyRate, sellRate)
	return profit.Div(cost).Mul(decimal.NewFromInt(100))
}
