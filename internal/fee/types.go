package fee

import (
	"time"

	"github.com/shopspring/decimal"

	"frizo/fee_risk_engine/common"
)

// Tier one volume band [MinVolume, MaxVolume). Unbounded marks MaxVolume = ∞.
type Tier struct {
	MinVolume    decimal.Decimal `json:"min_volume"`
	MaxVolume    decimal.Decimal `json:"max_volume"`
	Unbounded    bool            `json:"unbounded"`
	MakerRate    decimal.Decimal `json:"maker_rate"`
	TakerRate    decimal.Decimal `json:"taker_rate"`
	DiscountRate decimal.Decimal `json:"discount_rate"` // 折扣率, applied when paying with the discount token
}

// Contains reports whether volume falls inside the half-open band.
func (t Tier) Contains(volume decimal.Decimal) bool {
	if volume.LessThan(t.MinVolume) {
		return false
	}
	return t.Unbounded || volume.LessThan(t.MaxVolume)
}

// Rate base rate for the side, before any discount.
func (t Tier) Rate(side common.TradeSide) decimal.Decimal {
	if side == common.MAKER {
		return t.MakerRate
	}
	return t.TakerRate
}

func (t Tier) String() string {
	upper := "∞"
	if !t.Unbounded {
		upper = t.MaxVolume.String()
	}
	return "[" + t.MinVolume.String() + ", " + upper + ")"
}

// ========================================================

// Account caller-owned; never mutated by the calculator.
type Account struct {
	ThirtyDayVolume   decimal.Decimal `json:"thirty_day_volume"`
	UsesDiscountToken bool            `json:"uses_discount_token"`
}

// ========================================================

// Rate the resolved rate for one account and side.
type Rate struct {
	TierIndex  int              `json:"tier_index"`
	Tier       Tier             `json:"tier"`
	Side       common.TradeSide `json:"side"`
	Base       decimal.Decimal  `json:"base"`
	Effective  decimal.Decimal  `json:"effective"`
	Discounted bool             `json:"discounted"`
}

// Quote a priced trade, with the discount savings broken out.
type Quote struct {
	ID        string           `json:"id"`
	Symbol    string           `json:"symbol"`
	Side      common.TradeSide `json:"side"`
	Amount    decimal.Decimal  `json:"amount"`
	Rate      decimal.Decimal  `json:"rate"`
	BaseFee   decimal.Decimal  `json:"base_fee"`
	Fee       decimal.Decimal  `json:"fee"`
	Savings   decimal.Decimal  `json:"savings"`
	ZeroFee   bool             `json:"zero_fee"` // discount-token pair
	TierIndex int              `json:"tier_index"`
	QuotedAt  time.Time        `json:"quoted_at"`
}
