package position

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"frizo/fee_risk_engine/internal/common"
	"frizo/fee_risk_engine/internal/errs"
)

// Position 現貨持倉 (spot holding). A value type: Add and Reduce return a new
// Position and leave the receiver untouched.
type Position struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Quantity   decimal.Decimal `json:"quantity"`
	EntryPrice decimal.Decimal `json:"entry_price"` // 平均開倉價格
	OpenTime   time.Time       `json:"open_time"`
}

// NewPosition validates and returns a position with a fresh ID.
func NewPosition(symbol string, quantity, entryPrice decimal.Decimal) (Position, error) {
	p := Position{
		ID:         common.GeneratePositionID(),
		Symbol:     strings.ToUpper(strings.TrimSpace(symbol)),
		Quantity:   quantity,
		EntryPrice: entryPrice,
		OpenTime:   time.Now(),
	}
	if err := p.Validate(); err != nil {
		return Position{}, err
	}
	return p, nil
}

// Validate symbol set, quantity and entry price non-negative.
func (p Position) Validate() error {
	const op = "validate position"

	if strings.TrimSpace(p.Symbol) == "" {
		return errs.InvalidInput(op, "symbol", "must not be empty")
	}
	if p.Quantity.IsNegative() {
		return errs.InvalidInput(op, "quantity", "%s: must be non-negative, got %s", p.Symbol, p.Quantity)
	}
	if p.EntryPrice.IsNegative() {
		return errs.InvalidInput(op, "entryPrice", "%s: must be non-negative, got %s", p.Symbol, p.EntryPrice)
	}
	return nil
}

// Cost quantity × entry price.
func (p Position) Cost() decimal.Decimal {
	return p.Quantity.Mul(p.EntryPrice)
}

// MarketValue exposure at the given price.
func (p Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price)
}

// UnrealizedPnL quantity × (price - entry).
func (p Position) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price.Sub(p.EntryPrice))
}

func (p Position) IsEmpty() bool {
	return p.Quantity.IsZero()
}

// Add 加倉: new entry = (old value + new value) / (old qty + new qty).
func (p Position) Add(price, quantity decimal.Decimal) (Position, error) {
	const op = "add position"

	if !quantity.IsPositive() {
		return p, errs.InvalidInput(op, "quantity", "must be positive, got %s", quantity)
	}
	if price.IsNegative() {
		return p, errs.InvalidInput(op, "price", "must be non-negative, got %s", price)
	}

	totalValue := p.Cost().Add(price.Mul(quantity))
	totalQty := p.Quantity.Add(quantity)

	next := p
	next.Quantity = totalQty
	next.EntryPrice = totalValue.Div(totalQty)
	return next, nil
}

// Reduce 減倉, returns the remaining position and the realized PnL.
func (p Position) Reduce(price, quantity decimal.Decimal) (Position, decimal.Decimal, error) {
	const op = "reduce position"

	if !quantity.IsPositive() {
		return p, decimal.Zero, errs.InvalidInput(op, "quantity", "must be positive, got %s", quantity)
	}
	if quantity.GreaterThan(p.Quantity) {
		return p, decimal.Zero, errs.InvalidInput(op, "quantity", "reduce size %s exceeds position size %s", quantity, p.Quantity)
	}
	if price.IsNegative() {
		return p, decimal.Zero, errs.InvalidInput(op, "price", "must be non-negative, got %s", price)
	}

	pnl := price.Sub(p.EntryPrice).Mul(quantity)

	next := p
	next.Quantity = p.Quantity.Sub(quantity)
	if next.Quantity.IsZero() {
		next.EntryPrice = decimal.Zero
	}
	return next, pnl, nil
}

// Close 全部平倉.
func (p Position) Close(price decimal.Decimal) (Position, decimal.Decimal, error) {
	if p.Quantity.IsZero() {
		return p, decimal.Zero, nil
	}
	return p.Reduce(price, p.Quantity)
}
