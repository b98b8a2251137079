package fee

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"frizo/fee_risk_engine/common"
	"frizo/fee_risk_engine/pkg/utils"
)

// Tracker an in-memory ledger of quoted fees.
type Tracker struct {
	mu       sync.RWMutex
	quotes   []Quote
	bySymbol map[string]decimal.Decimal
}

func NewTracker() *Tracker {
	return &Tracker{
		bySymbol: make(map[string]decimal.Decimal),
	}
}

func (t *Tracker) Track(q Quote) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bySymbol == nil {
		t.bySymbol = make(map[string]decimal.Decimal)
	}
	t.quotes = append(t.quotes, q)
	t.bySymbol[q.Symbol] = t.bySymbol[q.Symbol].Add(q.Fee)
}

// Last the most recent quote, false when nothing was tracked.
func (t *Tracker) Last() (Quote, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.quotes) == 0 {
		return Quote{}, false
	}
	return t.quotes[len(t.quotes)-1], true
}

func (t *Tracker) Quotes() []Quote {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Quote, len(t.quotes))
	copy(out, t.quotes)
	return out
}

func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.quotes)
}

func (t *Tracker) TotalFees() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return utils.SumDecimals(t.bySymbol)
}

func (t *Tracker) TotalBySymbol() map[string]decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]decimal.Decimal, len(t.bySymbol))
	for k, v := range t.bySymbol {
		out[k] = v
	}
	return out
}

func (t *Tracker) TotalDiscountSavings() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := decimal.Zero
	for _, q := range t.quotes {
		total = total.Add(q.Savings)
	}
	return total
}

// AverageRate plain mean of the quoted effective rates.
func (t *Tracker) AverageRate() decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.quotes) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, q := range t.quotes {
		total = total.Add(q.Rate)
	}
	return total.Div(decimal.NewFromInt(int64(len(t.quotes))))
}

func (t *Tracker) SideCounts() map[common.TradeSide]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	counts := make(map[common.TradeSide]int, 2)
	for _, q := range t.quotes {
		counts[q.Side]++
	}
	return counts
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.quotes = nil
	t.bySymbol = make(map[string]decimal.Decimal)
}

// Summary a plain-text report, symbols in ascending order.
func (t *Tracker) Summary() string {
	bySymbol := t.TotalBySymbol()
	sides := t.SideCounts()

	var b strings.Builder
	b.WriteString("=== Fee Summary ===\n")
	fmt.Fprintf(&b, "Trades: %d (maker %d, taker %d)\n", t.Count(), sides[common.MAKER], sides[common.TAKER])
	fmt.Fprintf(&b, "Total fees: %s\n", t.TotalFees().StringFixed(8))
	fmt.Fprintf(&b, "Discount savings: %s\n", t.TotalDiscountSavings().StringFixed(8))
	fmt.Fprintf(&b, "Average rate: %s%%\n", t.AverageRate().Mul(decimal.NewFromInt(100)).StringFixed(4))
	if len(bySymbol) > 0 {
		b.WriteString("By symbol:\n")
		for _, symbol := range utils.SortedKeys(bySymbol) {
			fmt.Fprintf(&b, "  %-10s %s\n", symbol, bySymbol[symbol].StringFixed(8))
		}
	}
	return b.String()
}
