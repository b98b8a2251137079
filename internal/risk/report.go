package risk

import (
	"time"

	"github.com/shopspring/decimal"

	"frizo/fee_risk_engine/pkg/utils"
)

// Report exposure, concentration and PnL of one portfolio at one price snapshot.
type Report struct {
	ID                 string                     `json:"id"`
	TotalExposure      decimal.Decimal            `json:"total_exposure"`
	PerAssetExposure   map[string]decimal.Decimal `json:"per_asset_exposure"`
	ConcentrationRatio decimal.Decimal            `json:"concentration_ratio"` // largest asset / total, 0 when total is 0
	LargestAsset       string                     `json:"largest_asset,omitempty"`
	UnrealizedPnL      decimal.Decimal            `json:"unrealized_pnl"`
	PerAssetPnL        map[string]decimal.Decimal `json:"per_asset_pnl"`

	// filled only when the calculator has a volatility tracker
	Volatility         map[string]float64 `json:"volatility,omitempty"`
	WeightedVolatility float64            `json:"weighted_volatility"`
	Stressed           []string           `json:"stressed,omitempty"`

	StalePrices bool      `json:"stale_prices"`
	PricesAsOf  time.Time `json:"prices_as_of"` // oldest quote used
	GeneratedAt time.Time `json:"generated_at"`
}

// Symbols held, ascending.
func (r *Report) Symbols() []string {
	return utils.SortedKeys(r.PerAssetExposure)
}

// Weight share of total exposure held in symbol, 0 when total is 0.
func (r *Report) Weight(symbol string) decimal.Decimal {
	if r.TotalExposure.IsZero() {
		return decimal.Zero
	}
	return r.PerAssetExposure[symbol].Div(r.TotalExposure)
}
