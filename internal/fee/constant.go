package fee

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"frizo/fee_risk_engine/internal/errs"
)

// presetRow one tier of a built-in table; the tier ends where the next row starts.
type presetRow struct {
	MinVolume string
	MakerRate string
	TakerRate string
}

type preset struct {
	Rows         []presetRow
	DiscountRate string
	Token        string
	ZeroFeePairs bool
}

var presets = map[string]preset{
	"binance": {
		Rows: []presetRow{
			{"0", "0.001", "0.001"},             // 0.10% / 0.10% < 1M
			{"1000000", "0.0009", "0.001"},      // 1M-5M
			{"5000000", "0.0008", "0.0009"},     // 5M-10M
			{"10000000", "0.0007", "0.0008"},    // 10M-50M
			{"50000000", "0.0006", "0.0007"},    // 50M-100M
			{"100000000", "0.0005", "0.0006"},   // 100M-500M
			{"500000000", "0.0004", "0.0005"},   // 500M-1B
			{"1000000000", "0.0003", "0.0004"},  // 1B-5B
			{"5000000000", "0.0002", "0.0003"},  // 5B-10B
			{"10000000000", "0.0001", "0.0002"}, // > 10B
		},
		DiscountRate: "0.25", // 25% off when paying with BNB
		Token:        "BNB",
		ZeroFeePairs: true,
	},
	"coinbase": {
		Rows: []presetRow{
			{"0", "0.004", "0.006"},           // 0.40% / 0.60% < 10k
			{"10000", "0.0035", "0.005"},      // 10k-50k
			{"50000", "0.0025", "0.0035"},     // 50k-100k
			{"100000", "0.002", "0.003"},      // 100k-1M
			{"1000000", "0.0018", "0.0027"},   // 1M-5M
			{"5000000", "0.0016", "0.0025"},   // 5M-15M
			{"15000000", "0.0012", "0.002"},   // 15M-75M
			{"75000000", "0.0008", "0.0018"},  // 75M-100M
			{"100000000", "0.0005", "0.0015"}, // 100M-400M
			{"400000000", "0", "0.001"},       // > 400M
		},
		DiscountRate: "0",
	},
	"kraken": {
		Rows: []presetRow{
			{"0", "0.0016", "0.0026"},       // 0.16% / 0.26% < 50k
			{"50000", "0.0014", "0.0024"},   // 50k-100k
			{"100000", "0.0012", "0.0022"},  // 100k-250k
			{"250000", "0.001", "0.002"},    // 250k-500k
			{"500000", "0.0008", "0.0018"},  // 500k-1M
			{"1000000", "0.0006", "0.0016"}, // 1M-2.5M
			{"2500000", "0.0004", "0.0014"}, // 2.5M-5M
			{"5000000", "0.0002", "0.0012"}, // 5M-10M
			{"10000000", "0", "0.001"},      // > 10M
		},
		DiscountRate: "0",
	},
	"bybit": {
		Rows: []presetRow{
			{"0", "0.001", "0.001"}, // flat 0.10% spot
		},
		DiscountRate: "0",
	},
}

// PresetNames built-in schedule names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset builds one of the built-in exchange schedules (binance, coinbase, kraken, bybit).
func Preset(name string) (*Schedule, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	p, ok := presets[key]
	if !ok {
		return nil, errs.Configf("load preset", "unknown fee preset %q (known: %s)", name, strings.Join(PresetNames(), ", "))
	}

	discount := decimal.RequireFromString(p.DiscountRate)
	tiers := make([]Tier, len(p.Rows))
	for i, row := range p.Rows {
		tiers[i] = Tier{
			MinVolume:    decimal.RequireFromString(row.MinVolume),
			MakerRate:    decimal.RequireFromString(row.MakerRate),
			TakerRate:    decimal.RequireFromString(row.TakerRate),
			DiscountRate: discount,
		}
		if i+1 < len(p.Rows) {
			tiers[i].MaxVolume = decimal.RequireFromString(p.Rows[i+1].MinVolume)
		} else {
			tiers[i].Unbounded = true
		}
	}

	var opts []ScheduleOption
	if p.Token != "" {
		opts = append(opts, WithDiscountToken(p.Token, p.ZeroFeePairs))
	}
	return NewSchedule(key, tiers, opts...)
}
