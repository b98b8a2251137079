package fee

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"frizo/fee_risk_engine/internal/errs"
)

// Schedule an ordered, validated set of tiers partitioning [0, ∞).
// Immutable once built; accessors hand out copies.
type Schedule struct {
	name              string
	discountToken     string
	zeroFeeTokenPairs bool
	tiers             []Tier
}

type ScheduleOption func(*Schedule)

// WithDiscountToken names the exchange token (e.g. BNB). With zeroFeePairs,
// symbols quoted in or against the token trade for free.
func WithDiscountToken(token string, zeroFeePairs bool) ScheduleOption {
	return func(s *Schedule) {
		s.discountToken = strings.ToUpper(strings.TrimSpace(token))
		s.zeroFeeTokenPairs = zeroFeePairs && s.discountToken != ""
	}
}

// NewSchedule sorts the tiers by MinVolume and validates them.
func NewSchedule(name string, tiers []Tier, opts ...ScheduleOption) (*Schedule, error) {
	sorted := sortTiers(tiers)
	if err := validateSorted(sorted); err != nil {
		return nil, errs.Config("validate schedule", err)
	}

	s := &Schedule{
		name:  name,
		tiers: sorted,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Validate checks that tiers (in any order) partition the volume axis with
// sane rates. Every violation is reported, combined with multierr.
func Validate(tiers []Tier) error {
	return validateSorted(sortTiers(tiers))
}

func sortTiers(tiers []Tier) []Tier {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinVolume.LessThan(sorted[j].MinVolume)
	})
	return sorted
}

func validateSorted(tiers []Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("schedule has no tiers")
	}

	var err error
	if !tiers[0].MinVolume.IsZero() {
		err = multierr.Append(err, fmt.Errorf("first tier must start at 0, got minVolume %s", tiers[0].MinVolume))
	}

	last := len(tiers) - 1
	for i, t := range tiers {
		if t.Unbounded && i != last {
			err = multierr.Append(err, fmt.Errorf("tier %d: only the last tier may be unbounded", i))
		}
		if !t.Unbounded && i == last {
			err = multierr.Append(err, fmt.Errorf("tier %d: last tier must be unbounded, got maxVolume %s", i, t.MaxVolume))
		}
		if !t.Unbounded && t.MaxVolume.LessThanOrEqual(t.MinVolume) {
			err = multierr.Append(err, fmt.Errorf("tier %d: maxVolume %s must be greater than minVolume %s", i, t.MaxVolume, t.MinVolume))
		}
		err = multierr.Append(err, checkRate(i, "makerRate", t.MakerRate))
		err = multierr.Append(err, checkRate(i, "takerRate", t.TakerRate))
		err = multierr.Append(err, checkRate(i, "discountRate", t.DiscountRate))
		if t.DiscountRate.GreaterThan(decimal.NewFromInt(1)) {
			err = multierr.Append(err, fmt.Errorf("tier %d: discountRate must be at most 1, got %s", i, t.DiscountRate))
		}

		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if prev.Unbounded {
			// already reported above
			continue
		}
		switch {
		case t.MinVolume.GreaterThan(prev.MaxVolume):
			err = multierr.Append(err, fmt.Errorf("gap between tier %d and %d: [%s, %s) uncovered", i-1, i, prev.MaxVolume, t.MinVolume))
		case t.MinVolume.LessThan(prev.MaxVolume):
			err = multierr.Append(err, fmt.Errorf("tier %d overlaps tier %d: minVolume %s < maxVolume %s", i, i-1, t.MinVolume, prev.MaxVolume))
		}
	}
	return err
}

func checkRate(i int, field string, rate decimal.Decimal) error {
	if rate.IsNegative() {
		return fmt.Errorf("tier %d: %s must be non-negative, got %s", i, field, rate)
	}
	return nil
}

// ========================================================

func (s *Schedule) Name() string { return s.name }

func (s *Schedule) DiscountToken() string { return s.discountToken }

func (s *Schedule) ZeroFeeTokenPairs() bool { return s.zeroFeeTokenPairs }

func (s *Schedule) Len() int { return len(s.tiers) }

// Tiers returns a copy of the ordered tiers.
func (s *Schedule) Tiers() []Tier {
	out := make([]Tier, len(s.tiers))
	copy(out, s.tiers)
	return out
}

// TierFor binary-searches the tier whose [min, max) contains volume.
// A volume sitting on a boundary belongs to the higher tier.
func (s *Schedule) TierFor(volume decimal.Decimal) (int, Tier, bool) {
	// first tier starting strictly above volume, the one before it is ours
	idx := sort.Search(len(s.tiers), func(i int) bool {
		return s.tiers[i].MinVolume.GreaterThan(volume)
	}) - 1
	if idx < 0 || !s.tiers[idx].Contains(volume) {
		return -1, Tier{}, false
	}
	return idx, s.tiers[idx], true
}

// IsZeroFeePair symbols such as BNBUSDT or ETHBNB when the schedule waives fees on token pairs.
func (s *Schedule) IsZeroFeePair(symbol string) bool {
	if !s.zeroFeeTokenPairs || s.discountToken == "" {
		return false
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return strings.HasPrefix(symbol, s.discountToken) || strings.HasSuffix(symbol, s.discountToken)
}
