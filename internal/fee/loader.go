package fee

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"frizo/fee_risk_engine/internal/codec"
	"frizo/fee_risk_engine/internal/errs"
)

// tierDoc wire shape of one tier; maxVolume absent or null means unbounded.
type tierDoc struct {
	MinVolume    codec.Number `json:"minVolume" yaml:"minVolume"`
	MaxVolume    codec.Number `json:"maxVolume" yaml:"maxVolume"`
	MakerRate    codec.Number `json:"makerRate" yaml:"makerRate"`
	TakerRate    codec.Number `json:"takerRate" yaml:"takerRate"`
	DiscountRate codec.Number `json:"discountRate" yaml:"discountRate"`
}

type scheduleDoc struct {
	Name              string    `json:"name" yaml:"name"`
	DiscountToken     string    `json:"discountToken" yaml:"discountToken"`
	ZeroFeeTokenPairs bool      `json:"zeroFeeTokenPairs" yaml:"zeroFeeTokenPairs"`
	Tiers             []tierDoc `json:"tiers" yaml:"tiers"`
}

// LoadFile reads a JSON (.json) or YAML (.yaml, .yml) schedule.
// Without a name in the document, the file name is used.
func LoadFile(path string) (*Schedule, error) {
	format, err := codec.FormatFromPath(path)
	if err != nil {
		return nil, errs.Config("load fee schedule", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Config("load fee schedule", err)
	}

	fallbackName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return parse(data, format, fallbackName)
}

// Load decodes a schedule document from r.
func Load(r io.Reader, format codec.Format) (*Schedule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Config("load fee schedule", err)
	}
	return parse(data, format, "custom")
}

func parse(data []byte, format codec.Format, fallbackName string) (*Schedule, error) {
	var doc scheduleDoc
	if codec.IsList(data, format) {
		if err := codec.Unmarshal(data, format, &doc.Tiers); err != nil {
			return nil, errs.Config("decode fee schedule", err)
		}
	} else if err := codec.Unmarshal(data, format, &doc); err != nil {
		return nil, errs.Config("decode fee schedule", err)
	}

	tiers, err := doc.toTiers()
	if err != nil {
		return nil, errs.Config("decode fee schedule", err)
	}

	name := strings.TrimSpace(doc.Name)
	if name == "" {
		name = fallbackName
	}

	var opts []ScheduleOption
	if doc.DiscountToken != "" {
		opts = append(opts, WithDiscountToken(doc.DiscountToken, doc.ZeroFeeTokenPairs))
	}
	return NewSchedule(name, tiers, opts...)
}

func (doc scheduleDoc) toTiers() ([]Tier, error) {
	var err error
	tiers := make([]Tier, 0, len(doc.Tiers))
	for i, td := range doc.Tiers {
		t, tierErr := td.toTier()
		if tierErr != nil {
			err = multierr.Append(err, fmt.Errorf("tier %d: %w", i, tierErr))
			continue
		}
		tiers = append(tiers, t)
	}
	return tiers, err
}

func (td tierDoc) toTier() (Tier, error) {
	var (
		t   Tier
		err error
		e   error
	)
	t.MinVolume, e = td.MinVolume.Decimal("minVolume")
	err = multierr.Append(err, e)
	t.MakerRate, e = td.MakerRate.Decimal("makerRate")
	err = multierr.Append(err, e)
	t.TakerRate, e = td.TakerRate.Decimal("takerRate")
	err = multierr.Append(err, e)
	t.DiscountRate, e = td.DiscountRate.DecimalOr("discountRate", decimal.Zero)
	err = multierr.Append(err, e)

	if td.MaxVolume.Set {
		t.MaxVolume, e = td.MaxVolume.Decimal("maxVolume")
		err = multierr.Append(err, e)
	} else {
		t.Unbounded = true
	}
	return t, err
}
