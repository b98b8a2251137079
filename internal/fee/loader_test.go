package fee

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frizo/fee_risk_engine/internal/codec"
	"frizo/fee_risk_engine/internal/errs"
)

const yamlSchedule = `
name: spot-vip
discountToken: bnb
zeroFeeTokenPairs: true
tiers:
  - minVolume: 100
    makerRate: "0.0006"
    takerRate: 0.0008
    discountRate: 0.25
  - minVolume: 0
    maxVolume: 100
    makerRate: 0.0009
    takerRate: 0.001
    discountRate: 0.25
`

const jsonList = `[
  {"minVolume": 0, "maxVolume": "1000000", "makerRate": 0.001, "takerRate": 0.001},
  {"minVolume": "1000000", "maxVolume": null, "makerRate": 0.0009, "takerRate": "0.001"}
]`

func TestLoadYAMLObject(t *testing.T) {
	s, err := Load(strings.NewReader(yamlSchedule), codec.YAML)
	require.NoError(t, err)

	assert.Equal(t, "spot-vip", s.Name())
	assert.Equal(t, "BNB", s.DiscountToken())
	assert.True(t, s.ZeroFeeTokenPairs())

	tiers := s.Tiers()
	require.Len(t, tiers, 2)
	assert.True(t, tiers[0].MaxVolume.Equal(d("100")))
	assert.False(t, tiers[0].Unbounded)
	assert.True(t, tiers[1].Unbounded)
	assert.True(t, tiers[1].DiscountRate.Equal(d("0.25")))
}

func TestLoadJSONList(t *testing.T) {
	s, err := Load(strings.NewReader(jsonList), codec.JSON)
	require.NoError(t, err)

	assert.Equal(t, "custom", s.Name())
	assert.Empty(t, s.DiscountToken())

	tiers := s.Tiers()
	require.Len(t, tiers, 2)
	assert.True(t, tiers[1].Unbounded)
	assert.True(t, tiers[0].DiscountRate.IsZero())
	assert.True(t, tiers[1].MakerRate.Equal(d("0.0009")))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("YAML", func(t *testing.T) {
		path := filepath.Join(dir, "house.yml")
		require.NoError(t, os.WriteFile(path, []byte("- minVolume: 0\n  makerRate: 0.002\n  takerRate: 0.003\n"), 0o644))

		s, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "house", s.Name())
		assert.Equal(t, 1, s.Len())
	})

	t.Run("JSON", func(t *testing.T) {
		path := filepath.Join(dir, "tiers.json")
		require.NoError(t, os.WriteFile(path, []byte(jsonList), 0o644))

		s, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 2, s.Len())
	})

	t.Run("UnknownExtension", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "tiers.toml"))
		assert.True(t, errors.Is(err, errs.ErrConfig))
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.yaml"))
		assert.True(t, errors.Is(err, errs.ErrConfig))
	})
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name   string
		format codec.Format
		doc    string
		want   string
	}{
		{"Empty", codec.YAML, "  \n", "empty yaml document"},
		{"BrokenJSON", codec.JSON, `[{"minVolume": 0,`, "decode json"},
		{"NotADecimal", codec.JSON, `[{"minVolume": 0, "makerRate": "abc", "takerRate": 0.001}]`, `tier 0: makerRate must be a decimal, got "abc"`},
		{"MissingRate", codec.YAML, "- minVolume: 0\n  makerRate: 0.001\n", "tier 0: takerRate is required"},
		{"Gap", codec.JSON, `[
			{"minVolume": 0, "maxVolume": 100, "makerRate": 0.001, "takerRate": 0.001},
			{"minVolume": 200, "makerRate": 0.001, "takerRate": 0.001}
		]`, "gap between tier 0 and 1"},
		{"NegativeRate", codec.YAML, "- minVolume: 0\n  makerRate: -0.001\n  takerRate: 0.001\n", "makerRate must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc), tt.format)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrConfig))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
