package codec

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type numberDoc struct {
	Price Number    `json:"price" yaml:"price"`
	Max   Number    `json:"max" yaml:"max"`
	At    Timestamp `json:"at" yaml:"at"`
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("fees.JSON")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)

	f, err = FormatFromPath("/etc/fees.yml")
	require.NoError(t, err)
	assert.Equal(t, YAML, f)

	_, err = FormatFromPath("fees.toml")
	assert.Error(t, err)
}

func TestNumberJSON(t *testing.T) {
	t.Run("NumberAndString", func(t *testing.T) {
		var doc numberDoc
		require.NoError(t, Unmarshal([]byte(`{"price": 25000.5, "max": "100"}`), JSON, &doc))

		price, err := doc.Price.Decimal("price")
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.RequireFromString("25000.5")))

		max, err := doc.Max.Decimal("max")
		require.NoError(t, err)
		assert.True(t, max.Equal(decimal.NewFromInt(100)))
	})

	t.Run("NullAndMissing", func(t *testing.T) {
		var doc numberDoc
		require.NoError(t, Unmarshal([]byte(`{"max": null}`), JSON, &doc))
		assert.False(t, doc.Max.Set)
		assert.False(t, doc.Price.Set)

		_, err := doc.Price.Decimal("price")
		assert.EqualError(t, err, "price is required")

		def, err := doc.Max.DecimalOr("max", decimal.NewFromInt(7))
		require.NoError(t, err)
		assert.True(t, def.Equal(decimal.NewFromInt(7)))
	})

	t.Run("Garbage", func(t *testing.T) {
		var doc numberDoc
		require.NoError(t, Unmarshal([]byte(`{"price": "abc"}`), JSON, &doc))
		_, err := doc.Price.Decimal("price")
		assert.EqualError(t, err, `price must be a decimal, got "abc"`)
	})
}

func TestNumberYAML(t *testing.T) {
	var doc numberDoc
	src := "price: 0.00075\nmax: ~\nat: 2024-03-01T12:00:00Z\n"
	require.NoError(t, Unmarshal([]byte(src), YAML, &doc))

	price, err := doc.Price.Decimal("price")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("0.00075")))
	assert.False(t, doc.Max.Set)
	assert.True(t, doc.At.Set)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), doc.At.Time)
}

func TestNumberYAMLRejectsMapping(t *testing.T) {
	var doc numberDoc
	err := Unmarshal([]byte("price:\n  value: 1\n"), YAML, &doc)
	assert.Error(t, err)
}

func TestTimestampJSON(t *testing.T) {
	var doc numberDoc
	require.NoError(t, Unmarshal([]byte(`{"at": 1700000000000}`), JSON, &doc))
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), doc.At.Time)

	err := Unmarshal([]byte(`{"at": "yesterday"}`), JSON, &doc)
	assert.Error(t, err)
}

func TestIsList(t *testing.T) {
	assert.True(t, IsList([]byte(" [ {} ]"), JSON))
	assert.False(t, IsList([]byte(`{"tiers": []}`), JSON))
	assert.True(t, IsList([]byte("- a: 1\n- a: 2\n"), YAML))
	assert.False(t, IsList([]byte("tiers:\n  - a: 1\n"), YAML))
}

func TestDecodeEmpty(t *testing.T) {
	var v any
	err := Decode(strings.NewReader("   \n"), YAML, &v)
	assert.EqualError(t, err, "empty yaml document")
}
