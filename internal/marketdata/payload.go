package marketdata

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"frizo/fee_risk_engine/internal/codec"
)

// quoteDoc {symbol, price, timestamp}; price as number or string,
// timestamp as unix millis or RFC 3339.
type quoteDoc struct {
	Symbol    string          `json:"symbol" yaml:"symbol"`
	Price     codec.Number    `json:"price" yaml:"price"`
	Timestamp codec.Timestamp `json:"timestamp" yaml:"timestamp"`
}

// decodeQuotes accepts a list of quotes or a single quote object.
// Quotes without a timestamp are stamped with received.
func decodeQuotes(data []byte, format codec.Format, source Source, received time.Time) (Prices, error) {
	var docs []quoteDoc
	if codec.IsList(data, format) {
		if err := codec.Unmarshal(data, format, &docs); err != nil {
			return nil, err
		}
	} else {
		var single quoteDoc
		if err := codec.Unmarshal(data, format, &single); err != nil {
			return nil, err
		}
		docs = []quoteDoc{single}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("payload contains no quotes")
	}

	var err error
	prices := make(Prices, len(docs))
	for i, doc := range docs {
		q, quoteErr := doc.toQuote(source, received)
		if quoteErr != nil {
			err = multierr.Append(err, fmt.Errorf("quote %d: %w", i, quoteErr))
			continue
		}
		prices[q.Symbol] = q
	}
	if err != nil {
		return nil, err
	}
	return prices, nil
}

func (doc quoteDoc) toQuote(source Source, received time.Time) (PriceQuote, error) {
	symbol := strings.ToUpper(strings.TrimSpace(doc.Symbol))
	if symbol == "" {
		return PriceQuote{}, fmt.Errorf("symbol is required")
	}
	price, err := doc.Price.Decimal("price")
	if err != nil {
		return PriceQuote{}, fmt.Errorf("%s: %w", symbol, err)
	}
	if !price.IsPositive() {
		return PriceQuote{}, fmt.Errorf("%s: price must be positive, got %s", symbol, price)
	}

	ts := received
	if doc.Timestamp.Set {
		ts = doc.Timestamp.Time
	}
	return PriceQuote{
		Symbol:    symbol,
		Price:     price,
		Timestamp: ts.UTC(),
		Source:    source,
		Stale:     source != SourceLive,
	}, nil
}
