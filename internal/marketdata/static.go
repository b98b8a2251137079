package marketdata

import (
	"context"
	"log/slog"
	"os"

	"frizo/fee_risk_engine/internal/codec"
	"frizo/fee_risk_engine/internal/errs"
	"frizo/fee_risk_engine/pkg/utils"
)

// StaticProvider serves prices from a JSON or YAML file. The file is re-read
// on every fetch; quotes without a timestamp get the file's modification time.
type StaticProvider struct {
	path   string
	format codec.Format
	logger *slog.Logger
}

func NewStaticProvider(path string, logger *slog.Logger) (*StaticProvider, error) {
	format, err := codec.FormatFromPath(path)
	if err != nil {
		return nil, errs.Config("new static provider", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StaticProvider{path: path, format: format, logger: logger}, nil
}

func (p *StaticProvider) Path() string { return p.path }

func (p *StaticProvider) FetchPrices(ctx context.Context, symbols []string) (Prices, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.MarketData("fetch", string(SourceStatic), err)
	}
	symbols = utils.NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, errs.InvalidInput("fetch prices", "symbols", "at least one symbol is required")
	}

	info, err := os.Stat(p.path)
	if err != nil {
		return nil, errs.MarketData("fetch", string(SourceStatic), err)
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, errs.MarketData("fetch", string(SourceStatic), err)
	}

	all, err := decodeQuotes(data, p.format, SourceStatic, info.ModTime().UTC())
	if err != nil {
		return nil, errs.MarketData("fetch", string(SourceStatic), err)
	}

	prices := all.Subset(symbols)
	p.logger.Debug("static prices loaded", "path", p.path, "requested", len(symbols), "found", len(prices))
	return prices, nil
}
