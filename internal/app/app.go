// Package app wires the fee and risk engines to configuration and prints the
// demo reports.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"frizo/fee_risk_engine/common"
	"frizo/fee_risk_engine/internal/config"
	"frizo/fee_risk_engine/internal/errs"
	"frizo/fee_risk_engine/internal/fee"
	"frizo/fee_risk_engine/internal/logger"
	"frizo/fee_risk_engine/internal/marketdata"
	"frizo/fee_risk_engine/internal/metrics"
	"frizo/fee_risk_engine/internal/position"
	"frizo/fee_risk_engine/internal/risk"
	"frizo/fee_risk_engine/pkg/utils"
)

const (
	DemoFee  = "fee"
	DemoRisk = "risk"
	DemoAll  = "all"
)

// Demos accepted by Run.
var Demos = []string{DemoFee, DemoRisk, DemoAll}

// default fee demo: a discounted spot trade, a discount-token pair on each side
var defaultTrades = []config.TradeConfig{
	{Symbol: "BTCUSDT", Amount: "10000", Side: "taker"},
	{Symbol: "BNBUSDT", Amount: "5000", Side: "maker"},
	{Symbol: "ETHBNB", Amount: "2000", Side: "taker"},
	{Symbol: "SOLUSDT", Amount: "1000", Side: "maker"},
}

// default risk demo positions when the config lists none
var defaultPositions = []config.PositionConfig{
	{Symbol: "BTC", Quantity: "1", EntryPrice: "20000"},
	{Symbol: "BTC", Quantity: "1", EntryPrice: "22000"},
	{Symbol: "ETH", Quantity: "10", EntryPrice: "1500"},
}

type App struct {
	cfg *config.Config
	log *logger.Logger
	out io.Writer
	now func() time.Time

	account    fee.Account
	fees       *fee.Calculator
	tracker    *fee.Tracker
	prices     marketdata.Provider
	volatility *risk.VolatilityTracker
	risk       *risk.Calculator
}

type Option func(*App)

// WithProvider replaces the provider chain built from config.
func WithProvider(p marketdata.Provider) Option {
	return func(a *App) { a.prices = p }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New builds the schedule, the price provider chain and both calculators.
// m may be nil.
func New(cfg *config.Config, log *logger.Logger, out io.Writer, m *metrics.Metrics, opts ...Option) (*App, error) {
	a := &App{
		cfg:     cfg,
		log:     log,
		out:     out,
		now:     time.Now,
		account: fee.Account{
			ThirtyDayVolume:   cfg.Fee.ThirtyDayVolumeDecimal(),
			UsesDiscountToken: cfg.Fee.UsesDiscountToken,
		},
		tracker: fee.NewTracker(),
	}
	for _, opt := range opts {
		opt(a)
	}

	schedule, err := loadSchedule(cfg.Fee)
	if err != nil {
		return nil, err
	}
	a.fees, err = fee.NewCalculator(schedule, fee.WithMetrics(m), fee.WithClock(a.now))
	if err != nil {
		return nil, err
	}

	if a.prices == nil {
		if a.prices, err = newProvider(cfg.MarketData, log, m); err != nil {
			return nil, err
		}
	}

	a.volatility = risk.NewVolatilityTracker(cfg.MarketData.HistorySize)
	a.risk = risk.NewCalculator(
		risk.WithVolatility(a.volatility),
		risk.WithMetrics(m),
		risk.WithLogger(log.Logger),
		risk.WithClock(a.now),
	)

	log.Info("engine ready",
		"schedule", schedule.Name(),
		"tiers", schedule.Len(),
		"discount_token", schedule.DiscountToken(),
		"thirty_day_volume", a.account.ThirtyDayVolume.String(),
	)
	return a, nil
}

// file wins over preset
func loadSchedule(cfg config.FeeConfig) (*fee.Schedule, error) {
	if cfg.SchedulePath != "" {
		return fee.LoadFile(cfg.SchedulePath)
	}
	return fee.Preset(cfg.Preset)
}

// newProvider live endpoint behind a fallback when configured, otherwise the static file alone.
func newProvider(cfg config.MarketDataConfig, log *logger.Logger, m *metrics.Metrics) (marketdata.Provider, error) {
	var static *marketdata.StaticProvider
	if cfg.FallbackPath != "" {
		var err error
		if static, err = marketdata.NewStaticProvider(cfg.FallbackPath, log.Logger); err != nil {
			return nil, err
		}
		log.Debug("static price file configured", "path", static.Path())
	}
	if cfg.Endpoint == "" {
		if static == nil {
			return nil, errs.Configf("new price provider", "neither endpoint nor fallback_path is set")
		}
		return static, nil
	}

	client := marketdata.NewHTTPClient(marketdata.HTTPClientConfig{TotalTimeout: cfg.Timeout})
	live, err := marketdata.NewHTTPProvider(cfg.Endpoint,
		marketdata.WithHTTPClient(client),
		marketdata.WithHTTPLogger(log.Logger),
		marketdata.WithHTTPMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	opts := []marketdata.FallbackOption{
		marketdata.WithFallbackLogger(log.Logger),
		marketdata.WithFallbackMetrics(m),
	}
	if static != nil {
		opts = append(opts, marketdata.WithStatic(static))
	}
	return marketdata.NewFallbackProvider(live, opts...), nil
}

// Run executes one demo. With DemoAll a failing fee demo does not stop the
// risk demo; both errors are returned.
func (a *App) Run(ctx context.Context, demo string) error {
	switch strings.ToLower(demo) {
	case DemoFee:
		return a.logged(DemoFee, a.RunFeeDemo())
	case DemoRisk:
		return a.logged(DemoRisk, a.RunRiskDemo(ctx))
	case DemoAll:
		var err error
		err = multierr.Append(err, a.logged(DemoFee, a.RunFeeDemo()))
		err = multierr.Append(err, a.logged(DemoRisk, a.RunRiskDemo(ctx)))
		return err
	default:
		return errs.InvalidInput("run", "demo", "unknown demo %q (known: %s)", demo, strings.Join(Demos, ", "))
	}
}

func (a *App) logged(demo string, err error) error {
	if err != nil {
		a.log.Error("demo failed", "demo", demo, "error", err)
	}
	return err
}

// ========================================================

// RunFeeDemo quotes the demo trades for the configured account and prints the
// breakdown, a with/without discount comparison and the running summary.
func (a *App) RunFeeDemo() error {
	schedule := a.fees.Schedule()
	fmt.Fprintf(a.out, "=== Fee Demo (%s) ===\n", schedule.Name())
	fmt.Fprintf(a.out, "30-day volume: %s, pays with %s: %t\n\n",
		humanize.Commaf(a.account.ThirtyDayVolume.InexactFloat64()), tokenOr(schedule.DiscountToken()), a.account.UsesDiscountToken)

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tSIDE\tAMOUNT\tTIER\tRATE\tFEE\tSAVED\t")
	for i, trade := range a.trades() {
		side, err := common.ParseTradeSide(trade.Side)
		if err != nil {
			return errs.InvalidInput("fee demo", fmt.Sprintf("trades[%d].side", i), "%v", err)
		}
		amount, err := decimal.NewFromString(trade.Amount)
		if err != nil {
			return errs.InvalidInput("fee demo", fmt.Sprintf("trades[%d].amount", i), "%v", err)
		}
		q, err := a.fees.Quote(a.account, trade.Symbol, amount, side)
		if err != nil {
			return fmt.Errorf("quote %s: %w", trade.Symbol, err)
		}
		a.tracker.Track(q)

		note := ""
		if q.ZeroFee {
			note = " (zero-fee pair)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			q.Symbol, q.Side, q.Amount.StringFixed(2), q.TierIndex, percent(q.Rate), q.Fee.StringFixed(8), q.Savings.StringFixed(8), note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if err := a.compareDiscount(); err != nil {
		return err
	}

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, a.tracker.Summary())
	return nil
}

func (a *App) trades() []config.TradeConfig {
	if len(a.cfg.Fee.Trades) > 0 {
		return a.cfg.Fee.Trades
	}
	return defaultTrades
}

// compareDiscount the taker rate for the configured volume with and without the discount token.
func (a *App) compareDiscount() error {
	without := fee.Account{ThirtyDayVolume: a.account.ThirtyDayVolume}
	with := fee.Account{ThirtyDayVolume: a.account.ThirtyDayVolume, UsesDiscountToken: true}

	base, err := a.fees.EffectiveRate(without, common.TAKER)
	if err != nil {
		return err
	}
	discounted, err := a.fees.EffectiveRate(with, common.TAKER)
	if err != nil {
		return err
	}

	amount := decimal.NewFromInt(10_000)
	price, exit := decimal.NewFromInt(20_000), decimal.NewFromInt(20_200)
	fmt.Fprintf(a.out, "\nTaker rate, tier %d %s: %s without discount, %s with\n",
		base.TierIndex, base.Tier, percent(base.Effective), percent(discounted.Effective))
	fmt.Fprintf(a.out, "Fee on %s: %s vs %s\n",
		amount.StringFixed(2), amount.Mul(base.Effective).StringFixed(8), amount.Mul(discounted.Effective).StringFixed(8))
	fmt.Fprintf(a.out, "Round trip 1 @ %s -> %s: %s%% without, %s%% with\n",
		price, exit,
		fee.RoundTripProfitPercent(price, exit, decimal.NewFromInt(1), base.Effective, base.Effective).StringFixed(4),
		fee.RoundTripProfitPercent(price, exit, decimal.NewFromInt(1), discounted.Effective, discounted.Effective).StringFixed(4))
	return nil
}

// ========================================================

// RunRiskDemo fetches one price snapshot for the configured positions and
// prints the risk report.
func (a *App) RunRiskDemo(ctx context.Context) error {
	positions, err := a.positions()
	if err != nil {
		return err
	}

	symbols := utils.Map(positions, func(p position.Position) string { return p.Symbol })
	symbols = utils.NormalizeSymbols(append(symbols, a.cfg.MarketData.Symbols...))

	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.MarketData.Timeout)
	defer cancel()
	prices, err := a.prices.FetchPrices(fetchCtx, symbols)
	if err != nil {
		return err
	}
	if prices.Stale() {
		a.log.Warn("risk computed on stale prices", "as_of", prices.Oldest())
	}
	a.volatility.ObservePrices(prices)

	report, err := a.risk.ComputeRisk(positions, prices)
	if err != nil {
		return err
	}
	return a.printReport(report, prices)
}

func (a *App) positions() ([]position.Position, error) {
	cfgs := a.cfg.Risk.Positions
	if len(cfgs) == 0 {
		cfgs = defaultPositions
	}

	positions := make([]position.Position, 0, len(cfgs))
	for i, pc := range cfgs {
		qty, err := decimal.NewFromString(pc.Quantity)
		if err != nil {
			return nil, errs.InvalidInput("load positions", fmt.Sprintf("positions[%d].quantity", i), "%v", err)
		}
		entry, err := decimal.NewFromString(pc.EntryPrice)
		if err != nil {
			return nil, errs.InvalidInput("load positions", fmt.Sprintf("positions[%d].entryPrice", i), "%v", err)
		}
		p, err := position.NewPosition(pc.Symbol, qty, entry)
		if err != nil {
			return nil, err
		}
		p.OpenTime = a.now()
		positions = append(positions, p)
	}
	return positions, nil
}

func (a *App) printReport(report *risk.Report, prices marketdata.Prices) error {
	fmt.Fprintf(a.out, "=== Risk Report %s ===\n", report.ID)
	if !report.PricesAsOf.IsZero() {
		fmt.Fprintf(a.out, "Prices as of %s (%s)\n", report.PricesAsOf.Format(time.RFC3339), humanize.RelTime(report.PricesAsOf, a.now(), "ago", "from now"))
	}
	fmt.Fprintln(a.out)

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSET\tPRICE\tSOURCE\tEXPOSURE\tWEIGHT\tPNL\tVOLATILITY\t")
	for _, symbol := range report.Symbols() {
		q := prices[symbol]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.4f\t\n",
			symbol, q.Price, q.Source, report.PerAssetExposure[symbol].StringFixed(2),
			percent(report.Weight(symbol)), report.PerAssetPnL[symbol].StringFixed(2), report.Volatility[symbol])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\nTotal exposure: %s\n", report.TotalExposure.StringFixed(2))
	fmt.Fprintf(a.out, "Unrealized PnL: %s\n", report.UnrealizedPnL.StringFixed(2))
	if report.LargestAsset != "" {
		fmt.Fprintf(a.out, "Concentration: %s in %s\n", percent(report.ConcentrationRatio), report.LargestAsset)
	}
	fmt.Fprintf(a.out, "Weighted volatility: %.4f\n", report.WeightedVolatility)
	if len(report.Stressed) > 0 {
		fmt.Fprintf(a.out, "Stressed: %s\n", strings.Join(report.Stressed, ", "))
	}
	if report.StalePrices {
		fmt.Fprintln(a.out, "WARNING: report uses stale prices")
	}
	return nil
}

// Tracker quotes priced so far by the fee demo.
func (a *App) Tracker() *fee.Tracker { return a.tracker }

func percent(ratio decimal.Decimal) string {
	return ratio.Mul(decimal.NewFromInt(100)).StringFixed(4) + "%"
}

func tokenOr(token string) string {
	if token == "" {
		return "discount token"
	}
	return token
}
