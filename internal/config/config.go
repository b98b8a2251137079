package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"frizo/fee_risk_engine/internal/errs"
)

// EnvPrefix environment overrides, e.g. FEERISK_LOG_LEVEL or FEERISK_MARKET_DATA_ENDPOINT.
const EnvPrefix = "FEERISK"

// Config holds the application configuration.
type Config struct {
	Environment string           `mapstructure:"environment" validate:"oneof=development staging production"`
	LogLevel    string           `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	Fee         FeeConfig        `mapstructure:"fee"`
	MarketData  MarketDataConfig `mapstructure:"market_data"`
	Risk        RiskConfig       `mapstructure:"risk"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
}

// FeeConfig schedule source (file wins over preset) and the demo account.
type FeeConfig struct {
	SchedulePath      string `mapstructure:"schedule_path"`
	Preset            string `mapstructure:"preset" validate:"required_without=SchedulePath"`
	ThirtyDayVolume   string `mapstructure:"thirty_day_volume" validate:"required,numeric"`
	UsesDiscountToken bool   `mapstructure:"uses_discount_token"`
	// fee demo trades; empty uses the built-in set
	Trades []TradeConfig `mapstructure:"trades" validate:"dive"`
}

type TradeConfig struct {
	Symbol string `mapstructure:"symbol" validate:"required"`
	Amount string `mapstructure:"amount" validate:"required,numeric"`
	Side   string `mapstructure:"side" validate:"required,oneof=maker taker MAKER TAKER"`
}

type MarketDataConfig struct {
	Endpoint     string        `mapstructure:"endpoint" validate:"omitempty,url"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	FallbackPath string        `mapstructure:"fallback_path" validate:"required_without=Endpoint"`
	Symbols      []string      `mapstructure:"symbols"`
	// history kept per symbol for volatility
	HistorySize int `mapstructure:"history_size" validate:"gte=2"`
}

type RiskConfig struct {
	Positions []PositionConfig `mapstructure:"positions" validate:"dive"`
}

type PositionConfig struct {
	Symbol     string `mapstructure:"symbol" validate:"required"`
	Quantity   string `mapstructure:"quantity" validate:"required,numeric"`
	EntryPrice string `mapstructure:"entry_price" validate:"required,numeric"`
}

type MetricsConfig struct {
	// empty disables the /metrics listener
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// Load reads path (YAML) on top of the defaults, then applies FEERISK_* env
// overrides. An empty path means defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.Config("read config", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Config("unmarshal config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("fee.schedule_path", "")
	v.SetDefault("fee.preset", "binance")
	v.SetDefault("fee.thirty_day_volume", "0")
	v.SetDefault("fee.uses_discount_token", false)
	v.SetDefault("market_data.endpoint", "")
	v.SetDefault("market_data.timeout", "5s")
	v.SetDefault("market_data.fallback_path", "configs/prices.json")
	v.SetDefault("market_data.symbols", []string{"BTC", "ETH"})
	v.SetDefault("market_data.history_size", 20)
	v.SetDefault("metrics.addr", "")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report config keys, not Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate struct tags plus the numeric ranges tags cannot express.
func (c *Config) Validate() error {
	var err error
	if vErr := validate.Struct(c); vErr != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(vErr, &fieldErrs) {
			return errs.Config("validate config", vErr)
		}
		for _, fe := range fieldErrs {
			err = multierr.Append(err, fmt.Errorf("%s: failed %q (value %v)", trimRoot(fe.Namespace()), fe.ActualTag(), fe.Value()))
		}
	}

	if vol, parseErr := decimal.NewFromString(c.Fee.ThirtyDayVolume); parseErr == nil && vol.IsNegative() {
		err = multierr.Append(err, fmt.Errorf("fee.thirty_day_volume: must be non-negative, got %s", vol))
	}
	for i, p := range c.Risk.Positions {
		if q, parseErr := decimal.NewFromString(p.Quantity); parseErr == nil && q.IsNegative() {
			err = multierr.Append(err, fmt.Errorf("risk.positions[%d].quantity: must be non-negative, got %s", i, q))
		}
	}

	if err != nil {
		return errs.Config("validate config", err)
	}
	return nil
}

// ThirtyDayVolumeDecimal already validated as numeric.
func (c FeeConfig) ThirtyDayVolumeDecimal() decimal.Decimal {
	return decimal.RequireFromString(c.ThirtyDayVolume)
}

func trimRoot(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
