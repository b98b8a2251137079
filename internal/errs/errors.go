// Package errs holds the typed failures surfaced by the fee and risk core.
//
// Every error type matches its sentinel with errors.Is, so callers can branch
// on the category without caring about the concrete value:
//
//	if errors.Is(err, errs.ErrMissingPrice) { ... }
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrConfig       = errors.New("config error")
	ErrInvalidInput = errors.New("invalid input")
	ErrMarketData   = errors.New("market data error")
	ErrMissingPrice = errors.New("missing price")
)

// ConfigError malformed or invalid fee schedule / configuration.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string { return format(ErrConfig, e.Op, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// InvalidInputError negative amounts, negative volumes, unknown sides...
type InvalidInputError struct {
	Op    string
	Field string
	Err   error
}

func (e *InvalidInputError) Error() string {
	op := e.Op
	if e.Field != "" {
		op = fmt.Sprintf("%s: %s", e.Op, e.Field)
	}
	return format(ErrInvalidInput, op, e.Err)
}
func (e *InvalidInputError) Unwrap() error { return e.Err }
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// MarketDataError fetch, transport or parse failure of a price source.
type MarketDataError struct {
	Op     string
	Source string
	Err    error
}

func (e *MarketDataError) Error() string {
	op := e.Op
	if e.Source != "" {
		op = fmt.Sprintf("%s [%s]", e.Op, e.Source)
	}
	return format(ErrMarketData, op, e.Err)
}
func (e *MarketDataError) Unwrap() error { return e.Err }
func (e *MarketDataError) Is(target error) bool {
	return target == ErrMarketData
}

// MissingPriceError a held symbol has no quote in the price snapshot.
type MissingPriceError struct {
	Symbol string
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("%s: no quote for %s", ErrMissingPrice, e.Symbol)
}
func (e *MissingPriceError) Is(target error) bool {
	return target == ErrMissingPrice
}

func Config(op string, err error) error {
	return &ConfigError{Op: op, Err: err}
}

func Configf(op, msg string, args ...any) error {
	return &ConfigError{Op: op, Err: fmt.Errorf(msg, args...)}
}

func InvalidInput(op, field, msg string, args ...any) error {
	return &InvalidInputError{Op: op, Field: field, Err: fmt.Errorf(msg, args...)}
}

func MarketData(op, source string, err error) error {
	return &MarketDataError{Op: op, Source: source, Err: err}
}

func MissingPrice(symbol string) error {
	return &MissingPriceError{Symbol: symbol}
}

func format(kind error, op string, err error) string {
	switch {
	case op == "" && err == nil:
		return kind.Error()
	case err == nil:
		return fmt.Sprintf("%s: %s", kind, op)
	case op == "":
		return fmt.Sprintf("%s: %v", kind, err)
	default:
		return fmt.Sprintf("%s: %s: %v", kind, op, err)
	}
}
