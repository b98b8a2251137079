package common

import (
	"fmt"
	"strings"
)

// TradeSide order-book role of a fill, decides which fee rate applies
type TradeSide int

const (
	MAKER TradeSide = iota
	TAKER
)

func (side TradeSide) String() string {
	switch side {
	case MAKER:
		return "maker"
	case TAKER:
		return "taker"
	default:
		return "unknown"
	}
}

func (side TradeSide) Valid() bool {
	return side == MAKER || side == TAKER
}

// ParseTradeSide accepts "maker" / "taker" in any case.
func ParseTradeSide(s string) (TradeSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "maker":
		return MAKER, nil
	case "taker":
		return TAKER, nil
	default:
		return TAKER, fmt.Errorf("trade side must be maker or taker, got %q", s)
	}
}
