package eventmodels

import (
	"fmt"
	"time"
)

type OptionType string

const (
	Call OptionType = "Call"
	Put  OptionType = "Put"
)

// TradeSignal is the structured form of a trade alert. It is treated as
// immutable once parsed: every component downstream of the parser shares the
// same value and none of them mutate it.
type TradeSignal struct {
	Symbol         string
	Strike         float64
	OptionType     OptionType
	ExpirationDate time.Time
	EntryPrice     float64
	StopPrice      float64
	RawMessage     string
}

func (s *TradeSignal) String() string {
	return fmt.Sprintf("%s $%.2f %s exp %s entry $%.2f stop $%.2f", s.Symbol, s.Strike, s.OptionType, s.ExpirationDate.Format("2006-01-02"), s.EntryPrice, s.StopPrice)
}

// Validate checks field-level constraints. A stop at or above the entry is
// deliberately not rejected here: it represents infinite per-unit risk and the
// risk manager is the component that rejects it.
func (s *TradeSignal) Validate(today time.Time) error {
	if s.Symbol == "" {
		return SymbolNotSetErr
	}

	if s.Strike <= 0 {
		return InvalidStrikeErr
	}

	if s.OptionType != Call && s.OptionType != Put {
		return UnknownOptionTypeErr
	}

	if !s.ExpirationDate.After(today) {
		return ExpirationNotInFutureErr
	}

	if s.EntryPrice <= 0 {
		return InvalidEntryPriceErr
	}

	if s.StopPrice < 0 {
		return InvalidStopPriceErr
	}

	return nil
}
