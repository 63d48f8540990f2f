package eventmodels

import "fmt"

var SymbolNotSetErr = fmt.Errorf("symbol is not set")
var InvalidStrikeErr = fmt.Errorf("strike must be a positive number")
var UnknownOptionTypeErr = fmt.Errorf("option type must start with 'C' or 'P'")
var ExpirationNotInFutureErr = fmt.Errorf("expiration date must be in the future")
var InvalidEntryPriceErr = fmt.Errorf("entry price must be a positive number")
var InvalidStopPriceErr = fmt.Errorf("stop price must be a non negative number")

// ParseError is returned when a chat message cannot be converted into a
// TradeSignal. It keeps the original message for auditing.
type ParseError struct {
	Reason     string
	RawMessage string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse alert: %s: %q", e.Reason, e.RawMessage)
}

func NewParseError(reason string, rawMessage string) *ParseError {
	return &ParseError{
		Reason:     reason,
		RawMessage: rawMessage,
	}
}
