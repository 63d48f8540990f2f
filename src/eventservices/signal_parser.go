package eventservices

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tradelab/discord-trading/src/eventmodels"
)

var markupRegexp = regexp.MustCompile(`<[^>]+>`)

// One line, fixed left-to-right order, case-insensitive:
// SYMBOL - $STRIKE CALLS|PUTS EXPIRATION <date> $ENTRY STOP LOSS AT $STOP
var alertRegexp = regexp.MustCompile(`(?i)(?P<symbol>[A-Za-z]+)\s*-\s*\$(?P<strike>[0-9]+(?:\.[0-9]+)?)\s*(?P<otype>CALLS?|PUTS?)\s*EXPIRATION\s*(?P<expiry>[0-9/\-]+)\s*\$(?P<entry>[0-9]+(?:\.[0-9]+)?)\s*STOP\s*LOSS\s*AT\s*\$(?P<stop>[0-9]+(?:\.[0-9]+)?)`)

// ParseAlertMessage converts a raw chat message into a TradeSignal. Parsing
// is deterministic: the same message always yields the same signal. Failures
// return an *eventmodels.ParseError carrying the original text.
func ParseAlertMessage(message string) (*eventmodels.TradeSignal, error) {
	return parseAlertMessageAt(message, today())
}

func parseAlertMessageAt(message string, today time.Time) (*eventmodels.TradeSignal, error) {
	// Remove inline mention/emoji tags and collapse whitespace
	cleaned := markupRegexp.ReplaceAllString(message, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	m := alertRegexp.FindStringSubmatch(cleaned)
	if m == nil {
		return nil, eventmodels.NewParseError("message does not match expected pattern", message)
	}

	groups := make(map[string]string)
	for i, name := range alertRegexp.SubexpNames() {
		if name != "" {
			groups[name] = m[i]
		}
	}

	expiration, err := normalizeExpiration(groups["expiry"], today)
	if err != nil {
		return nil, eventmodels.NewParseError(err.Error(), message)
	}

	optionType, err := normalizeOptionType(groups["otype"])
	if err != nil {
		return nil, eventmodels.NewParseError(err.Error(), message)
	}

	strike, err := strconv.ParseFloat(groups["strike"], 64)
	if err != nil {
		return nil, eventmodels.NewParseError(fmt.Sprintf("invalid strike: %v", err), message)
	}

	entry, err := strconv.ParseFloat(groups["entry"], 64)
	if err != nil {
		return nil, eventmodels.NewParseError(fmt.Sprintf("invalid entry price: %v", err), message)
	}

	stop, err := strconv.ParseFloat(groups["stop"], 64)
	if err != nil {
		return nil, eventmodels.NewParseError(fmt.Sprintf("invalid stop price: %v", err), message)
	}

	signal := &eventmodels.TradeSignal{
		Symbol:         strings.ToUpper(groups["symbol"]),
		Strike:         strike,
		OptionType:     optionType,
		ExpirationDate: expiration,
		EntryPrice:     entry,
		StopPrice:      stop,
		RawMessage:     message,
	}

	if err := signal.Validate(today); err != nil {
		return nil, eventmodels.NewParseError(err.Error(), message)
	}

	return signal, nil
}

func normalizeOptionType(token string) (eventmodels.OptionType, error) {
	token = strings.ToLower(strings.TrimSpace(token))

	if strings.HasPrefix(token, "c") {
		return eventmodels.Call, nil
	}

	if strings.HasPrefix(token, "p") {
		return eventmodels.Put, nil
	}

	return "", eventmodels.UnknownOptionTypeErr
}

// normalizeExpiration accepts ISO dates, MM/DD and MM/DD/YY. A two-digit year
// expands to 2000+YY; a missing year defaults to today's year. A date on or
// before today rolls forward one year, which handles alerts quoting an expiry
// whose month/day has already passed this year.
func normalizeExpiration(expiry string, today time.Time) (time.Time, error) {
	dt, parseErr := time.Parse("2006-01-02", expiry)
	if parseErr != nil {
		parts := strings.Split(expiry, "/")
		if len(parts) != 2 && len(parts) != 3 {
			return time.Time{}, fmt.Errorf("invalid expiration format: %s", expiry)
		}

		month, err := strconv.Atoi(parts[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid expiration month: %s", expiry)
		}

		day, err := strconv.Atoi(parts[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid expiration day: %s", expiry)
		}

		year := today.Year()
		if len(parts) == 3 {
			year, err = strconv.Atoi(parts[2])
			if err != nil {
				return time.Time{}, fmt.Errorf("invalid expiration year: %s", expiry)
			}

			if year < 100 {
				year += 2000
			}
		}

		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, fmt.Errorf("invalid expiration date: %s", expiry)
		}

		dt = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	}

	if !dt.After(today) {
		dt = time.Date(dt.Year()+1, dt.Month(), dt.Day(), 0, 0, 0, 0, time.UTC)
	}

	return dt, nil
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
