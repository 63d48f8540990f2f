package eventservices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/tradelab/discord-trading/src/config"
	"github.com/tradelab/discord-trading/src/eventmodels"
)

// TradeStationClient talks to the TradeStation REST API. Authentication uses
// the OAuth2 refresh-token grant; the oauth2 transport caches the access
// token and refreshes it before expiry.
type TradeStationClient struct {
	baseURL    string
	accountKey string
	httpClient *http.Client
}

func NewTradeStationClient(ctx context.Context, cfg config.TradeStationConfig) (*TradeStationClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("NewTradeStationClient: missing OAuth credentials")
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  fmt.Sprintf("%s/security/authorize", baseURL),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	httpClient := oauth2.NewClient(ctx, conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}))
	httpClient.Timeout = 10 * time.Second

	return &TradeStationClient{
		baseURL:    baseURL,
		accountKey: cfg.AccountKey,
		httpClient: httpClient,
	}, nil
}

// OptionSymbol builds the OSI symbol for a signal: root padded to 6
// characters, YYMMDD expiry, C/P, and the strike formatted to three decimals
// with the point removed.
func OptionSymbol(signal *eventmodels.TradeSignal) string {
	root := fmt.Sprintf("%-6s", signal.Symbol)
	expiry := signal.ExpirationDate.Format("060102")

	typeCode := "C"
	if signal.OptionType == eventmodels.Put {
		typeCode = "P"
	}

	strike := strings.Replace(fmt.Sprintf("%08.3f", signal.Strike), ".", "", 1)

	return fmt.Sprintf("%s%s%s%s", root, expiry, typeCode, strike)
}

// SubmitBracketOrder places a limit buy-to-open order and a linked stop-loss
// sell order as one OCO group. The broker's decoded response is returned on
// success.
func (c *TradeStationClient) SubmitBracketOrder(ctx context.Context, signal *eventmodels.TradeSignal, quantity int) (map[string]interface{}, error) {
	optionSymbol := OptionSymbol(signal)

	primary := map[string]interface{}{
		"AccountKey":  c.accountKey,
		"Symbol":      optionSymbol,
		"Quantity":    quantity,
		"OrderAction": "Buy",
		"OrderType":   "Limit",
		"LimitPrice":  signal.EntryPrice,
		"TimeInForce": "Day",
		"Route":       "AUTO",
	}

	secondary := map[string]interface{}{
		"AccountKey":  c.accountKey,
		"Symbol":      optionSymbol,
		"Quantity":    quantity,
		"OrderAction": "Sell",
		"OrderType":   "Stop",
		"StopPrice":   signal.StopPrice,
		"TimeInForce": "Day",
		"Route":       "AUTO",
	}

	payload := map[string]interface{}{
		"Orders": []interface{}{primary, secondary},
	}

	log.Infof("TradeStationClient.SubmitBracketOrder: submitting OCO group for %s", optionSymbol)

	return c.request(ctx, http.MethodPost, "order/groups", payload)
}

// GetAccount fetches the account details for the configured account key.
func (c *TradeStationClient) GetAccount(ctx context.Context) (map[string]interface{}, error) {
	body, err := c.requestRaw(ctx, http.MethodGet, "user/accounts", nil)
	if err != nil {
		return nil, err
	}

	var accounts []map[string]interface{}
	if err := json.Unmarshal(body, &accounts); err != nil {
		return nil, fmt.Errorf("GetAccount: failed to parse response: %w", err)
	}

	for _, account := range accounts {
		if account["AccountKey"] == c.accountKey {
			return account, nil
		}
	}

	return nil, fmt.Errorf("GetAccount: account %s not found in response", c.accountKey)
}

func (c *TradeStationClient) request(ctx context.Context, method string, path string, payload interface{}) (map[string]interface{}, error) {
	body, err := c.requestRaw(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	response := map[string]interface{}{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, fmt.Errorf("TradeStationClient.request: failed to parse response: %w", err)
		}
	}

	return response, nil
}

func (c *TradeStationClient) requestRaw(ctx context.Context, method string, path string, payload interface{}) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("TradeStationClient.requestRaw: failed to marshal payload: %w", err)
		}

		reqBody = bytes.NewReader(data)
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimPrefix(path, "/"))

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("TradeStationClient.requestRaw: failed to create request: %w", err)
	}

	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TradeStationClient.requestRaw: %s %s failed: %w", method, path, err)
	}

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("TradeStationClient.requestRaw: failed to read response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("TradeStationClient.requestRaw: %s %s returned %s: %s", method, path, res.Status, string(body))
	}

	return body, nil
}
