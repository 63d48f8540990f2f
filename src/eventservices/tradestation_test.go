package eventservices

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradelab/discord-trading/src/config"
	"github.com/tradelab/discord-trading/src/eventmodels"
)

func TestOptionSymbol(t *testing.T) {
	t.Run("call", func(t *testing.T) {
		symbol := OptionSymbol(&eventmodels.TradeSignal{
			Symbol:         "AAPL",
			Strike:         250.0,
			OptionType:     eventmodels.Call,
			ExpirationDate: time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC),
		})

		assert.Equal(t, "AAPL  251010C0250000", symbol)
	})

	t.Run("put with fractional strike", func(t *testing.T) {
		symbol := OptionSymbol(&eventmodels.TradeSignal{
			Symbol:         "SPY",
			Strike:         472.5,
			OptionType:     eventmodels.Put,
			ExpirationDate: time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC),
		})

		assert.Equal(t, "SPY   260116P0472500", symbol)
	})
}

func TestTradeStationClient(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		_, err := NewTradeStationClient(context.Background(), config.TradeStationConfig{})
		assert.Error(t, err)
	})

	t.Run("submit bracket order posts an OCO group", func(t *testing.T) {
		var orderPayload map[string]interface{}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/security/authorize":
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]interface{}{
					"access_token": "test-token",
					"token_type":   "Bearer",
					"expires_in":   3600,
				})
			case "/order/groups":
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&orderPayload))

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]interface{}{"Status": "Received"})
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer server.Close()

		client, err := NewTradeStationClient(context.Background(), config.TradeStationConfig{
			BaseURL:      server.URL,
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RefreshToken: "refresh-token",
			AccountKey:   "SIM12345",
		})
		require.NoError(t, err)

		signal := &eventmodels.TradeSignal{
			Symbol:         "AAPL",
			Strike:         250.0,
			OptionType:     eventmodels.Call,
			ExpirationDate: time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC),
			EntryPrice:     1.29,
			StopPrice:      1.00,
		}

		response, err := client.SubmitBracketOrder(context.Background(), signal, 1)
		require.NoError(t, err)
		assert.Equal(t, "Received", response["Status"])

		orders, ok := orderPayload["Orders"].([]interface{})
		require.True(t, ok)
		require.Len(t, orders, 2)

		primary := orders[0].(map[string]interface{})
		assert.Equal(t, "SIM12345", primary["AccountKey"])
		assert.Equal(t, "AAPL  251010C0250000", primary["Symbol"])
		assert.Equal(t, "Buy", primary["OrderAction"])
		assert.Equal(t, "Limit", primary["OrderType"])
		assert.Equal(t, 1.29, primary["LimitPrice"])

		secondary := orders[1].(map[string]interface{})
		assert.Equal(t, "Sell", secondary["OrderAction"])
		assert.Equal(t, "Stop", secondary["OrderType"])
		assert.Equal(t, 1.00, secondary["StopPrice"])
	})

	t.Run("broker error status surfaces as error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/security/authorize" {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]interface{}{
					"access_token": "test-token",
					"token_type":   "Bearer",
					"expires_in":   3600,
				})
				return
			}

			http.Error(w, "insufficient buying power", http.StatusBadRequest)
		}))
		defer server.Close()

		client, err := NewTradeStationClient(context.Background(), config.TradeStationConfig{
			BaseURL:      server.URL,
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RefreshToken: "refresh-token",
			AccountKey:   "SIM12345",
		})
		require.NoError(t, err)

		signal := &eventmodels.TradeSignal{
			Symbol:         "AAPL",
			Strike:         250.0,
			OptionType:     eventmodels.Call,
			ExpirationDate: time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC),
			EntryPrice:     1.29,
			StopPrice:      1.00,
		}

		_, err = client.SubmitBracketOrder(context.Background(), signal, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insufficient buying power")
	})
}
