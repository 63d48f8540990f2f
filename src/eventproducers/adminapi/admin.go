package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/tradelab/discord-trading/src/eventservices"
)

type statusDTO struct {
	TradingEnabled      bool    `json:"trading_enabled"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
	OpenPositions       int     `json:"open_positions"`
	TotalRisk           float64 `json:"total_risk"`
}

type positionDTO struct {
	Symbol string  `json:"symbol"`
	Risk   float64 `json:"risk"`
}

type handler struct {
	risk     *eventservices.RiskManager
	controls *eventservices.EmergencyControls
}

// SetupHandler mounts the admin routes: session status, the open-position
// list, and the manual re-arm path for the circuit breaker.
func SetupHandler(router *mux.Router, risk *eventservices.RiskManager, controls *eventservices.EmergencyControls) {
	h := &handler{
		risk:     risk,
		controls: controls,
	}

	router.HandleFunc("/status", h.status).Methods(http.MethodGet)
	router.HandleFunc("/positions", h.positions).Methods(http.MethodGet)
	router.HandleFunc("/controls/rearm", h.rearm).Methods(http.MethodPost)
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statusDTO{
		TradingEnabled:      h.controls.IsEnabled(),
		ConsecutiveFailures: h.controls.ConsecutiveFailures(),
		OpenPositions:       h.risk.OpenPositionCount(),
		TotalRisk:           h.risk.TotalRisk(),
	})
}

func (h *handler) positions(w http.ResponseWriter, r *http.Request) {
	positions := h.risk.Positions()

	dto := make([]positionDTO, 0, len(positions))
	for _, p := range positions {
		dto = append(dto, positionDTO{Symbol: p.Symbol, Risk: p.Risk})
	}

	writeJSON(w, dto)
}

func (h *handler) rearm(w http.ResponseWriter, r *http.Request) {
	log.Warn("adminapi: manual re-arm requested")

	h.controls.Rearm()

	writeJSON(w, statusDTO{
		TradingEnabled:      h.controls.IsEnabled(),
		ConsecutiveFailures: h.controls.ConsecutiveFailures(),
		OpenPositions:       h.risk.OpenPositionCount(),
		TotalRisk:           h.risk.TotalRisk(),
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("adminapi: failed to encode response: %v", err)
	}
}
