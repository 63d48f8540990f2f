package eventmodels

// Position tracks one accepted trade's contribution to total open risk. The
// risk manager owns the open-position set; positions are created when a trade
// is accepted and registered, and destroyed only by a bulk clear.
type Position struct {
	Symbol string
	Risk   float64
}
