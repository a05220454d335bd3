package domain

// Signal is the signed trading decision produced by a policy.
type Signal int

const (
	SignalHold Signal = 0
	SignalBuy  Signal = 1
	SignalSell Signal = -SignalBuy
)

// Action is the order direction sent to the exchange.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Action returns the order direction for s. ok is false for HOLD and for any
// value outside the three-way encoding.
func (s Signal) Action() (Action, bool) {
	switch s {
	case SignalBuy:
		return ActionBuy, true
	case SignalSell:
		return ActionSell, true
	default:
		return "", false
	}
}

// String returns "BUY", "SELL" or "HOLD".
func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// SignalOf maps a raw momentum-like value onto the decision encoding by sign.
func SignalOf(v float64) Signal {
	switch {
	case v > 0:
		return SignalBuy
	case v < 0:
		return SignalSell
	default:
		return SignalHold
	}
}
