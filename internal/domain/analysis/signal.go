package analysis

// Signal is a trading decision: exactly one of BUY, SELL, HOLD.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Valid checks if the signal is one of the three allowed labels
func (s Signal) Valid() bool {
	switch s {
	case SignalBuy, SignalSell, SignalHold:
		return true
	}
	return false
}

// String returns string representation
func (s Signal) String() string {
	return string(s)
}

// Horizon is the forward-looking window of an analysis.
type Horizon string

const (
	HorizonShort  Horizon = "short"
	HorizonMedium Horizon = "medium"
	HorizonLong   Horizon = "long"
)

// ForwardDays maps the horizon to its fixed forward-looking day count.
func (h Horizon) ForwardDays() int {
	switch h {
	case HorizonShort:
		return 7
	case HorizonLong:
		return 180
	default:
		return 30
	}
}

// Valid checks if horizon is a known value
func (h Horizon) Valid() bool {
	switch h {
	case HorizonShort, HorizonMedium, HorizonLong:
		return true
	}
	return false
}
