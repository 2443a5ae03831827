package model

import "fmt"

// Action is the discrete trading decision for a timestep.
// The numeric values are part of the decision contract (strategies and
// remote models answer with them); keep both the values and the names
// stable, the names end up in CSV output.
type Action int

const (
	ActionHold Action = 0
	ActionBuy  Action = 1
	ActionSell Action = 2
)

func (a Action) String() string {
	switch a {
	case ActionHold:
		return "HOLD"
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(a))
	}
}

// Valid reports whether a is one of the three defined actions.
func (a Action) Valid() bool {
	return a == ActionHold || a == ActionBuy || a == ActionSell
}

// ParseAction maps the wire names (and their lowercase forms) back to
// actions.
func ParseAction(s string) (Action, error) {
	switch s {
	case "HOLD", "hold":
		return ActionHold, nil
	case "BUY", "buy":
		return ActionBuy, nil
	case "SELL", "sell":
		return ActionSell, nil
	default:
		return ActionHold, fmt.Errorf("unknown action %q", s)
	}
}
