package door

// Position is derived from the two sensors on every query and never stored
type Position int

const (
	InTransition Position = iota
	Down
	Up
)

func (p Position) String() string {
	switch p {
	case Down:
		return "down"
	case Up:
		return "up"
	default:
		return "in_transition"
	}
}

// derivePosition applies the fixed precedence: Down, then Up, else InTransition
func derivePosition(down bool, up bool) Position {
	switch {
	case down:
		return Down
	case up:
		return Up
	default:
		return InTransition
	}
}
