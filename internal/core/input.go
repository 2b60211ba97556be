package core

// Action represents a semantic preview action, abstracted from physical
// key presses. The platform layer maps keys to actions so bindings stay
// in one place.
type Action int

const (
	ActionNone    Action = iota
	ActionUp             // W, Up arrow - move selection up
	ActionDown           // S, Down arrow - move selection down
	ActionConfirm        // Enter - confirm selection
	ActionBack           // B, Escape - go back
	ActionPause          // P, Space - pause/resume the simulation
	ActionRestart        // R key - restart the simulation from the project scene
	ActionQuit           // Q, Ctrl+C - exit preview/session
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "None"
	case ActionUp:
		return "Up"
	case ActionDown:
		return "Down"
	case ActionConfirm:
		return "Confirm"
	case ActionBack:
		return "Back"
	case ActionPause:
		return "Pause"
	case ActionRestart:
		return "Restart"
	case ActionQuit:
		return "Quit"
	default:
		return "Unknown"
	}
}
