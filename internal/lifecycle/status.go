package lifecycle

// State is the connection state of the local peer.
type State int

const (
	Idle State = iota
	Connecting
	Connected
	Disconnected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

const (
	ColorIdle       = "#A0A0A0"
	ColorConnecting = "#D1C417"
	ColorConnected  = "#22C55E"
)

// Status is what the status indicator displays for a state.
type Status struct {
	State State
	Label string
	Color string
}

func StatusFor(s State) Status {
	switch s {
	case Connecting:
		return Status{State: s, Label: "Connecting ...", Color: ColorConnecting}
	case Connected:
		return Status{State: s, Label: "Connected ...", Color: ColorConnected}
	default:
		return Status{State: s, Label: "Ready to connect", Color: ColorIdle}
	}
}
