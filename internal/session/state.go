// Package session drives the monitored tabs: connecting, polling the active
// view of the foreground tab and turning each result into a display frame.
// The controller is owned by one goroutine; only PollRequest.Run,
// ConnectRequest.Run and ActionRequest.Run may be called from others.
package session

// State is the lifecycle state of one tab.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	// PollingFirst means the next result is shown raw and becomes the
	// diff baseline.
	PollingFirst
	PollingSteady
	// Reconnecting means the connection broke; the next tick resets it.
	Reconnecting
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case PollingFirst:
		return "polling (first)"
	case PollingSteady:
		return "polling"
	case Reconnecting:
		return "reconnecting"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Live reports whether the tab holds a usable connection.
func (s State) Live() bool {
	return s == Connected || s == PollingFirst || s == PollingSteady
}
