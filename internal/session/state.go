package session

// State describes where the WhatsApp session currently is in its
// lifecycle. Transitions are owned exclusively by the Manager.
type State int

const (
	// StateAbsent means no session object exists. This is the initial
	// state and the state after any failure or disconnect.
	StateAbsent State = iota

	// StateInitializing means a handshake is in progress and no linking
	// payload has arrived yet.
	StateInitializing

	// StateAwaitingScan means a linking payload is outstanding and the
	// user has to scan it from the WhatsApp mobile app.
	StateAwaitingScan

	// StateReady means the session is authenticated and can send messages.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateInitializing:
		return "initializing"
	case StateAwaitingScan:
		return "awaiting_scan"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}
