// Package encoder implements the Encoder state machine (spec §4.2): a
// raw-to-compressed pipeline stage owned by one Output. The compression
// itself is an out-of-scope external collaborator (spec §1, "concrete
// hardware encoders — only the encoder contract") — this package defines
// the Codec interface a platform encoder plugs into, the lifecycle state
// machine around it, and a PassthroughCodec used by tests and
// cmd/streampackd in place of a real hardware/software codec.
package encoder

// State is a node in the encoder's lifecycle state machine.
type State int

const (
	StateIdle State = iota
	StateConfigured
	StatePendingStart
	StateStarted
	StatePaused
	StatePendingStop
	StateStopped
	StatePendingRelease
	StateReleased
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigured:
		return "configured"
	case StatePendingStart:
		return "pending_start"
	case StateStarted:
		return "started"
	case StatePaused:
		return "paused"
	case StatePendingStop:
		return "pending_stop"
	case StateStopped:
		return "stopped"
	case StatePendingRelease:
		return "pending_release"
	case StateReleased:
		return "released"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// canTransition enforces the state machine graph drawn in spec §4.2:
// Idle -> Configured -> (PendingStart -> Started <-> Paused) -> PendingStop
// -> Stopped -> PendingRelease -> Released, with Error reachable from any
// running state and Reset (or a new Configure) returning Stopped or Error
// to Configured.
func canTransition(from, to State) bool {
	if to == StateError {
		return from != StateReleased
	}
	switch from {
	case StateIdle:
		return to == StateConfigured
	case StateConfigured:
		return to == StatePendingStart || to == StatePendingRelease
	case StatePendingStart:
		return to == StateStarted
	case StateStarted:
		return to == StatePaused || to == StatePendingStop
	case StatePaused:
		return to == StateStarted || to == StatePendingStop
	case StatePendingStop:
		return to == StateStopped
	case StateStopped:
		return to == StatePendingStart || to == StatePendingRelease || to == StateConfigured
	case StatePendingRelease:
		return to == StateReleased
	case StateError:
		return to == StateConfigured || to == StatePendingStop
	default:
		return false
	}
}
