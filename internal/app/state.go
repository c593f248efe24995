package service

// State is the engine's persistence state machine position.
type State int

// Engine states. Ordinals feed the engine_state gauge.
const (
	// StateIdle means in-memory and durable state agree (or nothing loaded).
	StateIdle State = iota
	// StateLoading means a record set load is in flight.
	StateLoading
	// StateUnsaved means in-memory edits are waiting out the debounce window.
	StateUnsaved
	// StateSaving means a save is in flight.
	StateSaving
	// StateError means the last load/save/clear failed; retry is manual.
	StateError
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateUnsaved:
		return "unsaved"
	case StateSaving:
		return "saving"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// FailKind names the operation behind a StateError.
type FailKind string

// Failure kinds.
const (
	FailNone  FailKind = ""
	FailLoad  FailKind = "load"
	FailSave  FailKind = "save"
	FailClear FailKind = "clear"
)
