package live

// State is the controller lifecycle phase.
type State string

const (
	// StateIdle means no session exists. Connect is allowed.
	StateIdle State = "idle"
	// StateConnecting means resources are being acquired and the
	// session handshake is in flight.
	StateConnecting State = "connecting"
	// StateLive means audio is flowing in both directions.
	StateLive State = "live"
)

// Event is emitted by Controller.Events().
type Event interface {
	liveEventType() string
}

// StateChangedEvent reports a lifecycle transition.
type StateChangedEvent struct {
	State State
}

func (e StateChangedEvent) liveEventType() string { return "state_changed" }

// ErrorEvent reports a session failure. The controller returns to idle
// after emitting it.
type ErrorEvent struct {
	Err error
}

func (e ErrorEvent) liveEventType() string { return "error" }

// VolumeEvent carries the microphone level of the most recent frame,
// in [0, 1]. Frames are dropped rather than buffered when the consumer
// lags.
type VolumeEvent struct {
	Level float64
}

func (e VolumeEvent) liveEventType() string { return "volume" }
