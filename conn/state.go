package conn

// State is the connection lifecycle state, owned exclusively by the Manager.
type State int

const (
	// StateIdle: no channel and no pending attempt.
	StateIdle State = iota
	// StateConnecting: a dial is in flight.
	StateConnecting
	// StateOpen: the channel is live.
	StateOpen
	// StateRetryWait: closed, a backoff-delayed reconnect is scheduled.
	StateRetryWait
	// StateGone: reconnect attempts exhausted; only an explicit Connect
	// recovers from here.
	StateGone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateRetryWait:
		return "retry-wait"
	case StateGone:
		return "gone"
	default:
		return "unknown"
	}
}
