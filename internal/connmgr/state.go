package connmgr

// State is the connection manager's single state value. Exactly one value
// is current at any time; only the manager's transition logic mutates it.
type State uint8

const (
	// StateHotspot: broadcasting the local setup network, waiting for
	// credentials.
	StateHotspot State = iota

	// StateConnecting: association attempt in progress.
	StateConnecting

	// StateConnected: associated. Entered momentarily on success and
	// again as the steady operating state once the first light-control
	// command has arrived.
	StateConnected

	// StateConfigBroadcast: the post-association grace period. The
	// hotspot stays up and the assigned address is re-announced so the
	// companion app can learn where the device went.
	StateConfigBroadcast

	// StateAwaitingFirstCommand: hotspot down, name advertisement up,
	// no light-control command seen yet.
	StateAwaitingFirstCommand
)

// String returns the state name used in logs, events and metrics.
func (s State) String() string {
	switch s {
	case StateHotspot:
		return "hotspot"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateConfigBroadcast:
		return "config_broadcast"
	case StateAwaitingFirstCommand:
		return "awaiting_first_command"
	default:
		return "unknown"
	}
}
