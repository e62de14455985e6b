package model

// SyncStatus is the sync loop state.
type SyncStatus string

const (
	SyncStatusDisabled   SyncStatus = "disabled"
	SyncStatusConnecting SyncStatus = "connecting"
	SyncStatusSynced     SyncStatus = "synced"
)

// Mode is the user-facing connectivity mode.
type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// SyncState describes the wallet's connection to its daemon.
type SyncState struct {
	Status              SyncStatus `json:"status"`
	DaemonEndpoint      string     `json:"daemonEndpoint,omitempty"`
	LastKnownHeight     uint64     `json:"lastKnownHeight"`
	TopoHeight          uint64     `json:"topoHeight"`
	LastSyncError       string     `json:"lastSyncError,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
}

// Mode is online only once the handshake has succeeded.
func (s SyncState) Mode() Mode {
	if s.Status == SyncStatusSynced {
		return ModeOnline
	}
	return ModeOffline
}

// Degraded reports an online wallet whose last poll failed.
func (s SyncState) Degraded() bool {
	return s.Status == SyncStatusSynced && s.LastSyncError != ""
}
