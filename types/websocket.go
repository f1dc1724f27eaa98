package types

import "time"

// SnapshotMessage represents a WebSocket snapshot update message
type SnapshotMessage struct {
	View      View              `json:"view"`
	Type      string            `json:"type"` // "snapshot", "error"
	Downloads *DownloadSnapshot `json:"downloads,omitempty"`
	Library   *LibrarySnapshot  `json:"library,omitempty"`
	Message   string            `json:"message,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
