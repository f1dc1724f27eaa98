package websocket

import (
	"context"
	"time"

	"bookshelf/types"

	"github.com/google/uuid"
)

// Source is a stream of values that replays its latest value on subscribe
type Source[T any] interface {
	Subscribe() (uuid.UUID, <-chan T)
	Unsubscribe(id uuid.UUID)
}

// Relay broadcasts every value of src to the clients of view until ctx is
// done or src is closed.
func Relay[T any](ctx context.Context, hub Hub, view types.View, src Source[T], wrap func(T) types.SnapshotMessage) {
	id, ch := src.Subscribe()
	defer src.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-ch:
			if !ok {
				return
			}
			msg := wrap(v)
			msg.View = view
			msg.Type = "snapshot"
			msg.Timestamp = time.Now()
			hub.Broadcast(msg)
		}
	}
}

// DownloadMessage wraps a download snapshot for the wire
func DownloadMessage(snap types.DownloadSnapshot) types.SnapshotMessage {
	return types.SnapshotMessage{Downloads: &snap}
}

// LibraryMessage wraps a library snapshot for the wire
func LibraryMessage(snap types.LibrarySnapshot) types.SnapshotMessage {
	return types.SnapshotMessage{Library: &snap}
}
