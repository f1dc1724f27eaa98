// Package engine defines the download engine collaborator consumed by the
// download registry, plus a small in-process implementation of it.
package engine

import (
	"context"
	"errors"

	"bookshelf/types"
)

// ErrUnknownWork is returned when an operation names a work the engine does not track
var ErrUnknownWork = errors.New("unknown work")

// Engine is the download engine as seen by the registry
type Engine interface {
	// Event streams
	ProgressChanged() EventSource[types.ProgressEvent]
	DataChanged() EventSource[types.MetadataEvent]
	DataRefreshed() EventSource[types.RefreshEvent]

	// ReadDownloadInfo calls fn while holding the engine's info lock.
	// The maps are owned by the engine and must not be modified or retained.
	ReadDownloadInfo(fn func(data map[int]types.DownloadData, progress map[int]types.DownloadProgress))

	Regenerate(ctx context.Context, id, count int, author, name, apiName string) error
	DeleteWork(ctx context.Context, author, name, apiName string) error
	Resume(ctx context.Context, id int) error
}
