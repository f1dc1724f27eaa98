package services

import "bookshelf/types"

// SnapshotPublisher holds the latest snapshot of each view
type SnapshotPublisher struct {
	downloads *Observable[types.DownloadSnapshot]
	library   *Observable[types.LibrarySnapshot]
}

// NewSnapshotPublisher creates a publisher with no snapshots yet
func NewSnapshotPublisher() *SnapshotPublisher {
	return &SnapshotPublisher{
		downloads: NewObservable[types.DownloadSnapshot](),
		library:   NewObservable[types.LibrarySnapshot](),
	}
}

// Downloads is the live download view
func (p *SnapshotPublisher) Downloads() *Observable[types.DownloadSnapshot] {
	return p.downloads
}

// Library is the most recently loaded library view
func (p *SnapshotPublisher) Library() *Observable[types.LibrarySnapshot] {
	return p.library
}

// PublishDownloads stores snap unless a newer registry version was already published
func (p *SnapshotPublisher) PublishDownloads(version uint64, snap types.DownloadSnapshot) bool {
	return p.downloads.Publish(version, snap)
}

// PublishLibrary stores snap as the latest library view
func (p *SnapshotPublisher) PublishLibrary(snap types.LibrarySnapshot) {
	p.library.Set(snap)
}

// Close ends every subscription of both views
func (p *SnapshotPublisher) Close() {
	p.downloads.Close()
	p.library.Close()
}
