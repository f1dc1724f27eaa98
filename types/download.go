package types

// DownloadState represents the last known lifecycle state reported by the download engine
type DownloadState string

const (
	DownloadStateNothing     DownloadState = "nothing"
	DownloadStatePending     DownloadState = "pending"
	DownloadStateDownloading DownloadState = "downloading"
	DownloadStatePaused      DownloadState = "paused"
	DownloadStateDone        DownloadState = "done"
	DownloadStateFailed      DownloadState = "failed"
	DownloadStateStopped     DownloadState = "stopped"
)

// DownloadData is the descriptive metadata of a tracked work
type DownloadData struct {
	Source      string   `json:"source,omitempty"`
	Name        string   `json:"name"`
	Author      string   `json:"author,omitempty"`
	PosterURL   string   `json:"posterUrl,omitempty"`
	Rating      *int     `json:"rating,omitempty"`
	PeopleVoted *int     `json:"peopleVoted,omitempty"`
	Views       *int     `json:"views,omitempty"`
	Synopsis    string   `json:"synopsis,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	APIName     string   `json:"apiName"`
}

// DownloadProgress is the progress payload emitted by the download engine.
// ETA is evaluated lazily by the consumer.
type DownloadProgress struct {
	Count int           `json:"count"`
	Total int           `json:"total"`
	State DownloadState `json:"state"`
	ETA   func() string `json:"-"`
}

// EstimatedTime evaluates the producer supplied ETA, if any
func (p DownloadProgress) EstimatedTime() string {
	if p.ETA == nil {
		return ""
	}
	return p.ETA()
}

// ProgressEvent carries a progress update for one work
type ProgressEvent struct {
	ID       int
	Progress DownloadProgress
}

// MetadataEvent carries a metadata update for one work
type MetadataEvent struct {
	ID   int
	Data DownloadData
}

// RefreshEvent signals that the engine's data changed wholesale. ID is advisory.
type RefreshEvent struct {
	ID int
}

// DownloadEntry is the registry's record of one tracked work
type DownloadEntry struct {
	ID int `json:"id"`
	DownloadData
	DownloadedCount int           `json:"downloadedCount"`
	DownloadedTotal int           `json:"downloadedTotal"`
	ETA             string        `json:"eta"`
	State           DownloadState `json:"state"`
	Generating      bool          `json:"generating"`
}

// Clone returns a copy that shares no mutable memory with e
func (e DownloadEntry) Clone() DownloadEntry {
	c := e
	if e.Tags != nil {
		c.Tags = append([]string(nil), e.Tags...)
	}
	c.Rating = cloneInt(e.Rating)
	c.PeopleVoted = cloneInt(e.PeopleVoted)
	c.Views = cloneInt(e.Views)
	return c
}

// Percentage returns downloaded/total in the range 0-100, or 0 when the total is unknown
func (e DownloadEntry) Percentage() float64 {
	if e.DownloadedTotal <= 0 {
		return 0
	}
	return float64(e.DownloadedCount) / float64(e.DownloadedTotal) * 100
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
