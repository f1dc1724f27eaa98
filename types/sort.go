package types

import (
	"fmt"
	"strings"
)

// SortMethod selects the ordering applied to a snapshot
type SortMethod int

const (
	SortDefault SortMethod = iota
	SortAlpha
	SortReverseAlpha
	SortDownloadSize
	SortReverseDownloadSize
	SortDownloadPercentage
	SortReverseDownloadPercentage
	SortLastAccess
)

var sortMethodNames = map[SortMethod]string{
	SortDefault:                   "default",
	SortAlpha:                     "alpha",
	SortReverseAlpha:              "reverse-alpha",
	SortDownloadSize:              "download-size",
	SortReverseDownloadSize:       "reverse-download-size",
	SortDownloadPercentage:        "download-percentage",
	SortReverseDownloadPercentage: "reverse-download-percentage",
	SortLastAccess:                "last-access",
}

func (m SortMethod) String() string {
	if name, ok := sortMethodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("sort(%d)", int(m))
}

// ParseSortMethod accepts either the name or the integer value
func ParseSortMethod(s string) (SortMethod, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range sortMethodNames {
		if name == s || fmt.Sprint(int(m)) == s {
			return m, nil
		}
	}
	return SortDefault, fmt.Errorf("unknown sort method %q", s)
}

// View names one of the published snapshot streams
type View string

const (
	ViewDownloads View = "downloads"
	ViewLibrary   View = "library"
)

// DownloadSnapshot is an immutable, sorted copy of the registry
type DownloadSnapshot struct {
	Entries    []DownloadEntry `json:"entries"`
	SortMethod SortMethod      `json:"sortMethod"`
}

// LibrarySnapshot is the sorted library view for one read state
type LibrarySnapshot struct {
	Entries    []ResultCached `json:"entries"`
	SortMethod SortMethod     `json:"sortMethod"`
	ReadState  ReadType       `json:"readState"`
}
