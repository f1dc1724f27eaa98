package types

import (
	"fmt"
	"strings"
)

// ResultCached is a cached catalog result shown in the library view
type ResultCached struct {
	ID            string   `json:"id"`
	Source        string   `json:"source"`
	Name          string   `json:"name"`
	Author        string   `json:"author,omitempty"`
	PosterURL     string   `json:"poster,omitempty"`
	Rating        *int     `json:"rating,omitempty"`
	TotalChapters int      `json:"totalChapters"`
	CachedTime    int64    `json:"cachedTime"`
	Synopsis      string   `json:"synopsis,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	APIName       string   `json:"apiName"`
}

// ReadType is the bookmark classification of a library entry
type ReadType int

const (
	ReadTypeNone ReadType = iota
	ReadTypeReading
	ReadTypeOnHold
	ReadTypePlanToRead
	ReadTypeCompleted
	ReadTypeDropped
)

var readTypeNames = map[ReadType]string{
	ReadTypeNone:       "none",
	ReadTypeReading:    "reading",
	ReadTypeOnHold:     "on-hold",
	ReadTypePlanToRead: "plan-to-read",
	ReadTypeCompleted:  "completed",
	ReadTypeDropped:    "dropped",
}

func (r ReadType) String() string {
	if name, ok := readTypeNames[r]; ok {
		return name
	}
	return fmt.Sprintf("read-type(%d)", int(r))
}

// PrefValue is the integer stored in persistence for this classification
func (r ReadType) PrefValue() int {
	return int(r)
}

// ParseReadType accepts either the name or the stored integer value
func ParseReadType(s string) (ReadType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for rt, name := range readTypeNames {
		if name == s || fmt.Sprint(int(rt)) == s {
			return rt, nil
		}
	}
	return ReadTypeNone, fmt.Errorf("unknown read type %q", s)
}
