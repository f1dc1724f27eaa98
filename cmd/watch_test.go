package cmd

import (
	"testing"

	"bookshelf/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketURL(t *testing.T) {
	got, err := socketURL("http://localhost:8080", types.ViewDownloads)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/ws/downloads", got)

	got, err = socketURL("https://example.com/shelf/", types.ViewLibrary)
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/shelf/api/ws/library", got)

	_, err = socketURL("ftp://example.com", types.ViewDownloads)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	entries := []types.DownloadEntry{
		{ID: 1, DownloadedCount: 5, DownloadedTotal: 10, State: types.DownloadStateDownloading},
		{ID: 2, DownloadedCount: 12, DownloadedTotal: 10, State: types.DownloadStateDone},
		{ID: 3, DownloadedCount: 4, DownloadedTotal: 0, State: types.DownloadStatePaused},
	}

	s := summarize(entries)
	assert.Equal(t, 3, s.Downloads)
	assert.Equal(t, 1, s.Active)
	assert.Equal(t, 15, s.Count)
	assert.Equal(t, 20, s.Total)
	assert.False(t, s.Finished())
	assert.Equal(t, "3 downloads, 1 active", s.String())

	done := summarize([]types.DownloadEntry{
		{ID: 1, DownloadedCount: 10, DownloadedTotal: 10, State: types.DownloadStateDone},
	})
	assert.True(t, done.Finished())

	assert.False(t, summarize(nil).Finished())
}
