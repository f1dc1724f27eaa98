package services

import (
	"sync/atomic"
	"testing"

	"bookshelf/engine"
	"bookshelf/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionsApplyEngineEvents(t *testing.T) {
	reg, pub, eng := newTestRegistry(t)
	subs := Subscribe(eng, reg, 8)
	defer subs.Close()

	eng.UpdateMetadata(1, types.DownloadData{Name: "A", APIName: "api"})
	require.Eventually(t, func() bool { return reg.Len() == 1 }, waitFor, tick)

	eng.UpdateProgress(1, 10, 100, types.DownloadStateDownloading)
	require.Eventually(t, func() bool {
		e, _ := reg.Entry(1)
		return e.DownloadedCount == 10
	}, waitFor, tick)

	snap := published(t, pub)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, 100, snap.Entries[0].DownloadedTotal)
}

func TestSubscriptionsInitialRefresh(t *testing.T) {
	reg, _, eng := newTestRegistry(t)
	eng.UpdateMetadata(1, types.DownloadData{Name: "A", APIName: "api"})
	eng.UpdateMetadata(2, types.DownloadData{Name: "B", APIName: "api"})
	eng.UpdateProgress(1, 5, 10, types.DownloadStatePaused)

	subs := Subscribe(eng, reg, 8)
	defer subs.Close()

	require.Eventually(t, func() bool { return reg.Len() == 1 }, waitFor, tick)
	_, ok := reg.Entry(2)
	assert.False(t, ok)
}

func TestSubscriptionsRefreshEvent(t *testing.T) {
	reg, _, eng := newTestRegistry(t)
	subs := Subscribe(eng, reg, 8)
	defer subs.Close()

	eng.UpdateMetadata(1, types.DownloadData{Name: "A", Author: "X", APIName: "api"})
	eng.UpdateProgress(1, 1, 2, types.DownloadStateDownloading)
	require.Eventually(t, func() bool { return reg.Len() == 1 }, waitFor, tick)

	require.NoError(t, eng.DeleteWork(t.Context(), "X", "A", "api"))
	require.Eventually(t, func() bool { return reg.Len() == 0 }, waitFor, tick)
}

func TestSubscriptionsClose(t *testing.T) {
	reg, _, eng := newTestRegistry(t)
	subs := Subscribe(eng, reg, 8)

	progressBus := eng.ProgressChanged().(*engine.Bus[types.ProgressEvent])
	dataBus := eng.DataChanged().(*engine.Bus[types.MetadataEvent])
	refreshBus := eng.DataRefreshed().(*engine.Bus[types.RefreshEvent])
	assert.Equal(t, 1, progressBus.Len())
	assert.Equal(t, 1, dataBus.Len())
	assert.Equal(t, 1, refreshBus.Len())

	subs.Close()
	subs.Close()

	assert.Equal(t, 0, progressBus.Len())
	assert.Equal(t, 0, dataBus.Len())
	assert.Equal(t, 0, refreshBus.Len())

	eng.UpdateMetadata(1, types.DownloadData{Name: "A", APIName: "api"})
	subs.RequestRefresh()
	assert.Equal(t, 0, reg.Len())
}

func TestEventQueueOverflowStillApplies(t *testing.T) {
	gate := make(chan struct{})
	var applied atomic.Int32
	q := newEventQueue("test", 1, func(int) {
		<-gate
		applied.Add(1)
	})

	for i := 0; i < 5; i++ {
		q.enqueue(i)
	}
	close(gate)
	q.close()

	assert.Equal(t, int32(5), applied.Load())

	q.enqueue(6)
	q.close()
	assert.Equal(t, int32(5), applied.Load())
}

func TestEventQueueAppliesInOrder(t *testing.T) {
	var got []int
	q := newEventQueue("ordered", 16, func(v int) { got = append(got, v) })

	for i := 0; i < 10; i++ {
		q.enqueue(i)
	}
	q.close()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}
