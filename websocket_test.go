package main

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"bookshelf/types"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readUntil reads snapshot messages until cond accepts one
func readUntil(t *testing.T, conn *websocket.Conn, cond func(types.SnapshotMessage) bool) types.SnapshotMessage {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msg := ReadSnapshot(t, conn)
		if cond(msg) {
			return msg
		}
	}
	t.Fatal("no matching snapshot before deadline")
	return types.SnapshotMessage{}
}

func hasDownload(id, count int) func(types.SnapshotMessage) bool {
	return func(msg types.SnapshotMessage) bool {
		if msg.Downloads == nil {
			return false
		}
		for _, e := range msg.Downloads.Entries {
			if e.ID == id && e.DownloadedCount == count {
				return true
			}
		}
		return false
	}
}

// TestWebSocketReplaysCurrentSnapshot tests that a new client gets the current view first
func TestWebSocketReplaysCurrentSnapshot(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup(t)

	helper.AddWork(t, 1, "Existing", 4, 8, types.DownloadStateDownloading)
	helper.WaitForDownloads(t, settle, func(r DownloadsResponse) bool {
		return r.Total == 1 && r.Downloads[0].DownloadedCount == 4
	})

	conn := helper.ConnectWebSocket(t, "/api/ws/downloads")
	defer conn.Close()

	msg := readUntil(t, conn, hasDownload(1, 4))
	assert.Equal(t, types.ViewDownloads, msg.View)
	assert.Equal(t, "snapshot", msg.Type)
	assert.Equal(t, "Existing", msg.Downloads.Entries[0].Name)
}

// TestWebSocketLiveUpdates tests that progress reaches connected clients
func TestWebSocketLiveUpdates(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup(t)

	conn := helper.ConnectWebSocket(t, "/api/ws/downloads")
	defer conn.Close()

	helper.AddWork(t, 5, "Live", 2, 10, types.DownloadStateDownloading)
	readUntil(t, conn, hasDownload(5, 2))

	resp := helper.PostJSON(t, "/api/engine/works/5/progress", payload{"count": 6, "total": 10}, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	msg := readUntil(t, conn, hasDownload(5, 6))
	assert.Len(t, msg.Downloads.Entries, 1)
}

// TestWebSocketLibrary tests the library socket
func TestWebSocketLibrary(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup(t)

	conn := helper.ConnectWebSocket(t, "/api/ws/library")
	defer conn.Close()

	resp := helper.PostJSON(t, "/api/library/bookmarks", payload{
		"result":    payload{"id": "r1", "name": "Dune", "apiName": "test-api"},
		"readState": "on-hold",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = helper.GetJSON(t, "/api/library/on-hold", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msg := readUntil(t, conn, func(msg types.SnapshotMessage) bool {
		return msg.Library != nil && len(msg.Library.Entries) == 1
	})
	assert.Equal(t, types.ViewLibrary, msg.View)
	assert.Nil(t, msg.Downloads)
	assert.Equal(t, types.ReadTypeOnHold, msg.Library.ReadState)
	assert.Equal(t, "Dune", msg.Library.Entries[0].Name)
}

// TestWebSocketConcurrentConnections tests that every client receives updates
func TestWebSocketConcurrentConnections(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup(t)

	numClients := 3
	connections := make([]*websocket.Conn, numClients)
	for i := range connections {
		connections[i] = helper.ConnectWebSocket(t, "/api/ws/downloads")
	}

	// Cleanup connections
	defer func() {
		for _, conn := range connections {
			conn.Close()
		}
	}()

	helper.AddWork(t, 3, "Shared", 1, 2, types.DownloadStateDownloading)

	for _, conn := range connections {
		readUntil(t, conn, hasDownload(3, 1))
	}
}

// TestWebSocketMessageFormat tests the wire format of snapshot messages
func TestWebSocketMessageFormat(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup(t)

	helper.AddWork(t, 1, "Format", 1, 4, types.DownloadStateDownloading)
	helper.WaitForDownloads(t, settle, func(r DownloadsResponse) bool {
		return r.Total == 1 && r.Downloads[0].DownloadedCount == 1
	})

	conn := helper.ConnectWebSocket(t, "/api/ws/downloads")
	defer conn.Close()

	var message map[string]interface{}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		messageType, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, messageType)

		message = nil
		require.NoError(t, json.Unmarshal(raw, &message))
		downloads, _ := message["downloads"].(map[string]interface{})
		if entries, _ := downloads["entries"].([]interface{}); len(entries) == 1 {
			break
		}
	}

	// Check required fields
	for _, field := range []string{"view", "type", "downloads", "timestamp"} {
		assert.Contains(t, message, field, "Message should contain field: %s", field)
	}
	assert.Equal(t, "downloads", message["view"])
	assert.NotContains(t, message, "library")

	downloads := message["downloads"].(map[string]interface{})
	assert.IsType(t, float64(0), downloads["sortMethod"])

	entry := downloads["entries"].([]interface{})[0].(map[string]interface{})
	for _, field := range []string{"id", "name", "apiName", "downloadedCount", "downloadedTotal", "eta", "state", "generating"} {
		assert.Contains(t, entry, field, "Entry should contain field: %s", field)
	}
}

// TestWebSocketConnectionCleanup tests that WebSocket connections are properly cleaned up
func TestWebSocketConnectionCleanup(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup(t)

	conn := helper.ConnectWebSocket(t, "/api/ws/downloads")
	require.Eventually(t, func() bool {
		return helper.App.Hub.ClientCount(types.ViewDownloads) == 1
	}, settle, 10*time.Millisecond)

	// Close connection
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return helper.App.Hub.ClientCount(types.ViewDownloads) == 0
	}, settle, 10*time.Millisecond)

	// Try to read from closed connection (should fail)
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "Reading from closed connection should fail")
}
