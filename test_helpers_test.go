package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bookshelf/cmd"
	"bookshelf/config"
	"bookshelf/types"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// TestHelper provides utilities for testing the Bookshelf server
type TestHelper struct {
	Server *httptest.Server
	App    *cmd.Server
}

// NewTestHelper starts a server on a temporary database
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	cfg := config.Config{
		DBPath:         filepath.Join(t.TempDir(), "bookshelf.db"),
		GinMode:        "test",
		CORSOrigins:    []string{"*"},
		EventQueueSize: 64,
		LibraryWorkers: 2,
	}

	app, err := cmd.NewServer(context.Background(), cfg)
	require.NoError(t, err)

	return &TestHelper{
		Server: httptest.NewServer(app.Router),
		App:    app,
	}
}

// Cleanup cleans up test resources
func (h *TestHelper) Cleanup(t *testing.T) {
	h.Server.Close()
	require.NoError(t, h.App.Close())
}

// MakeRequest makes an HTTP request to the test server
func (h *TestHelper) MakeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, h.Server.URL+path, reqBody)
	require.NoError(t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp
}

// DoJSON makes a request and unmarshals the JSON response into target
func (h *TestHelper) DoJSON(t *testing.T, method, path string, requestBody, target interface{}) *http.Response {
	t.Helper()

	resp := h.MakeRequest(t, method, path, requestBody)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if target != nil {
		require.NoError(t, json.Unmarshal(body, target), "body: %s", body)
	}

	return resp
}

// GetJSON makes a GET request and unmarshals JSON response
func (h *TestHelper) GetJSON(t *testing.T, path string, target interface{}) *http.Response {
	t.Helper()
	return h.DoJSON(t, http.MethodGet, path, nil, target)
}

// PostJSON makes a POST request with JSON body and unmarshals JSON response
func (h *TestHelper) PostJSON(t *testing.T, path string, requestBody, target interface{}) *http.Response {
	t.Helper()
	return h.DoJSON(t, http.MethodPost, path, requestBody, target)
}

// AddWork pushes metadata and progress for a work through the engine ingest endpoints
func (h *TestHelper) AddWork(t *testing.T, id int, name string, count, total int, state types.DownloadState) {
	t.Helper()

	resp := h.PostJSON(t, fmt.Sprintf("/api/engine/works/%d", id), types.DownloadData{
		Name:    name,
		Author:  "Test Author",
		APIName: "test-api",
	}, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = h.PostJSON(t, fmt.Sprintf("/api/engine/works/%d/progress", id), payload{
		"count": count,
		"total": total,
		"state": state,
	}, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

// DownloadsResponse is the body of GET /api/downloads
type DownloadsResponse struct {
	Downloads  []types.DownloadEntry `json:"downloads"`
	SortMethod string                `json:"sortMethod"`
	Total      int                   `json:"total"`
}

// WaitForDownloads polls the download list until cond holds or the timeout passes
func (h *TestHelper) WaitForDownloads(t *testing.T, timeout time.Duration, cond func(DownloadsResponse) bool) DownloadsResponse {
	t.Helper()

	var last DownloadsResponse
	require.Eventually(t, func() bool {
		last = DownloadsResponse{}
		h.GetJSON(t, "/api/downloads", &last)
		return cond(last)
	}, timeout, 10*time.Millisecond, "last response: %+v", last)
	return last
}

// ConnectWebSocket creates a WebSocket connection to the test server
func (h *TestHelper) ConnectWebSocket(t *testing.T, path string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(h.Server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

// ReadSnapshot reads the next snapshot message from conn
func ReadSnapshot(t *testing.T, conn *websocket.Conn) types.SnapshotMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg types.SnapshotMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// payload is shorthand for ad hoc JSON bodies
type payload map[string]interface{}
