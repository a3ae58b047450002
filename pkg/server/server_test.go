package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"evmwallet/pkg/history"
	"evmwallet/pkg/provider"
	"evmwallet/pkg/wallet"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	sync := wallet.NewSynchronizer(provider.New(nil), time.Minute)
	hist := history.NewClient("http://127.0.0.1:0", "")
	return NewServer(sync, hist)
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	assert.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "connecting", body["status"])

	state, ok := body["state"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, false, state["connected"])
}

func TestHistoryEndpointRequiresConnection(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/history")
	assert.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestWebsocketInitialFrame(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]interface{}
	assert.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "initial", frame["type"])
}
