package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/score-tracker/internal/domain"
	"github.com/score-tracker/internal/testutil"
)

func startHub(t *testing.T, origins []string) (*Hub, *httptest.Server) {
	t.Helper()
	logger := testutil.NopLogger()
	hub := NewHub(origins, logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, logger, w, r)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorilla.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func subscribe(t *testing.T, hub *Hub, conn *gorilla.Conn, topic string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, Topic: topic}))
	ack := readMessage(t, conn)
	require.Equal(t, MessageTypeSubscribed, ack["type"])
	require.Eventually(t, func() bool {
		return hub.GetSubscriberCount(topic) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLeaderboardSubscribersReceiveSnapshots(t *testing.T) {
	hub, srv := startHub(t, nil)
	conn := dial(t, srv)

	subscribe(t, hub, conn, LeaderboardTopic)

	hub.BroadcastLeaderboardUpdate([]domain.PlayerRecord{
		{ID: "1", PlayerName: "alice", Score: 100, TimeTaken: 12.5},
	})

	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeLeaderboardUpdate, msg["type"])
	assert.Equal(t, LeaderboardTopic, msg["topic"])

	data := msg["data"].(map[string]interface{})
	entries := data["entries"].([]interface{})
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	assert.Equal(t, "alice", entry["playerName"])
	assert.Equal(t, float64(100), entry["score"])
	assert.NotContains(t, entry, "password")
}

func TestPlayerUpdatesGoOnlyToThatPlayer(t *testing.T) {
	hub, srv := startHub(t, nil)
	alice := dial(t, srv)
	bob := dial(t, srv)

	subscribe(t, hub, alice, "alice")
	subscribe(t, hub, bob, "bob")

	hub.BroadcastPlayerUpdate(domain.PlayerScore{PlayerName: "alice", Score: 7, TimeTaken: 3.5})

	msg := readMessage(t, alice)
	assert.Equal(t, MessageTypePlayerUpdate, msg["type"])
	data := msg["data"].(map[string]interface{})
	assert.Equal(t, "alice", data["playerName"])
	assert.Equal(t, 3.5, data["timeTaken"])

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err)
}

func TestPingPong(t *testing.T) {
	_, srv := startHub(t, nil)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypePing}))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypePong, msg["type"])
}

func TestSubscribeWithoutTopic(t *testing.T) {
	_, srv := startHub(t, nil)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe}))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, msg["type"])
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, srv := startHub(t, nil)
	conn := dial(t, srv)
	subscribe(t, hub, conn, LeaderboardTopic)
	assert.Equal(t, 1, hub.GetTotalConnections())

	conn.Close()

	assert.Eventually(t, func() bool {
		return hub.GetTotalConnections() == 0 && hub.GetTopicCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRejectsUnknownOrigin(t *testing.T) {
	_, srv := startHub(t, []string{"http://localhost:5173"})
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	header := http.Header{}
	header.Set("Origin", "http://evil.example.com")
	_, resp, err := gorilla.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://localhost:5173")
	conn, _, err := gorilla.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}
