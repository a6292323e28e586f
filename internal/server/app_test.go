package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Baaaki/roomchat/internal/broker"
	"github.com/Baaaki/roomchat/internal/config"
	"github.com/Baaaki/roomchat/internal/hub"
	"github.com/Baaaki/roomchat/internal/server"
	"github.com/Baaaki/roomchat/internal/service"
	"github.com/Baaaki/roomchat/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(databaseURL, redisURL string) *config.Config {
	return &config.Config{
		ServerPort:       "127.0.0.1:0",
		Environment:      "test",
		DatabaseURL:      databaseURL,
		RedisURL:         redisURL,
		AllowedOrigins:   []string{"*"},
		TimeLocation:     "UTC",
		TimeFormat:       "15:04:05",
		ClientSendBuffer: 16,
		ShutdownTimeout:  time.Second,
		RateLimitWindow:  time.Minute,
	}
}

func memoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

// startApp runs the app in the background and serves its handler on an
// httptest server. Run is cancelled and awaited on cleanup.
func startApp(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	app, err := server.New(ctx, cfg)
	require.NoError(t, err)

	runErr := make(chan error, 1)
	go func() { runErr <- app.Run(ctx) }()

	ts := httptest.NewServer(app.Handler())

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-runErr:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("app did not shut down")
		}
		ts.Close()
	})

	return ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendCommand(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	env, err := hub.NewEnvelope(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(env))
}

func readEvent(t *testing.T, conn *websocket.Conn) hub.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env hub.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestHealth(t *testing.T) {
	ts := startApp(t, testConfig(memoryDSN(), ""))

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestCORSPreflight(t *testing.T) {
	ts := startApp(t, testConfig(memoryDSN(), ""))

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/deleteMessage/abc", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Less(t, resp.StatusCode, 300)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPatch)
}

func TestSendListDeleteRoundTrip(t *testing.T) {
	ts := startApp(t, testConfig(memoryDSN(), ""))

	conn := dialWS(t, ts)
	sendCommand(t, conn, hub.CommandJoinRoom, "r1")
	sendCommand(t, conn, hub.CommandSendMessage, hub.SendMessageCommand{Username: "alice", Message: "hi", Room: "r1"})

	env := readEvent(t, conn)
	require.Equal(t, hub.EventReceiveMessage, env.Event)
	var sent service.ReceiveMessagePayload
	require.NoError(t, json.Unmarshal(env.Data, &sent))

	resp, err := ts.Client().Get(ts.URL + "/messages?room=r1")
	require.NoError(t, err)
	var history []map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	resp.Body.Close()
	require.Len(t, history, 1)
	assert.Equal(t, sent.ID, history[0]["id"])
	assert.Equal(t, sent.Timestamp, history[0]["timestamp"], "live and history timestamps share a format")

	req, err := http.NewRequest(http.MethodPatch, ts.URL+"/deleteMessage/"+sent.ID, nil)
	require.NoError(t, err)
	resp, err = ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env = readEvent(t, conn)
	assert.Equal(t, hub.EventMessageDeleted, env.Event)

	resp, err = ts.Client().Get(ts.URL + "/messages?room=r1")
	require.NoError(t, err)
	history = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	resp.Body.Close()
	assert.Empty(t, history)
}

func TestRateLimitedApp(t *testing.T) {
	testRedis := testutil.SetupTestRedis(t)
	t.Cleanup(func() { testRedis.Teardown(t) })

	cfg := testConfig(memoryDSN(), testRedis.URL)
	cfg.RateLimitMaxRequests = 2
	ts := startApp(t, cfg)

	for i := 0; i < 2; i++ {
		resp, err := ts.Client().Get(ts.URL + "/messages?room=r1")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := ts.Client().Get(ts.URL + "/messages?room=r1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Health is never limited
	resp, err = ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEventsFanOutAcrossInstances(t *testing.T) {
	testRedis := testutil.SetupTestRedis(t)
	t.Cleanup(func() { testRedis.Teardown(t) })

	dsn := memoryDSN()
	first := startApp(t, testConfig(dsn, testRedis.URL))
	second := startApp(t, testConfig(dsn, testRedis.URL))

	require.Eventually(t, func() bool {
		return testRedis.Server.PubSubNumSub(broker.Channel)[broker.Channel] == 2
	}, 3*time.Second, 10*time.Millisecond)

	listener := dialWS(t, second)
	sendCommand(t, listener, hub.CommandJoinRoom, "r1")
	// Commands on one connection are handled in order, so seeing our own
	// message proves the join is done.
	sendCommand(t, listener, hub.CommandSendMessage, hub.SendMessageCommand{Username: "bob", Message: "ready", Room: "r1"})
	env := readEvent(t, listener)
	require.Equal(t, hub.EventReceiveMessage, env.Event)

	sender := dialWS(t, first)
	sendCommand(t, sender, hub.CommandSendMessage, hub.SendMessageCommand{Username: "alice", Message: "hi", Room: "r1"})

	env = readEvent(t, listener)
	require.Equal(t, hub.EventReceiveMessage, env.Event)
	var payload service.ReceiveMessagePayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "alice", payload.Username)
	assert.Equal(t, "hi", payload.Message)

	// Both instances share the store
	resp, err := first.Client().Get(first.URL + "/messages?room=r1")
	require.NoError(t, err)
	var history []map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	resp.Body.Close()
	assert.Len(t, history, 2)
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(memoryDSN(), "redis://127.0.0.1:1")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := server.New(ctx, cfg)
	assert.Error(t, err)
}
