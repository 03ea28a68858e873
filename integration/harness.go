// Package integration runs the whole server stack against an httptest server.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nrebei2/lunarhaze/api"
	"github.com/nrebei2/lunarhaze/audit"
	"github.com/nrebei2/lunarhaze/cache"
	"github.com/nrebei2/lunarhaze/config"
	"github.com/nrebei2/lunarhaze/game/world"
	"github.com/nrebei2/lunarhaze/plugin/hook"
	"github.com/nrebei2/lunarhaze/resource"
	"github.com/nrebei2/lunarhaze/scheduler"
	"github.com/nrebei2/lunarhaze/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminKey is the admin key the test server accepts.
const AdminKey = "integration-admin-key"

// TestServer wraps a real HTTP server with every subsystem wired together.
type TestServer struct {
	DB      *gorm.DB
	Cache   cache.Cache
	PubSub  cache.PubSub
	Levels  *resource.Store
	Journal *audit.Service
	Manager *world.Manager
	Sched   *scheduler.Scheduler
	Hooks   *hook.HookCenter
	Server  *httptest.Server
	URL     string // http://127.0.0.1:<port>
	WSURL   string // ws://127.0.0.1:<port>/ws
}

// NewTestServer creates a fully wired server seeded with the bundled levels.
// Rooms tick every tick, so tests that need a frozen world drive
// Room.Tick themselves with a long tick.
func NewTestServer(t *testing.T, tick time.Duration) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	logger := zap.NewNop()

	cfg := config.Default()
	cfg.Server.AdminKey = AdminKey
	cfg.Security.JWTSecret = "integration-test-secret"
	cfg.Security.RateLimitRPS = 1000
	cfg.Security.RateLimitBurst = 2000
	cfg.Game.TickMs = int(tick / time.Millisecond)

	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)

	bundled, err := resource.NewLoader("../levels", logger).LoadAll()
	require.NoError(t, err)
	levels := resource.NewStore(db, c, time.Minute, logger)
	_, err = levels.Seed(ctx, bundled)
	require.NoError(t, err)

	journal := audit.New(db, c, logger)
	t.Cleanup(func() { journal.Stop(ctx) })
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)
	hooks := hook.NewHookCenter()

	mgr := world.NewManager(levels, sched, pubsub, journal, hooks, world.ManagerConfig{
		TickInterval: cfg.TickInterval(),
		MaxSessions:  cfg.Game.MaxSessions,
		Settings:     cfg.Settings(),
	}, logger)

	r := api.NewRouter(api.Deps{
		Config:  cfg,
		Manager: mgr,
		Levels:  levels,
		Journal: journal,
		PubSub:  pubsub,
		Sched:   sched,
		Hooks:   hooks,
		Logger:  logger,
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	t.Cleanup(mgr.StopAll)

	return &TestServer{
		DB:      db,
		Cache:   c,
		PubSub:  pubsub,
		Levels:  levels,
		Journal: journal,
		Manager: mgr,
		Sched:   sched,
		Hooks:   hooks,
		Server:  server,
		URL:     server.URL,
		WSURL:   "ws" + strings.TrimPrefix(server.URL, "http") + "/ws",
	}
}

// --- HTTP helpers ---

// Do sends a request with an optional JSON body and header pairs.
func (ts *TestServer) Do(t *testing.T, method, path string, body interface{}, headers ...string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Bearer is the header pair for a session token.
func Bearer(token string) []string { return []string{"Authorization", "Bearer " + token} }

// Admin is the header pair for the admin key.
func Admin() []string { return []string{"X-Admin-Key", AdminKey} }

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// StartSession creates a session on level and returns its ID and token.
func (ts *TestServer) StartSession(t *testing.T, level string) (id, token string) {
	t.Helper()
	resp := ts.Do(t, http.MethodPost, "/api/sessions", map[string]string{"level": level})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	ReadJSON(t, resp, &out)
	return out.SessionID, out.Token
}

// --- WebSocket client ---

// WSClient wraps a gorilla/websocket connection for integration testing.
// A background readLoop keeps timeouts from poisoning the connection.
type WSClient struct {
	Conn   *websocket.Conn
	t      *testing.T
	seq    uint64
	readCh chan readResult
}

type readResult struct {
	data []byte
	err  error
}

// Packet is a decoded WS message.
type Packet struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ConnectWS dials the WS endpoint for a session.
func (ts *TestServer) ConnectWS(t *testing.T, session, token string) *WSClient {
	t.Helper()
	url := ts.WSURL + "?session=" + session + "&token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err, "WS dial failed")
	wc := &WSClient{Conn: conn, t: t, readCh: make(chan readResult, 256)}
	go wc.readLoop()
	t.Cleanup(wc.Close)
	return wc
}

func (wc *WSClient) readLoop() {
	for {
		_, data, err := wc.Conn.ReadMessage()
		wc.readCh <- readResult{data, err}
		if err != nil {
			return
		}
	}
}

// Send writes a sequenced packet.
func (wc *WSClient) Send(msgType string, payload interface{}) {
	wc.t.Helper()
	seq := atomic.AddUint64(&wc.seq, 1)
	payloadJSON, err := json.Marshal(payload)
	require.NoError(wc.t, err)
	data, err := json.Marshal(map[string]interface{}{
		"seq":     seq,
		"type":    msgType,
		"payload": json.RawMessage(payloadJSON),
	})
	require.NoError(wc.t, err)
	require.NoError(wc.t, wc.Conn.WriteMessage(websocket.TextMessage, data))
}

// RecvType reads packets until one of msgType arrives.
func (wc *WSClient) RecvType(msgType string, timeout time.Duration) Packet {
	wc.t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case res := <-wc.readCh:
			require.NoError(wc.t, res.err, "WS recv failed while waiting for %q", msgType)
			var pkt Packet
			require.NoError(wc.t, json.Unmarshal(res.data, &pkt))
			if pkt.Type == msgType {
				return pkt
			}
		case <-deadline:
			wc.t.Fatalf("timed out waiting for message type %q", msgType)
			return Packet{}
		}
	}
}

// Close closes the WebSocket connection.
func (wc *WSClient) Close() {
	_ = wc.Conn.Close()
}
