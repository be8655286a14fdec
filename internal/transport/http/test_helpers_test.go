package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/peermeet/signal-server/internal/auth"
	"github.com/peermeet/signal-server/internal/config"
	"github.com/peermeet/signal-server/internal/core"
	"github.com/peermeet/signal-server/internal/persist"
	"github.com/peermeet/signal-server/internal/proto"
)

type testEnv struct {
	ts       *httptest.Server
	auth     *auth.Service
	registry *core.Registry
	gateway  *persist.Gateway
}

// startTestServer spins up the full HTTP surface over the given store
// (nil = durable store permanently unavailable).
func startTestServer(t *testing.T, store persist.Store) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	gateway := persist.NewGateway(store, time.Second, &logger)
	registry := core.NewRegistry(0, gateway, &logger)
	router := core.NewRouter(registry, &logger)
	authService := auth.NewService("test-secret", "signal-server-test")

	cfg := config.Config{
		Addr:              ":0",
		CORSOrigin:        "*",
		SessionQueueSize:  16,
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}
	server := NewServer(registry, router, gateway, authService, cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, auth: authService, registry: registry, gateway: gateway}
}

func (e *testEnv) wsURL(token string) string {
	url := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

// dialWS mints a token for name and opens a signaling socket.
func (e *testEnv) dialWS(t *testing.T, ctx context.Context, name string) (*websocket.Conn, string) {
	t.Helper()

	token, participantID, err := e.auth.IssueGuestToken(name)
	if err != nil {
		t.Fatalf("issue token for %s: %v", name, err)
	}

	conn, _, err := websocket.Dial(ctx, e.wsURL(token), nil)
	if err != nil {
		t.Fatalf("dial ws for %s: %v", name, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn, participantID
}

// readSignal reads frames until one of the wanted kind arrives.
func readSignal(t *testing.T, ctx context.Context, conn *websocket.Conn, kind proto.Kind) *proto.Signal {
	t.Helper()

	for {
		var sig proto.Signal
		if err := wsjson.Read(ctx, conn, &sig); err != nil {
			t.Fatalf("read signal (waiting for %q): %v", kind, err)
		}
		if sig.Type == kind {
			return &sig
		}
	}
}
