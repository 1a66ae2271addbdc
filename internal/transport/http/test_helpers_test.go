package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/gamechat-server/internal/auth"
	"github.com/vovakirdan/gamechat-server/internal/chat"
	"github.com/vovakirdan/gamechat-server/internal/config"
	"github.com/vovakirdan/gamechat-server/internal/log"
	"github.com/vovakirdan/gamechat-server/internal/proto"
	"github.com/vovakirdan/gamechat-server/internal/store/sqlite"
)

type testEnv struct {
	server *httptest.Server
	dir    *chat.Directory
	store  *sqlite.SQLiteStore
	jwt    *auth.JWTConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	dir := chat.NewDirectory()
	if _, err := dir.Create("#general", "talk", chat.DefaultOptions()); err != nil {
		t.Fatalf("create #general: %v", err)
	}
	staffOpts := chat.Options{ReadLevel: chat.LevelModerator, WriteLevel: chat.LevelModerator}
	if _, err := dir.Create("#staff", "staff", staffOpts); err != nil {
		t.Fatalf("create #staff: %v", err)
	}

	jwtCfg := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "gamechat",
		Audience: "gamechat-clients",
		TTL:      time.Hour,
	}

	cfg := config.Default()
	srv := NewServer(dir, st, jwtCfg, cfg, log.Nop())
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, dir: dir, store: st, jwt: jwtCfg}
}

func (e *testEnv) wsURL() string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
}

// dialWS connects and completes the hello handshake. An empty token joins
// as a guest.
func dialWS(t *testing.T, ctx context.Context, env *testEnv, token string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, env.wsURL(), nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })

	hello, _ := json.Marshal(proto.HelloData{Token: token, Protocol: proto.ProtocolVersion})
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeHello, Data: hello}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	return conn
}

type outboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// awaitFrame reads frames until one of the wanted type arrives.
func awaitFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) outboundFrame {
	t.Helper()

	for {
		var frame outboundFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("reading frames while waiting for %q: %v", typ, err)
		}
		if frame.Type == typ {
			return frame
		}
	}
}

func sendInbound(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s data: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}
