package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/termplex/internal/api/apierr"
	"github.com/GriffinCanCode/termplex/internal/api/middleware"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/logging"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termplex/internal/mux"
	"github.com/GriffinCanCode/termplex/internal/routing"
	"github.com/GriffinCanCode/termplex/internal/routing/routingtest"
	"github.com/GriffinCanCode/termplex/internal/shared/geom"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	backend *routingtest.Backend
	engine  *mux.Engine
	view    *ViewState
	url     string
}

func newTestServer(t *testing.T, limits middleware.RateLimitConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := routingtest.NewBackend()
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	router := routing.NewRouter(backend, logging.NewNop(), metrics)
	view := NewViewState()
	engine := mux.New(mux.Options{
		Sessions: backend,
		Router:   router,
		Registry: id.NewRegistry(),
		Geometry: view,
		Cells:    view,
		Logger:   logging.NewNop(),
		Metrics:  metrics,
	})
	engine.Subscribe(view.Observe)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		router.Run(ctx)
	}()

	handler := NewHandler(engine, router, view, limits, logging.NewNop(), metrics)
	r := gin.New()
	r.GET("/ws", handler.HandleConnection)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		engine.Shutdown()
		cancel()
		<-done
	})

	return &testServer{
		backend: backend,
		engine:  engine,
		view:    view,
		url:     "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	hello := read(t, conn)
	require.Equal(t, OutHello, hello.Type)
	assert.True(t, strings.HasPrefix(hello.Client.String(), id.ClientPrefix+"_"))
	return conn
}

func write(t *testing.T, conn *websocket.Conn, msg Message) {
	t.Helper()
	data, err := routing.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func read(t *testing.T, conn *websocket.Conn) Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var out Outbound
	require.NoError(t, routing.Unmarshal(data, &out))
	return out
}

// readUntil skips messages until one of the given type arrives
func readUntil(t *testing.T, conn *websocket.Conn, typ string) Outbound {
	t.Helper()
	for {
		out := read(t, conn)
		if out.Type == typ {
			return out
		}
	}
}

func TestPingPong(t *testing.T) {
	s := newTestServer(t, middleware.DefaultRateLimitConfig())
	conn := s.dial(t)

	write(t, conn, Message{Type: MsgPing, RequestID: "r1"})
	out := read(t, conn)

	assert.Equal(t, OutPong, out.Type)
	assert.Equal(t, "r1", out.RequestID)
}

func TestNewTabStreamsEventsThenResult(t *testing.T) {
	s := newTestServer(t, middleware.DefaultRateLimitConfig())
	conn := s.dial(t)

	write(t, conn, Message{Type: MsgNewTab, RequestID: "t"})

	var events []mux.EventType
	var res Outbound
	for {
		out := read(t, conn)
		if out.Type == OutEvent {
			events = append(events, out.Event.Type)
			continue
		}
		res = out
		break
	}

	assert.Equal(t, []mux.EventType{mux.EventTabCreated, mux.EventPaneCreated, mux.EventTabSwitched, mux.EventFocusChanged}, events)
	require.Equal(t, OutResult, res.Type)
	assert.Equal(t, "t", res.RequestID)
	assert.Equal(t, id.TabID(1), res.Result.Tab)
}

func TestPaneInputAndOutput(t *testing.T) {
	s := newTestServer(t, middleware.DefaultRateLimitConfig())
	conn := s.dial(t)

	write(t, conn, Message{Type: MsgNewTab})
	readUntil(t, conn, OutResult)

	write(t, conn, Message{Type: MsgInput, Pane: 1, Data: []byte("ls\n")})
	assert.Eventually(t, func() bool { return s.backend.Written(1) == "ls\n" }, time.Second, 5*time.Millisecond)

	s.backend.Emit(routing.Event{Type: routing.EventData, Session: 1, Data: []byte("file.txt\n")})
	out := readUntil(t, conn, OutEvent)
	assert.Equal(t, mux.EventPaneData, out.Event.Type)
	assert.Equal(t, id.PaneID(1), out.Event.Pane)
	assert.Equal(t, "file.txt\n", string(out.Event.Data))
}

func TestRawSessionsAreOwnedByTheirClient(t *testing.T) {
	s := newTestServer(t, middleware.DefaultRateLimitConfig())
	conn := s.dial(t)

	write(t, conn, Message{Type: MsgCreate, RequestID: "c", Cwd: "/tmp", Cols: 100, Rows: 30})
	out := readUntil(t, conn, OutReply)
	require.NotNil(t, out.Reply)
	sid := out.Reply.Session
	require.False(t, sid.IsZero())

	cols, rows := s.backend.Size(sid)
	assert.Equal(t, [2]uint16{100, 30}, [2]uint16{cols, rows})

	s.backend.Emit(routing.Event{Type: routing.EventData, Session: sid, Data: []byte("$ ")})
	out = readUntil(t, conn, OutSession)
	assert.Equal(t, sid, out.Session.Session)
	assert.Equal(t, "$ ", string(out.Session.Data))

	write(t, conn, Message{Type: MsgGetCwd, RequestID: "cwd", Session: sid})
	out = readUntil(t, conn, OutReply)
	require.NotNil(t, out.Reply.Cwd)
	assert.Equal(t, "/tmp", *out.Reply.Cwd)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return !s.backend.Has(sid) }, time.Second, 5*time.Millisecond,
		"raw sessions die with the connection that created them")
}

func TestOtherClientsSessionsAreNotForwarded(t *testing.T) {
	s := newTestServer(t, middleware.DefaultRateLimitConfig())
	owner := s.dial(t)
	other := s.dial(t)

	write(t, owner, Message{Type: MsgCreate})
	sid := readUntil(t, owner, OutReply).Reply.Session

	s.backend.Emit(routing.Event{Type: routing.EventData, Session: sid, Data: []byte("x")})
	readUntil(t, owner, OutSession)

	write(t, other, Message{Type: MsgPing})
	assert.Equal(t, OutPong, read(t, other).Type, "the other client sees nothing before its pong")
}

func TestFocusDirectionUsesReportedGeometry(t *testing.T) {
	s := newTestServer(t, middleware.DefaultRateLimitConfig())
	conn := s.dial(t)

	write(t, conn, Message{Type: MsgNewTab})
	readUntil(t, conn, OutResult)
	write(t, conn, Message{Type: MsgSplit, Orientation: "vertical"})
	res := readUntil(t, conn, OutResult)
	require.Equal(t, id.PaneID(2), res.Result.Pane)

	write(t, conn, Message{Type: MsgGeometry, Tab: 1, Boxes: []geom.PaneBox{
		{Pane: 1, Rect: geom.Rect{X: 0, Y: 0, W: 400, H: 600}},
		{Pane: 2, Rect: geom.Rect{X: 400, Y: 0, W: 400, H: 600}},
	}})

	write(t, conn, Message{Type: MsgFocusDir, Direction: "left"})
	res = readUntil(t, conn, OutResult)
	require.NotNil(t, res.Result.Moved)
	assert.True(t, *res.Result.Moved)
	assert.Equal(t, id.PaneID(1), res.Result.Pane)

	write(t, conn, Message{Type: MsgFocusDir, Direction: "up"})
	res = readUntil(t, conn, OutResult)
	assert.False(t, *res.Result.Moved)
	assert.Equal(t, id.PaneID(1), res.Result.Pane)
}

func TestErrorsCarryCodes(t *testing.T) {
	s := newTestServer(t, middleware.DefaultRateLimitConfig())
	conn := s.dial(t)

	tests := []struct {
		name string
		msg  Message
		code string
	}{
		{"unknown type", Message{Type: "teleport"}, apierr.CodeInvalid},
		{"bad orientation", Message{Type: MsgSplit, Orientation: "diagonal"}, apierr.CodeInvalid},
		{"bad direction", Message{Type: MsgFocusDir, Direction: "sideways"}, apierr.CodeInvalid},
		{"unknown pane", Message{Type: MsgFocus, Pane: 42}, apierr.CodeNotFound},
		{"zero resize", Message{Type: MsgResize, Session: 1}, apierr.CodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.msg.RequestID = tt.name
			write(t, conn, tt.msg)
			out := readUntil(t, conn, OutError)
			assert.Equal(t, tt.name, out.RequestID)
			assert.Equal(t, tt.code, out.Code)
		})
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, apierr.CodeInvalid, readUntil(t, conn, OutError).Code)
}

func TestMessageRateLimit(t *testing.T) {
	s := newTestServer(t, middleware.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	conn := s.dial(t)

	write(t, conn, Message{Type: MsgPing})
	assert.Equal(t, OutPong, read(t, conn).Type)

	write(t, conn, Message{Type: MsgPing})
	out := read(t, conn)
	assert.Equal(t, OutError, out.Type)
	assert.Equal(t, apierr.CodeRateLimited, out.Code)
}

func TestMessageRateLimitDisabled(t *testing.T) {
	s := newTestServer(t, middleware.RateLimitConfig{RequestsPerSecond: 1, Burst: 1, Unlimited: true})
	conn := s.dial(t)

	for i := 0; i < 5; i++ {
		write(t, conn, Message{Type: MsgPing})
		assert.Equal(t, OutPong, read(t, conn).Type)
	}
}

func TestRawCommandsRejectPaneSessions(t *testing.T) {
	s := newTestServer(t, middleware.DefaultRateLimitConfig())
	conn := s.dial(t)

	write(t, conn, Message{Type: MsgNewTab})
	readUntil(t, conn, OutResult)
	write(t, conn, Message{Type: MsgSplit, Orientation: "vertical"})
	readUntil(t, conn, OutResult)

	sid, ok := s.engine.PaneSession(2)
	require.True(t, ok)

	tests := []struct {
		name string
		msg  Message
	}{
		{"destroy", Message{Type: MsgDestroy, Session: sid}},
		{"input", Message{Type: MsgInput, Session: sid, Data: []byte("x")}},
		{"resize", Message{Type: MsgResize, Session: sid, Cols: 10, Rows: 10}},
		{"get_cwd", Message{Type: MsgGetCwd, Session: sid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.msg.RequestID = tt.name
			write(t, conn, tt.msg)
			out := readUntil(t, conn, OutError)
			assert.Equal(t, tt.name, out.RequestID)
			assert.Equal(t, apierr.CodeInvalid, out.Code)
		})
	}

	assert.True(t, s.backend.Has(sid), "pane session must survive")
	assert.Empty(t, s.backend.Written(sid))
	tab, ok := s.engine.Tab(1)
	require.True(t, ok)
	assert.Equal(t, "V(1,2)", tab.Layout)
}

func TestRawDestroyOfAnotherClientsSession(t *testing.T) {
	s := newTestServer(t, middleware.DefaultRateLimitConfig())
	owner := s.dial(t)
	other := s.dial(t)

	write(t, owner, Message{Type: MsgCreate})
	sid := readUntil(t, owner, OutReply).Reply.Session

	write(t, other, Message{Type: MsgDestroy, Session: sid})
	assert.Equal(t, apierr.CodeInvalid, readUntil(t, other, OutError).Code)
	assert.True(t, s.backend.Has(sid))

	write(t, owner, Message{Type: MsgDestroy, Session: sid})
	readUntil(t, owner, OutReply)
	assert.False(t, s.backend.Has(sid))
}
