package ws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/GriffinCanCode/termplex/internal/api/apierr"
	"github.com/GriffinCanCode/termplex/internal/api/middleware"
	"github.com/GriffinCanCode/termplex/internal/focus"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/logging"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termplex/internal/layout"
	"github.com/GriffinCanCode/termplex/internal/mux"
	"github.com/GriffinCanCode/termplex/internal/routing"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
	"github.com/GriffinCanCode/termplex/internal/tabs"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin policy is enforced by the CORS middleware
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler manages WebSocket connections
type Handler struct {
	engine  *mux.Engine
	router  *routing.Router
	view    *ViewState
	log     *logging.Logger
	metrics *monitoring.Metrics
	limits  middleware.RateLimitConfig
}

// NewHandler creates a new WebSocket handler
func NewHandler(engine *mux.Engine, router *routing.Router, view *ViewState, limits middleware.RateLimitConfig, log *logging.Logger, metrics *monitoring.Metrics) *Handler {
	return &Handler{
		engine:  engine,
		router:  router,
		view:    view,
		log:     logging.OrNop(log).Named("ws"),
		metrics: metrics,
		limits:  limits,
	}
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	cl := newClient(conn, h.log, h.metrics)
	cl.log.Info("Client connected", zap.String("remote", c.ClientIP()))

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		cl.writePump()
	}()

	stopUI := h.engine.Subscribe(func(ev mux.Event) {
		cl.enqueue(Outbound{Type: OutEvent, Event: &ev})
	})
	stopSessions := h.router.Subscribe(func(ev routing.Event) {
		if !cl.owns(ev.Session) {
			return
		}
		cl.enqueue(Outbound{Type: OutSession, Session: &ev})
	})

	cl.enqueue(Outbound{Type: OutHello, Client: cl.id})

	ctx, cancel := context.WithCancel(c.Request.Context())
	h.readLoop(ctx, cl)
	cancel()

	stopUI()
	stopSessions()
	h.releaseOwned(cl)
	cl.close()
	<-pumpDone
	cl.log.Info("Client disconnected")
}

func (h *Handler) readLoop(ctx context.Context, cl *client) {
	cl.conn.SetReadLimit(maxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := h.limits.NewLimiter()
	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.log.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := routing.Unmarshal(data, &msg); err != nil {
			h.sendError(cl, "", err)
			continue
		}
		h.metrics.RecordWSMessage(monitoring.DirectionIn, msg.Type)

		if !limiter.Allow() {
			h.sendError(cl, msg.RequestID, apierr.ErrRateLimited)
			continue
		}

		out, err := h.dispatch(ctx, cl, msg)
		if err != nil {
			h.sendError(cl, msg.RequestID, err)
			continue
		}
		if out != nil {
			out.RequestID = msg.RequestID
			cl.enqueue(*out)
		}
	}
}

// releaseOwned destroys the raw sessions a departing client created
func (h *Handler) releaseOwned(cl *client) {
	for _, sid := range cl.takeOwned() {
		if _, err := h.router.Handle(context.Background(), routing.Command{Type: routing.CommandDestroy, Session: sid}); err != nil {
			cl.log.Warn("Failed to destroy owned session", zap.Uint64("session", uint64(sid)), zap.Error(err))
		}
	}
}

func (h *Handler) sendError(cl *client, requestID string, err error) {
	_, code := apierr.Classify(err)
	cl.enqueue(Outbound{Type: OutError, RequestID: requestID, Error: err.Error(), Code: code})
}

// ============================================================================
// Dispatch
// ============================================================================

// dispatch executes one message. A nil Outbound means nothing is sent back.
func (h *Handler) dispatch(ctx context.Context, cl *client, msg Message) (*Outbound, error) {
	switch msg.Type {
	case MsgCreate:
		return h.handleCreate(ctx, cl, msg)
	case MsgDestroy:
		if err := h.checkOwned(cl, msg.Session); err != nil {
			return nil, err
		}
		cl.disown(msg.Session)
		return h.command(ctx, routing.Command{Type: routing.CommandDestroy, Session: msg.Session})
	case MsgInput:
		if !msg.Pane.IsZero() {
			return nil, h.engine.Input(ctx, msg.Pane, msg.Data)
		}
		if err := h.checkOwned(cl, msg.Session); err != nil {
			return nil, err
		}
		_, err := h.router.Handle(ctx, routing.Command{Type: routing.CommandInput, Session: msg.Session, Data: msg.Data})
		return nil, err
	case MsgResize:
		if msg.Cols == 0 || msg.Rows == 0 {
			return nil, fmt.Errorf("%w: resize needs cols and rows", apierr.ErrInvalid)
		}
		sid, err := h.sessionOf(cl, msg)
		if err != nil {
			return nil, err
		}
		_, err = h.router.Handle(ctx, routing.Command{Type: routing.CommandResize, Session: sid, Cols: msg.Cols, Rows: msg.Rows})
		return nil, err
	case MsgGetCwd:
		sid, err := h.sessionOf(cl, msg)
		if err != nil {
			return nil, err
		}
		return h.command(ctx, routing.Command{Type: routing.CommandGetCwd, Session: sid})

	case MsgNewTab:
		tab, err := h.engine.NewTab(ctx)
		return result(Result{Tab: tab}), err
	case MsgCloseTab:
		tab := h.tabOrActive(msg.Tab)
		windowClose, err := h.engine.CloseTab(tab)
		return result(Result{Tab: tab, WindowClose: windowClose}), err
	case MsgSwitchTab:
		return result(Result{Tab: msg.Tab}), h.engine.SwitchTab(msg.Tab)
	case MsgNextTab:
		return result(Result{Tab: h.engine.NextTab()}), nil
	case MsgPrevTab:
		return result(Result{Tab: h.engine.PrevTab()}), nil

	case MsgSplit:
		o, err := layout.ParseOrientation(msg.Orientation)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apierr.ErrInvalid, err)
		}
		var pane id.PaneID
		if msg.Pane.IsZero() {
			pane, err = h.engine.Split(ctx, o)
		} else {
			pane, err = h.engine.SplitPane(ctx, msg.Pane, o)
		}
		return result(Result{Pane: pane}), err
	case MsgClosePane:
		return result(Result{Pane: msg.Pane}), h.engine.ClosePane(msg.Pane)

	case MsgFocus:
		return result(Result{Pane: msg.Pane}), h.engine.FocusPane(msg.Pane)
	case MsgFocusDir:
		dir, err := focus.ParseDirection(msg.Direction)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apierr.ErrInvalid, err)
		}
		pane, moved, err := h.engine.MoveFocus(dir)
		return result(Result{Pane: pane, Moved: &moved}), err
	case MsgFocusNext:
		pane, err := h.engine.FocusNext()
		return result(Result{Pane: pane}), err
	case MsgFocusPrev:
		pane, err := h.engine.FocusPrev()
		return result(Result{Pane: pane}), err

	case MsgResizeSplit:
		return result(Result{}), h.engine.ResizeSplit(msg.Node, msg.Delta)
	case MsgResizeTab:
		if msg.Bounds == nil {
			return nil, fmt.Errorf("%w: resize_tab needs bounds", apierr.ErrInvalid)
		}
		tab := h.tabOrActive(msg.Tab)
		return result(Result{Tab: tab}), h.engine.ResizeTab(tab, *msg.Bounds)
	case MsgGeometry:
		tab := h.tabOrActive(msg.Tab)
		h.view.SetBoxes(tab, msg.Boxes)
		if msg.Bounds != nil {
			return nil, h.engine.ResizeTab(tab, *msg.Bounds)
		}
		return nil, nil
	case MsgMetrics:
		if msg.ColWidth <= 0 || msg.RowHeight <= 0 {
			return nil, fmt.Errorf("%w: cell metrics must be positive", apierr.ErrInvalid)
		}
		h.view.SetCellSize(msg.Pane, msg.ColWidth, msg.RowHeight)
		return nil, nil

	case MsgPing:
		return &Outbound{Type: OutPong}, nil
	default:
		return nil, fmt.Errorf("%w: unknown message type %q", apierr.ErrInvalid, msg.Type)
	}
}

func (h *Handler) handleCreate(ctx context.Context, cl *client, msg Message) (*Outbound, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	reply, err := h.router.Handle(ctx, routing.Command{Type: routing.CommandCreate, Cwd: msg.Cwd, Cols: msg.Cols, Rows: msg.Rows})
	if err != nil {
		return nil, err
	}
	cl.own(reply.Session)
	return &Outbound{Type: OutReply, Reply: &reply}, nil
}

func (h *Handler) command(ctx context.Context, cmd routing.Command) (*Outbound, error) {
	reply, err := h.router.Handle(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return &Outbound{Type: OutReply, Reply: &reply}, nil
}

// sessionOf resolves the session a message addresses, by pane when one is
// given. Sessions addressed directly must belong to the connection.
func (h *Handler) sessionOf(cl *client, msg Message) (id.SessionID, error) {
	if msg.Pane.IsZero() {
		return msg.Session, h.checkOwned(cl, msg.Session)
	}
	sid, ok := h.engine.PaneSession(msg.Pane)
	if !ok {
		return 0, fmt.Errorf("%w: %s", tabs.ErrPaneNotFound, msg.Pane)
	}
	return sid, nil
}

// checkOwned rejects raw commands for sessions this connection did not create.
// Pane sessions are reached through the engine so the pane stays bound.
func (h *Handler) checkOwned(cl *client, sid id.SessionID) error {
	if cl.owns(sid) {
		return nil
	}
	if _, bound := h.engine.PaneOf(sid); bound {
		return fmt.Errorf("%w: %s belongs to a pane, address it by pane", apierr.ErrInvalid, sid)
	}
	return fmt.Errorf("%w: %s is not owned by this connection", apierr.ErrInvalid, sid)
}

func (h *Handler) tabOrActive(tab id.TabID) id.TabID {
	if !tab.IsZero() {
		return tab
	}
	return h.engine.Snapshot().Active
}

func result(r Result) *Outbound {
	return &Outbound{Type: OutResult, Result: &r}
}
