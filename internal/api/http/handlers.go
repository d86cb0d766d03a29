package http

import (
	"fmt"
	"net/http"

	"github.com/GriffinCanCode/termplex/internal/api/apierr"
	"github.com/GriffinCanCode/termplex/internal/focus"
	"github.com/GriffinCanCode/termplex/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termplex/internal/layout"
	"github.com/GriffinCanCode/termplex/internal/mux"
	"github.com/GriffinCanCode/termplex/internal/routing"
	"github.com/GriffinCanCode/termplex/internal/session"
	"github.com/GriffinCanCode/termplex/internal/shared/id"
	"github.com/gin-gonic/gin"
)

// SessionLister exposes the session table for listings
type SessionLister interface {
	List() []session.Info
	Len() int
}

// Handlers contains all HTTP handlers
type Handlers struct {
	engine   *mux.Engine
	router   *routing.Router
	sessions SessionLister
	metrics  *monitoring.Metrics
}

// NewHandlers creates a new handler set
func NewHandlers(engine *mux.Engine, router *routing.Router, sessions SessionLister, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		engine:   engine,
		router:   router,
		sessions: sessions,
		metrics:  metrics,
	}
}

// Register mounts every endpoint on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/stats", h.Stats)

	r.GET("/sessions", h.ListSessions)
	r.GET("/sessions/:id/cwd", h.SessionCwd)

	r.GET("/tabs", h.ListTabs)
	r.POST("/tabs", h.CreateTab)
	r.GET("/tabs/:id", h.GetTab)
	r.DELETE("/tabs/:id", h.CloseTab)
	r.POST("/tabs/:id/activate", h.ActivateTab)

	r.POST("/panes/:id/split", h.SplitPane)
	r.DELETE("/panes/:id", h.ClosePane)

	r.POST("/focus", h.Focus)
	r.POST("/splits/:id/resize", h.ResizeSplit)
}

// Health handles health check
func (h *Handlers) Health(c *gin.Context) {
	snap := h.engine.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "termplex",
		"sessions": h.sessions.Len(),
		"tabs":     len(snap.Tabs),
	})
}

// Stats returns counters alongside the session table
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"metrics":  h.metrics.Snapshot(),
		"sessions": h.sessions.List(),
	})
}

// ListSessions lists every session, exited ones included
func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.sessions.List()})
}

// SessionCwd reports a session's working directory; cwd is null when unknown
func (h *Handlers) SessionCwd(c *gin.Context) {
	sid, err := sessionParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	reply, err := h.router.Handle(c.Request.Context(), routing.Command{Type: routing.CommandGetCwd, Session: sid})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// ListTabs returns every tab with its layout
func (h *Handlers) ListTabs(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Snapshot())
}

// GetTab returns one tab
func (h *Handlers) GetTab(c *gin.Context) {
	tabID, err := tabParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	tab, ok := h.engine.Tab(tabID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tab not found", "code": apierr.CodeNotFound})
		return
	}
	c.JSON(http.StatusOK, tab)
}

// CreateTab opens a tab and makes it active
func (h *Handlers) CreateTab(c *gin.Context) {
	tabID, err := h.engine.NewTab(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	tab, _ := h.engine.Tab(tabID)
	c.JSON(http.StatusCreated, tab)
}

// CloseTab closes a tab. Closing the last tab only reports window_close.
func (h *Handlers) CloseTab(c *gin.Context) {
	tabID, err := tabParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	windowClose, err := h.engine.CloseTab(tabID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tab": tabID, "window_close": windowClose})
}

// ActivateTab switches to a tab
func (h *Handlers) ActivateTab(c *gin.Context) {
	tabID, err := tabParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.engine.SwitchTab(tabID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": tabID})
}

type splitRequest struct {
	Orientation string `json:"orientation" binding:"required"`
}

// SplitPane splits a pane and focuses the new one
func (h *Handlers) SplitPane(c *gin.Context) {
	paneID, err := paneParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req splitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", apierr.ErrInvalid, err))
		return
	}
	o, err := layout.ParseOrientation(req.Orientation)
	if err != nil {
		respondError(c, fmt.Errorf("%w: %v", apierr.ErrInvalid, err))
		return
	}

	created, err := h.engine.SplitPane(c.Request.Context(), paneID, o)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pane": created})
}

// ClosePane closes a pane; closing a tab's last pane closes the tab
func (h *Handlers) ClosePane(c *gin.Context) {
	paneID, err := paneParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.engine.ClosePane(paneID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type focusRequest struct {
	Pane      id.PaneID `json:"pane"`
	Direction string `json:"direction"`
	Cycle     string `json:"cycle"`
}

// Focus moves focus to a pane, in a direction, or through the layout order
func (h *Handlers) Focus(c *gin.Context) {
	var req focusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", apierr.ErrInvalid, err))
		return
	}

	switch {
	case !req.Pane.IsZero():
		if err := h.engine.FocusPane(req.Pane); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"pane": req.Pane, "moved": true})

	case req.Direction != "":
		dir, err := focus.ParseDirection(req.Direction)
		if err != nil {
			respondError(c, fmt.Errorf("%w: %v", apierr.ErrInvalid, err))
			return
		}
		paneID, moved, err := h.engine.MoveFocus(dir)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"pane": paneID, "moved": moved})

	case req.Cycle == "next" || req.Cycle == "prev":
		step := h.engine.FocusNext
		if req.Cycle == "prev" {
			step = h.engine.FocusPrev
		}
		paneID, err := step()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"pane": paneID, "moved": true})

	default:
		respondError(c, fmt.Errorf("%w: focus needs pane, direction or cycle", apierr.ErrInvalid))
	}
}

type resizeRequest struct {
	Delta float64 `json:"delta"`
}

// ResizeSplit shifts a split's ratio by delta
func (h *Handlers) ResizeSplit(c *gin.Context) {
	nodeID, err := nodeParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", apierr.ErrInvalid, err))
		return
	}
	if err := h.engine.ResizeSplit(nodeID, req.Delta); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
