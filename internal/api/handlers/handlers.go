// Package handlers exposes the navigator's HTTP surface: event intake,
// push-notification webhooks, tree inspection, sessions, and cards.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verdantlabs/sprout/navigator/internal/domain/content"
	"github.com/verdantlabs/sprout/navigator/internal/domain/coordinator"
	"github.com/verdantlabs/sprout/navigator/internal/domain/dispatch"
	"github.com/verdantlabs/sprout/navigator/internal/domain/event"
	"github.com/verdantlabs/sprout/navigator/internal/domain/routes"
	"github.com/verdantlabs/sprout/navigator/internal/domain/screen"
	"github.com/verdantlabs/sprout/navigator/internal/domain/session"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/logging"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/monitoring"
	"github.com/verdantlabs/sprout/navigator/internal/shared/id"
)

const maxEventBody = 64 << 10

// Service bundles the handler dependencies.
type Service struct {
	disp     *dispatch.Dispatcher
	sessions *session.Manager
	cards    *content.Client
	table    *routes.Table
	metrics  *monitoring.Metrics
	logger   *logging.Logger
	started  time.Time
}

// New creates the handler service. metrics may be nil, which disables the
// JSON metrics endpoint.
func New(disp *dispatch.Dispatcher, sessions *session.Manager, cards *content.Client, table *routes.Table, metrics *monitoring.Metrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if table == nil {
		table = routes.Default()
	}
	return &Service{
		disp:     disp,
		sessions: sessions,
		cards:    cards,
		table:    table,
		metrics:  metrics,
		logger:   logger,
		started:  time.Now(),
	}
}

// Register mounts every route on the router.
func (s *Service) Register(r gin.IRouter) {
	r.GET("/health", s.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/events", s.PostEvent)
		v1.POST("/notifications", s.PostEvent)

		v1.GET("/tree", s.GetTree)
		v1.GET("/tree/active", s.GetActive)
		v1.GET("/routes", s.GetRoutes)
		v1.GET("/metrics", s.GetMetrics)

		v1.POST("/sessions", s.SaveSession)
		v1.GET("/sessions", s.ListSessions)
		v1.POST("/sessions/:id/restore", s.RestoreSession)
		v1.DELETE("/sessions/:id", s.DeleteSession)

		v1.GET("/cards/:id", s.GetCard)
	}
}

// Health reports liveness.
func (s *Service) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

// PostEvent ingests one navigation event. Push-notification webhooks use
// the same wire format, so both routes land here.
func (s *Service) PostEvent(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	out, err := s.disp.Dispatch(c.Request.Context(), payload)
	switch {
	case errors.Is(err, event.ErrMalformedPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_payload"})
	case err != nil:
		s.logger.Error("event dispatch failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dispatch_failed"})
	default:
		c.JSON(http.StatusAccepted, gin.H{"outcome": out.String()})
	}
}

// TreeNode is the inspection view of one coordinator.
type TreeNode struct {
	ID       id.CoordinatorID `json:"id"`
	Flow     string           `json:"flow"`
	Active   bool             `json:"active,omitempty"`
	Screen   *screen.Handle   `json:"screen,omitempty"`
	Children []*TreeNode      `json:"children,omitempty"`
}

func buildTree(c, active *coordinator.Coordinator) *TreeNode {
	n := &TreeNode{
		ID:     c.ID(),
		Flow:   c.FlowName(),
		Active: c == active,
		Screen: c.Screen(),
	}
	for _, ch := range c.Children() {
		n.Children = append(n.Children, buildTree(ch, active))
	}
	return n
}

// GetTree returns the whole coordinator tree.
func (s *Service) GetTree(c *gin.Context) {
	var tree *TreeNode
	err := s.disp.Inspect(c.Request.Context(), func(root, active *coordinator.Coordinator) {
		if root != nil && root.Alive() {
			tree = buildTree(root, active)
		}
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "inspect_failed"})
		return
	}
	if tree == nil {
		c.JSON(http.StatusOK, gin.H{"tree": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tree": tree})
}

// GetActive returns the active coordinator's path and screen.
func (s *Service) GetActive(c *gin.Context) {
	var (
		path   []string
		handle *screen.Handle
		coord  string
	)
	err := s.disp.Inspect(c.Request.Context(), func(_, active *coordinator.Coordinator) {
		if active != nil && active.Alive() {
			path = active.Path()
			handle = active.Screen()
			coord = active.ID().String()
		}
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "inspect_failed"})
		return
	}
	if coord == "" {
		c.JSON(http.StatusOK, gin.H{"active": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"active": gin.H{"id": coord, "path": path, "screen": handle},
	})
}

// GetRoutes returns the loaded route table.
func (s *Service) GetRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"routes": s.table.All()})
}

// GetMetrics serves the JSON view of the metric counters, for dashboards
// that do not scrape Prometheus.
func (s *Service) GetMetrics(c *gin.Context) {
	if s.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics disabled"})
		return
	}

	snap := s.metrics.GetSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":            "operational",
		"total_requests":    snap.TotalRequests,
		"total_errors":      snap.TotalErrors,
		"events_routed":     snap.EventsRouted,
		"events_unroutable": snap.EventsUnroutable,
		"coordinators_live": snap.CoordinatorsLive,
		"ws_connections":    snap.WSConnections,
		"uptime_seconds":    s.metrics.GetUptimeSeconds(),
	})
}

// SaveSession snapshots the current tree.
func (s *Service) SaveSession(c *gin.Context) {
	snap, err := s.sessions.Save(c.Request.Context())
	if err != nil {
		s.logger.Error("session save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save_failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":       snap.ID,
		"saved_at": snap.SavedAt,
		"nodes":    len(snap.Nodes),
	})
}

// ListSessions lists saved snapshots, newest first.
func (s *Service) ListSessions(c *gin.Context) {
	snaps, err := s.sessions.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed"})
		return
	}
	out := make([]gin.H, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, gin.H{
			"id":       snap.ID,
			"saved_at": snap.SavedAt,
			"nodes":    len(snap.Nodes),
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// RestoreSession rebuilds the tree from a snapshot.
func (s *Service) RestoreSession(c *gin.Context) {
	err := s.sessions.Restore(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case err != nil:
		s.logger.Error("session restore failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "restore_failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"restored": c.Param("id")})
	}
}

// DeleteSession removes a snapshot.
func (s *Service) DeleteSession(c *gin.Context) {
	err := s.sessions.Delete(c.Param("id"))
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
	default:
		c.Status(http.StatusNoContent)
	}
}

// GetCard serves one plant-care card through the content pipeline.
func (s *Service) GetCard(c *gin.Context) {
	card, err := s.cards.Fetch(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, content.ErrUnavailable):
		c.JSON(http.StatusNotFound, gin.H{"error": "card unavailable"})
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "content_failed"})
	default:
		c.JSON(http.StatusOK, card)
	}
}
