// Package ws bridges the navigator to its renderer clients.
//
// Connected clients receive present/dismiss frames as the coordinator
// tree changes, and submit navigation events (taps, deep links) inbound.
// The hub is the tree's screen.Presenter: every live connection sees the
// same screen traffic, so a user's devices stay in sync.
package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/verdantlabs/sprout/navigator/internal/domain/dispatch"
	"github.com/verdantlabs/sprout/navigator/internal/domain/event"
	"github.com/verdantlabs/sprout/navigator/internal/domain/screen"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/logging"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/monitoring"
)

const (
	writeWait = 10 * time.Second
	sendDepth = 32
)

// Frame is one outbound message to a renderer client.
type Frame struct {
	Type     string         `json:"type"`
	Screen   *screen.Handle `json:"screen,omitempty"`
	ScreenID string         `json:"screen_id,omitempty"`
	Mode     screen.Mode    `json:"mode,omitempty"`
	Outcome  string         `json:"outcome,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Hub fans screen traffic out to renderer connections and feeds their
// events into the dispatcher.
type Hub struct {
	disp    *dispatch.Dispatcher
	logger  *logging.Logger
	metrics *monitoring.Metrics

	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*conn
}

type conn struct {
	id   string
	sock *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// enqueue queues data unless the connection is closed or its buffer is
// full. The caller decides what a false return means.
func (cn *conn) enqueue(data []byte) bool {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	if cn.closed {
		return false
	}
	select {
	case cn.send <- data:
		return true
	default:
		return false
	}
}

func (cn *conn) close() {
	cn.mu.Lock()
	if cn.closed {
		cn.mu.Unlock()
		return
	}
	cn.closed = true
	close(cn.send)
	cn.mu.Unlock()
	cn.sock.Close()
}

// NewHub creates a hub. The hub doubles as the tree's presenter, so it is
// built before the dispatcher; Bind connects the two.
func NewHub(logger *logging.Logger, metrics *monitoring.Metrics) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[string]*conn),
	}
}

// Bind connects the hub's inbound side to the dispatcher. Must run before
// the first connection is accepted.
func (h *Hub) Bind(disp *dispatch.Dispatcher) { h.disp = disp }

// Present implements screen.Presenter by broadcasting a present frame.
func (h *Hub) Present(handle *screen.Handle, mode screen.Mode) error {
	h.broadcast(Frame{Type: "present", Screen: handle, Mode: mode})
	return nil
}

// Dismiss implements screen.Presenter by broadcasting a dismiss frame.
func (h *Hub) Dismiss(handle *screen.Handle) error {
	h.broadcast(Frame{Type: "dismiss", ScreenID: handle.ID.String()})
	return nil
}

// Handle upgrades the request and serves the connection until it closes.
func (h *Hub) Handle(c *gin.Context) {
	sock, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cn := &conn{
		id:   uuid.NewString(),
		sock: sock,
		send: make(chan []byte, sendDepth),
	}
	h.register(cn)
	defer h.unregister(cn)

	go cn.writeLoop()
	h.readLoop(c, cn)
}

func (h *Hub) register(cn *conn) {
	h.mu.Lock()
	h.conns[cn.id] = cn
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	h.logger.Info("renderer connected", zap.String("conn", cn.id))
}

func (h *Hub) unregister(cn *conn) {
	h.mu.Lock()
	delete(h.conns, cn.id)
	h.mu.Unlock()

	cn.close()
	if h.metrics != nil {
		h.metrics.DecWSConnections()
	}
	h.logger.Info("renderer disconnected", zap.String("conn", cn.id))
}

func (h *Hub) readLoop(c *gin.Context, cn *conn) {
	for {
		_, payload, err := cn.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed",
					zap.String("conn", cn.id),
					zap.Error(err),
				)
			}
			return
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", "event")
		}

		out, err := h.disp.Dispatch(c.Request.Context(), payload)
		switch {
		case errors.Is(err, event.ErrMalformedPayload):
			h.send(cn, Frame{Type: "error", Error: "malformed_payload"})
		case err != nil:
			h.send(cn, Frame{Type: "error", Error: "dispatch_failed"})
		default:
			h.send(cn, Frame{Type: "ack", Outcome: out.String()})
		}
	}
}

// broadcast queues a frame on every live connection. A connection that
// cannot keep up is dropped rather than allowed to stall the run loop.
func (h *Hub) broadcast(f Frame) {
	data, err := sonic.Marshal(f)
	if err != nil {
		h.logger.Error("failed to encode frame", zap.Error(err))
		return
	}

	h.mu.RLock()
	conns := make([]*conn, 0, len(h.conns))
	for _, cn := range h.conns {
		conns = append(conns, cn)
	}
	h.mu.RUnlock()

	for _, cn := range conns {
		if cn.enqueue(data) {
			if h.metrics != nil {
				h.metrics.RecordWSMessage("out", f.Type)
			}
			continue
		}
		h.logger.Warn("dropping slow renderer connection", zap.String("conn", cn.id))
		cn.close()
	}
}

func (h *Hub) send(cn *conn, f Frame) {
	data, err := sonic.Marshal(f)
	if err != nil {
		return
	}
	if cn.enqueue(data) && h.metrics != nil {
		h.metrics.RecordWSMessage("out", f.Type)
	}
}

// ConnCount returns the number of live renderer connections.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (cn *conn) writeLoop() {
	for data := range cn.send {
		cn.sock.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cn.sock.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	cn.sock.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
