// Package coordinator implements the navigation-owning nodes of the
// navigator.
//
// A Coordinator presents screens on a navigation container, owns the child
// coordinators it spawns, and routes events: an event is offered bottom-up
// starting at the currently active node, and every node either satisfies it
// locally (Handled) or passes it to its parent (Forwarded). An event that
// reaches the root with no taker is a logged no-op, never an error.
//
// All lifecycle and routing calls must run on the dispatcher's run loop;
// nothing in this package takes locks around tree state.
package coordinator

import (
	"go.uber.org/zap"

	"github.com/verdantlabs/sprout/navigator/internal/domain/event"
	"github.com/verdantlabs/sprout/navigator/internal/domain/screen"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/logging"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/monitoring"
	"github.com/verdantlabs/sprout/navigator/internal/shared/id"
)

// Outcome is the only result of routing an event. Routing failure is
// "forwarded all the way to the root with no taker", not an error value.
type Outcome int

const (
	Forwarded Outcome = iota
	Handled
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	if o == Handled {
		return "handled"
	}
	return "forwarded"
}

// Flow supplies the screen-specific behavior of one coordinator node: what
// it presents when started and which events it can satisfy locally.
type Flow interface {
	// Name identifies the flow in logs, snapshots, and tree inspection.
	Name() string

	// Present builds the node's initial screen handle, optionally seeded by
	// the originating event. A nil handle means the node presents nothing
	// itself (pure container). Called exactly once, from Start.
	Present(c *Coordinator, source event.Event) (*screen.Handle, screen.Mode)

	// Route attempts local satisfaction of an event. Returning Forwarded
	// delegates to the parent coordinator.
	Route(c *Coordinator, ev event.Event) Outcome
}

// Env bundles the process-wide collaborators every node of one tree shares.
type Env struct {
	Presenter screen.Presenter
	Active    *Active
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics // optional

	live int // live node count, mutated on the run loop only
}

// NewEnv creates a tree environment with safe defaults for absent fields.
func NewEnv(presenter screen.Presenter, active *Active, logger *logging.Logger) *Env {
	if presenter == nil {
		presenter = screen.NopPresenter{}
	}
	if active == nil {
		active = NewActive()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Env{Presenter: presenter, Active: active, Logger: logger}
}

// WithMetrics attaches a metrics collector to the environment.
func (e *Env) WithMetrics(m *monitoring.Metrics) *Env {
	e.Metrics = m
	return e
}

// Coordinator is a node in the navigation tree. It owns its children; the
// parent pointer is a lookup-only back-reference set at construction.
type Coordinator struct {
	id        id.CoordinatorID
	flow      Flow
	parent    *Coordinator
	children  []*Coordinator
	container *screen.Stack
	handle    *screen.Handle
	origin    event.Event
	env       *Env
	started   bool
	destroyed bool
}

// New creates a root coordinator with its own navigation container.
func New(flow Flow, env *Env) *Coordinator {
	return &Coordinator{
		id:        id.NewCoordinatorID(),
		flow:      flow,
		container: screen.NewStack(),
		env:       env,
	}
}

// Spawn creates a child coordinator sharing this node's navigation
// container. The child's parent pointer is immutable from here on.
func (c *Coordinator) Spawn(flow Flow) *Coordinator {
	return c.spawn(flow, c.container)
}

// SpawnModal creates a child coordinator with a fresh navigation container,
// for flows presented modally on top of the current context.
func (c *Coordinator) SpawnModal(flow Flow) *Coordinator {
	return c.spawn(flow, screen.NewStack())
}

func (c *Coordinator) spawn(flow Flow, container *screen.Stack) *Coordinator {
	child := &Coordinator{
		id:        id.NewCoordinatorID(),
		flow:      flow,
		parent:    c,
		container: container,
		env:       c.env,
	}
	c.children = append(c.children, child)
	return child
}

// Start presents the node's initial screen and registers it as active.
// Calling Start twice is a programmer error: the second call logs and does
// nothing, so a double-started coordinator never presents twice.
func (c *Coordinator) Start(source event.Event) {
	if c.started {
		c.env.Logger.Error("coordinator started twice",
			zap.String("coordinator", c.id.String()),
			zap.String("flow", c.flow.Name()),
		)
		return
	}
	if c.destroyed {
		return
	}
	c.started = true
	c.origin = source

	if c.env.Metrics != nil {
		c.env.Metrics.IncCoordinatorsTotal()
	}
	c.env.live++
	c.publishTreeGauges()

	if h, mode := c.flow.Present(c, source); h != nil {
		c.handle = h
		c.container.Push(h)
		if err := c.env.Presenter.Present(h, mode); err != nil {
			c.env.Logger.Warn("presenter rejected screen",
				zap.String("screen", h.ID.String()),
				zap.String("route", h.Route),
				zap.Error(err),
			)
		} else if c.env.Metrics != nil {
			c.env.Metrics.IncScreensPresented()
		}
	}

	c.SetActive(c)
}

// Handle attempts to satisfy the event locally, forwarding unmatched events
// to the parent. At the root an unhandled event is dropped with a log line;
// removed content and stale deep links end here.
func (c *Coordinator) Handle(ev event.Event) Outcome {
	if c.destroyed {
		// Event raced a teardown; drop it rather than act on a dead node.
		c.env.Logger.Debug("dropping event for destroyed coordinator",
			zap.String("coordinator", c.id.String()),
			zap.String("kind", string(ev.Kind())),
		)
		if c.env.Metrics != nil {
			c.env.Metrics.IncEventsDropped()
		}
		return Handled
	}

	if out := c.flow.Route(c, ev); out == Handled {
		return Handled
	}

	if c.parent != nil {
		return c.parent.Handle(ev)
	}

	c.env.Logger.Warn("unroutable event dropped at root",
		zap.String("kind", string(ev.Kind())),
	)
	if c.env.Metrics != nil {
		c.env.Metrics.IncEventsUnroutable()
	}
	return Forwarded
}

// SetActive marks target as the current active node. The registration
// propagates upward so any node can declare itself (or a descendant) active
// without the root knowing about deep descendants.
func (c *Coordinator) SetActive(target *Coordinator) {
	if c.parent != nil {
		c.parent.SetActive(target)
		return
	}
	c.env.Active.set(target)
	if c.env.Metrics != nil {
		c.env.Metrics.SetTreeDepth(target.Depth())
	}
}

// Finish tears the node down after its screen was popped or dismissed and
// returns control to the parent, which reclaims active status. A Finish
// arriving for an already-removed node is ignored.
func (c *Coordinator) Finish() {
	if c.destroyed {
		c.env.Logger.Debug("orphan teardown ignored",
			zap.String("coordinator", c.id.String()),
		)
		return
	}

	c.destroy()

	if c.parent != nil {
		c.parent.childFinished(c)
		return
	}
	// Whole flow is gone; the registry must hold no stale reference.
	c.env.Active.clear()
	c.publishTreeGauges()
}

// destroy tears down the subtree, deepest child first, dismissing any
// presented screens.
func (c *Coordinator) destroy() {
	for i := len(c.children) - 1; i >= 0; i-- {
		c.children[i].destroy()
	}
	c.children = nil
	c.destroyed = true
	if c.started {
		c.env.live--
	}

	if c.handle != nil {
		c.container.Remove(c.handle.ID)
		if err := c.env.Presenter.Dismiss(c.handle); err != nil {
			c.env.Logger.Warn("presenter rejected dismissal",
				zap.String("screen", c.handle.ID.String()),
				zap.Error(err),
			)
		} else if c.env.Metrics != nil {
			c.env.Metrics.IncScreensDismissed()
		}
		c.handle = nil
	}
}

// childFinished removes the child reference and reasserts this node as
// active when the finished subtree held the active coordinator. Runs in the
// same dispatch cycle as Finish, so no zero-active state is observable.
func (c *Coordinator) childFinished(child *Coordinator) {
	if c.destroyed {
		return
	}

	for i, ch := range c.children {
		if ch == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			break
		}
	}

	cur := c.env.Active.Current()
	if cur == nil || cur.destroyed || cur == child || cur.isDescendantOf(child) {
		c.SetActive(c)
	}
	c.publishTreeGauges()
}

func (c *Coordinator) isDescendantOf(ancestor *Coordinator) bool {
	for p := c.parent; p != nil; p = p.parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

func (c *Coordinator) publishTreeGauges() {
	if c.env.Metrics != nil {
		c.env.Metrics.SetCoordinatorsLive(c.env.live)
	}
}

// ID returns the node's unique identity.
func (c *Coordinator) ID() id.CoordinatorID { return c.id }

// Flow returns the flow driving this node.
func (c *Coordinator) Flow() Flow { return c.flow }

// FlowName returns the name of the flow driving this node.
func (c *Coordinator) FlowName() string { return c.flow.Name() }

// Parent returns the non-owning parent reference, nil at the root.
func (c *Coordinator) Parent() *Coordinator { return c.parent }

// Children returns a copy of the owned children, in spawn order.
func (c *Coordinator) Children() []*Coordinator {
	out := make([]*Coordinator, len(c.children))
	copy(out, c.children)
	return out
}

// Container returns the navigation container this node pushes screens onto.
func (c *Coordinator) Container() *screen.Stack { return c.container }

// Screen returns the node's presented handle, nil if it presents nothing.
func (c *Coordinator) Screen() *screen.Handle { return c.handle }

// Origin returns the event that caused this node to be created, if any.
func (c *Coordinator) Origin() event.Event { return c.origin }

// Alive reports whether the node is still part of the tree.
func (c *Coordinator) Alive() bool { return !c.destroyed }

// Started reports whether Start has run.
func (c *Coordinator) Started() bool { return c.started }

// Depth returns the node's distance from the root (root = 1).
func (c *Coordinator) Depth() int {
	depth := 1
	for p := c.parent; p != nil; p = p.parent {
		depth++
	}
	return depth
}

// Path returns the flow names from the root down to this node.
func (c *Coordinator) Path() []string {
	var rev []string
	for n := c; n != nil; n = n.parent {
		rev = append(rev, n.flow.Name())
	}
	out := make([]string, len(rev))
	for i, name := range rev {
		out[len(rev)-1-i] = name
	}
	return out
}

// Env returns the shared tree environment.
func (c *Coordinator) Env() *Env { return c.env }
