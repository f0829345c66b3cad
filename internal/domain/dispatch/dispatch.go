// Package dispatch owns the navigator's run loop.
//
// Every tree mutation (event delivery, teardown, session restore, tree
// inspection) is funneled through one goroutine, so the coordinator tree
// needs no internal locking. Producers (WebSocket readers, HTTP handlers,
// the push webhook) enqueue work and wait for the cycle to complete.
package dispatch

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/verdantlabs/sprout/navigator/internal/domain/coordinator"
	"github.com/verdantlabs/sprout/navigator/internal/domain/event"
	"github.com/verdantlabs/sprout/navigator/internal/domain/flows"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/logging"
)

// ErrStopped reports work submitted after the run loop shut down.
var ErrStopped = errors.New("dispatcher stopped")

// Dispatcher serializes all coordinator-tree work onto one goroutine.
type Dispatcher struct {
	set    *flows.Set
	env    *coordinator.Env
	logger *logging.Logger

	root  *coordinator.Coordinator // loop-owned
	tasks chan func()
	done  chan struct{}
}

// New creates a dispatcher for one navigation tree.
func New(set *flows.Set, env *coordinator.Env, logger *logging.Logger) *Dispatcher {
	if set == nil {
		set = flows.NewSet(nil)
	}
	if env == nil {
		env = coordinator.NewEnv(nil, nil, logger)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		set:    set,
		env:    env,
		logger: logger,
		tasks:  make(chan func(), 64),
		done:   make(chan struct{}),
	}
}

// Run executes the loop until ctx is cancelled. Call it from exactly one
// goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			// Drain what already queued so waiting producers unblock.
			for {
				select {
				case fn := <-d.tasks:
					fn()
				default:
					return
				}
			}
		case fn := <-d.tasks:
			fn()
		}
	}
}

// Do runs fn on the loop and waits for it to complete.
func (d *Dispatcher) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		defer close(ran)
		fn()
	}

	select {
	case d.tasks <- wrapped:
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ran:
		return nil
	case <-d.done:
		return ErrStopped
	}
}

// Dispatch decodes a wire payload and delivers the event. A malformed
// payload is rejected before any tree work: the caller gets
// event.ErrMalformedPayload and the tree is untouched.
func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte) (coordinator.Outcome, error) {
	ev, err := event.Decode(payload)
	if err != nil {
		d.logger.Warn("rejecting malformed event payload", zap.Error(err))
		if d.env.Metrics != nil {
			d.env.Metrics.IncEventsMalformed()
		}
		return coordinator.Forwarded, err
	}
	return d.DispatchEvent(ctx, ev)
}

// DispatchEvent delivers one decoded event on the loop.
func (d *Dispatcher) DispatchEvent(ctx context.Context, ev event.Event) (coordinator.Outcome, error) {
	var out coordinator.Outcome
	err := d.Do(ctx, func() {
		out = d.deliver(ev)
	})
	return out, err
}

// deliver runs on the loop. A cold tree is bootstrapped by starting the
// container root with the event as its source, then routing the event
// through it; otherwise routing starts at the active node.
func (d *Dispatcher) deliver(ev event.Event) coordinator.Outcome {
	cur := d.env.Active.Current()
	if cur == nil || !cur.Alive() {
		d.root = coordinator.New(d.set.Container(), d.env)
		d.root.Start(ev)
		d.logger.Info("cold start: container root created",
			zap.String("kind", string(ev.Kind())),
		)
		cur = d.root
	}

	out := cur.Handle(ev)
	if d.env.Metrics != nil {
		d.env.Metrics.RecordEvent(string(ev.Kind()), out.String())
	}
	d.logger.Debug("event routed",
		zap.String("kind", string(ev.Kind())),
		zap.String("outcome", out.String()),
	)
	return out
}

// Reset tears the whole tree down on the loop. Used before session restore
// and by the admin API.
func (d *Dispatcher) Reset(ctx context.Context) error {
	return d.Do(ctx, func() {
		if d.root != nil && d.root.Alive() {
			d.root.Finish()
		}
		d.root = nil
	})
}

// Inspect runs fn on the loop with the current root and active node. fn
// must not retain either pointer past its return.
func (d *Dispatcher) Inspect(ctx context.Context, fn func(root, active *coordinator.Coordinator)) error {
	return d.Do(ctx, func() {
		fn(d.root, d.env.Active.Current())
	})
}

// Env returns the tree environment shared by every node.
func (d *Dispatcher) Env() *coordinator.Env { return d.env }

// Flows returns the flow set used for construction.
func (d *Dispatcher) Flows() *flows.Set { return d.set }
