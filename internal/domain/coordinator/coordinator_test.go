package coordinator

import (
	"testing"

	"github.com/verdantlabs/sprout/navigator/internal/domain/event"
	"github.com/verdantlabs/sprout/navigator/internal/domain/screen"
)

// stubFlow presents one screen and routes via an optional callback.
type stubFlow struct {
	name     string
	route    func(c *Coordinator, ev event.Event) Outcome
	routed   int
	noScreen bool
}

func (f *stubFlow) Name() string { return f.name }

func (f *stubFlow) Present(c *Coordinator, source event.Event) (*screen.Handle, screen.Mode) {
	if f.noScreen {
		return nil, screen.ModePush
	}
	return screen.NewHandle(f.name, nil), screen.ModePush
}

func (f *stubFlow) Route(c *Coordinator, ev event.Event) Outcome {
	f.routed++
	if f.route == nil {
		return Forwarded
	}
	return f.route(c, ev)
}

// countingPresenter records present/dismiss calls.
type countingPresenter struct {
	presented int
	dismissed int
}

func (p *countingPresenter) Present(*screen.Handle, screen.Mode) error {
	p.presented++
	return nil
}

func (p *countingPresenter) Dismiss(*screen.Handle) error {
	p.dismissed++
	return nil
}

func newTestEnv(p screen.Presenter) *Env {
	return NewEnv(p, NewActive(), nil)
}

func TestStartPresentsAndActivates(t *testing.T) {
	p := &countingPresenter{}
	env := newTestEnv(p)

	root := New(&stubFlow{name: "container"}, env)
	root.Start(nil)

	if !root.Started() {
		t.Fatal("root should be started")
	}
	if p.presented != 1 {
		t.Errorf("expected 1 presentation, got %d", p.presented)
	}
	if env.Active.Current() != root {
		t.Error("root should be the active coordinator after Start")
	}
	if root.Container().Len() != 1 {
		t.Errorf("container should hold the root screen, got %d handles", root.Container().Len())
	}
}

func TestDoubleStartIsGuardedNoOp(t *testing.T) {
	p := &countingPresenter{}
	root := New(&stubFlow{name: "container"}, newTestEnv(p))

	root.Start(nil)
	root.Start(nil)

	if p.presented != 1 {
		t.Errorf("double start must not present a second screen, got %d presentations", p.presented)
	}
	if root.Container().Len() != 1 {
		t.Errorf("double start must not grow the container, got %d handles", root.Container().Len())
	}
}

func TestUnroutableEventDroppedAtRoot(t *testing.T) {
	env := newTestEnv(&countingPresenter{})
	root := New(&stubFlow{name: "container"}, env)
	root.Start(nil)

	feed := root.Spawn(&stubFlow{name: "feed"})
	feed.Start(nil)

	out := env.Active.Current().Handle(event.OpenPlantCard{CardID: "nope"})
	if out != Forwarded {
		t.Errorf("unhandled event should report Forwarded, got %v", out)
	}
	if env.Active.Current() != feed {
		t.Error("dropping an unroutable event must not mutate the active registry")
	}
}

func TestForwardingStopsAtFirstHandler(t *testing.T) {
	env := newTestEnv(&countingPresenter{})

	rootFlow := &stubFlow{name: "container", route: func(c *Coordinator, ev event.Event) Outcome {
		return Handled
	}}
	root := New(rootFlow, env)
	root.Start(nil)

	feed := root.Spawn(&stubFlow{name: "feed"})
	feed.Start(nil)

	postFlow := &stubFlow{name: "post", route: func(c *Coordinator, ev event.Event) Outcome {
		if _, ok := ev.(event.LikeReceived); ok {
			return Handled
		}
		return Forwarded
	}}
	post := feed.Spawn(postFlow)
	post.Start(nil)

	out := env.Active.Current().Handle(event.LikeReceived{PostID: "p1"})
	if out != Handled {
		t.Fatalf("expected Handled, got %v", out)
	}
	if rootFlow.routed != 0 {
		t.Error("an event handled two levels below the root must never reach the root handler")
	}
}

func TestEventForwardedUpward(t *testing.T) {
	env := newTestEnv(&countingPresenter{})

	rootFlow := &stubFlow{name: "container", route: func(c *Coordinator, ev event.Event) Outcome {
		return Handled
	}}
	root := New(rootFlow, env)
	root.Start(nil)

	feed := root.Spawn(&stubFlow{name: "feed"})
	feed.Start(nil)

	out := env.Active.Current().Handle(event.OpenProfile{UserID: "u1"})
	if out != Handled {
		t.Fatalf("expected root to handle the forwarded event, got %v", out)
	}
	if rootFlow.routed != 1 {
		t.Errorf("root handler should run exactly once, ran %d times", rootFlow.routed)
	}
}

func TestTeardownReturnsActiveToParent(t *testing.T) {
	p := &countingPresenter{}
	env := newTestEnv(p)

	root := New(&stubFlow{name: "container"}, env)
	root.Start(nil)
	feed := root.Spawn(&stubFlow{name: "feed"})
	feed.Start(nil)
	post := feed.Spawn(&stubFlow{name: "post"})
	post.Start(nil)

	if env.Active.Current() != post {
		t.Fatal("leaf should be active before teardown")
	}

	post.Finish()

	if env.Active.Current() != feed {
		t.Error("parent should reclaim active status in the same dispatch cycle")
	}
	if post.Alive() {
		t.Error("finished coordinator should be destroyed")
	}
	if p.dismissed != 1 {
		t.Errorf("expected 1 dismissal, got %d", p.dismissed)
	}
}

func TestTeardownCascadesToChildren(t *testing.T) {
	p := &countingPresenter{}
	env := newTestEnv(p)

	root := New(&stubFlow{name: "container"}, env)
	root.Start(nil)
	feed := root.Spawn(&stubFlow{name: "feed"})
	feed.Start(nil)
	post := feed.Spawn(&stubFlow{name: "post"})
	post.Start(nil)
	comments := post.Spawn(&stubFlow{name: "comments"})
	comments.Start(nil)

	feed.Finish()

	if feed.Alive() || post.Alive() || comments.Alive() {
		t.Error("finishing a node must destroy its whole subtree")
	}
	if env.Active.Current() != root {
		t.Error("root should be active after its only child finished")
	}
	if p.dismissed != 3 {
		t.Errorf("expected 3 dismissals, got %d", p.dismissed)
	}
	if len(root.Children()) != 0 {
		t.Errorf("root should have no children left, got %d", len(root.Children()))
	}
}

func TestOrphanTeardownIgnored(t *testing.T) {
	p := &countingPresenter{}
	env := newTestEnv(p)

	root := New(&stubFlow{name: "container"}, env)
	root.Start(nil)
	feed := root.Spawn(&stubFlow{name: "feed"})
	feed.Start(nil)

	feed.Finish()
	dismissals := p.dismissed

	// Late completion callback for a node already removed from the tree.
	feed.Finish()

	if p.dismissed != dismissals {
		t.Error("orphan teardown must not dismiss anything")
	}
	if env.Active.Current() != root {
		t.Error("orphan teardown must not move the active reference")
	}
}

func TestHandleOnDestroyedNodeDropsEvent(t *testing.T) {
	env := newTestEnv(&countingPresenter{})

	root := New(&stubFlow{name: "container"}, env)
	root.Start(nil)
	flow := &stubFlow{name: "feed"}
	feed := root.Spawn(flow)
	feed.Start(nil)
	feed.Finish()

	out := feed.Handle(event.OpenFeed{})

	if out != Handled {
		t.Errorf("a destroyed node must swallow the event, got %v", out)
	}
	if flow.routed != 0 {
		t.Error("a destroyed node must not run its flow handler")
	}
}

func TestRootFinishClearsRegistry(t *testing.T) {
	env := newTestEnv(&countingPresenter{})
	root := New(&stubFlow{name: "container"}, env)
	root.Start(nil)

	root.Finish()

	if env.Active.Current() != nil {
		t.Error("registry must hold no stale reference after the root finishes")
	}
}

func TestModalChildGetsOwnContainer(t *testing.T) {
	env := newTestEnv(&countingPresenter{})
	root := New(&stubFlow{name: "container"}, env)
	root.Start(nil)

	pushed := root.Spawn(&stubFlow{name: "feed"})
	modal := root.SpawnModal(&stubFlow{name: "settings"})

	if pushed.Container() != root.Container() {
		t.Error("pushed child should share the parent container")
	}
	if modal.Container() == root.Container() {
		t.Error("modal child should get a fresh container")
	}
}

func TestPathAndDepth(t *testing.T) {
	env := newTestEnv(&countingPresenter{})
	root := New(&stubFlow{name: "container"}, env)
	root.Start(nil)
	feed := root.Spawn(&stubFlow{name: "feed"})
	feed.Start(nil)
	post := feed.Spawn(&stubFlow{name: "post"})
	post.Start(nil)

	if post.Depth() != 3 {
		t.Errorf("expected depth 3, got %d", post.Depth())
	}

	path := post.Path()
	want := []string{"container", "feed", "post"}
	if len(path) != len(want) {
		t.Fatalf("expected path %v, got %v", want, path)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("expected path %v, got %v", want, path)
		}
	}
}
