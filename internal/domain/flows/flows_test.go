package flows

import (
	"testing"

	"github.com/verdantlabs/sprout/navigator/internal/domain/coordinator"
	"github.com/verdantlabs/sprout/navigator/internal/domain/event"
)

func newTree() (*Set, *coordinator.Coordinator, *coordinator.Env) {
	set := NewSet(nil)
	env := coordinator.NewEnv(nil, nil, nil)
	root := coordinator.New(set.Container(), env)
	root.Start(nil)
	return set, root, env
}

func pathOf(c *coordinator.Coordinator) []string {
	if c == nil {
		return nil
	}
	return c.Path()
}

func assertPath(t *testing.T, c *coordinator.Coordinator, want ...string) {
	t.Helper()
	got := pathOf(c)
	if len(got) != len(want) {
		t.Fatalf("expected path %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected path %v, got %v", want, got)
		}
	}
}

func TestColdCommentDeepLinkBuildsFullChain(t *testing.T) {
	_, root, env := newTree()

	out := env.Active.Current().Handle(event.OpenComment{PostID: "p1", CommentID: "c7"})
	if out != coordinator.Handled {
		t.Fatalf("expected Handled, got %v", out)
	}

	active := env.Active.Current()
	assertPath(t, active, "container", "feed", "post", "comments")

	thread, ok := active.Flow().(*threadFlow)
	if !ok {
		t.Fatalf("active flow should be the comment thread, got %T", active.Flow())
	}
	if thread.Highlight() != "c7" {
		t.Errorf("expected highlight c7, got %q", thread.Highlight())
	}

	h := active.Screen()
	if h == nil {
		t.Fatal("thread node should present a screen")
	}
	if h.Params["post_id"] != "p1" || h.Params["comment_id"] != "c7" {
		t.Errorf("unexpected screen params: %v", h.Params)
	}
	if len(root.Children()) != 1 {
		t.Errorf("container should own exactly the feed, got %d children", len(root.Children()))
	}
}

func TestLiveChainExtendedNotRebuilt(t *testing.T) {
	_, root, env := newTree()

	env.Active.Current().Handle(event.OpenPost{PostID: "p1"})
	post := env.Active.Current()
	assertPath(t, post, "container", "feed", "post")

	env.Active.Current().Handle(event.OpenComment{PostID: "p1", CommentID: "c2"})

	if !post.Alive() {
		t.Fatal("existing post node must survive a deeper deep link")
	}
	active := env.Active.Current()
	if active.Parent() != post {
		t.Error("thread should extend the existing post node, not a rebuilt one")
	}
	feed := post.Parent()
	if len(feed.Children()) != 1 {
		t.Errorf("feed should still own one post, got %d", len(feed.Children()))
	}
	_ = root
}

func TestLiveScreenWinsOverFreshConstruction(t *testing.T) {
	_, _, env := newTree()

	env.Active.Current().Handle(event.OpenPost{PostID: "p1"})
	first := env.Active.Current()

	env.Active.Current().Handle(event.OpenPost{PostID: "p1"})

	if env.Active.Current() != first {
		t.Error("reopening the visible post must keep the same node active")
	}
	if len(first.Parent().Children()) != 1 {
		t.Errorf("no duplicate post node may be spawned, feed has %d children", len(first.Parent().Children()))
	}
}

func TestDifferentPostSpawnsSibling(t *testing.T) {
	_, _, env := newTree()

	env.Active.Current().Handle(event.OpenPost{PostID: "p1"})
	env.Active.Current().Handle(event.OpenPost{PostID: "p2"})

	active := env.Active.Current()
	pf, ok := active.Flow().(*postFlow)
	if !ok || pf.PostID() != "p2" {
		t.Fatalf("active should be the second post, got %v", active.Path())
	}
	feed := active.Parent()
	if len(feed.Children()) != 2 {
		t.Errorf("feed should own both posts, got %d children", len(feed.Children()))
	}
}

func TestCommentHighlightUpdatedInPlace(t *testing.T) {
	_, _, env := newTree()

	env.Active.Current().Handle(event.OpenComment{PostID: "p1", CommentID: "c1"})
	thread := env.Active.Current()

	env.Active.Current().Handle(event.OpenComment{PostID: "p1", CommentID: "c9"})

	if env.Active.Current() != thread {
		t.Fatal("a second comment link in the same thread must not spawn a new node")
	}
	if tf := thread.Flow().(*threadFlow); tf.Highlight() != "c9" {
		t.Errorf("expected highlight c9, got %q", tf.Highlight())
	}
}

func TestLikeOnCommentOpensThread(t *testing.T) {
	_, _, env := newTree()

	env.Active.Current().Handle(event.LikeReceived{PostID: "p3", CommentID: "c4", UserID: "u1"})

	assertPath(t, env.Active.Current(), "container", "feed", "post", "comments")
}

func TestLikeOnPostStopsAtPost(t *testing.T) {
	_, _, env := newTree()

	env.Active.Current().Handle(event.LikeReceived{PostID: "p3", UserID: "u1"})

	assertPath(t, env.Active.Current(), "container", "feed", "post")
}

func TestProfileOpensModallyOffContainer(t *testing.T) {
	_, root, env := newTree()

	env.Active.Current().Handle(event.OpenFeed{})
	env.Active.Current().Handle(event.OpenProfile{UserID: "u1"})

	profile := env.Active.Current()
	assertPath(t, profile, "container", "profile")
	if profile.Container() == root.Container() {
		t.Error("profile should present on its own modal container")
	}

	env.Active.Current().Handle(event.FollowReceived{UserID: "u1"})
	if env.Active.Current() != profile {
		t.Error("a follow for the profiled user is satisfied by the open profile")
	}
}

func TestPlantCardDeepLink(t *testing.T) {
	_, _, env := newTree()

	env.Active.Current().Handle(event.OpenPlantCard{CardID: "monstera-care"})

	card := env.Active.Current()
	assertPath(t, card, "container", "plant_card")
	if h := card.Screen(); h == nil || h.Params["card_id"] != "monstera-care" {
		t.Errorf("card screen should carry the card id, got %v", card.Screen())
	}
}

func TestThreadTeardownThenRelink(t *testing.T) {
	_, _, env := newTree()

	env.Active.Current().Handle(event.OpenComment{PostID: "p1", CommentID: "c1"})
	thread := env.Active.Current()
	post := thread.Parent()

	thread.Finish()
	if env.Active.Current() != post {
		t.Fatal("post should reclaim active status after the thread closes")
	}

	env.Active.Current().Handle(event.OpenComment{PostID: "p1", CommentID: "c2"})
	fresh := env.Active.Current()
	if fresh == thread {
		t.Fatal("a destroyed thread node must not be reused")
	}
	if fresh.Parent() != post {
		t.Error("the relinked thread should hang off the surviving post node")
	}
}

func TestByNameRoundTrip(t *testing.T) {
	set := NewSet(nil)

	cases := []struct {
		name   string
		origin event.Event
	}{
		{"container", nil},
		{"feed", event.OpenFeed{}},
		{"post", event.OpenPost{PostID: "p1"}},
		{"comments", event.OpenComment{PostID: "p1", CommentID: "c1"}},
		{"profile", event.OpenProfile{UserID: "u1"}},
		{"plant_card", event.OpenPlantCard{CardID: "k1"}},
	}
	for _, tc := range cases {
		f, ok := set.ByName(tc.name, tc.origin)
		if !ok {
			t.Fatalf("ByName(%q) should succeed", tc.name)
		}
		if f.Name() != tc.name {
			t.Errorf("ByName(%q) returned flow named %q", tc.name, f.Name())
		}
	}

	if _, ok := set.ByName("post", event.OpenFeed{}); ok {
		t.Error("post flow cannot be rebuilt from a feed origin")
	}
	if _, ok := set.ByName("bogus", nil); ok {
		t.Error("unknown flow names must fail")
	}
}
