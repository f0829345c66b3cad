// Package flows defines the concrete Sprout navigation flows and how the
// coordinator chain is built or extended for deep links.
//
// The chain order is container → feed → post → comments; profile and
// plant-card screens hang off the container as modals. A deep link landing
// on a cold tree builds the whole chain synchronously, each child started
// with its slice of the originating event. When part of the chain is
// already live the router extends it instead of discarding and rebuilding,
// and a screen that already shows the target wins over fresh construction.
package flows

import (
	"github.com/verdantlabs/sprout/navigator/internal/domain/coordinator"
	"github.com/verdantlabs/sprout/navigator/internal/domain/event"
	"github.com/verdantlabs/sprout/navigator/internal/domain/routes"
	"github.com/verdantlabs/sprout/navigator/internal/domain/screen"
)

// Set builds the concrete flows against one route table.
type Set struct {
	table *routes.Table
}

// NewSet creates a flow set. A nil table falls back to the built-in routes.
func NewSet(table *routes.Table) *Set {
	if table == nil {
		table = routes.Default()
	}
	return &Set{table: table}
}

// Container returns the root flow.
func (s *Set) Container() coordinator.Flow { return &containerFlow{set: s} }

// ByName rebuilds a flow from its snapshot name and origin event. Used by
// session restore.
func (s *Set) ByName(name string, origin event.Event) (coordinator.Flow, bool) {
	switch name {
	case "container":
		return &containerFlow{set: s}, true
	case "feed":
		return &feedFlow{set: s}, true
	case "post":
		if e, ok := origin.(event.OpenPost); ok {
			return &postFlow{set: s, postID: e.PostID}, true
		}
		return nil, false
	case "comments":
		if e, ok := origin.(event.OpenComment); ok {
			return &threadFlow{set: s, postID: e.PostID, highlight: e.CommentID}, true
		}
		return nil, false
	case "profile":
		if e, ok := origin.(event.OpenProfile); ok {
			return &profileFlow{set: s, userID: e.UserID}, true
		}
		return nil, false
	case "plant_card":
		if e, ok := origin.(event.OpenPlantCard); ok {
			return &plantCardFlow{set: s, cardID: e.CardID}, true
		}
		return nil, false
	default:
		return nil, false
	}
}

func (s *Set) handle(name string, params map[string]string) (*screen.Handle, screen.Mode) {
	return screen.NewHandle(s.table.Path(name), params), s.table.Mode(name)
}

// containerFlow is the root: the outer shell with global construction
// capability. Every deep link it receives builds or extends the chain.
type containerFlow struct {
	set *Set
}

func (f *containerFlow) Name() string { return "container" }

func (f *containerFlow) Present(c *coordinator.Coordinator, source event.Event) (*screen.Handle, screen.Mode) {
	return f.set.handle("container", nil)
}

func (f *containerFlow) Route(c *coordinator.Coordinator, ev event.Event) coordinator.Outcome {
	s := f.set
	switch e := ev.(type) {
	case event.OpenFeed:
		s.ensureFeed(c)
		return coordinator.Handled
	case event.OpenPost:
		feed := s.ensureFeed(c)
		s.ensurePost(feed, e.PostID, e)
		return coordinator.Handled
	case event.OpenComment:
		feed := s.ensureFeed(c)
		post := s.ensurePost(feed, e.PostID, event.OpenPost{PostID: e.PostID})
		s.ensureThread(post, e)
		return coordinator.Handled
	case event.CommentReceived:
		feed := s.ensureFeed(c)
		post := s.ensurePost(feed, e.PostID, event.OpenPost{PostID: e.PostID})
		s.ensureThread(post, event.OpenComment{PostID: e.PostID, CommentID: e.CommentID})
		return coordinator.Handled
	case event.LikeReceived:
		feed := s.ensureFeed(c)
		post := s.ensurePost(feed, e.PostID, event.OpenPost{PostID: e.PostID})
		if e.CommentID != "" {
			s.ensureThread(post, event.OpenComment{PostID: e.PostID, CommentID: e.CommentID})
		}
		return coordinator.Handled
	case event.OpenProfile:
		s.ensureProfile(c, e.UserID, e)
		return coordinator.Handled
	case event.FollowReceived:
		s.ensureProfile(c, e.UserID, event.OpenProfile{UserID: e.UserID})
		return coordinator.Handled
	case event.OpenPlantCard:
		s.ensureCard(c, e.CardID, e)
		return coordinator.Handled
	default:
		// Unknown variants fall through to the root's unroutable drop.
		return coordinator.Forwarded
	}
}

// feedFlow shows the main feed and extends the chain downward.
type feedFlow struct {
	set *Set
}

func (f *feedFlow) Name() string { return "feed" }

func (f *feedFlow) Present(c *coordinator.Coordinator, source event.Event) (*screen.Handle, screen.Mode) {
	return f.set.handle("feed", nil)
}

func (f *feedFlow) Route(c *coordinator.Coordinator, ev event.Event) coordinator.Outcome {
	s := f.set
	switch e := ev.(type) {
	case event.OpenFeed:
		// Already in view.
		c.SetActive(c)
		return coordinator.Handled
	case event.OpenPost:
		s.ensurePost(c, e.PostID, e)
		return coordinator.Handled
	case event.OpenComment:
		post := s.ensurePost(c, e.PostID, event.OpenPost{PostID: e.PostID})
		s.ensureThread(post, e)
		return coordinator.Handled
	case event.CommentReceived:
		post := s.ensurePost(c, e.PostID, event.OpenPost{PostID: e.PostID})
		s.ensureThread(post, event.OpenComment{PostID: e.PostID, CommentID: e.CommentID})
		return coordinator.Handled
	case event.LikeReceived:
		post := s.ensurePost(c, e.PostID, event.OpenPost{PostID: e.PostID})
		if e.CommentID != "" {
			s.ensureThread(post, event.OpenComment{PostID: e.PostID, CommentID: e.CommentID})
		}
		return coordinator.Handled
	default:
		return coordinator.Forwarded
	}
}

// postFlow shows one post's detail screen.
type postFlow struct {
	set    *Set
	postID string
}

func (f *postFlow) Name() string { return "post" }

// PostID exposes the post this flow presents, for chain matching.
func (f *postFlow) PostID() string { return f.postID }

func (f *postFlow) Present(c *coordinator.Coordinator, source event.Event) (*screen.Handle, screen.Mode) {
	return f.set.handle("post", map[string]string{"post_id": f.postID})
}

func (f *postFlow) Route(c *coordinator.Coordinator, ev event.Event) coordinator.Outcome {
	s := f.set
	switch e := ev.(type) {
	case event.OpenPost:
		if e.PostID != f.postID {
			return coordinator.Forwarded
		}
		// The target is already in view; no duplicate navigation.
		c.SetActive(c)
		return coordinator.Handled
	case event.OpenComment:
		if e.PostID != f.postID {
			return coordinator.Forwarded
		}
		s.ensureThread(c, e)
		return coordinator.Handled
	case event.CommentReceived:
		if e.PostID != f.postID {
			return coordinator.Forwarded
		}
		s.ensureThread(c, event.OpenComment{PostID: e.PostID, CommentID: e.CommentID})
		return coordinator.Handled
	case event.LikeReceived:
		if e.PostID != f.postID {
			return coordinator.Forwarded
		}
		if e.CommentID != "" {
			s.ensureThread(c, event.OpenComment{PostID: e.PostID, CommentID: e.CommentID})
		}
		return coordinator.Handled
	default:
		return coordinator.Forwarded
	}
}

// threadFlow shows a post's comment thread, optionally scrolled to one
// comment.
type threadFlow struct {
	set       *Set
	postID    string
	highlight string
}

func (f *threadFlow) Name() string { return "comments" }

// Highlight returns the currently highlighted comment ID.
func (f *threadFlow) Highlight() string { return f.highlight }

func (f *threadFlow) Present(c *coordinator.Coordinator, source event.Event) (*screen.Handle, screen.Mode) {
	params := map[string]string{"post_id": f.postID}
	if f.highlight != "" {
		params["comment_id"] = f.highlight
	}
	return f.set.handle("comments", params)
}

func (f *threadFlow) Route(c *coordinator.Coordinator, ev event.Event) coordinator.Outcome {
	switch e := ev.(type) {
	case event.OpenComment:
		if e.PostID != f.postID {
			return coordinator.Forwarded
		}
		f.highlight = e.CommentID
		c.SetActive(c)
		return coordinator.Handled
	case event.CommentReceived:
		if e.PostID != f.postID {
			return coordinator.Forwarded
		}
		// Thread already in view; the data layer surfaces the new comment.
		return coordinator.Handled
	case event.LikeReceived:
		if e.PostID != f.postID {
			return coordinator.Forwarded
		}
		return coordinator.Handled
	default:
		return coordinator.Forwarded
	}
}

// profileFlow shows a user profile, presented modally off the container.
type profileFlow struct {
	set    *Set
	userID string
}

func (f *profileFlow) Name() string { return "profile" }

// UserID exposes the profiled user, for chain matching.
func (f *profileFlow) UserID() string { return f.userID }

func (f *profileFlow) Present(c *coordinator.Coordinator, source event.Event) (*screen.Handle, screen.Mode) {
	return f.set.handle("profile", map[string]string{"user_id": f.userID})
}

func (f *profileFlow) Route(c *coordinator.Coordinator, ev event.Event) coordinator.Outcome {
	switch e := ev.(type) {
	case event.OpenProfile:
		if e.UserID != f.userID {
			return coordinator.Forwarded
		}
		c.SetActive(c)
		return coordinator.Handled
	case event.FollowReceived:
		if e.UserID != f.userID {
			return coordinator.Forwarded
		}
		return coordinator.Handled
	default:
		return coordinator.Forwarded
	}
}

// plantCardFlow shows one plant-care card from the content pipeline.
type plantCardFlow struct {
	set    *Set
	cardID string
}

func (f *plantCardFlow) Name() string { return "plant_card" }

// CardID exposes the presented card, for chain matching.
func (f *plantCardFlow) CardID() string { return f.cardID }

func (f *plantCardFlow) Present(c *coordinator.Coordinator, source event.Event) (*screen.Handle, screen.Mode) {
	return f.set.handle("plant_card", map[string]string{"card_id": f.cardID})
}

func (f *plantCardFlow) Route(c *coordinator.Coordinator, ev event.Event) coordinator.Outcome {
	if e, ok := ev.(event.OpenPlantCard); ok && e.CardID == f.cardID {
		c.SetActive(c)
		return coordinator.Handled
	}
	return coordinator.Forwarded
}
