// Package event defines the navigation events routed through the
// coordinator tree.
//
// Events are immutable values carrying identifiers only, never live screen
// state. Each variant maps 1:1 to an external trigger: a push-notification
// tap, a deep link, or a feed-SDK interaction callback. New variants can be
// added without touching existing coordinators; a coordinator that does not
// recognize a variant forwards it to its parent.
package event

// Kind tags an event variant.
type Kind string

const (
	KindOpenFeed        Kind = "open_feed"
	KindOpenPost        Kind = "open_post"
	KindOpenComment     Kind = "open_comment"
	KindOpenProfile     Kind = "open_profile"
	KindOpenPlantCard   Kind = "open_plant_card"
	KindLikeReceived    Kind = "like_received"
	KindCommentReceived Kind = "comment_received"
	KindFollowReceived  Kind = "follow_received"
)

// Event is an immutable description of something that should influence
// navigation, independent of any specific screen.
type Event interface {
	Kind() Kind
}

// OpenFeed requests the main feed screen.
type OpenFeed struct{}

// OpenPost requests the detail screen for a single post.
type OpenPost struct {
	PostID string
}

// OpenComment requests a post's comment thread scrolled to one comment.
type OpenComment struct {
	PostID    string
	CommentID string
}

// OpenProfile requests a user's profile screen.
type OpenProfile struct {
	UserID string
}

// OpenPlantCard requests a plant-care card from the content pipeline.
type OpenPlantCard struct {
	CardID string
}

// LikeReceived is the feed SDK's like callback. CommentID is empty when the
// like targets the post itself.
type LikeReceived struct {
	PostID    string
	CommentID string
	UserID    string
}

// CommentReceived is the feed SDK's new-comment callback.
type CommentReceived struct {
	PostID    string
	CommentID string
}

// FollowReceived is the feed SDK's new-follower callback.
type FollowReceived struct {
	UserID string
}

func (OpenFeed) Kind() Kind        { return KindOpenFeed }
func (OpenPost) Kind() Kind        { return KindOpenPost }
func (OpenComment) Kind() Kind     { return KindOpenComment }
func (OpenProfile) Kind() Kind     { return KindOpenProfile }
func (OpenPlantCard) Kind() Kind   { return KindOpenPlantCard }
func (LikeReceived) Kind() Kind    { return KindLikeReceived }
func (CommentReceived) Kind() Kind { return KindCommentReceived }
func (FollowReceived) Kind() Kind  { return KindFollowReceived }
