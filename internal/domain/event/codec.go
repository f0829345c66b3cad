package event

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrMalformedPayload is returned when an external payload cannot be decoded
// into any event variant. The dispatcher surfaces it as "content unavailable"
// and leaves the coordinator tree untouched.
var ErrMalformedPayload = errors.New("malformed event payload")

// envelope is the wire format shared by push notifications, deep links, and
// session snapshots.
type envelope struct {
	Type      string `json:"type"`
	PostID    string `json:"post_id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	CardID    string `json:"card_id,omitempty"`
}

// Decode reconstructs an event from a notification or deep-link payload.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return fromEnvelope(env)
}

// Encode serializes an event back to its wire format. Used by session
// snapshots so origin events survive a restart.
func Encode(ev Event) ([]byte, error) {
	env, err := toEnvelope(ev)
	if err != nil {
		return nil, err
	}
	return sonic.Marshal(env)
}

func fromEnvelope(env envelope) (Event, error) {
	switch Kind(env.Type) {
	case KindOpenFeed:
		return OpenFeed{}, nil
	case KindOpenPost:
		if env.PostID == "" {
			return nil, fmt.Errorf("%w: open_post requires post_id", ErrMalformedPayload)
		}
		return OpenPost{PostID: env.PostID}, nil
	case KindOpenComment:
		if env.PostID == "" || env.CommentID == "" {
			return nil, fmt.Errorf("%w: open_comment requires post_id and comment_id", ErrMalformedPayload)
		}
		return OpenComment{PostID: env.PostID, CommentID: env.CommentID}, nil
	case KindOpenProfile:
		if env.UserID == "" {
			return nil, fmt.Errorf("%w: open_profile requires user_id", ErrMalformedPayload)
		}
		return OpenProfile{UserID: env.UserID}, nil
	case KindOpenPlantCard:
		if env.CardID == "" {
			return nil, fmt.Errorf("%w: open_plant_card requires card_id", ErrMalformedPayload)
		}
		return OpenPlantCard{CardID: env.CardID}, nil
	case KindLikeReceived:
		if env.PostID == "" {
			return nil, fmt.Errorf("%w: like_received requires post_id", ErrMalformedPayload)
		}
		return LikeReceived{PostID: env.PostID, CommentID: env.CommentID, UserID: env.UserID}, nil
	case KindCommentReceived:
		if env.PostID == "" || env.CommentID == "" {
			return nil, fmt.Errorf("%w: comment_received requires post_id and comment_id", ErrMalformedPayload)
		}
		return CommentReceived{PostID: env.PostID, CommentID: env.CommentID}, nil
	case KindFollowReceived:
		if env.UserID == "" {
			return nil, fmt.Errorf("%w: follow_received requires user_id", ErrMalformedPayload)
		}
		return FollowReceived{UserID: env.UserID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedPayload, env.Type)
	}
}

func toEnvelope(ev Event) (envelope, error) {
	switch e := ev.(type) {
	case OpenFeed:
		return envelope{Type: string(KindOpenFeed)}, nil
	case OpenPost:
		return envelope{Type: string(KindOpenPost), PostID: e.PostID}, nil
	case OpenComment:
		return envelope{Type: string(KindOpenComment), PostID: e.PostID, CommentID: e.CommentID}, nil
	case OpenProfile:
		return envelope{Type: string(KindOpenProfile), UserID: e.UserID}, nil
	case OpenPlantCard:
		return envelope{Type: string(KindOpenPlantCard), CardID: e.CardID}, nil
	case LikeReceived:
		return envelope{Type: string(KindLikeReceived), PostID: e.PostID, CommentID: e.CommentID, UserID: e.UserID}, nil
	case CommentReceived:
		return envelope{Type: string(KindCommentReceived), PostID: e.PostID, CommentID: e.CommentID}, nil
	case FollowReceived:
		return envelope{Type: string(KindFollowReceived), UserID: e.UserID}, nil
	default:
		return envelope{}, fmt.Errorf("unencodable event kind %q", ev.Kind())
	}
}
