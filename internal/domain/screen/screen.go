// Package screen defines the opaque presented-UI references the navigation
// core manipulates.
//
// The navigator never renders anything itself: screens live in the frontend.
// A Handle is the process-side token for one presented screen, a Stack is
// the navigation container it sits on, and Presenter is the outbound
// interface the rendering layer implements (present by push or modally,
// dismiss). Nothing here touches rendering internals.
package screen

import "github.com/verdantlabs/sprout/navigator/internal/shared/id"

// Mode selects how a screen is presented on its container.
type Mode string

const (
	ModePush  Mode = "push"
	ModeModal Mode = "modal"
)

// Handle is an opaque reference to a presented unit of UI.
type Handle struct {
	ID     id.ScreenID       `json:"id"`
	Route  string            `json:"route"`
	Params map[string]string `json:"params,omitempty"`
}

// NewHandle creates a handle for a route with the identifiers that seed the
// target screen's initial state.
func NewHandle(route string, params map[string]string) *Handle {
	return &Handle{
		ID:     id.NewScreenID(),
		Route:  route,
		Params: params,
	}
}

// Presenter is the rendering layer seen from the navigation core.
type Presenter interface {
	Present(h *Handle, mode Mode) error
	Dismiss(h *Handle) error
}

// NopPresenter discards all presentation commands. Used before a frontend
// has connected and in tests that only exercise routing.
type NopPresenter struct{}

func (NopPresenter) Present(*Handle, Mode) error { return nil }
func (NopPresenter) Dismiss(*Handle) error       { return nil }
