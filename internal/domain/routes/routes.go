// Package routes loads the screen-route manifests consulted by the
// concrete navigation flows.
//
// A manifest is a small YAML document declaring, per flow, the route path
// pushed to the renderer, the presentation mode, and the event kinds the
// flow satisfies locally. The built-in table covers the stock Sprout
// screens; a manifest directory can override or extend it at startup.
package routes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/verdantlabs/sprout/navigator/internal/domain/screen"
)

// Route describes one screen route.
type Route struct {
	Name   string   `yaml:"name" json:"name"`
	Path   string   `yaml:"path" json:"path"`
	Mode   string   `yaml:"mode" json:"mode"`
	Events []string `yaml:"events,omitempty" json:"events,omitempty"`
}

// Table holds the loaded routes keyed by flow name.
type Table struct {
	routes map[string]Route
}

// Default returns the built-in route table.
func Default() *Table {
	t := &Table{routes: make(map[string]Route)}
	for _, r := range []Route{
		{Name: "container", Path: "shell", Mode: "push"},
		{Name: "feed", Path: "feed", Mode: "push", Events: []string{"open_post", "open_comment", "comment_received", "like_received"}},
		{Name: "post", Path: "feed/post", Mode: "push", Events: []string{"open_comment", "comment_received", "like_received"}},
		{Name: "comments", Path: "feed/post/comments", Mode: "push", Events: []string{"open_comment", "comment_received", "like_received"}},
		{Name: "profile", Path: "profile", Mode: "modal", Events: []string{"open_profile", "follow_received"}},
		{Name: "plant_card", Path: "cards/detail", Mode: "modal"},
	} {
		t.routes[r.Name] = r
	}
	return t
}

// LoadDir merges every *.yaml manifest under dir into the default table.
// A missing directory is not an error; the defaults apply.
func LoadDir(dir string) (*Table, error) {
	t := Default()
	if dir == "" {
		return t, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("failed to read manifest dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", entry.Name(), err)
		}

		var doc struct {
			Routes []Route `yaml:"routes"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", entry.Name(), err)
		}

		for _, r := range doc.Routes {
			if r.Name == "" || r.Path == "" {
				return nil, fmt.Errorf("manifest %s: route entries need name and path", entry.Name())
			}
			if r.Mode == "" {
				r.Mode = "push"
			}
			t.routes[r.Name] = r
		}
	}

	return t, nil
}

// Get returns the route for a flow name.
func (t *Table) Get(name string) (Route, bool) {
	r, ok := t.routes[name]
	return r, ok
}

// Path returns the renderer route path for a flow, falling back to the
// flow name itself.
func (t *Table) Path(name string) string {
	if r, ok := t.routes[name]; ok {
		return r.Path
	}
	return name
}

// Mode returns the presentation mode for a flow, defaulting to push.
func (t *Table) Mode(name string) screen.Mode {
	if r, ok := t.routes[name]; ok && r.Mode == "modal" {
		return screen.ModeModal
	}
	return screen.ModePush
}

// All returns every route, for the inspection API.
func (t *Table) All() []Route {
	out := make([]Route, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, r)
	}
	return out
}
