// Package session persists the navigation tree across restarts.
//
// A snapshot records, per node in pre-order, the flow name and the origin
// event that caused the node to exist. Restore does not reconstruct nodes
// directly: it replays the origin events through the dispatcher, parent
// before child, so the tree is rebuilt by the same chain-construction
// rules that built it live. Snapshots are gzip-compressed JSON on disk.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/verdantlabs/sprout/navigator/internal/domain/coordinator"
	"github.com/verdantlabs/sprout/navigator/internal/domain/dispatch"
	"github.com/verdantlabs/sprout/navigator/internal/domain/event"
	"github.com/verdantlabs/sprout/navigator/internal/infrastructure/logging"
	"github.com/verdantlabs/sprout/navigator/internal/shared/id"
)

// ErrNotFound reports a restore for a session that was never saved.
var ErrNotFound = errors.New("session not found")

const fileExt = ".json.gz"

// Node is one coordinator in a snapshot, in pre-order.
type Node struct {
	Flow   string `json:"flow"`
	Origin []byte `json:"origin,omitempty"`
	Active bool   `json:"active,omitempty"`
}

// Snapshot is a persisted navigation tree.
type Snapshot struct {
	ID      id.SessionID `json:"id"`
	SavedAt time.Time    `json:"saved_at"`
	Nodes   []Node       `json:"nodes"`
}

// Manager saves and restores snapshots for one dispatcher.
type Manager struct {
	dir    string
	disp   *dispatch.Dispatcher
	logger *logging.Logger
}

// NewManager creates a session manager storing snapshots under dir.
func NewManager(dir string, disp *dispatch.Dispatcher, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{dir: dir, disp: disp, logger: logger}
}

// Save snapshots the current tree to disk and returns the snapshot.
func (m *Manager) Save(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		ID:      id.NewSessionID(),
		SavedAt: time.Now().UTC(),
	}

	err := m.disp.Inspect(ctx, func(root, active *coordinator.Coordinator) {
		if root == nil || !root.Alive() {
			return
		}
		snap.Nodes = collect(root, active, nil)
	})
	if err != nil {
		return nil, err
	}

	if err := m.write(snap); err != nil {
		return nil, err
	}

	if env := m.disp.Env(); env.Metrics != nil {
		env.Metrics.IncSessionsSaved()
	}
	m.logger.Info("session saved",
		zap.String("session", snap.ID.String()),
		zap.Int("nodes", len(snap.Nodes)),
	)
	return snap, nil
}

// collect walks the tree pre-order, recording origin events.
func collect(c, active *coordinator.Coordinator, acc []Node) []Node {
	n := Node{Flow: c.FlowName(), Active: c == active}
	if origin := c.Origin(); origin != nil {
		if data, err := event.Encode(origin); err == nil {
			n.Origin = data
		}
	}
	acc = append(acc, n)
	for _, ch := range c.Children() {
		acc = collect(ch, active, acc)
	}
	return acc
}

// Restore tears the live tree down and rebuilds it from the named
// snapshot by replaying origin events, then refocuses the active node.
func (m *Manager) Restore(ctx context.Context, sessionID string) error {
	snap, err := m.read(sessionID)
	if err != nil {
		return err
	}

	if err := m.disp.Reset(ctx); err != nil {
		return err
	}

	var activeOrigin event.Event
	for _, n := range snap.Nodes {
		if len(n.Origin) == 0 {
			continue
		}
		ev, err := event.Decode(n.Origin)
		if err != nil {
			m.logger.Warn("skipping undecodable origin in snapshot",
				zap.String("flow", n.Flow),
				zap.Error(err),
			)
			continue
		}
		if n.Flow == "container" {
			// The container is recreated implicitly on the first replay.
			continue
		}
		if _, err := m.disp.DispatchEvent(ctx, ev); err != nil {
			return fmt.Errorf("failed to replay %s origin: %w", n.Flow, err)
		}
		if n.Active {
			activeOrigin = ev
		}
	}

	// Replay order leaves the last-built leaf active; a second delivery of
	// the active node's origin moves focus back where it was saved.
	if activeOrigin != nil {
		if _, err := m.disp.DispatchEvent(ctx, activeOrigin); err != nil {
			return err
		}
	}

	if env := m.disp.Env(); env.Metrics != nil {
		env.Metrics.IncSessionsRestored()
	}
	m.logger.Info("session restored",
		zap.String("session", sessionID),
		zap.Int("nodes", len(snap.Nodes)),
	)
	return nil
}

// List returns the saved snapshots, newest first.
func (m *Manager) List() ([]*Snapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session dir: %w", err)
	}

	var out []*Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		snap, err := m.read(strings.TrimSuffix(entry.Name(), fileExt))
		if err != nil {
			m.logger.Warn("skipping unreadable session file",
				zap.String("file", entry.Name()),
				zap.Error(err),
			)
			continue
		}
		out = append(out, snap)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

// Delete removes a saved snapshot.
func (m *Manager) Delete(sessionID string) error {
	if !validSessionID(sessionID) {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(m.dir, sessionID+fileExt))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// validSessionID rejects anything that is not a prefixed ULID before it
// can reach the filesystem as a path component.
func validSessionID(s string) bool {
	return strings.HasPrefix(s, id.SessionPrefix+"_") && id.IsValid(s)
}

func (m *Manager) write(snap *Snapshot) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	data, err := sonic.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	path := filepath.Join(m.dir, snap.ID.String()+fileExt)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish session file: %w", err)
	}
	return f.Close()
}

func (m *Manager) read(sessionID string) (*Snapshot, error) {
	if !validSessionID(sessionID) {
		return nil, ErrNotFound
	}

	f, err := os.Open(filepath.Join(m.dir, sessionID+fileExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var snap Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &snap, nil
}
