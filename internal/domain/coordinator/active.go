package coordinator

import "sync"

// Active is the process-wide active-path registry: a cache of the live
// tree's current leaf. It holds the single coordinator considered "in
// focus" for event routing. Mutation happens only through SetActive and
// teardown; screens never touch it. The mutex exists because inspection
// endpoints read the registry from outside the run loop.
type Active struct {
	mu      sync.RWMutex
	current *Coordinator
}

// NewActive creates an empty registry.
func NewActive() *Active {
	return &Active{}
}

// Current returns the active coordinator, nil when no flow has started.
func (a *Active) Current() *Coordinator {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Reset points the registry back at the given root. Called when the whole
// flow restarts so no stale reference survives teardown.
func (a *Active) Reset(root *Coordinator) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = root
}

func (a *Active) set(c *Coordinator) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = c
}

func (a *Active) clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = nil
}
