package screen

import "github.com/verdantlabs/sprout/navigator/internal/shared/id"

// Stack is a navigation container: the ordered list of handles presented on
// one presentation context. Coordinators push onto and pop from it; they
// never reorder it.
type Stack struct {
	handles []*Handle
}

// NewStack creates an empty navigation container.
func NewStack() *Stack {
	return &Stack{handles: make([]*Handle, 0, 4)}
}

// Push adds a handle to the top of the stack.
func (s *Stack) Push(h *Handle) {
	s.handles = append(s.handles, h)
}

// Pop removes and returns the top handle, or nil if the stack is empty.
func (s *Stack) Pop() *Handle {
	if len(s.handles) == 0 {
		return nil
	}
	h := s.handles[len(s.handles)-1]
	s.handles = s.handles[:len(s.handles)-1]
	return h
}

// Peek returns the top handle without removing it, or nil if empty.
func (s *Stack) Peek() *Handle {
	if len(s.handles) == 0 {
		return nil
	}
	return s.handles[len(s.handles)-1]
}

// Remove deletes the handle with the given ID wherever it sits. Returns
// false if the handle is not on this stack.
func (s *Stack) Remove(sid id.ScreenID) bool {
	for i, h := range s.handles {
		if h.ID == sid {
			s.handles = append(s.handles[:i], s.handles[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of handles on the stack.
func (s *Stack) Len() int {
	return len(s.handles)
}

// Handles returns a copy of the stack contents, bottom first.
func (s *Stack) Handles() []*Handle {
	out := make([]*Handle, len(s.handles))
	copy(out, s.handles)
	return out
}

// Clear removes every handle.
func (s *Stack) Clear() {
	s.handles = s.handles[:0]
}
