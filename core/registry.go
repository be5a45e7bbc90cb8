package core

import (
	"sync"
	"sync/atomic"
)

// ── Registry ──────────────────────────────────────────────────────────────────

// Registry holds an ordered list of Coder instances.  Lookups scan in
// registration order and the first capable coder wins; there is no implicit
// priority reordering.  Mutations install a fresh snapshot atomically, so a
// concurrent lookup observes either the pre- or post-mutation list in full.
type Registry struct {
	mu     sync.Mutex // serializes writers only
	coders atomic.Pointer[[]Coder]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := make([]Coder, 0)
	r.coders.Store(&empty)
	return r
}

// Register appends a coder to the end of the resolution order.
func (r *Registry) Register(c Coder) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := *r.coders.Load()
	next := make([]Coder, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, c)
	r.coders.Store(&next)
}

// Unregister removes the first occurrence of c, preserving the order of the
// rest.  It reports whether anything was removed.
func (r *Registry) Unregister(c Coder) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := *r.coders.Load()
	for i, existing := range cur {
		if existing == c {
			next := make([]Coder, 0, len(cur)-1)
			next = append(next, cur[:i]...)
			next = append(next, cur[i+1:]...)
			r.coders.Store(&next)
			return true
		}
	}
	return false
}

// Replace swaps the entire coder list in one step.
func (r *Registry) Replace(coders []Coder) {
	next := make([]Coder, len(coders))
	copy(next, coders)
	r.mu.Lock()
	r.coders.Store(&next)
	r.mu.Unlock()
}

// Coders returns a snapshot copy of the current list in registration order.
func (r *Registry) Coders() []Coder {
	cur := *r.coders.Load()
	out := make([]Coder, len(cur))
	copy(out, cur)
	return out
}

// FindDecoder returns the first registered coder whose CanDecode accepts
// data, or nil.
func (r *Registry) FindDecoder(data []byte) Coder {
	if len(data) == 0 {
		return nil
	}
	for _, c := range *r.coders.Load() {
		if c.CanDecode(data) {
			return c
		}
	}
	return nil
}

// FindEncoder returns the first registered coder that can encode format, or nil.
func (r *Registry) FindEncoder(format Format) Coder {
	for _, c := range *r.coders.Load() {
		if c.CanEncode(format) {
			return c
		}
	}
	return nil
}

// FindProgressiveDecoder returns the first registered ProgressiveCoder whose
// CanIncrementalDecode accepts data, or nil.
func (r *Registry) FindProgressiveDecoder(data []byte) ProgressiveCoder {
	if len(data) == 0 {
		return nil
	}
	for _, c := range *r.coders.Load() {
		if pc, ok := c.(ProgressiveCoder); ok && pc.CanIncrementalDecode(data) {
			return pc
		}
	}
	return nil
}
