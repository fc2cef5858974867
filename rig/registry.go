package rig

import (
	"sort"
)

// Handle identifies a loaded model. Zero is the invalid sentinel. The low
// 16 bits are a 1-based slot index, the high 16 bits the slot generation;
// unloading bumps the generation so a stale handle misses instead of
// aliasing whatever model reuses the slot.
type Handle uint32

const HandleInvalid Handle = 0

func makeHandle(slot int, gen uint16) Handle {
	return Handle(uint32(slot+1) | uint32(gen)<<16)
}

func (h Handle) slot() int       { return int(uint32(h)&0xffff) - 1 }
func (h Handle) generation() uint16 { return uint16(uint32(h) >> 16) }

type registrySlot struct {
	gen   uint16
	model *Model
}

// Registry owns all loaded models. It is not safe for concurrent use; the
// engine serializes access behind its own lock.
type Registry struct {
	slots []registrySlot
	free  []int
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add stores the model and stamps its Handle field.
func (r *Registry) Add(m *Model) Handle {
	var idx int
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, registrySlot{})
		idx = len(r.slots) - 1
	}
	r.slots[idx].model = m
	m.Handle = makeHandle(idx, r.slots[idx].gen)
	return m.Handle
}

// Get returns nil for the invalid handle, unknown slots and stale
// generations.
func (r *Registry) Get(h Handle) *Model {
	if h == HandleInvalid {
		return nil
	}
	idx := h.slot()
	if idx < 0 || idx >= len(r.slots) {
		return nil
	}
	s := &r.slots[idx]
	if s.model == nil || s.gen != h.generation() {
		return nil
	}
	return s.model
}

// Remove detaches the model from the registry and returns it so the caller
// can release its GPU buffers. The slot generation advances immediately.
func (r *Registry) Remove(h Handle) *Model {
	m := r.Get(h)
	if m == nil {
		return nil
	}
	idx := h.slot()
	r.slots[idx].model = nil
	r.slots[idx].gen++
	r.free = append(r.free, idx)
	return m
}

func (r *Registry) Count() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].model != nil {
			n++
		}
	}
	return n
}

// ForEach visits live models in slot order. The callback must not add or
// remove models.
func (r *Registry) ForEach(fn func(*Model)) {
	for i := range r.slots {
		if m := r.slots[i].model; m != nil {
			fn(m)
		}
	}
}

// Handles returns the live handles sorted for stable listings.
func (r *Registry) Handles() []Handle {
	out := make([]Handle, 0, len(r.slots))
	for i := range r.slots {
		if r.slots[i].model != nil {
			out = append(out, r.slots[i].model.Handle)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
