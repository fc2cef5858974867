package anim

import (
	"log"

	"github.com/mirelat/animview/rig"
)

// SetClip switches the model to the named clip immediately, with no blend.
// Unknown clip names are a logged no-op.
func SetClip(m *rig.Model, name string, loop bool) {
	idx, ok := m.ClipByName[name]
	if !ok {
		log.Printf("[anim] Clip %q not found on model %q", name, m.Name)
		return
	}
	m.Current = idx
	m.Time = 0
	m.Loop = loop
	m.Blend = nil
}

// BlendToClip starts a cross-fade from the current clip to the named one.
// The model holds at most one blend; a second request overwrites the slot.
// The loop flag applies to the target clip and is set immediately. A
// non-positive duration degenerates to an immediate switch.
func BlendToClip(m *rig.Model, name string, duration float32, loop bool) {
	idx, ok := m.ClipByName[name]
	if !ok {
		log.Printf("[anim] Clip %q not found for blend on model %q", name, m.Name)
		return
	}

	m.Loop = loop
	if duration <= 0 {
		m.Current = idx
		m.Time = 0
		m.Blend = nil
		return
	}

	m.Blend = &rig.BlendState{
		From:     m.Current,
		To:       idx,
		Duration: duration,
		Progress: 0,
	}
}

// Stop rewinds the current clip and discards any in-flight blend. The clip
// selection itself is untouched.
func Stop(m *rig.Model) {
	m.Time = 0
	m.Blend = nil
}

// AdvanceBlends moves every in-flight blend forward by dt and commits the
// ones that finish: the target clip becomes current and its time restarts.
// Blend slots die with their model, so unloaded models need no cleanup here.
func AdvanceBlends(r *rig.Registry, dt float32) {
	r.ForEach(func(m *rig.Model) {
		b := m.Blend
		if b == nil {
			return
		}
		b.Progress += dt / b.Duration
		if b.Progress >= 1 {
			m.Current = b.To
			m.Time = 0
			m.Blend = nil
		}
	})
}
