// Package engine ties the model registry, the animation runtime and the
// render backend together behind the handle-based API the rest of the
// process (CLI, web viewer, host bindings) talks to.
package engine

import (
	"log"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"

	"github.com/mirelat/animview/anim"
	"github.com/mirelat/animview/render"
	"github.com/mirelat/animview/rig"
	"github.com/mirelat/animview/status"
	"github.com/mirelat/animview/utils"
)

const Version = "0.1.0"

// Engine owns all loaded models. The zero value is not usable; construct
// with New.
//
// The animation core is single-writer: one mutex serializes the frame loop
// (the writer) and the HTTP surface. Model state is never handed out by
// reference; queries copy under the lock.
type Engine struct {
	mu       sync.Mutex
	registry *rig.Registry
	renderer render.Renderer
}

func New(r render.Renderer) *Engine {
	return &Engine{
		registry: rig.NewRegistry(),
		renderer: r,
	}
}

// Load reads a .gltf/.glb file into the registry. Returns the invalid
// handle on failure; the error is logged and broadcast, never raised.
func (e *Engine) Load(path string) rig.Handle {
	m, err := rig.Load(path, e.renderer)
	if err != nil {
		log.Printf("[engine] Failed to load %q: %v", path, err)
		status.Errorf("load of %q failed: %v", path, err)
		return rig.HandleInvalid
	}
	return e.adopt(m)
}

// LoadDocument loads an already decoded glTF document, for embedded assets
// and uploads.
func (e *Engine) LoadDocument(doc *gltf.Document, name string) rig.Handle {
	m, err := rig.LoadDocument(doc, name, e.renderer)
	if err != nil {
		log.Printf("[engine] Failed to load document %q: %v", name, err)
		status.Errorf("load of %q failed: %v", name, err)
		return rig.HandleInvalid
	}
	return e.adopt(m)
}

func (e *Engine) adopt(m *rig.Model) rig.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.registry.Add(m)
	status.Infof("loaded %q as model %d", m.Name, h)
	return h
}

// Unload releases the model's GPU buffers through the render collaborator
// and drops it from the registry, abandoning any in-flight blend with it.
func (e *Engine) Unload(h rig.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.registry.Remove(h)
	if m == nil {
		log.Printf("[engine] Unload of unknown model %d", h)
		return
	}
	m.Release(e.renderer)
	status.Infof("unloaded model %d (%q)", h, m.Name)
}

// Update advances the whole simulation by dt seconds: blend transitions
// first, then every model's clip time (with modulo wrapping for looping
// clips), then sampling and the skinning-matrix pass.
//
// Clip time is integrated here, inside the engine; callers only ever pass
// frame deltas and read back poses.
func (e *Engine) Update(dt float32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	anim.AdvanceBlends(e.registry, dt)

	e.registry.ForEach(func(m *rig.Model) {
		clip := m.CurrentClip()
		if clip == nil {
			return
		}
		m.Time += dt
		if m.Loop && clip.Duration > 0 && m.Time > clip.Duration {
			m.Time = float32(math.Mod(float64(m.Time), float64(clip.Duration)))
		}

		if m.Skeleton.JointCount() > 0 {
			anim.Sample(m, m.Time)
			anim.ComputeBoneMatrices(m)
		}
	})
}

// SetAnimation switches to the named clip immediately.
func (e *Engine) SetAnimation(h rig.Handle, name string, loop bool) {
	e.withModel(h, "SetAnimation", func(m *rig.Model) {
		anim.SetClip(m, name, loop)
		status.Animf(uint32(h), name, "set clip %q on model %d", name, h)
	})
}

// BlendAnimation cross-fades to the named clip over blendSeconds.
func (e *Engine) BlendAnimation(h rig.Handle, name string, blendSeconds float32, loop bool) {
	e.withModel(h, "BlendAnimation", func(m *rig.Model) {
		anim.BlendToClip(m, name, blendSeconds, loop)
		status.Animf(uint32(h), name, "blending model %d to clip %q over %.2fs", h, name, blendSeconds)
	})
}

// StopAnimation rewinds the current clip and cancels any blend.
func (e *Engine) StopAnimation(h rig.Handle) {
	e.withModel(h, "StopAnimation", func(m *rig.Model) {
		anim.Stop(m)
	})
}

// GetBoneMatrices copies the model's skinning matrices, one per joint.
// ok is false when the handle no longer resolves; stale data is never
// returned.
func (e *Engine) GetBoneMatrices(h rig.Handle) (mats []mgl32.Mat4, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.registry.Get(h)
	if m == nil {
		return nil, false
	}
	mats = make([]mgl32.Mat4, len(m.BoneMatrices))
	copy(mats, m.BoneMatrices)
	return mats, true
}

// GetAnimationProgress reports how far the current clip has played, in
// [0,1]. Returns -1 when the handle is unknown or the model has no clips.
func (e *Engine) GetAnimationProgress(h rig.Handle) float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.registry.Get(h)
	if m == nil {
		return -1
	}
	clip := m.CurrentClip()
	if clip == nil {
		return -1
	}
	if clip.Duration <= 0 {
		return 0
	}
	p := m.Time / clip.Duration
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return p
}

// IsAnimationFinished is always true for non-looping clips whose time has
// reached the duration, and for handles with nothing to play.
func (e *Engine) IsAnimationFinished(h rig.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.registry.Get(h)
	if m == nil {
		return true
	}
	clip := m.CurrentClip()
	if clip == nil {
		return true
	}
	if m.Loop {
		return false
	}
	return m.Time >= clip.Duration
}

func (e *Engine) GetCurrentAnimationName(h rig.Handle) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.registry.Get(h)
	if m == nil {
		return ""
	}
	clip := m.CurrentClip()
	if clip == nil {
		return ""
	}
	return clip.Name
}

// SetTransform places the model instance in the world: position, uniform
// scale and rotation around Y in radians.
func (e *Engine) SetTransform(h rig.Handle, x, y, z, scale, rotation float32) {
	e.withModel(h, "SetTransform", func(m *rig.Model) {
		m.Position = [3]float32{x, y, z}
		m.Scale = scale
		m.Rotation = rotation
	})
}

func (e *Engine) SetVisible(h rig.Handle, visible bool) {
	e.withModel(h, "SetVisible", func(m *rig.Model) {
		m.Visible = visible
	})
}

func (e *Engine) ModelCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Count()
}

// DumpModel renders the full parsed structure of a model for debugging.
func (e *Engine) DumpModel(h rig.Handle) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.registry.Get(h)
	if m == nil {
		return "", false
	}
	return utils.SDump(m), true
}

func (e *Engine) withModel(h rig.Handle, op string, fn func(*rig.Model)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.registry.Get(h)
	if m == nil {
		log.Printf("[engine] %s: unknown model %d", op, h)
		return
	}
	fn(m)
}
