package engine

import (
	"github.com/mirelat/animview/rig"
)

// Snapshot types for the web viewer. Copied out under the engine lock so
// handlers never touch live model state.

type ModelInfo struct {
	Handle      rig.Handle
	Name        string
	MeshCount   int
	JointCount  int
	ClipNames   []string
	CurrentClip string
	Progress    float32
	Loop        bool
	Blending    bool
	Visible     bool
}

type JointInfo struct {
	Name   string
	Parent int
}

type ClipInfo struct {
	Name     string
	Duration float32
	Channels int
}

type BlendInfo struct {
	From     string
	To       string
	Duration float32
	Progress float32
}

type ModelDetail struct {
	ModelInfo
	Joints []JointInfo
	Clips  []ClipInfo
}

func (e *Engine) modelInfo(m *rig.Model) ModelInfo {
	info := ModelInfo{
		Handle:     m.Handle,
		Name:       m.Name,
		MeshCount:  len(m.Meshes),
		JointCount: m.Skeleton.JointCount(),
		Loop:       m.Loop,
		Blending:   m.Blend != nil,
		Visible:    m.Visible,
	}
	for i := range m.Clips {
		info.ClipNames = append(info.ClipNames, m.Clips[i].Name)
	}
	if clip := m.CurrentClip(); clip != nil {
		info.CurrentClip = clip.Name
		if clip.Duration > 0 {
			info.Progress = m.Time / clip.Duration
		}
	}
	return info
}

// List snapshots every loaded model in handle order.
func (e *Engine) List() []ModelInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ModelInfo, 0, e.registry.Count())
	for _, h := range e.registry.Handles() {
		out = append(out, e.modelInfo(e.registry.Get(h)))
	}
	return out
}

// Describe snapshots one model's full structure.
func (e *Engine) Describe(h rig.Handle) (ModelDetail, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.registry.Get(h)
	if m == nil {
		return ModelDetail{}, false
	}

	detail := ModelDetail{ModelInfo: e.modelInfo(m)}
	for i := range m.Skeleton.Joints {
		j := &m.Skeleton.Joints[i]
		detail.Joints = append(detail.Joints, JointInfo{Name: j.Name, Parent: j.Parent})
	}
	for i := range m.Clips {
		c := &m.Clips[i]
		detail.Clips = append(detail.Clips, ClipInfo{
			Name:     c.Name,
			Duration: c.Duration,
			Channels: len(c.Channels),
		})
	}
	return detail, true
}
