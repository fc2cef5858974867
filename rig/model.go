// Package rig holds the in-memory form of a rigged character: mesh
// geometry, the joint hierarchy and the animation clip library, plus the
// registry that owns loaded models behind generation-checked handles.
package rig

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mirelat/animview/render"
)

type ChannelProperty int

const (
	PropertyTranslation ChannelProperty = iota
	PropertyRotation
	PropertyScale
)

func (p ChannelProperty) String() string {
	switch p {
	case PropertyTranslation:
		return "translation"
	case PropertyRotation:
		return "rotation"
	case PropertyScale:
		return "scale"
	}
	return "unknown"
}

const JointParentNone = -1

// Joint is one node of the skeletal hierarchy. Joints are stored root-first:
// Parent of any joint is strictly less than its own index, so a single
// forward pass can propagate transforms.
type Joint struct {
	Name        string
	Parent      int
	InverseBind mgl32.Mat4

	// rest pose, taken from the scene node at load time
	RestTranslation mgl32.Vec3
	RestRotation    mgl32.Quat
	RestScale       mgl32.Vec3

	// current pose, rewritten by every sampling pass
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3

	// Local is composed as T*R*S from the current pose components.
	Local mgl32.Mat4
}

// ResetPose copies the rest pose into the current pose components.
func (j *Joint) ResetPose() {
	j.Translation = j.RestTranslation
	j.Rotation = j.RestRotation
	j.Scale = j.RestScale
}

// Skeleton structure is immutable after load; only the joints' current
// pose components and Local matrices mutate.
type Skeleton struct {
	Joints      []Joint
	JointByName map[string]int

	// NodeToJoint maps scene node indices to joint indices. Animation
	// channels are resolved against it instead of guessing by position.
	NodeToJoint map[uint32]int
}

func (s *Skeleton) JointCount() int {
	if s == nil {
		return 0
	}
	return len(s.Joints)
}

type Keyframe struct {
	Time  float32
	Value [4]float32 // 3 components for translation/scale, 4 for rotation
}

// AnimationChannel targets a single joint property. Keyframes are expected
// to be sorted ascending by time; the sampler does not re-validate this.
type AnimationChannel struct {
	Joint     int
	Property  ChannelProperty
	Keyframes []Keyframe
}

type AnimationClip struct {
	Name     string
	Duration float32 // max keyframe time across channels; 0 for empty clips
	Channels []AnimationChannel
}

type SkinnedVertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
	Joints   [4]uint8
	Weights  [4]float32
}

type Mesh struct {
	Vertices []SkinnedVertex
	Indices  []uint32

	VertexBuffer render.BufferHandle
	IndexBuffer  render.BufferHandle
}

// PackVertices serializes vertices in the GPU layout: position, normal,
// texcoord as little-endian float32, joint indices as 4 bytes, weights as
// 4 float32.
func (m *Mesh) PackVertices() []byte {
	const vertexSize = 3*4 + 3*4 + 2*4 + 4 + 4*4
	out := make([]byte, len(m.Vertices)*vertexSize)
	off := 0
	putF32 := func(v float32) {
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(v))
		off += 4
	}
	for i := range m.Vertices {
		v := &m.Vertices[i]
		putF32(v.Position[0])
		putF32(v.Position[1])
		putF32(v.Position[2])
		putF32(v.Normal[0])
		putF32(v.Normal[1])
		putF32(v.Normal[2])
		putF32(v.TexCoord[0])
		putF32(v.TexCoord[1])
		out[off+0] = v.Joints[0]
		out[off+1] = v.Joints[1]
		out[off+2] = v.Joints[2]
		out[off+3] = v.Joints[3]
		off += 4
		putF32(v.Weights[0])
		putF32(v.Weights[1])
		putF32(v.Weights[2])
		putF32(v.Weights[3])
	}
	return out
}

func (m *Mesh) PackIndices() []byte {
	out := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}

// BlendState is the single in-flight transition of a model. At most one
// exists per model at any time; a new blend request overwrites it.
type BlendState struct {
	From     int
	To       int
	Duration float32
	Progress float32 // 0..1
}

// Model owns its GPU buffer handles exclusively; Release must run through
// the same renderer that created them before the model entry is dropped.
type Model struct {
	Handle Handle
	Name   string

	Meshes   []Mesh
	Skeleton *Skeleton

	Clips      []AnimationClip
	ClipByName map[string]int

	Current int     // index into Clips
	Time    float32 // seconds into the current clip
	Loop    bool
	Blend   *BlendState // nil when no transition is in flight

	BoneMatrices []mgl32.Mat4 // one skinning matrix per joint

	// instance placement, forwarded to the render backend
	Position [3]float32
	Scale    float32
	Rotation float32 // around Y, radians
	Visible  bool
}

// CurrentClip returns nil when the model has no clips or the current index
// is out of range.
func (m *Model) CurrentClip() *AnimationClip {
	if m.Current < 0 || m.Current >= len(m.Clips) {
		return nil
	}
	return &m.Clips[m.Current]
}

// Release frees the model's GPU buffers. Safe to call once per model.
func (m *Model) Release(r render.Renderer) {
	for i := range m.Meshes {
		mesh := &m.Meshes[i]
		if mesh.VertexBuffer != render.BufferHandleInvalid {
			r.DestroyBuffer(mesh.VertexBuffer)
			mesh.VertexBuffer = render.BufferHandleInvalid
		}
		if mesh.IndexBuffer != render.BufferHandleInvalid {
			r.DestroyBuffer(mesh.IndexBuffer)
			mesh.IndexBuffer = render.BufferHandleInvalid
		}
	}
}
