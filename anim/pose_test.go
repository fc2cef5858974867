package anim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mirelat/animview/utils"
)

func mat4Near(a, b mgl32.Mat4, eps float32) bool {
	for i := range a {
		if float32(math.Abs(float64(a[i]-b[i]))) > eps {
			return false
		}
	}
	return true
}

func TestComputeBoneMatricesChain(t *testing.T) {
	m := chainModel(3)
	for i := range m.Skeleton.Joints {
		j := &m.Skeleton.Joints[i]
		j.Local = utils.ComposeTRS(j.Translation, j.Rotation, j.Scale)
	}

	ComputeBoneMatrices(m)

	// identity inverse binds: bone matrix == global transform
	j := m.Skeleton.Joints
	wantMid := j[0].Local.Mul4(j[1].Local)
	wantTip := wantMid.Mul4(j[2].Local)
	if !mat4Near(m.BoneMatrices[1], wantMid, 1e-6) {
		t.Errorf("mid bone matrix=%v; expected root*mid", m.BoneMatrices[1])
	}
	if !mat4Near(m.BoneMatrices[2], wantTip, 1e-6) {
		t.Errorf("tip bone matrix=%v; expected root*mid*tip", m.BoneMatrices[2])
	}

	// the tip sits two units up the chain
	tipPos := m.BoneMatrices[2].Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !vec3Near(tipPos.Vec3(), mgl32.Vec3{0, 2, 0}, 1e-6) {
		t.Errorf("tip position=%v; expected (0,2,0)", tipPos.Vec3())
	}
}

func TestComputeBoneMatricesInverseBind(t *testing.T) {
	m := chainModel(2)
	// inverse bind undoes the rest pose, so rest-posed joints skin to identity
	m.Skeleton.Joints[1].InverseBind = mgl32.Translate3D(0, -1, 0)
	for i := range m.Skeleton.Joints {
		j := &m.Skeleton.Joints[i]
		j.Local = utils.ComposeTRS(j.Translation, j.Rotation, j.Scale)
	}

	ComputeBoneMatrices(m)
	if !mat4Near(m.BoneMatrices[1], mgl32.Ident4(), 1e-6) {
		t.Errorf("rest pose bone matrix=%v; expected identity", m.BoneMatrices[1])
	}
}

func TestComputeBoneMatricesEmptySkeleton(t *testing.T) {
	m := chainModel(0)
	ComputeBoneMatrices(m) // must not panic
}
