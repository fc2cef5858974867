package anim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mirelat/animview/rig"
)

// ComputeBoneMatrices propagates local transforms through the joint
// hierarchy and writes the final skinning matrices into m.BoneMatrices.
// Relies on the loader's root-first ordering invariant: every joint's
// parent index is smaller than its own, so one forward pass suffices.
func ComputeBoneMatrices(m *rig.Model) {
	sk := m.Skeleton
	n := sk.JointCount()
	if n == 0 {
		return
	}

	globals := make([]mgl32.Mat4, n)
	for i := 0; i < n; i++ {
		j := &sk.Joints[i]
		if j.Parent < 0 {
			globals[i] = j.Local
		} else {
			globals[i] = globals[j.Parent].Mul4(j.Local)
		}
	}

	for i := 0; i < n; i++ {
		m.BoneMatrices[i] = globals[i].Mul4(sk.Joints[i].InverseBind)
	}
}
