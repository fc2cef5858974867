// Package anim evaluates animation clips against a model's skeleton:
// keyframe sampling, clip cross-fading and the hierarchy pass that turns
// local joint poses into GPU skinning matrices.
package anim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mirelat/animview/rig"
	"github.com/mirelat/animview/utils"
)

// jointPose is one joint's sampled TRS. Poses are blended componentwise
// before any matrix is built.
type jointPose struct {
	translation mgl32.Vec3
	rotation    mgl32.Quat
	scale       mgl32.Vec3
}

// bracket finds k0, k1 with keyframes[k0].Time <= t < keyframes[k1].Time.
// Past the last keyframe both indices clamp to the last one.
func bracket(keyframes []rig.Keyframe, t float32) (int, int) {
	last := len(keyframes) - 1
	for i := 0; i < last; i++ {
		if t >= keyframes[i].Time && t < keyframes[i+1].Time {
			return i, i + 1
		}
	}
	if t < keyframes[0].Time {
		return 0, 0
	}
	return last, last
}

// interpFactor guards the duplicate-keyframe case: a zero-length span
// yields t=0 instead of dividing by zero.
func interpFactor(k0, k1 rig.Keyframe, t float32) float32 {
	if k1.Time <= k0.Time {
		return 0
	}
	return (t - k0.Time) / (k1.Time - k0.Time)
}

// samplePose evaluates every channel of clip at time into poses, which must
// already hold the pose to fall back on (normally the rest pose) and be
// sized to the skeleton. Channels with out-of-range joint indices are
// skipped.
func samplePose(sk *rig.Skeleton, clip *rig.AnimationClip, time float32, poses []jointPose) {
	for ci := range clip.Channels {
		ch := &clip.Channels[ci]
		if len(ch.Keyframes) == 0 {
			continue
		}
		if ch.Joint < 0 || ch.Joint >= len(poses) {
			continue
		}

		i0, i1 := bracket(ch.Keyframes, time)
		k0, k1 := ch.Keyframes[i0], ch.Keyframes[i1]
		t := interpFactor(k0, k1, time)

		pose := &poses[ch.Joint]
		switch ch.Property {
		case rig.PropertyTranslation:
			pose.translation = utils.LerpV3(vec3(k0.Value), vec3(k1.Value), t)
		case rig.PropertyRotation:
			pose.rotation = utils.QuatSlerp(quat(k0.Value), quat(k1.Value), t)
		case rig.PropertyScale:
			pose.scale = utils.LerpV3(vec3(k0.Value), vec3(k1.Value), t)
		}
	}
}

func vec3(v [4]float32) mgl32.Vec3 {
	return mgl32.Vec3{v[0], v[1], v[2]}
}

// quat maps a stored xyzw keyframe value to mgl32's w-first layout.
func quat(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

func restPoses(sk *rig.Skeleton, poses []jointPose) {
	for i := range sk.Joints {
		j := &sk.Joints[i]
		poses[i] = jointPose{
			translation: j.RestTranslation,
			rotation:    j.RestRotation,
			scale:       j.RestScale,
		}
	}
}

func applyPoses(sk *rig.Skeleton, poses []jointPose) {
	for i := range sk.Joints {
		j := &sk.Joints[i]
		j.Translation = poses[i].translation
		j.Rotation = poses[i].rotation
		j.Scale = poses[i].scale
		j.Local = utils.ComposeTRS(j.Translation, j.Rotation, j.Scale)
	}
}

// Sample writes the local transforms of m's skeleton for the active clip at
// the given time. While a blend is in flight the source clip at the model's
// time is cross-faded with the target clip at the time elapsed since the
// blend started.
func Sample(m *rig.Model, time float32) {
	sk := m.Skeleton
	if sk.JointCount() == 0 {
		return
	}
	clip := m.CurrentClip()
	if clip == nil {
		return
	}

	poses := make([]jointPose, len(sk.Joints))
	restPoses(sk, poses)
	samplePose(sk, clip, time, poses)

	if b := m.Blend; b != nil {
		if target := clipAt(m, b.To); target != nil {
			targetPoses := make([]jointPose, len(sk.Joints))
			restPoses(sk, targetPoses)
			samplePose(sk, target, b.Progress*b.Duration, targetPoses)
			blendPoses(poses, targetPoses, b.Progress)
		}
	}

	applyPoses(sk, poses)
}

func clipAt(m *rig.Model, idx int) *rig.AnimationClip {
	if idx < 0 || idx >= len(m.Clips) {
		return nil
	}
	return &m.Clips[idx]
}

func blendPoses(from, to []jointPose, t float32) {
	for i := range from {
		from[i].translation = utils.LerpV3(from[i].translation, to[i].translation, t)
		from[i].rotation = utils.QuatSlerp(from[i].rotation, to[i].rotation, t)
		from[i].scale = utils.LerpV3(from[i].scale, to[i].scale, t)
	}
}
