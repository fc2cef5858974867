package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

func LerpV3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// QuatSlerp interpolates along the shortest great-circle path. mgl32 ships
// its own slerp, but it does not negate the second operand on a negative
// dot product, which makes looping clips visibly spin the long way around.
// Falls back to component lerp when the quaternions are nearly parallel,
// since sin(theta) approaches zero there.
func QuatSlerp(a, b mgl32.Quat, t float32) mgl32.Quat {
	dot := a.Dot(b)
	if dot < 0 {
		b = b.Scale(-1)
		dot = -dot
	}

	var out mgl32.Quat
	if dot > 0.9995 {
		out = a.Add(b.Sub(a).Scale(t))
	} else {
		theta := float32(math.Acos(float64(dot)))
		sinTheta := float32(math.Sin(float64(theta)))
		w0 := float32(math.Sin(float64((1-t)*theta))) / sinTheta
		w1 := float32(math.Sin(float64(t*theta))) / sinTheta
		out = a.Scale(w0).Add(b.Scale(w1))
	}

	return out.Normalize()
}

// ComposeTRS builds a local transform as Translation * Rotation * Scale.
// Composing from the three components once per joint keeps sampling
// independent of channel processing order.
func ComposeTRS(t mgl32.Vec3, r mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Translate3D(t.X(), t.Y(), t.Z()).
		Mul4(r.Mat4()).
		Mul4(mgl32.Scale3D(s.X(), s.Y(), s.Z()))
}
