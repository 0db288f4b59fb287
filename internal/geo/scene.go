package geo

import "math"

// Vec3 is a render-scene position. Y is up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Length() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// DefaultYawDeg corrects the globe texture's prime-meridian offset.
const DefaultYawDeg = -2.0

// Scene describes how ECEF meters map onto the globe model.
type Scene struct {
	// Scale is model units per meter (modelRadius / EarthRadius).
	Scale float64
	// YawDeg rotates the result about the up axis.
	YawDeg float64
	// FlipLongitude mirrors the east-west axis.
	FlipLongitude bool
}

// NewScene returns the default projection for a globe of modelRadius units.
func NewScene(modelRadius float64) Scene {
	return Scene{Scale: modelRadius / EarthRadius, YawDeg: DefaultYawDeg}
}

// Project is ECEFToScene with s's parameters.
func (s Scene) Project(p ECEF) Vec3 {
	return ECEFToScene(p, s.Scale, s.YawDeg, s.FlipLongitude)
}

// ECEFToScene maps ECEF meters to scene units. Scene right is ECEF X, scene
// up is ECEF Z and scene depth is -ECEF Y; flipLongitude mirrors depth, and
// yawDeg then rotates about the up axis.
func ECEFToScene(p ECEF, scale, yawDeg float64, flipLongitude bool) Vec3 {
	x := p.X * scale
	y := p.Z * scale
	z := -p.Y * scale
	if flipLongitude {
		z = -z
	}
	if yawDeg != 0 {
		sinY, cosY := math.Sincos(rad(yawDeg))
		x, z = x*cosY+z*sinY, -x*sinY+z*cosY
	}
	return Vec3{X: x, Y: y, Z: z}
}
