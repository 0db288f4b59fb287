package geo

import (
	"math"
	"testing"
)

func TestScene_ScaleGivesModelRadius(t *testing.T) {
	for _, modelRadius := range []float64{1, 2.5, 100} {
		s := NewScene(modelRadius)
		got := s.Project(GeodeticToECEF(0, 0, 0))
		if !near(got.Length(), modelRadius, 1e-9) {
			t.Fatalf("radius=%v: |p|=%v", modelRadius, got.Length())
		}
	}
}

func TestECEFToScene_AxisRemap(t *testing.T) {
	p := ECEF{X: 1, Y: 2, Z: 3}
	got := ECEFToScene(p, 1, 0, false)
	if got != (Vec3{X: 1, Y: 3, Z: -2}) {
		t.Fatalf("remap=%+v", got)
	}
	flipped := ECEFToScene(p, 1, 0, true)
	if flipped != (Vec3{X: 1, Y: 3, Z: 2}) {
		t.Fatalf("flip=%+v", flipped)
	}
}

func TestECEFToScene_YawRotatesAboutUp(t *testing.T) {
	p := GeodeticToECEF(45, 10, 0)
	plain := ECEFToScene(p, 1e-6, 0, false)
	yawed := ECEFToScene(p, 1e-6, DefaultYawDeg, false)
	if !near(plain.Y, yawed.Y, 1e-12) {
		t.Fatalf("yaw changed up component: %v vs %v", plain.Y, yawed.Y)
	}
	if !near(plain.Length(), yawed.Length(), 1e-12) {
		t.Fatalf("yaw changed length")
	}
	a1 := math.Atan2(plain.X, plain.Z)
	a2 := math.Atan2(yawed.X, yawed.Z)
	d := math.Mod(a2-a1+3*math.Pi, 2*math.Pi) - math.Pi
	if !near(d, rad(DefaultYawDeg), 1e-12) {
		t.Fatalf("rotation=%v rad want %v", d, rad(DefaultYawDeg))
	}
}
