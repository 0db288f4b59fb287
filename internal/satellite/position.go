package satellite

import (
	"gnssview/internal/constellation"
	"gnssview/internal/geo"
)

// Positioner places a satellite in ECEF and scene space from its azimuth,
// elevation and the nominal altitude of its constellation.
type Positioner struct {
	Scene geo.Scene
	// ShellProjection converts the nominal altitude into the slant range to
	// the orbital shell. Off, the altitude itself is used as the range.
	ShellProjection bool
}

// Positioned is a satellite with its computed position. Degraded entries
// have no usable position: unknown altitude, missing az/el or no observer.
type Positioned struct {
	Status
	AltitudeM float64  `json:"altitude_m"`
	ECEF      geo.ECEF `json:"ecef"`
	Scene     geo.Vec3 `json:"scene"`
	Degraded  bool     `json:"degraded"`
}

func (p Positioner) Position(s Status, obs geo.Geodetic, haveObserver bool) Positioned {
	out := Positioned{Status: s, AltitudeM: constellation.NominalAltitude(s.Constellation, s.PRN)}
	if out.AltitudeM == 0 || s.AzimuthDeg == nil || s.ElevationDeg == nil || !haveObserver {
		out.Degraded = true
		return out
	}
	rng := out.AltitudeM
	if p.ShellProjection {
		rng = geo.SlantRange(out.AltitudeM, *s.ElevationDeg)
	}
	out.ECEF = geo.AzElToECEF(*s.AzimuthDeg, *s.ElevationDeg, obs, rng)
	out.Scene = p.Scene.Project(out.ECEF)
	return out
}
