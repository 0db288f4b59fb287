package sim

import (
	"math"
	"time"
)

// State is the simulated receiver's truth at one instant.
type State struct {
	LatDeg   float64
	LonDeg   float64
	AltM     float64
	SpeedKt  float64
	TrackDeg float64
	// Quality is the GGA fix quality to report; 0 means no fix.
	Quality int
	// Silent suppresses all output, as if the receiver was unplugged.
	Silent bool
}

// Path yields the state at a time since the receiver started.
type Path interface {
	StateAt(elapsed time.Duration) State
}

// Orbit is a deterministic figure-eight (Lissajous) track around a center.
type Orbit struct {
	CenterLatDeg float64
	CenterLonDeg float64
	AltM         float64
	RadiusM      float64
	Period       time.Duration
}

const metersPerDegLat = 111_320.0

func (o Orbit) StateAt(elapsed time.Duration) State {
	period := o.Period
	if period <= 0 {
		period = 120 * time.Second
	}
	radiusM := o.RadiusM
	if radiusM <= 0 {
		radiusM = 500
	}
	radiusDeg := radiusM / metersPerDegLat

	if elapsed < 0 {
		elapsed = 0
	}
	phase := float64(elapsed%period) / float64(period)

	//	x = cos(2πt)       (east)
	//	y = 0.5*sin(4πt)   (north)
	w := 2 * math.Pi * phase
	x := math.Cos(w)
	y := 0.5 * math.Sin(2*w)

	cosLat := math.Cos(o.CenterLatDeg * math.Pi / 180.0)
	st := State{
		LatDeg:  o.CenterLatDeg + radiusDeg*y,
		LonDeg:  o.CenterLonDeg + (radiusDeg*x)/cosLat,
		AltM:    o.AltM,
		Quality: 1,
	}

	// Velocity in path units per period, then meters per second.
	vx := -2 * math.Pi * math.Sin(w)
	vy := 2 * math.Pi * math.Cos(2*w)
	st.TrackDeg = math.Mod(math.Atan2(vx, vy)*180/math.Pi+360, 360)
	mps := math.Hypot(vx, vy) * radiusM / period.Seconds()
	st.SpeedKt = mps * 1.9438444924406
	return st
}
