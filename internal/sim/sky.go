package sim

import (
	"math"
	"time"
)

// SimSatellite is one satellite as the simulated receiver reports it.
type SimSatellite struct {
	Talker       string
	PRN          int
	ElevationDeg float64
	AzimuthDeg   float64
	SNR          float64
}

type skyGroup struct {
	talker  string
	firstID int
}

// NMEA numbering per talker: GLONASS uses 65+, BeiDou starts after the
// GEO slots so the simulated sky stays on MEO altitudes.
var skyGroups = []skyGroup{
	{talker: "GP", firstID: 1},
	{talker: "GL", firstID: 65},
	{talker: "GA", firstID: 1},
	{talker: "GB", firstID: 6},
}

// SkySim moves count satellites slowly across the sky. Output is a pure
// function of elapsed.
type SkySim struct {
	// Period is one full azimuth revolution.
	Period time.Duration
}

func (s SkySim) Satellites(elapsed time.Duration, count int) []SimSatellite {
	if count <= 0 {
		return nil
	}
	period := s.Period
	if period <= 0 {
		period = 6 * time.Hour
	}
	phase := float64(elapsed%period) / float64(period)

	out := make([]SimSatellite, 0, count)
	for i := 0; i < count; i++ {
		g := skyGroups[i%len(skyGroups)]
		n := i / len(skyGroups)
		base := float64(i) * 360.0 / float64(count)
		az := math.Mod(base+360*phase, 360)
		el := 10 + 70*math.Abs(math.Sin(2*math.Pi*(phase+float64(i)/float64(count))))
		out = append(out, SimSatellite{
			Talker:       g.talker,
			PRN:          g.firstID + n*3,
			ElevationDeg: math.Round(el),
			AzimuthDeg:   math.Round(az),
			SNR:          math.Round(20 + el/3),
		})
	}
	return out
}
