// Package fix merges typed NMEA records into one current fix.
package fix

import (
	"slices"
	"time"

	"gnssview/internal/constellation"
	"gnssview/internal/nmea"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultSensorFactor = 5.0
)

type Config struct {
	// Timeout is the stream silence after which the snapshot is invalidated.
	Timeout time.Duration
	// SensorFactor converts HDOP to meters (the device's UERE estimate).
	SensorFactor float64
}

// Aggregator is not safe for concurrent use. It is owned by the feed worker;
// consumers read published Snapshot copies.
type Aggregator struct {
	cfg Config

	cur      Snapshot
	lastSeen time.Time

	ggaHDOP *float64
	gsaHDOP *float64
	gbsSum  *float64

	// posFromGGA is set once GGA supplied a position; RMC then stops
	// moving it.
	posFromGGA bool
	// usedIDs holds the latest GSA ids per constellation.
	usedIDs map[constellation.Constellation][]int
}

func New(cfg Config) *Aggregator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SensorFactor <= 0 {
		cfg.SensorFactor = DefaultSensorFactor
	}
	return &Aggregator{cfg: cfg}
}

func (a *Aggregator) Timeout() time.Duration { return a.cfg.Timeout }

// Apply merges rec. Only values present in rec overwrite the snapshot.
// It reports whether rec was a type the aggregator consumes.
func (a *Aggregator) Apply(nowUTC time.Time, rec nmea.Record) bool {
	switch r := rec.(type) {
	case nmea.GGA:
		a.applyGGA(nowUTC, r)
	case nmea.RMC:
		a.applyRMC(nowUTC, r)
	case nmea.GBS:
		a.applyGBS(nowUTC, r)
	case nmea.GSA:
		a.applyGSA(r)
	case nmea.VTG:
		a.applyVTG(r)
	case nmea.GSV:
		// Satellites in view feed the sky, not the fix; they still prove
		// the receiver is alive.
	default:
		return false
	}
	a.lastSeen = nowUTC
	a.cur.Known = true
	a.cur.Seq++
	a.cur.LastSentenceUTC = stamp(nowUTC)
	a.cur.Valid = a.cur.FixQuality != nil && *a.cur.FixQuality > 0 && a.cur.LatDeg != nil && a.cur.LonDeg != nil
	a.cur.AccuracyM = a.accuracy()
	return true
}

func setF(dst **float64, v *float64) {
	if v != nil {
		x := *v
		*dst = &x
	}
}

func setI(dst **int, v *int) {
	if v != nil {
		x := *v
		*dst = &x
	}
}

func setS(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (a *Aggregator) applyGGA(nowUTC time.Time, r nmea.GGA) {
	c := &a.cur
	setS(&c.Time, r.Time)
	setF(&c.LatDeg, r.Latitude)
	setF(&c.LonDeg, r.Longitude)
	if r.Latitude != nil && r.Longitude != nil {
		a.posFromGGA = true
	}
	setF(&c.AltitudeM, r.Altitude)
	setF(&c.GeoidSepM, r.GeoidSeparation)
	setF(&c.MSLAltitudeM, r.MSLAltitude)
	if r.Quality != nil {
		q := int(*r.Quality)
		c.FixQuality = &q
		c.FixQualityName = r.Quality.String()
	}
	setI(&c.Satellites, r.NumSatellites)
	setF(&a.ggaHDOP, r.HDOP)
	c.PositionUpdatedUTC = stamp(nowUTC)
}

func (a *Aggregator) applyRMC(nowUTC time.Time, r nmea.RMC) {
	c := &a.cur
	setS(&c.Time, r.Time)
	setS(&c.Date, r.Date)
	setS(&c.Status, r.Status)
	setF(&c.SpeedKnots, r.SpeedKnots)
	setF(&c.CourseDeg, r.CourseDeg)
	setF(&c.MagVariationDeg, r.MagneticVariation)
	// Without GGA, an active RMC is the position source.
	if !a.posFromGGA && r.Status == "A" && r.Latitude != nil && r.Longitude != nil {
		setF(&c.LatDeg, r.Latitude)
		setF(&c.LonDeg, r.Longitude)
		c.PositionUpdatedUTC = stamp(nowUTC)
	}
	c.VelocityUpdatedUTC = stamp(nowUTC)
}

func (a *Aggregator) applyGBS(nowUTC time.Time, r nmea.GBS) {
	c := &a.cur
	setF(&c.LatErrM, r.LatErrM)
	setF(&c.LonErrM, r.LonErrM)
	setF(&c.AltErrM, r.AltErrM)
	if sum, ok := r.ErrorSum(); ok {
		a.gbsSum = &sum
	}
	c.ErrorsUpdatedUTC = stamp(nowUTC)
}

func (a *Aggregator) applyGSA(r nmea.GSA) {
	c := &a.cur
	setS(&c.FixMode, r.Mode)
	setI(&c.FixType, r.FixType)
	setF(&c.PDOP, r.PDOP)
	setF(&c.VDOP, r.VDOP)
	setF(&a.gsaHDOP, r.HDOP)
	if r.SatelliteIDs == nil {
		return
	}
	if a.usedIDs == nil {
		a.usedIDs = make(map[constellation.Constellation][]int)
	}
	for sys, ids := range constellation.GroupIDs(r.Talker, r.SystemID, r.SatelliteIDs) {
		a.usedIDs[sys] = ids
	}
	systems := make([]constellation.Constellation, 0, len(a.usedIDs))
	for sys := range a.usedIDs {
		systems = append(systems, sys)
	}
	slices.Sort(systems)
	c.SatelliteIDs = []int{}
	for _, sys := range systems {
		c.SatelliteIDs = append(c.SatelliteIDs, a.usedIDs[sys]...)
	}
}

func (a *Aggregator) applyVTG(r nmea.VTG) {
	c := &a.cur
	setF(&c.CourseMagDeg, r.CourseMagnetic)
	setF(&c.SpeedKmh, r.SpeedKmh)
	if c.CourseDeg == nil {
		setF(&c.CourseDeg, r.CourseTrue)
	}
	if c.SpeedKnots == nil {
		setF(&c.SpeedKnots, r.SpeedKnots)
	}
}

func (a *Aggregator) hdop() *float64 {
	if a.ggaHDOP != nil {
		return a.ggaHDOP
	}
	return a.gsaHDOP
}

// accuracy is HDOP*SensorFactor plus the GBS error sum, using whichever
// terms are known.
func (a *Aggregator) accuracy() *float64 {
	h := a.hdop()
	a.cur.HDOP = nil
	if h != nil {
		v := *h
		a.cur.HDOP = &v
	}
	if h == nil && a.gbsSum == nil {
		return nil
	}
	acc := 0.0
	if h != nil {
		acc += *h * a.cfg.SensorFactor
	}
	if a.gbsSum != nil {
		acc += *a.gbsSum
	}
	return &acc
}

// Expire invalidates the whole snapshot when nothing was accepted for the
// timeout. It reports whether an invalidation happened.
func (a *Aggregator) Expire(nowUTC time.Time) bool {
	if !a.cur.Known {
		return false
	}
	if nowUTC.Sub(a.lastSeen) < a.cfg.Timeout {
		return false
	}
	a.Invalidate()
	return true
}

// Invalidate drops all merged data. The sequence number keeps counting.
func (a *Aggregator) Invalidate() {
	seq := a.cur.Seq
	a.cur = Snapshot{Seq: seq + 1}
	a.lastSeen = time.Time{}
	a.ggaHDOP = nil
	a.gsaHDOP = nil
	a.gbsSum = nil
	a.posFromGGA = false
	a.usedIDs = nil
}

// LastSeen is the time of the last accepted record.
func (a *Aggregator) LastSeen() time.Time { return a.lastSeen }

// Snapshot returns a copy safe to hand to another goroutine.
func (a *Aggregator) Snapshot() Snapshot { return a.cur.clone() }
