package fix

import (
	"math"
	"reflect"
	"testing"
	"time"

	"gnssview/internal/nmea"
)

const ggaFixture = "$GPGGA,172814.0,3723.46587704,N,12202.26957864,W,2,6,1.2,18.893,M,25.669,M,2.00031*4F"

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustDecode(t *testing.T, d *nmea.Decoder, line string) nmea.Record {
	t.Helper()
	rec, err := d.Decode(line)
	if err != nil {
		t.Fatalf("Decode(%q): %v", line, err)
	}
	return rec
}

func TestAggregator_GGAFillsPosition(t *testing.T) {
	a := New(Config{})
	d := nmea.NewDecoder()
	if !a.Apply(t0, mustDecode(t, d, ggaFixture)) {
		t.Fatalf("Apply returned false")
	}
	s := a.Snapshot()
	if !s.Known || !s.Valid {
		t.Fatalf("known=%v valid=%v", s.Known, s.Valid)
	}
	if s.Time != "17:28:14" {
		t.Fatalf("time=%q", s.Time)
	}
	if s.FixQuality == nil || *s.FixQuality != 2 || s.FixQualityName != "DGPS" {
		t.Fatalf("quality=%v %q", s.FixQuality, s.FixQualityName)
	}
	if s.LatDeg == nil || math.Abs(*s.LatDeg-37.391097951) > 1e-6 {
		t.Fatalf("lat=%v", s.LatDeg)
	}
	if s.LonDeg == nil || *s.LonDeg >= 0 {
		t.Fatalf("lon=%v", s.LonDeg)
	}
	if s.MSLAltitudeM == nil || math.Abs(*s.MSLAltitudeM-44.562) > 1e-9 {
		t.Fatalf("msl=%v", s.MSLAltitudeM)
	}
	// HDOP 1.2 times the default factor 5.
	if s.AccuracyM == nil || math.Abs(*s.AccuracyM-6.0) > 1e-9 {
		t.Fatalf("accuracy=%v", s.AccuracyM)
	}
}

func TestAggregator_TruncatedSentenceLeavesSnapshotIdentical(t *testing.T) {
	a := New(Config{})
	d := nmea.NewDecoder()
	a.Apply(t0, mustDecode(t, d, ggaFixture))
	before := a.Snapshot()

	if _, err := d.Decode("$GPGGA,172815.0,3723.4,N,12202.2"); err == nil {
		t.Fatalf("expected error for truncated GGA")
	}
	// The feed worker never applies a record that came back with an error.
	if after := a.Snapshot(); !reflect.DeepEqual(after, before) {
		t.Fatalf("snapshot changed:\n got=%+v\nwant=%+v", after, before)
	}
}

func TestAggregator_AbsentFieldsKeepKnownValues(t *testing.T) {
	a := New(Config{})
	d := nmea.NewDecoder()
	a.Apply(t0, mustDecode(t, d, ggaFixture))

	// Altitude and HDOP blank, position present.
	line := nmea.Encode("GPGGA", "172815.0", "3723.50000000", "N", "12202.30000000", "W", "2", "6", "", "", "M", "", "M", "", "")
	a.Apply(t0.Add(time.Second), mustDecode(t, nmea.NewDecoder(), line))
	s := a.Snapshot()
	if s.Time != "17:28:15" {
		t.Fatalf("time=%q", s.Time)
	}
	if s.AltitudeM == nil || *s.AltitudeM != 18.893 {
		t.Fatalf("altitude lost: %v", s.AltitudeM)
	}
	if s.HDOP == nil || *s.HDOP != 1.2 {
		t.Fatalf("hdop lost: %v", s.HDOP)
	}
}

func TestAggregator_CrossTypeMerge(t *testing.T) {
	a := New(Config{SensorFactor: 4})
	d := nmea.NewDecoder()
	a.Apply(t0, mustDecode(t, d, ggaFixture))
	a.Apply(t0, mustDecode(t, d, nmea.Encode("GPRMC", "172814.0", "A", "3723.46587704", "N", "12202.26957864", "W", "12.5", "084.4", "230394", "003.1", "W", "D")))
	a.Apply(t0, mustDecode(t, d, nmea.Encode("GPGBS", "172814.0", "1.5", "2.0", "3.5", "", "", "", "")))
	a.Apply(t0, mustDecode(t, d, nmea.Encode("GPGSA", "A", "3", "04", "05", "", "09", "12", "", "", "24", "", "", "", "", "2.5", "1.3", "2.1")))
	a.Apply(t0, mustDecode(t, d, nmea.Encode("GPVTG", "054.7", "T", "034.4", "M", "005.5", "N", "010.2", "K", "A")))

	s := a.Snapshot()
	if s.Date != "2094-03-23" {
		t.Fatalf("date=%q", s.Date)
	}
	if s.SpeedKnots == nil || *s.SpeedKnots != 12.5 {
		t.Fatalf("speed=%v", s.SpeedKnots)
	}
	// RMC course wins over VTG course true.
	if s.CourseDeg == nil || *s.CourseDeg != 84.4 {
		t.Fatalf("course=%v", s.CourseDeg)
	}
	if s.CourseMagDeg == nil || *s.CourseMagDeg != 34.4 {
		t.Fatalf("course mag=%v", s.CourseMagDeg)
	}
	if s.MagVariationDeg == nil || *s.MagVariationDeg != -3.1 {
		t.Fatalf("magvar=%v", s.MagVariationDeg)
	}
	if !reflect.DeepEqual(s.SatelliteIDs, []int{4, 5, 9, 12, 24}) {
		t.Fatalf("ids=%v", s.SatelliteIDs)
	}
	// GGA HDOP 1.2 * 4 + (1.5+2.0+3.5).
	if s.AccuracyM == nil || math.Abs(*s.AccuracyM-11.8) > 1e-9 {
		t.Fatalf("accuracy=%v", s.AccuracyM)
	}
	if s.Seq != 5 {
		t.Fatalf("seq=%d", s.Seq)
	}
}

func rmcAt(lat string) string {
	return nmea.Encode("GPRMC", "120000.0", "A", lat, "N", "01131.000", "E", "5.0", "090.0", "010326", "", "", "A")
}

func TestAggregator_RMCTracksPositionWithoutGGA(t *testing.T) {
	a := New(Config{})
	d := nmea.NewDecoder()
	a.Apply(t0, mustDecode(t, d, rmcAt("4807.000")))
	a.Apply(t0.Add(time.Second), mustDecode(t, d, rmcAt("4808.000")))
	s := a.Snapshot()
	if s.LatDeg == nil || math.Abs(*s.LatDeg-(48+8.0/60)) > 1e-9 {
		t.Fatalf("lat=%v want %v", s.LatDeg, 48+8.0/60)
	}
	if s.PositionUpdatedUTC != t0.Add(time.Second).Format(time.RFC3339Nano) {
		t.Fatalf("position updated=%q", s.PositionUpdatedUTC)
	}

	// A void RMC does not move the position.
	a.Apply(t0.Add(2*time.Second), mustDecode(t, d, nmea.Encode("GPRMC", "120002.0", "V", "4809.000", "N", "01131.000", "E", "", "", "010326", "", "", "N")))
	if s := a.Snapshot(); math.Abs(*s.LatDeg-(48+8.0/60)) > 1e-9 {
		t.Fatalf("lat=%v after void RMC", *s.LatDeg)
	}
}

func TestAggregator_GGAPositionWinsOverRMC(t *testing.T) {
	a := New(Config{})
	d := nmea.NewDecoder()
	a.Apply(t0, mustDecode(t, d, ggaFixture))
	a.Apply(t0, mustDecode(t, d, rmcAt("4807.000")))
	if s := a.Snapshot(); math.Abs(*s.LatDeg-37.391097951) > 1e-6 {
		t.Fatalf("lat=%v want GGA latitude", *s.LatDeg)
	}

	// After invalidation RMC is the source again until GGA returns.
	a.Invalidate()
	a.Apply(t0, mustDecode(t, d, rmcAt("4807.000")))
	if s := a.Snapshot(); s.LatDeg == nil || math.Abs(*s.LatDeg-(48+7.0/60)) > 1e-9 {
		t.Fatalf("lat=%v want %v", s.LatDeg, 48+7.0/60)
	}
}

func TestAggregator_SatelliteIDsPerConstellation(t *testing.T) {
	a := New(Config{})
	d := nmea.NewDecoder()
	a.Apply(t0, mustDecode(t, d, nmea.Encode("GNGSA", "A", "3", "03", "17", "", "", "", "", "", "", "", "", "", "", "1.8", "1.0", "1.5")))
	a.Apply(t0, mustDecode(t, d, nmea.Encode("GNGSA", "A", "3", "66", "81", "", "", "", "", "", "", "", "", "", "", "1.8", "1.0", "1.5")))
	if ids := a.Snapshot().SatelliteIDs; !reflect.DeepEqual(ids, []int{3, 17, 66, 81}) {
		t.Fatalf("ids=%v want [3 17 66 81]", ids)
	}
	// The next GPS list replaces only the GPS ids.
	a.Apply(t0, mustDecode(t, d, nmea.Encode("GNGSA", "A", "3", "05", "", "", "", "", "", "", "", "", "", "", "", "1.8", "1.0", "1.5")))
	if ids := a.Snapshot().SatelliteIDs; !reflect.DeepEqual(ids, []int{5, 66, 81}) {
		t.Fatalf("ids=%v want [5 66 81]", ids)
	}
}

func TestAggregator_AccuracyUnknownWithoutInputs(t *testing.T) {
	a := New(Config{})
	d := nmea.NewDecoder()
	a.Apply(t0, mustDecode(t, d, nmea.Encode("GPVTG", "054.7", "T", "", "M", "005.5", "N", "010.2", "K", "A")))
	if s := a.Snapshot(); s.AccuracyM != nil {
		t.Fatalf("accuracy=%v want nil", *s.AccuracyM)
	}
}

func TestAggregator_SnapshotIsACopy(t *testing.T) {
	a := New(Config{})
	d := nmea.NewDecoder()
	a.Apply(t0, mustDecode(t, d, nmea.Encode("GPGSA", "A", "3", "04", "05", "", "", "", "", "", "", "", "", "", "", "2.5", "1.3", "2.1")))
	s := a.Snapshot()
	s.SatelliteIDs[0] = 99
	if got := a.Snapshot().SatelliteIDs[0]; got != 4 {
		t.Fatalf("aggregator state aliased: %d", got)
	}
}

func TestAggregator_ExpireAfterTimeout(t *testing.T) {
	a := New(Config{Timeout: 30 * time.Second})
	d := nmea.NewDecoder()
	a.Apply(t0, mustDecode(t, d, ggaFixture))

	if a.Expire(t0.Add(30*time.Second - time.Nanosecond)) {
		t.Fatalf("expired before timeout")
	}
	if !a.Snapshot().Known {
		t.Fatalf("known=false before timeout")
	}
	if !a.Expire(t0.Add(30 * time.Second)) {
		t.Fatalf("did not expire at timeout")
	}
	s := a.Snapshot()
	if s.Known || s.Valid || s.LatDeg != nil || s.AccuracyM != nil {
		t.Fatalf("snapshot not invalidated: %+v", s)
	}
	if a.Expire(t0.Add(time.Hour)) {
		t.Fatalf("second expire should be a no-op")
	}
}

func TestAggregator_SentenceBeforeTimeoutPostponesExpiry(t *testing.T) {
	a := New(Config{Timeout: 30 * time.Second})
	d := nmea.NewDecoder()
	a.Apply(t0, mustDecode(t, d, ggaFixture))
	tick := t0.Add(30*time.Second - time.Millisecond)
	a.Apply(tick, mustDecode(t, d, ggaFixture))
	if a.Expire(t0.Add(30 * time.Second)) {
		t.Fatalf("expired despite fresher sentence")
	}
	if !a.Expire(tick.Add(30 * time.Second)) {
		t.Fatalf("did not expire one timeout after the last sentence")
	}
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	timers []*fakeTimer
}

func (s *fakeScheduler) after(d time.Duration, f func()) Timer {
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func TestWatchdog_FiresAfterKick(t *testing.T) {
	var sched fakeScheduler
	fired := 0
	w := NewWatchdog(30*time.Second, func() { fired++ }, sched.after)
	w.Kick()
	if len(sched.timers) != 1 || sched.timers[0].d != 30*time.Second {
		t.Fatalf("timers=%+v", sched.timers)
	}
	sched.timers[0].f()
	if fired != 1 {
		t.Fatalf("fired=%d want 1", fired)
	}
}

func TestWatchdog_StaleTimerIsNoop(t *testing.T) {
	var sched fakeScheduler
	fired := 0
	w := NewWatchdog(time.Second, func() { fired++ }, sched.after)
	w.Kick()
	w.Kick()
	if !sched.timers[0].stopped {
		t.Fatalf("first timer not stopped on reschedule")
	}
	// The first timer raced past Stop and fires anyway.
	sched.timers[0].f()
	if fired != 0 {
		t.Fatalf("stale timer fired callback")
	}
	sched.timers[1].f()
	if fired != 1 {
		t.Fatalf("fired=%d want 1", fired)
	}
}

func TestWatchdog_StopCancels(t *testing.T) {
	var sched fakeScheduler
	fired := 0
	w := NewWatchdog(time.Second, func() { fired++ }, sched.after)
	w.Kick()
	w.Stop()
	sched.timers[0].f()
	w.Kick()
	if fired != 0 || len(sched.timers) != 1 {
		t.Fatalf("fired=%d timers=%d after Stop", fired, len(sched.timers))
	}
}

func TestWatchdog_RealTimer(t *testing.T) {
	done := make(chan struct{})
	w := NewWatchdog(10*time.Millisecond, func() { close(done) }, nil)
	defer w.Stop()
	w.Kick()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("watchdog did not fire")
	}
}
