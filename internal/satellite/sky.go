package satellite

import (
	"fmt"
	"time"

	"gnssview/internal/constellation"
	"gnssview/internal/nmea"
)

// DefaultViewMaxAge is how long a GSV view survives without a refreshed
// cycle from its talker.
const DefaultViewMaxAge = 10 * time.Second

type skyView struct {
	sats []Status
	at   time.Time
}

type usedSet struct {
	keys map[Key]bool
	at   time.Time
}

// Sky assembles complete satellite batches out of GSV cycles and GSA
// used-in-fix lists. Not safe for concurrent use.
type Sky struct {
	maxAge time.Duration
	views  map[string]skyView
	used   map[constellation.Constellation]usedSet
}

func NewSky(maxAge time.Duration) *Sky {
	if maxAge <= 0 {
		maxAge = DefaultViewMaxAge
	}
	s := &Sky{maxAge: maxAge}
	s.Reset()
	return s
}

func viewScope(g nmea.GSV) string {
	if g.SignalID != nil {
		return fmt.Sprintf("%s/%d", g.Talker, *g.SignalID)
	}
	return g.Talker
}

// ApplyGSV replaces the talker's view with a completed cycle. Partial
// cycles are ignored; it reports whether the view changed.
func (s *Sky) ApplyGSV(nowUTC time.Time, g nmea.GSV) bool {
	if !g.Complete {
		return false
	}
	sats := make([]Status, 0, len(g.Satellites))
	for _, sv := range g.Satellites {
		if sv.PRN <= 0 {
			continue
		}
		sats = append(sats, Status{
			Constellation: constellation.Classify(g.Talker, sv.PRN),
			PRN:           sv.PRN,
			SNR:           copyF(sv.SNR),
			AzimuthDeg:    copyF(sv.Azimuth),
			ElevationDeg:  copyF(sv.Elevation),
		})
	}
	s.views[viewScope(g)] = skyView{sats: sats, at: nowUTC}
	return true
}

// ApplyGSA records the satellites used in the solution. A GSA replaces the
// used set of each constellation its ids belong to, so a receiver that
// sends one $GNGSA per system keeps all of them.
func (s *Sky) ApplyGSA(nowUTC time.Time, g nmea.GSA) {
	for c, ids := range constellation.GroupIDs(g.Talker, g.SystemID, g.SatelliteIDs) {
		keys := make(map[Key]bool, len(ids))
		for _, id := range ids {
			keys[Key{Constellation: c, PRN: id}] = true
		}
		s.used[c] = usedSet{keys: keys, at: nowUTC}
	}
}

// ApplyStatus replaces everything with an externally supplied batch, as
// delivered by gpsd SKY reports. External views never age out; the next
// batch replaces them.
func (s *Sky) ApplyStatus(batch []Status) {
	s.Reset()
	sats := make([]Status, len(batch))
	copy(sats, batch)
	s.views["external"] = skyView{sats: sats}
}

// Prune drops views and used sets not refreshed within the max age, so a
// talker that goes quiet stops contributing satellites. It reports whether
// anything was dropped.
func (s *Sky) Prune(nowUTC time.Time) bool {
	pruned := false
	for scope, v := range s.views {
		if !v.at.IsZero() && nowUTC.Sub(v.at) > s.maxAge {
			delete(s.views, scope)
			pruned = true
		}
	}
	for c, u := range s.used {
		if !u.at.IsZero() && nowUTC.Sub(u.at) > s.maxAge {
			delete(s.used, c)
			pruned = true
		}
	}
	return pruned
}

// Batch is the merged current set, one entry per Key, sorted.
func (s *Sky) Batch() []Status {
	byKey := make(map[Key]Status)
	for _, v := range s.views {
		for _, st := range v.sats {
			k := st.Key()
			prev, seen := byKey[k]
			if seen && !betterSignal(st, prev) {
				continue
			}
			byKey[k] = st
		}
	}
	out := make([]Status, 0, len(byKey))
	for k, st := range byKey {
		if !st.UsedInFix && s.used[k.Constellation].keys[k] {
			st.UsedInFix = true
		}
		out = append(out, st)
	}
	sortStatuses(out)
	return out
}

// betterSignal prefers the report with a resolved position, then the
// stronger SNR.
func betterSignal(a, b Status) bool {
	aPos := a.AzimuthDeg != nil && a.ElevationDeg != nil
	bPos := b.AzimuthDeg != nil && b.ElevationDeg != nil
	if aPos != bPos {
		return aPos
	}
	if a.SNR == nil {
		return false
	}
	return b.SNR == nil || *a.SNR > *b.SNR
}

func (s *Sky) Reset() {
	s.views = make(map[string]skyView)
	s.used = make(map[constellation.Constellation]usedSet)
}

func copyF(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
