// Package sim generates deterministic NMEA-0183 output for development and
// tests without receiver hardware.
package sim

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"gnssview/internal/nmea"
)

// Receiver emits one epoch of sentences per call: GGA, RMC, VTG, GBS and per
// constellation GSA and GSV.
type Receiver struct {
	Path       Path
	Sky        SkySim
	Satellites int
	// GeoidSepM is reported in GGA field 11.
	GeoidSepM float64
	HDOP      float64

	start time.Time
}

func NewReceiver(path Path, satellites int) *Receiver {
	if satellites <= 0 {
		satellites = 12
	}
	return &Receiver{Path: path, Satellites: satellites, GeoidSepM: -30.0, HDOP: 0.9}
}

// Epoch renders the sentences for now. A silent state yields nil.
func (r *Receiver) Epoch(now time.Time) []string {
	if r.start.IsZero() {
		r.start = now
	}
	elapsed := now.Sub(r.start)
	st := r.Path.StateAt(elapsed)
	if st.Silent {
		return nil
	}
	now = now.UTC()
	hms := now.Format("150405") + fmt.Sprintf(".%02d", now.Nanosecond()/10_000_000)
	date := now.Format("020106")

	lat, latH, lon, lonH := "", "", "", ""
	status := "V"
	if st.Quality > 0 {
		lat, latH = formatLat(st.LatDeg)
		lon, lonH = formatLon(st.LonDeg)
		status = "A"
	}
	sats := r.Sky.Satellites(elapsed, r.Satellites)
	used := 0
	for _, s := range sats {
		if s.ElevationDeg >= 15 {
			used++
		}
	}

	lines := []string{
		nmea.Encode("GNGGA", hms, lat, latH, lon, lonH, strconv.Itoa(st.Quality), fmt.Sprintf("%02d", used),
			ff(r.HDOP, 1), ff(st.AltM-r.GeoidSepM, 1), "M", ff(r.GeoidSepM, 1), "M", "", ""),
		nmea.Encode("GNRMC", hms, status, lat, latH, lon, lonH, ff(st.SpeedKt, 2), ff(st.TrackDeg, 1), date, "", "", "A"),
		nmea.Encode("GNVTG", ff(st.TrackDeg, 1), "T", "", "M", ff(st.SpeedKt, 2), "N", ff(st.SpeedKt*1.852, 2), "K", "A"),
		nmea.Encode("GNGBS", hms, "1.2", "1.5", "2.4", "", "", "", ""),
	}
	lines = append(lines, gsaLines(sats, st.Quality)...)
	lines = append(lines, gsvLines(sats)...)
	return lines
}

// Run emits an epoch every interval until ctx is done.
func (r *Receiver) Run(ctx context.Context, interval time.Duration, emit func(line string)) error {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		for _, l := range r.Epoch(time.Now()) {
			emit(l)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func ff(v float64, prec int) string { return strconv.FormatFloat(v, 'f', prec, 64) }

func formatLat(v float64) (string, string) {
	h := "N"
	if v < 0 {
		h = "S"
	}
	d, m := splitDegrees(math.Abs(v))
	return fmt.Sprintf("%02d%08.5f", d, m), h
}

func formatLon(v float64) (string, string) {
	h := "E"
	if v < 0 {
		h = "W"
	}
	d, m := splitDegrees(math.Abs(v))
	return fmt.Sprintf("%03d%08.5f", d, m), h
}

func splitDegrees(v float64) (int, float64) {
	d := int(v)
	m := (v - float64(d)) * 60
	// Rounding to the printed precision can carry into the degrees.
	if math.Round(m*1e5)/1e5 >= 60 {
		d++
		m = 0
	}
	return d, m
}

func byTalker(sats []SimSatellite) ([]string, map[string][]SimSatellite) {
	var order []string
	groups := make(map[string][]SimSatellite)
	for _, s := range sats {
		if _, ok := groups[s.Talker]; !ok {
			order = append(order, s.Talker)
		}
		groups[s.Talker] = append(groups[s.Talker], s)
	}
	return order, groups
}

func gsaLines(sats []SimSatellite, quality int) []string {
	fixType := "3"
	if quality == 0 {
		fixType = "1"
	}
	order, groups := byTalker(sats)
	out := make([]string, 0, len(order))
	for _, talker := range order {
		fields := []string{"A", fixType}
		n := 0
		for _, s := range groups[talker] {
			if s.ElevationDeg >= 15 && n < 12 && quality > 0 {
				fields = append(fields, fmt.Sprintf("%02d", s.PRN))
				n++
			}
		}
		for ; n < 12; n++ {
			fields = append(fields, "")
		}
		fields = append(fields, "1.6", "0.9", "1.3")
		out = append(out, nmea.Encode(talker+"GSA", fields...))
	}
	return out
}

func gsvLines(sats []SimSatellite) []string {
	order, groups := byTalker(sats)
	var out []string
	for _, talker := range order {
		group := groups[talker]
		total := (len(group) + 3) / 4
		for i := 0; i < total; i++ {
			fields := []string{strconv.Itoa(total), strconv.Itoa(i + 1), fmt.Sprintf("%02d", len(group))}
			for _, s := range group[i*4 : min(len(group), i*4+4)] {
				fields = append(fields,
					fmt.Sprintf("%02d", s.PRN),
					fmt.Sprintf("%02d", int(s.ElevationDeg)),
					fmt.Sprintf("%03d", int(s.AzimuthDeg)),
					fmt.Sprintf("%02d", int(s.SNR)))
			}
			out = append(out, nmea.Encode(talker+"GSV", fields...))
		}
	}
	return out
}
