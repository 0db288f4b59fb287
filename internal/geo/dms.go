package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DMSToGeodetic converts degrees/minutes/seconds to decimal degrees,
// negative for S or W.
func DMSToGeodetic(d, m, s float64, dir string) float64 {
	v := math.Abs(d) + m/60.0 + s/3600.0
	switch strings.ToUpper(strings.TrimSpace(dir)) {
	case "S", "W":
		return -v
	}
	return v
}

// DecimalToDMS splits |value| into whole degrees, whole minutes and seconds.
func DecimalToDMS(value float64) (d int, m int, s float64) {
	// Round to microseconds of arc so exact inputs come back exact.
	total := math.Round(math.Abs(value)*3600*1e6) / 1e6
	d = int(math.Floor(total / 3600))
	rem := total - float64(d)*3600
	m = int(math.Floor(rem / 60))
	s = rem - float64(m)*60
	if s < 0 {
		s = 0
	}
	return d, m, s
}

// Hemisphere returns N/S for latitudes and E/W for longitudes.
func Hemisphere(value float64, latitude bool) string {
	switch {
	case latitude && value < 0:
		return "S"
	case latitude:
		return "N"
	case value < 0:
		return "W"
	}
	return "E"
}

// GeodeticToDMS formats |value| as D°MM'SS.SSS" followed by hemisphere,
// which is printed as given.
func GeodeticToDMS(value float64, hemisphere string) string {
	d, m, s := DecimalToDMS(value)
	s = math.Round(s*1000) / 1000
	if s >= 60 {
		s -= 60
		m++
	}
	if m >= 60 {
		m -= 60
		d++
	}
	return fmt.Sprintf("%d°%02d'%06.3f\"%s", d, m, s, strings.ToUpper(hemisphere))
}

// ParseDMS reads the GeodeticToDMS format back into signed decimal degrees.
func ParseDMS(v string) (float64, error) {
	v = strings.TrimSpace(v)
	degIdx := strings.Index(v, "°")
	minIdx := strings.IndexByte(v, '\'')
	secIdx := strings.IndexByte(v, '"')
	if degIdx < 0 || minIdx < degIdx || secIdx < minIdx {
		return 0, fmt.Errorf("geo: malformed dms %q", v)
	}
	d, err := strconv.ParseFloat(v[:degIdx], 64)
	if err != nil {
		return 0, fmt.Errorf("geo: dms degrees: %w", err)
	}
	m, err := strconv.ParseFloat(v[degIdx+len("°"):minIdx], 64)
	if err != nil {
		return 0, fmt.Errorf("geo: dms minutes: %w", err)
	}
	s, err := strconv.ParseFloat(v[minIdx+1:secIdx], 64)
	if err != nil {
		return 0, fmt.Errorf("geo: dms seconds: %w", err)
	}
	return DMSToGeodetic(d, m, s, v[secIdx+1:]), nil
}
