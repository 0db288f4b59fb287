// Package geo holds the WGS84 coordinate math: geodetic, ECEF and local
// east-north-up frames, azimuth/elevation offsets, the projection into the
// render scene, and degree-minute-second conversions.
//
// Angles are degrees at every exported boundary.
package geo

import "math"

const (
	// SemiMajorAxis is the WGS84 equatorial radius in meters.
	SemiMajorAxis = 6378137.0
	// EccentricitySquared is the WGS84 first eccentricity squared.
	EccentricitySquared = 6.69437999014e-3
	// EarthRadius is the radius the scene scale is computed against.
	EarthRadius = SemiMajorAxis
)

// ECEF is an Earth-Centered, Earth-Fixed position (or offset) in meters.
type ECEF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p ECEF) Add(q ECEF) ECEF { return ECEF{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }
func (p ECEF) Sub(q ECEF) ECEF { return ECEF{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }
func (p ECEF) Norm() float64   { return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z) }

// Geodetic is a WGS84 latitude/longitude in degrees and ellipsoidal height in meters.
type Geodetic struct {
	LatDeg float64 `json:"lat_deg"`
	LonDeg float64 `json:"lon_deg"`
	AltM   float64 `json:"alt_m"`
}

func rad(deg float64) float64 { return deg * math.Pi / 180.0 }
func deg(r float64) float64   { return r * 180.0 / math.Pi }

// GeodeticToECEF converts latitude/longitude (degrees) and height (meters).
func GeodeticToECEF(latDeg, lonDeg, altM float64) ECEF {
	lat, lon := rad(latDeg), rad(lonDeg)
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)
	n := SemiMajorAxis / math.Sqrt(1-EccentricitySquared*sinLat*sinLat)
	return ECEF{
		X: (n + altM) * cosLat * cosLon,
		Y: (n + altM) * cosLat * sinLon,
		Z: (n*(1-EccentricitySquared) + altM) * sinLat,
	}
}

// ToECEF is GeodeticToECEF for g.
func (g Geodetic) ToECEF() ECEF { return GeodeticToECEF(g.LatDeg, g.LonDeg, g.AltM) }

// ECEFToGeodetic inverts GeodeticToECEF by fixed-point iteration on latitude.
func ECEFToGeodetic(p ECEF) Geodetic {
	lon := math.Atan2(p.Y, p.X)
	r := math.Hypot(p.X, p.Y)
	if r < 1e-9 {
		// On the polar axis.
		b := SemiMajorAxis * math.Sqrt(1-EccentricitySquared)
		lat := math.Pi / 2
		if p.Z < 0 {
			lat = -lat
		}
		return Geodetic{LatDeg: deg(lat), LonDeg: 0, AltM: math.Abs(p.Z) - b}
	}

	lat := math.Atan2(p.Z, r*(1-EccentricitySquared))
	var n, h float64
	for i := 0; i < 10; i++ {
		sinLat := math.Sin(lat)
		n = SemiMajorAxis / math.Sqrt(1-EccentricitySquared*sinLat*sinLat)
		h = r/math.Cos(lat) - n
		next := math.Atan2(p.Z, r*(1-EccentricitySquared*n/(n+h)))
		if math.Abs(next-lat) < 1e-15 {
			lat = next
			break
		}
		lat = next
	}
	sinLat := math.Sin(lat)
	n = SemiMajorAxis / math.Sqrt(1-EccentricitySquared*sinLat*sinLat)
	h = r/math.Cos(lat) - n
	return Geodetic{LatDeg: deg(lat), LonDeg: deg(lon), AltM: h}
}

// ENUToECEF rotates a local east/north/up offset at (latDeg, lonDeg) into an
// ECEF offset.
func ENUToECEF(e, n, u, latDeg, lonDeg float64) ECEF {
	sinLat, cosLat := math.Sincos(rad(latDeg))
	sinLon, cosLon := math.Sincos(rad(lonDeg))
	return ECEF{
		X: -sinLon*e - sinLat*cosLon*n + cosLat*cosLon*u,
		Y: cosLon*e - sinLat*sinLon*n + cosLat*sinLon*u,
		Z: cosLat*n + sinLat*u,
	}
}

// ECEFToENU is the transpose of ENUToECEF.
func ECEFToENU(d ECEF, latDeg, lonDeg float64) (e, n, u float64) {
	sinLat, cosLat := math.Sincos(rad(latDeg))
	sinLon, cosLon := math.Sincos(rad(lonDeg))
	e = -sinLon*d.X + cosLon*d.Y
	n = -sinLat*cosLon*d.X - sinLat*sinLon*d.Y + cosLat*d.Z
	u = cosLat*cosLon*d.X + cosLat*sinLon*d.Y + sinLat*d.Z
	return e, n, u
}

// AzElToECEF places a target seen from obs at azimuth/elevation (degrees)
// and slant range (meters).
func AzElToECEF(azDeg, elDeg float64, obs Geodetic, rangeM float64) ECEF {
	sinAz, cosAz := math.Sincos(rad(azDeg))
	sinEl, cosEl := math.Sincos(rad(elDeg))
	e := rangeM * cosEl * sinAz
	n := rangeM * cosEl * cosAz
	u := rangeM * sinEl
	return ENUToECEF(e, n, u, obs.LatDeg, obs.LonDeg).Add(obs.ToECEF())
}

// ECEFToAzEl returns the azimuth [0,360), elevation and slant range of
// target as seen from obs.
func ECEFToAzEl(target ECEF, obs Geodetic) (azDeg, elDeg, rangeM float64) {
	d := target.Sub(obs.ToECEF())
	e, n, u := ECEFToENU(d, obs.LatDeg, obs.LonDeg)
	rangeM = math.Sqrt(e*e + n*n + u*u)
	if rangeM == 0 {
		return 0, 0, 0
	}
	azDeg = math.Mod(deg(math.Atan2(e, n))+360, 360)
	elDeg = deg(math.Asin(u / rangeM))
	return azDeg, elDeg, rangeM
}

// SlantRange is the distance from a surface observer to a point at
// altitudeM above a spherical Earth seen at elevation elDeg.
func SlantRange(altitudeM, elDeg float64) float64 {
	r := EarthRadius
	s := r * math.Sin(rad(elDeg))
	return -s + math.Sqrt(s*s+altitudeM*altitudeM+2*r*altitudeM)
}
