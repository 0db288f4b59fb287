package constellation

// Nominal orbital altitudes in meters.
const (
	AltitudeGPS     = 20_180_000
	AltitudeGLONASS = 19_100_000
	AltitudeGalileo = 23_222_000
	AltitudeBeiDou  = 21_500_000
	AltitudeQZSS    = 35_800_000
	AltitudeIRNSS   = 36_000_000
	AltitudeSBAS    = 35_786_000
	// AltitudeGEO is used for BeiDou satellites in geostationary slots.
	AltitudeGEO = 35_786_000
)

// beidouGEO lists BeiDou PRNs that occupy geostationary slots.
var beidouGEO = map[int]bool{
	1: true, 2: true, 3: true, 4: true, 5: true,
	59: true, 60: true, 61: true, 62: true, 63: true,
}

// NominalAltitude returns the altitude used when only azimuth and elevation
// are known. Zero means the altitude is unknown; callers must treat the
// resulting position as degraded, not as a satellite at the surface.
func NominalAltitude(c Constellation, prn int) float64 {
	switch c {
	case GPS:
		return AltitudeGPS
	case GLONASS:
		return AltitudeGLONASS
	case Galileo:
		return AltitudeGalileo
	case BeiDou:
		if beidouGEO[prn] {
			return AltitudeGEO
		}
		return AltitudeBeiDou
	case QZSS:
		return AltitudeQZSS
	case IRNSS:
		return AltitudeIRNSS
	case SBAS:
		return AltitudeSBAS
	}
	return 0
}

// NominalAltitudeByName is NominalAltitude keyed by constellation name.
func NominalAltitudeByName(name string, prn int) float64 {
	return NominalAltitude(Parse(name), prn)
}
