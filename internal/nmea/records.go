package nmea

// Record is one parsed sentence of a supported type.
type Record interface {
	SentenceType() string
}

// FixQuality is the GGA fix quality indicator.
type FixQuality int

const (
	QualityInvalid FixQuality = iota
	QualityGPS
	QualityDGPS
	QualityPPS
	QualityRTK
	QualityFloatRTK
	QualityEstimated
	QualityManual
	QualitySimulation
)

var qualityNames = [...]string{"Invalid", "GPS", "DGPS", "PPS", "RTK", "FloatRTK", "Estimated", "Manual", "Simulation"}

func (q FixQuality) String() string {
	if q < 0 || int(q) >= len(qualityNames) {
		return "Unknown"
	}
	return qualityNames[q]
}

// GGA: Global Positioning System Fix Data.
type GGA struct {
	Talker          string
	Time            string
	Latitude        *float64
	LatHemisphere   string
	Longitude       *float64
	LonHemisphere   string
	Quality         *FixQuality
	NumSatellites   *int
	HDOP            *float64
	Altitude        *float64
	GeoidSeparation *float64
	// MSLAltitude is Altitude + GeoidSeparation.
	MSLAltitude *float64
	DGPSAge     *float64
	DGPSStation string
}

func (GGA) SentenceType() string { return "GGA" }

// RMC: Recommended Minimum Specific GNSS Data.
type RMC struct {
	Talker        string
	Time          string
	Status        string
	Latitude      *float64
	LatHemisphere string
	Longitude     *float64
	LonHemisphere string
	SpeedKnots    *float64
	CourseDeg     *float64
	// Date is YYYY-MM-DD. Two-digit years always map to 20yy.
	Date string
	// MagneticVariation is negative for West.
	MagneticVariation *float64
	Mode              string
}

func (RMC) SentenceType() string { return "RMC" }

// GBS: GNSS Satellite Fault Detection (expected errors in meters).
type GBS struct {
	Talker      string
	Time        string
	LatErrM     *float64
	LonErrM     *float64
	AltErrM     *float64
	FailedSatID *int
	Probability *float64
	Bias        *float64
	BiasStdDev  *float64
}

func (GBS) SentenceType() string { return "GBS" }

// ErrorSum returns the sum of the error terms that are present.
func (g GBS) ErrorSum() (float64, bool) {
	sum, ok := 0.0, false
	for _, v := range []*float64{g.LatErrM, g.LonErrM, g.AltErrM} {
		if v != nil {
			sum += *v
			ok = true
		}
	}
	return sum, ok
}

// GSA: DOP and active satellites.
type GSA struct {
	Talker string
	// Mode is "M" (manual) or "A" (automatic 2D/3D).
	Mode string
	// FixType is 1 (none), 2 (2D) or 3 (3D).
	FixType      *int
	SatelliteIDs []int
	PDOP         *float64
	HDOP         *float64
	VDOP         *float64
	// SystemID is the NMEA 4.1 GNSS system id, when present.
	SystemID *int
}

func (GSA) SentenceType() string { return "GSA" }

// VTG: track made good and ground speed.
type VTG struct {
	Talker         string
	CourseTrue     *float64
	CourseMagnetic *float64
	SpeedKnots     *float64
	SpeedKmh       *float64
	Mode           string
}

func (VTG) SentenceType() string { return "VTG" }

// SatelliteInView is one GSV entry. Elevation, Azimuth and SNR are nil when
// the receiver left them blank.
type SatelliteInView struct {
	PRN       int
	Elevation *float64
	Azimuth   *float64
	SNR       *float64
}

// GSV: satellites in view. A full cycle spans TotalMessages sentences;
// Satellites holds everything accumulated for the talker so far and
// Complete is set on the last message of a gap-free cycle.
type GSV struct {
	Talker        string
	SignalID      *int
	MessageIndex  int
	TotalMessages int
	InView        *int
	Satellites    []SatelliteInView
	Complete      bool
}

func (GSV) SentenceType() string { return "GSV" }
