package nmea

import "strings"

// Minimum field counts, address included.
const (
	minGGAFields = 14
	minRMCFields = 12
	minGBSFields = 5
	minGSAFields = 18
	minVTGFields = 9
	minGSVFields = 4
)

// Parse decodes line and merges it into prior when prior is a record of the
// same sentence type. On any failure prior is returned unchanged. GSV lines
// are parsed as a single message; use a Decoder for cycle accumulation.
func Parse(line string, prior Record) Record {
	s, err := Split(line)
	if err != nil {
		return prior
	}
	var out Record
	switch s.Type {
	case "GGA":
		p, _ := prior.(GGA)
		out, err = ParseGGA(s, p)
	case "RMC":
		p, _ := prior.(RMC)
		out, err = ParseRMC(s, p)
	case "GBS":
		p, _ := prior.(GBS)
		out, err = ParseGBS(s, p)
	case "GSA":
		p, _ := prior.(GSA)
		out, err = ParseGSA(s, p)
	case "VTG":
		p, _ := prior.(VTG)
		out, err = ParseVTG(s, p)
	case "GSV":
		var msg gsvMessage
		msg, err = parseGSVMessage(s)
		if err == nil {
			out = GSV{
				Talker:        msg.talker,
				SignalID:      msg.signalID,
				MessageIndex:  msg.index,
				TotalMessages: msg.total,
				InView:        msg.inView,
				Satellites:    msg.sats,
				Complete:      msg.total == 1 && msg.index == 1,
			}
		}
	default:
		return prior
	}
	if err != nil {
		return prior
	}
	return out
}

// GGA fields:
//
//	0: talker+type
//	1: time (hhmmss.sss)
//	2,3: latitude, N/S
//	4,5: longitude, E/W
//	6: fix quality
//	7: satellites used
//	8: HDOP
//	9,10: altitude, M
//	11,12: geoid separation, M
//	13: age of differential data
//	14: differential station id
func ParseGGA(s Sentence, prior GGA) (GGA, error) {
	f := s.Fields
	if len(f) < minGGAFields {
		return prior, ErrTooFewFields
	}
	out := prior
	out.Talker = s.Talker
	out.Time = timeOr(field(f, 1), prior.Time)
	out.Latitude = coordinateOr(field(f, 2), field(f, 3), prior.Latitude)
	out.LatHemisphere = stringOr(field(f, 3), prior.LatHemisphere)
	out.Longitude = coordinateOr(field(f, 4), field(f, 5), prior.Longitude)
	out.LonHemisphere = stringOr(field(f, 5), prior.LonHemisphere)
	if q, ok := parseInt(field(f, 6)); ok && q >= int(QualityInvalid) && q <= int(QualitySimulation) {
		out.Quality = ptr(FixQuality(q))
	}
	out.NumSatellites = intOr(field(f, 7), prior.NumSatellites)
	out.HDOP = floatOr(field(f, 8), prior.HDOP)
	out.Altitude = floatOr(field(f, 9), prior.Altitude)
	out.GeoidSeparation = floatOr(field(f, 11), prior.GeoidSeparation)
	out.DGPSAge = floatOr(field(f, 13), prior.DGPSAge)
	out.DGPSStation = stringOr(field(f, 14), prior.DGPSStation)

	alt, altOK := parseFloat(field(f, 9))
	sep, sepOK := parseFloat(field(f, 11))
	if altOK && sepOK {
		out.MSLAltitude = ptr(alt + sep)
	}
	return out, nil
}

// RMC fields:
//
//	0: talker+type
//	1: time
//	2: status (A=active, V=void)
//	3,4: latitude, N/S
//	5,6: longitude, E/W
//	7: speed over ground (knots)
//	8: course over ground (deg true)
//	9: date (ddmmyy)
//	10,11: magnetic variation, E/W
//	12: mode (NMEA 2.3+)
func ParseRMC(s Sentence, prior RMC) (RMC, error) {
	f := s.Fields
	if len(f) < minRMCFields {
		return prior, ErrTooFewFields
	}
	out := prior
	out.Talker = s.Talker
	out.Time = timeOr(field(f, 1), prior.Time)
	out.Status = stringOr(strings.ToUpper(field(f, 2)), prior.Status)
	out.Latitude = coordinateOr(field(f, 3), field(f, 4), prior.Latitude)
	out.LatHemisphere = stringOr(field(f, 4), prior.LatHemisphere)
	out.Longitude = coordinateOr(field(f, 5), field(f, 6), prior.Longitude)
	out.LonHemisphere = stringOr(field(f, 6), prior.LonHemisphere)
	out.SpeedKnots = floatOr(field(f, 7), prior.SpeedKnots)
	out.CourseDeg = floatOr(field(f, 8), prior.CourseDeg)
	if d, ok := parseDate(field(f, 9)); ok {
		out.Date = d
	}
	if v, ok := parseFloat(field(f, 10)); ok {
		if strings.EqualFold(field(f, 11), "W") {
			v = -v
		}
		out.MagneticVariation = &v
	}
	out.Mode = stringOr(field(f, 12), prior.Mode)
	return out, nil
}

// GBS fields:
//
//	0: talker+type
//	1: time
//	2: expected latitude error (m)
//	3: expected longitude error (m)
//	4: expected altitude error (m)
//	5: most likely failed satellite
//	6: probability of missed detection
//	7: bias estimate (m)
//	8: bias standard deviation (m)
func ParseGBS(s Sentence, prior GBS) (GBS, error) {
	f := s.Fields
	if len(f) < minGBSFields {
		return prior, ErrTooFewFields
	}
	out := prior
	out.Talker = s.Talker
	out.Time = timeOr(field(f, 1), prior.Time)
	out.LatErrM = floatOr(field(f, 2), prior.LatErrM)
	out.LonErrM = floatOr(field(f, 3), prior.LonErrM)
	out.AltErrM = floatOr(field(f, 4), prior.AltErrM)
	out.FailedSatID = intOr(field(f, 5), prior.FailedSatID)
	out.Probability = floatOr(field(f, 6), prior.Probability)
	out.Bias = floatOr(field(f, 7), prior.Bias)
	out.BiasStdDev = floatOr(field(f, 8), prior.BiasStdDev)
	return out, nil
}

// GSA fields:
//
//	0: talker+type
//	1: mode (M/A)
//	2: fix type (1 none, 2 2D, 3 3D)
//	3..14: satellite ids used in the solution
//	15,16,17: PDOP, HDOP, VDOP
//	18: GNSS system id (NMEA 4.1)
func ParseGSA(s Sentence, prior GSA) (GSA, error) {
	f := s.Fields
	if len(f) < minGSAFields {
		return prior, ErrTooFewFields
	}
	out := prior
	out.Talker = s.Talker
	out.Mode = stringOr(strings.ToUpper(field(f, 1)), prior.Mode)
	if ft, ok := parseInt(field(f, 2)); ok && ft >= 1 && ft <= 3 {
		out.FixType = &ft
	}
	ids := make([]int, 0, 12)
	for i := 3; i <= 14; i++ {
		if id, ok := parseInt(field(f, i)); ok {
			ids = append(ids, id)
		}
	}
	out.SatelliteIDs = ids
	out.PDOP = floatOr(field(f, 15), prior.PDOP)
	out.HDOP = floatOr(field(f, 16), prior.HDOP)
	out.VDOP = floatOr(field(f, 17), prior.VDOP)
	out.SystemID = intOr(field(f, 18), nil)
	return out, nil
}

// VTG fields (NMEA 2.3):
//
//	0: talker+type
//	1,2: course true, T
//	3,4: course magnetic, M
//	5,6: speed knots, N
//	7,8: speed km/h, K
//	9: mode
func ParseVTG(s Sentence, prior VTG) (VTG, error) {
	f := s.Fields
	if len(f) < minVTGFields {
		return prior, ErrTooFewFields
	}
	out := prior
	out.Talker = s.Talker
	out.CourseTrue = floatOr(field(f, 1), prior.CourseTrue)
	out.CourseMagnetic = floatOr(field(f, 3), prior.CourseMagnetic)
	out.SpeedKnots = floatOr(field(f, 5), prior.SpeedKnots)
	out.SpeedKmh = floatOr(field(f, 7), prior.SpeedKmh)
	out.Mode = stringOr(field(f, 9), prior.Mode)
	return out, nil
}
