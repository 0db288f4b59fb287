package fix

import "time"

// Snapshot is the merged, current-best-known fix. Optional values are nil
// until a sentence has supplied them.
//
// Known reports whether the receiver stream is alive; it turns false only
// when no accepted sentence arrived for the staleness timeout. Valid
// additionally requires a non-zero fix quality and a position.
type Snapshot struct {
	Known bool   `json:"known"`
	Valid bool   `json:"valid"`
	Seq   uint64 `json:"seq"`

	Time string `json:"time,omitempty"`
	Date string `json:"date,omitempty"`

	LatDeg          *float64 `json:"lat_deg,omitempty"`
	LonDeg          *float64 `json:"lon_deg,omitempty"`
	AltitudeM       *float64 `json:"altitude_m,omitempty"`
	GeoidSepM       *float64 `json:"geoid_sep_m,omitempty"`
	MSLAltitudeM    *float64 `json:"msl_altitude_m,omitempty"`
	FixQuality      *int     `json:"fix_quality,omitempty"`
	FixQualityName  string   `json:"fix_quality_name,omitempty"`
	Satellites      *int     `json:"satellites,omitempty"`
	HDOP            *float64 `json:"hdop,omitempty"`
	Status          string   `json:"status,omitempty"`
	SpeedKnots      *float64 `json:"speed_knots,omitempty"`
	SpeedKmh        *float64 `json:"speed_kmh,omitempty"`
	CourseDeg       *float64 `json:"course_deg,omitempty"`
	CourseMagDeg    *float64 `json:"course_mag_deg,omitempty"`
	MagVariationDeg *float64 `json:"mag_variation_deg,omitempty"`

	FixMode      string   `json:"fix_mode,omitempty"`
	FixType      *int     `json:"fix_type,omitempty"`
	PDOP         *float64 `json:"pdop,omitempty"`
	VDOP         *float64 `json:"vdop,omitempty"`
	SatelliteIDs []int    `json:"satellite_ids,omitempty"`

	LatErrM *float64 `json:"lat_err_m,omitempty"`
	LonErrM *float64 `json:"lon_err_m,omitempty"`
	AltErrM *float64 `json:"alt_err_m,omitempty"`

	// AccuracyM is nil when neither HDOP nor GBS errors are known.
	AccuracyM *float64 `json:"accuracy_m,omitempty"`

	PositionUpdatedUTC string `json:"position_updated_utc,omitempty"`
	VelocityUpdatedUTC string `json:"velocity_updated_utc,omitempty"`
	ErrorsUpdatedUTC   string `json:"errors_updated_utc,omitempty"`
	LastSentenceUTC    string `json:"last_sentence_utc,omitempty"`
}

// clone deep-copies the slice so published snapshots never alias state the
// aggregator keeps mutating.
func (s Snapshot) clone() Snapshot {
	if s.SatelliteIDs != nil {
		ids := make([]int, len(s.SatelliteIDs))
		copy(ids, s.SatelliteIDs)
		s.SatelliteIDs = ids
	}
	return s
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
