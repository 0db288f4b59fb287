package nmea

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func nmeaLine(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X", payload, ck)
}

const ggaFixture = "$GPGGA,172814.0,3723.46587704,N,12202.26957864,W,2,6,1.2,18.893,M,25.669,M,2.00031*4F"

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestEncode_MatchesKnownLines(t *testing.T) {
	cases := []struct {
		addr   string
		fields []string
		want   string
	}{
		{"PSTMGPSSUSPEND", nil, "$PSTMGPSSUSPEND,*38"},
		{"GPGGA", []string{"070319.000", "0000.00000", "N", "00000.00000", "E", "0", "00", "99.0", "100.00", "M", "0.0", "M", "", ""}, "$GPGGA,070319.000,0000.00000,N,00000.00000,E,0,00,99.0,100.00,M,0.0,M,,*60"},
	}
	for _, tc := range cases {
		if got := Encode(tc.addr, tc.fields...); got != tc.want {
			t.Errorf("Encode(%q)=%q want %q", tc.addr, got, tc.want)
		}
	}
}

func TestSplit_ChecksumOptional(t *testing.T) {
	s, err := Split("$GNRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Talker != "GN" || s.Type != "RMC" {
		t.Fatalf("talker=%q type=%q", s.Talker, s.Type)
	}
	if s.Checksum != "" {
		t.Fatalf("checksum=%q want empty", s.Checksum)
	}
	if err := s.Verify(); !errors.Is(err, ErrChecksum) {
		t.Fatalf("Verify() err=%v want ErrChecksum", err)
	}
}

func TestSplit_RejectsNonSentences(t *testing.T) {
	for _, line := range []string{"", "GPGGA,1,2", "$", "$GP,1"} {
		if _, err := Split(line); !errors.Is(err, ErrNotNMEA) {
			t.Errorf("Split(%q) err=%v want ErrNotNMEA", line, err)
		}
	}
}

func TestSentenceVerify(t *testing.T) {
	good := nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
	s, err := Split(good)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if err := s.Verify(); err != nil {
		t.Fatalf("Verify() err=%v", err)
	}

	bad, _ := Split(good[:len(good)-2] + "00")
	if err := bad.Verify(); !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
}

func TestParseGGA_Fixture(t *testing.T) {
	s, err := Split(ggaFixture)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	gga, err := ParseGGA(s, GGA{})
	if err != nil {
		t.Fatalf("ParseGGA: %v", err)
	}
	if gga.Time != "17:28:14" {
		t.Fatalf("time=%q want 17:28:14", gga.Time)
	}
	if gga.Quality == nil || *gga.Quality != QualityDGPS {
		t.Fatalf("quality=%v want DGPS", gga.Quality)
	}
	if gga.Quality.String() != "DGPS" {
		t.Fatalf("quality name=%q", gga.Quality.String())
	}
	if gga.NumSatellites == nil || *gga.NumSatellites != 6 {
		t.Fatalf("satellites=%v want 6", gga.NumSatellites)
	}
	if gga.Altitude == nil || *gga.Altitude != 18.893 {
		t.Fatalf("altitude=%v", gga.Altitude)
	}
	if gga.GeoidSeparation == nil || *gga.GeoidSeparation != 25.669 {
		t.Fatalf("geoid=%v", gga.GeoidSeparation)
	}
	if gga.MSLAltitude == nil || !approx(*gga.MSLAltitude, 44.562, 1e-9) {
		t.Fatalf("msl=%v want 44.562", gga.MSLAltitude)
	}
	if gga.Latitude == nil || !approx(*gga.Latitude, 37+23.46587704/60, 1e-12) {
		t.Fatalf("lat=%v", gga.Latitude)
	}
	if gga.Longitude == nil || !approx(*gga.Longitude, -(122+2.26957864/60), 1e-12) {
		t.Fatalf("lon=%v", gga.Longitude)
	}
	if gga.HDOP == nil || *gga.HDOP != 1.2 {
		t.Fatalf("hdop=%v", gga.HDOP)
	}
	if gga.DGPSAge == nil || *gga.DGPSAge != 2.00031 {
		t.Fatalf("dgps age=%v", gga.DGPSAge)
	}
}

func TestParseGGA_TooFewFieldsKeepsPrior(t *testing.T) {
	s, _ := Split(ggaFixture)
	prior, _ := ParseGGA(s, GGA{})

	short, _ := Split("$GPGGA,172815.0,3723.4,N,12202.2")
	got, err := ParseGGA(short, prior)
	if !errors.Is(err, ErrTooFewFields) {
		t.Fatalf("err=%v want ErrTooFewFields", err)
	}
	if got.Time != prior.Time || got.Latitude != prior.Latitude || got.Altitude != prior.Altitude {
		t.Fatalf("prior not retained: %+v", got)
	}
}

func TestParseGGA_FailSoftNumericFields(t *testing.T) {
	s, _ := Split(ggaFixture)
	prior, _ := ParseGGA(s, GGA{})

	next, _ := Split("$GPGGA,17281,bogus,N,12202.26957864,W,x,,1.5,abc,M,,M,,")
	got, err := ParseGGA(next, prior)
	if err != nil {
		t.Fatalf("ParseGGA: %v", err)
	}
	if got.Time != "17:28:14" {
		t.Fatalf("short time should keep prior, got %q", got.Time)
	}
	if *got.Latitude != *prior.Latitude {
		t.Fatalf("lat=%v want prior %v", *got.Latitude, *prior.Latitude)
	}
	if *got.Quality != QualityDGPS || *got.NumSatellites != 6 {
		t.Fatalf("quality/sats not retained: %v %v", *got.Quality, *got.NumSatellites)
	}
	if *got.HDOP != 1.5 {
		t.Fatalf("hdop=%v want 1.5", *got.HDOP)
	}
	if *got.Altitude != 18.893 || *got.MSLAltitude != *prior.MSLAltitude {
		t.Fatalf("altitude not retained: %v %v", *got.Altitude, *got.MSLAltitude)
	}
}

func TestParseRMC_DateSpeedCourseVariation(t *testing.T) {
	s, _ := Split(nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"))
	rmc, err := ParseRMC(s, RMC{})
	if err != nil {
		t.Fatalf("ParseRMC: %v", err)
	}
	if rmc.Time != "12:35:19" {
		t.Fatalf("time=%q", rmc.Time)
	}
	// Two-digit years always expand to 20yy.
	if rmc.Date != "2094-03-23" {
		t.Fatalf("date=%q want 2094-03-23", rmc.Date)
	}
	if rmc.Status != "A" {
		t.Fatalf("status=%q", rmc.Status)
	}
	if *rmc.SpeedKnots != 22.4 || *rmc.CourseDeg != 84.4 {
		t.Fatalf("speed=%v course=%v", *rmc.SpeedKnots, *rmc.CourseDeg)
	}
	if *rmc.MagneticVariation != -3.1 {
		t.Fatalf("magvar=%v want -3.1", *rmc.MagneticVariation)
	}
	if !approx(*rmc.Latitude, 48+7.038/60, 1e-12) || !approx(*rmc.Longitude, 11+31.0/60, 1e-12) {
		t.Fatalf("lat=%v lon=%v", *rmc.Latitude, *rmc.Longitude)
	}
}

func TestParseRMC_MagneticVariationHemisphereCaseInsensitive(t *testing.T) {
	cases := []struct {
		hemi string
		want float64
	}{
		{"W", -3.1},
		{"w", -3.1},
		{"E", 3.1},
		{"", 3.1},
	}
	for _, tc := range cases {
		s, _ := Split("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1," + tc.hemi)
		rmc, err := ParseRMC(s, RMC{})
		if err != nil {
			t.Fatalf("ParseRMC: %v", err)
		}
		if rmc.MagneticVariation == nil || *rmc.MagneticVariation != tc.want {
			t.Fatalf("hemi=%q magvar=%v want %v", tc.hemi, rmc.MagneticVariation, tc.want)
		}
	}
}

func TestParseRMC_SouthWestNegate(t *testing.T) {
	s, _ := Split("$GNRMC,000000,A,3345.000,S,07030.000,W,0.0,,010125,,")
	rmc, _ := ParseRMC(s, RMC{})
	if *rmc.Latitude != -33.75 || *rmc.Longitude != -70.5 {
		t.Fatalf("lat=%v lon=%v", *rmc.Latitude, *rmc.Longitude)
	}
	if rmc.CourseDeg != nil {
		t.Fatalf("empty course should stay absent, got %v", *rmc.CourseDeg)
	}
	if rmc.Date != "2025-01-01" {
		t.Fatalf("date=%q", rmc.Date)
	}
}

func TestParseGBS(t *testing.T) {
	s, _ := Split("$GPGBS,015509.00,-0.031,-0.186,0.219,19,0.000,-0.354,6.972*4D")
	gbs, err := ParseGBS(s, GBS{})
	if err != nil {
		t.Fatalf("ParseGBS: %v", err)
	}
	sum, ok := gbs.ErrorSum()
	if !ok || !approx(sum, -0.031-0.186+0.219, 1e-12) {
		t.Fatalf("sum=%v ok=%v", sum, ok)
	}
	if *gbs.FailedSatID != 19 {
		t.Fatalf("failed sat=%v", *gbs.FailedSatID)
	}

	short, _ := Split("$GPGBS,015509.00,1.0,2.0")
	again, err := ParseGBS(short, gbs)
	if !errors.Is(err, ErrTooFewFields) || again.LatErrM != gbs.LatErrM {
		t.Fatalf("short GBS should keep prior: err=%v", err)
	}
}

func TestParseGSA(t *testing.T) {
	s, _ := Split("$GNGSA,A,3,80,71,73,79,69,,,,,,,,1.83,1.09,1.47,2*0D")
	gsa, err := ParseGSA(s, GSA{})
	if err != nil {
		t.Fatalf("ParseGSA: %v", err)
	}
	if gsa.Mode != "A" || gsa.FixType == nil || *gsa.FixType != 3 {
		t.Fatalf("mode=%q fixType=%v", gsa.Mode, gsa.FixType)
	}
	want := []int{80, 71, 73, 79, 69}
	if len(gsa.SatelliteIDs) != len(want) {
		t.Fatalf("ids=%v want %v", gsa.SatelliteIDs, want)
	}
	for i := range want {
		if gsa.SatelliteIDs[i] != want[i] {
			t.Fatalf("ids=%v want %v", gsa.SatelliteIDs, want)
		}
	}
	if *gsa.PDOP != 1.83 || *gsa.HDOP != 1.09 || *gsa.VDOP != 1.47 {
		t.Fatalf("dop=%v/%v/%v", *gsa.PDOP, *gsa.HDOP, *gsa.VDOP)
	}
	if gsa.SystemID == nil || *gsa.SystemID != 2 {
		t.Fatalf("system id=%v", gsa.SystemID)
	}
}

func TestParseVTG(t *testing.T) {
	s, _ := Split("$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K,A*25")
	vtg, err := ParseVTG(s, VTG{})
	if err != nil {
		t.Fatalf("ParseVTG: %v", err)
	}
	if *vtg.CourseTrue != 54.7 || *vtg.CourseMagnetic != 34.4 || *vtg.SpeedKnots != 5.5 || *vtg.SpeedKmh != 10.2 {
		t.Fatalf("vtg=%+v", vtg)
	}

	s2, _ := Split("$GPVTG,055.0,T,,M,005.6,N,010.4,K,A")
	vtg2, _ := ParseVTG(s2, vtg)
	if *vtg2.CourseMagnetic != 34.4 {
		t.Fatalf("magnetic course should keep prior, got %v", *vtg2.CourseMagnetic)
	}
	if *vtg2.CourseTrue != 55.0 {
		t.Fatalf("course true=%v", *vtg2.CourseTrue)
	}
}

func TestParse_MergesIntoSameTypeOnly(t *testing.T) {
	first := Parse(ggaFixture, nil)
	gga, ok := first.(GGA)
	if !ok {
		t.Fatalf("expected GGA, got %T", first)
	}

	merged := Parse("$GPGGA,172815.0,,,,,2,7,,,,,,,", gga).(GGA)
	if merged.Time != "17:28:15" || *merged.NumSatellites != 7 {
		t.Fatalf("merged=%+v", merged)
	}
	if merged.Latitude != gga.Latitude {
		t.Fatalf("latitude should carry over from prior")
	}

	// A prior of another type is not merged into.
	rmc := Parse("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W", gga)
	if _, ok := rmc.(RMC); !ok {
		t.Fatalf("expected RMC, got %T", rmc)
	}

	if got := Parse("garbage", gga); got.(GGA).Time != gga.Time {
		t.Fatalf("garbage should return prior")
	}
	if got := Parse("$GPZDA,201530.00,04,07,2002,00,00", gga); got.(GGA).Time != gga.Time {
		t.Fatalf("unsupported type should return prior")
	}
}
