package nmea

import (
	"fmt"
	"strconv"
	"strings"

	"gnssview/internal/geo"
)

func ptr[T any](v T) *T { return &v }

// field returns the trimmed field i, or "" when the sentence is shorter.
func field(f []string, i int) string {
	if i < 0 || i >= len(f) {
		return ""
	}
	return strings.TrimSpace(f[i])
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func floatOr(s string, prior *float64) *float64 {
	if v, ok := parseFloat(s); ok {
		return &v
	}
	return prior
}

func intOr(s string, prior *int) *int {
	if v, ok := parseInt(s); ok {
		return &v
	}
	return prior
}

func stringOr(s string, prior string) string {
	if s == "" {
		return prior
	}
	return s
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseTime turns hhmmss[.sss] into zero-padded HH:MM:SS.
func parseTime(s string) (string, bool) {
	if len(s) < 6 || !allDigits(s[:6]) {
		return "", false
	}
	hh, _ := strconv.Atoi(s[0:2])
	mm, _ := strconv.Atoi(s[2:4])
	ss, _ := strconv.Atoi(s[4:6])
	if hh > 23 || mm > 59 || ss > 60 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d:%02d", hh, mm, ss), true
}

func timeOr(s string, prior string) string {
	if v, ok := parseTime(s); ok {
		return v
	}
	return prior
}

// parseDate turns ddmmyy into YYYY-MM-DD. The year is always 20yy.
func parseDate(s string) (string, bool) {
	if len(s) != 6 || !allDigits(s) {
		return "", false
	}
	dd, _ := strconv.Atoi(s[0:2])
	mo, _ := strconv.Atoi(s[2:4])
	yy, _ := strconv.Atoi(s[4:6])
	if dd < 1 || dd > 31 || mo < 1 || mo > 12 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", 2000+yy, mo, dd), true
}

// parseCoordinate parses ddmm.mmmm / dddmm.mmmm and signs it by hemisphere.
func parseCoordinate(v string, hemi string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	intPart := v
	if dot := strings.IndexByte(v, '.'); dot != -1 {
		intPart = v[:dot]
	}
	if len(intPart) < 3 || !allDigits(intPart) {
		return 0, false
	}
	deg, err := strconv.Atoi(intPart[:len(intPart)-2])
	if err != nil {
		return 0, false
	}
	mins, err := strconv.ParseFloat(v[len(intPart)-2:], 64)
	if err != nil || mins < 0 || mins >= 60 {
		return 0, false
	}
	return geo.DMSToGeodetic(float64(deg), mins, 0, strings.ToUpper(strings.TrimSpace(hemi))), true
}

func coordinateOr(v, hemi string, prior *float64) *float64 {
	if d, ok := parseCoordinate(v, hemi); ok {
		return &d
	}
	return prior
}
