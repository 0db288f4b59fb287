package geo

import "testing"

func TestDMSToGeodetic_HemisphereSign(t *testing.T) {
	if got := DMSToGeodetic(10, 0, 0, "S"); got != -10.0 {
		t.Fatalf("S: %v", got)
	}
	if got := DMSToGeodetic(10, 0, 0, "N"); got != 10.0 {
		t.Fatalf("N: %v", got)
	}
	if got := DMSToGeodetic(10, 30, 0, "w"); got != -10.5 {
		t.Fatalf("w: %v", got)
	}
	if got := DMSToGeodetic(10, 30, 36, "E"); !near(got, 10.51, 1e-12) {
		t.Fatalf("E: %v", got)
	}
}

func TestDMSRoundTrip(t *testing.T) {
	for d := 0; d <= 90; d += 7 {
		for m := 0; m <= 59; m += 4 {
			for _, s := range []float64{0, 0.001, 12.5, 30, 59.5, 59.999} {
				for _, dir := range []string{"N", "S", "E", "W"} {
					v := DMSToGeodetic(float64(d), float64(m), s, dir)
					gd, gm, gs := DecimalToDMS(v)
					if gd != d || gm != m {
						t.Fatalf("%d %d %v %s: got %d %d %v", d, m, s, dir, gd, gm, gs)
					}
					back := DMSToGeodetic(float64(gd), float64(gm), gs, dir)
					if !near(back, v, 1e-3) {
						t.Fatalf("%d %d %v %s: decimal %v back %v", d, m, s, dir, v, back)
					}
				}
			}
		}
	}
}

func TestGeodeticToDMS_FormatAndParse(t *testing.T) {
	lat := 37 + 23.46587704/60
	str := GeodeticToDMS(lat, Hemisphere(lat, true))
	if str != "37°23'27.953\"N" {
		t.Fatalf("dms=%q", str)
	}
	back, err := ParseDMS(str)
	if err != nil {
		t.Fatalf("ParseDMS: %v", err)
	}
	if !near(back, lat, 1e-6) {
		t.Fatalf("back=%v want %v", back, lat)
	}

	lon := -(122 + 2.26957864/60)
	ls := GeodeticToDMS(lon, Hemisphere(lon, false))
	got, err := ParseDMS(ls)
	if err != nil || !near(got, lon, 1e-6) {
		t.Fatalf("lon %q -> %v err=%v", ls, got, err)
	}

	// Seconds that round up carry into minutes.
	if s := GeodeticToDMS(10+59.0/60+59.9999/3600, "N"); s != "11°00'00.000\"N" {
		t.Fatalf("carry=%q", s)
	}

	if _, err := ParseDMS("not dms"); err == nil {
		t.Fatalf("expected error")
	}
}
