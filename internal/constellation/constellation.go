// Package constellation identifies GNSS constellations from NMEA talkers,
// system ids and PRN ranges, and maps them to nominal orbital altitudes.
package constellation

import (
	"encoding/json"
	"strings"
)

type Constellation int

const (
	Unknown Constellation = iota
	GPS
	GLONASS
	Galileo
	BeiDou
	QZSS
	IRNSS
	SBAS
)

var names = map[Constellation]string{
	Unknown: "Unknown",
	GPS:     "GPS",
	GLONASS: "GLONASS",
	Galileo: "Galileo",
	BeiDou:  "BeiDou",
	QZSS:    "QZSS",
	IRNSS:   "IRNSS",
	SBAS:    "SBAS",
}

func (c Constellation) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return names[Unknown]
}

func (c Constellation) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Parse is case-insensitive and accepts common aliases.
func Parse(name string) Constellation {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "GPS", "NAVSTAR":
		return GPS
	case "GLONASS":
		return GLONASS
	case "GALILEO":
		return Galileo
	case "BEIDOU", "BDS", "COMPASS":
		return BeiDou
	case "QZSS":
		return QZSS
	case "IRNSS", "NAVIC":
		return IRNSS
	case "SBAS", "WAAS", "EGNOS", "MSAS", "GAGAN":
		return SBAS
	}
	return Unknown
}

// FromTalker maps a two-letter NMEA talker. "GN" (combined) is Unknown;
// resolve those with FromSystemID or Classify.
func FromTalker(talker string) Constellation {
	switch strings.ToUpper(talker) {
	case "GP":
		return GPS
	case "GL":
		return GLONASS
	case "GA":
		return Galileo
	case "GB", "BD":
		return BeiDou
	case "GQ", "QZ":
		return QZSS
	case "GI", "IR":
		return IRNSS
	}
	return Unknown
}

// FromSystemID maps the NMEA 4.1 GNSS system id carried by GSA/GSV.
func FromSystemID(id int) Constellation {
	switch id {
	case 1:
		return GPS
	case 2:
		return GLONASS
	case 3:
		return Galileo
	case 4:
		return BeiDou
	case 5:
		return QZSS
	case 6:
		return IRNSS
	}
	return Unknown
}

// FromGPSDGNSSID maps gpsd's SKY "gnssid" (u-blox numbering).
func FromGPSDGNSSID(id int) Constellation {
	switch id {
	case 0:
		return GPS
	case 1:
		return SBAS
	case 2:
		return Galileo
	case 3:
		return BeiDou
	case 5:
		return QZSS
	case 6:
		return GLONASS
	case 7:
		return IRNSS
	}
	return Unknown
}

// Classify resolves the constellation of a satellite id reported under a
// talker. GP and GN talkers use the NMEA numbering where SBAS, GLONASS and
// QZSS occupy fixed ranges; other talkers name their constellation directly.
func Classify(talker string, prn int) Constellation {
	c := FromTalker(talker)
	t := strings.ToUpper(talker)
	if t != "GP" && t != "GN" {
		return c
	}
	switch {
	case prn >= 1 && prn <= 32:
		return GPS
	case prn >= 33 && prn <= 64, prn >= 120 && prn <= 158:
		return SBAS
	case prn >= 65 && prn <= 96:
		return GLONASS
	case prn >= 193 && prn <= 202:
		return QZSS
	}
	return c
}

// GroupIDs splits the satellite ids of one GSA by constellation. The NMEA
// 4.1 system id decides when present; otherwise each id goes through
// Classify. An empty list maps to the talker's own constellation when it
// has one, and to nothing for GN.
func GroupIDs(talker string, systemID *int, ids []int) map[Constellation][]int {
	sys := Unknown
	if systemID != nil {
		sys = FromSystemID(*systemID)
	}
	out := make(map[Constellation][]int)
	if len(ids) == 0 {
		if sys == Unknown {
			sys = FromTalker(talker)
		}
		if sys != Unknown {
			out[sys] = nil
		}
		return out
	}
	for _, id := range ids {
		c := sys
		if c == Unknown {
			c = Classify(talker, id)
		}
		out[c] = append(out[c], id)
	}
	return out
}
