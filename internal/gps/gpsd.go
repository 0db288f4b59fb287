package gps

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"gnssview/internal/constellation"
	"gnssview/internal/satellite"
)

const gpsdDefaultAddr = "127.0.0.1:2947"

// gpsdWatch enables JSON reports plus the receiver's raw NMEA. Sentences feed
// the parser; SKY reports carry the satellite batch.
func gpsdWatch(conn net.Conn) error {
	_, err := conn.Write([]byte("?WATCH={\"enable\":true,\"json\":true,\"nmea\":true,\"scaled\":true}\n"))
	return err
}

type gpsdMsgBase struct {
	Class string `json:"class"`
}

type gpsdSat struct {
	PRN    int      `json:"PRN"`
	GNSSID *int     `json:"gnssid"`
	SVID   *int     `json:"svid"`
	Az     *float64 `json:"az"`
	El     *float64 `json:"el"`
	SS     *float64 `json:"ss"`
	Used   bool     `json:"used"`
}

type gpsdSKY struct {
	Class      string    `json:"class"`
	Device     string    `json:"device"`
	Satellites []gpsdSat `json:"satellites"`
}

// gpsdLine is one line from a gpsd WATCH stream.
type gpsdLine struct {
	sentence string
	batch    []satellite.Status
	hasBatch bool
}

func parseGPSDLine(line string) (gpsdLine, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return gpsdLine{}, nil
	}
	if line[0] == '$' {
		return gpsdLine{sentence: line}, nil
	}
	var base gpsdMsgBase
	if err := json.Unmarshal([]byte(line), &base); err != nil {
		return gpsdLine{}, fmt.Errorf("gpsd json parse failed: %v", err)
	}
	if !strings.EqualFold(strings.TrimSpace(base.Class), "SKY") {
		// TPV duplicates what the NMEA stream carries; VERSION, DEVICES and
		// WATCH are informational.
		return gpsdLine{}, nil
	}
	var sky gpsdSKY
	if err := json.Unmarshal([]byte(line), &sky); err != nil {
		return gpsdLine{}, fmt.Errorf("gpsd sky parse failed: %v", err)
	}
	// Some gpsd versions send SKY with only DOPs between full reports.
	if sky.Satellites == nil {
		return gpsdLine{}, nil
	}
	return gpsdLine{batch: skyToBatch(sky), hasBatch: true}, nil
}

func skyToBatch(sky gpsdSKY) []satellite.Status {
	out := make([]satellite.Status, 0, len(sky.Satellites))
	for _, s := range sky.Satellites {
		st := satellite.Status{
			PRN:          s.PRN,
			SNR:          s.SS,
			UsedInFix:    s.Used,
			AzimuthDeg:   s.Az,
			ElevationDeg: s.El,
		}
		if s.GNSSID != nil {
			st.Constellation = constellation.FromGPSDGNSSID(*s.GNSSID)
			if s.SVID != nil {
				st.PRN = *s.SVID
			}
		} else {
			st.Constellation = constellation.Classify("GP", s.PRN)
		}
		if st.PRN <= 0 {
			continue
		}
		out = append(out, st)
	}
	return out
}
