// Package satellite turns satellite-in-view reports into positioned,
// pooled render handles.
package satellite

import (
	"sort"

	"gnssview/internal/constellation"
)

// Key identifies a satellite. PRN numbers are only unique per constellation.
type Key struct {
	Constellation constellation.Constellation `json:"constellation"`
	PRN           int                         `json:"prn"`
}

func (k Key) less(o Key) bool {
	if k.Constellation != o.Constellation {
		return k.Constellation < o.Constellation
	}
	return k.PRN < o.PRN
}

// Status is one entry of a satellite batch. Azimuth and elevation are nil
// when the receiver has not resolved them yet.
type Status struct {
	Constellation constellation.Constellation `json:"constellation"`
	PRN           int                         `json:"prn"`
	SNR           *float64                    `json:"snr,omitempty"`
	UsedInFix     bool                        `json:"used_in_fix"`
	AzimuthDeg    *float64                    `json:"azimuth_deg,omitempty"`
	ElevationDeg  *float64                    `json:"elevation_deg,omitempty"`
}

func (s Status) Key() Key { return Key{Constellation: s.Constellation, PRN: s.PRN} }

func sortStatuses(b []Status) {
	sort.Slice(b, func(i, j int) bool { return b[i].Key().less(b[j].Key()) })
}
