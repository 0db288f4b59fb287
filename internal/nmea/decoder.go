package nmea

import "fmt"

type gsvKey struct {
	talker string
	signal int
}

// Decoder keeps the prior record of every sentence type plus the GSV cycle
// of every talker. It is not safe for concurrent use; one feed owns one
// Decoder.
type Decoder struct {
	// VerifyChecksum drops lines whose '*hh' suffix is missing or wrong.
	VerifyChecksum bool

	gga GGA
	rmc RMC
	gbs GBS
	gsa GSA
	vtg VTG
	gsv map[gsvKey]*gsvCycle
}

func NewDecoder() *Decoder {
	return &Decoder{gsv: make(map[gsvKey]*gsvCycle)}
}

// Decode parses one line. On ErrTooFewFields the returned record is the
// unchanged prior of that type; callers should treat any error as "no update".
func (d *Decoder) Decode(line string) (Record, error) {
	s, err := Split(line)
	if err != nil {
		return nil, err
	}
	if d.VerifyChecksum {
		if err := s.Verify(); err != nil {
			return nil, err
		}
	}

	switch s.Type {
	case "GGA":
		rec, err := ParseGGA(s, d.gga)
		d.gga = rec
		return rec, err
	case "RMC":
		rec, err := ParseRMC(s, d.rmc)
		d.rmc = rec
		return rec, err
	case "GBS":
		rec, err := ParseGBS(s, d.gbs)
		d.gbs = rec
		return rec, err
	case "GSA":
		rec, err := ParseGSA(s, d.gsa)
		d.gsa = rec
		return rec, err
	case "VTG":
		rec, err := ParseVTG(s, d.vtg)
		d.vtg = rec
		return rec, err
	case "GSV":
		return d.decodeGSV(s)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, s.Type)
	}
}

func (d *Decoder) decodeGSV(s Sentence) (Record, error) {
	msg, err := parseGSVMessage(s)
	if err != nil {
		return nil, err
	}
	if d.gsv == nil {
		d.gsv = make(map[gsvKey]*gsvCycle)
	}
	key := gsvKey{talker: s.Talker, signal: -1}
	if msg.signalID != nil {
		key.signal = *msg.signalID
	}
	c, ok := d.gsv[key]
	if !ok {
		c = &gsvCycle{}
		d.gsv[key] = c
	}
	if !c.add(msg) {
		return nil, fmt.Errorf("%w: gsv %s message %d/%d out of sequence", ErrNotNMEA, s.Talker, msg.index, msg.total)
	}
	return c.record(s.Talker, msg), nil
}

// Reset forgets every prior record and GSV cycle.
func (d *Decoder) Reset() {
	*d = Decoder{VerifyChecksum: d.VerifyChecksum, gsv: make(map[gsvKey]*gsvCycle)}
}
