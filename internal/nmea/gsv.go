package nmea

import "fmt"

type gsvMessage struct {
	talker   string
	signalID *int
	index    int
	total    int
	inView   *int
	sats     []SatelliteInView
}

// GSV fields:
//
//	0: talker+type
//	1: total messages in cycle
//	2: message number
//	3: satellites in view
//	4..: groups of (PRN, elevation, azimuth, SNR), up to 4 per message
//	last: signal id (NMEA 4.1), when the group count leaves one field over
func parseGSVMessage(s Sentence) (gsvMessage, error) {
	f := s.Fields
	if len(f) < minGSVFields {
		return gsvMessage{}, ErrTooFewFields
	}
	total, ok1 := parseInt(field(f, 1))
	index, ok2 := parseInt(field(f, 2))
	if !ok1 || !ok2 || total < 1 || index < 1 || index > total {
		return gsvMessage{}, fmt.Errorf("%w: gsv sequence %q/%q", ErrNotNMEA, field(f, 2), field(f, 1))
	}
	msg := gsvMessage{talker: s.Talker, index: index, total: total}
	msg.inView = intOr(field(f, 3), nil)

	body := f[4:]
	if len(body)%4 == 1 {
		msg.signalID = intOr(body[len(body)-1], nil)
		body = body[:len(body)-1]
	}
	for i := 0; i+3 < len(body); i += 4 {
		prn, ok := parseInt(body[i])
		if !ok {
			continue
		}
		msg.sats = append(msg.sats, SatelliteInView{
			PRN:       prn,
			Elevation: floatOr(body[i+1], nil),
			Azimuth:   floatOr(body[i+2], nil),
			SNR:       floatOr(body[i+3], nil),
		})
	}
	return msg, nil
}

type gsvPhase int

const (
	gsvIdle gsvPhase = iota
	gsvAccumulating
	gsvComplete
)

// gsvCycle tracks one talker's message 1..N sequence.
type gsvCycle struct {
	phase  gsvPhase
	next   int
	total  int
	inView *int
	sats   []SatelliteInView
}

// add feeds one message. It reports false when the message does not belong
// to the current cycle and was dropped.
func (c *gsvCycle) add(msg gsvMessage) bool {
	if msg.index == 1 {
		// A new cycle always starts over; stale partial frames are discarded.
		c.phase = gsvAccumulating
		c.total = msg.total
		c.next = 1
		c.inView = nil
		c.sats = nil
	}
	if c.phase != gsvAccumulating || msg.index != c.next || msg.total != c.total {
		c.reset()
		return false
	}
	if msg.inView != nil {
		c.inView = msg.inView
	}
	c.sats = append(c.sats, msg.sats...)
	c.next++
	if msg.index == msg.total {
		c.phase = gsvComplete
	}
	return true
}

func (c *gsvCycle) reset() {
	c.phase = gsvIdle
	c.next = 0
	c.total = 0
	c.inView = nil
	c.sats = nil
}

func (c *gsvCycle) record(talker string, msg gsvMessage) GSV {
	sats := make([]SatelliteInView, len(c.sats))
	copy(sats, c.sats)
	return GSV{
		Talker:        talker,
		SignalID:      msg.signalID,
		MessageIndex:  msg.index,
		TotalMessages: msg.total,
		InView:        c.inView,
		Satellites:    sats,
		Complete:      c.phase == gsvComplete,
	}
}
