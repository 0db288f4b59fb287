package nmea

import (
	"errors"
	"fmt"
	"strings"

	gonmea "github.com/adrianmo/go-nmea"
)

var (
	ErrNotNMEA      = errors.New("nmea: not a sentence")
	ErrChecksum     = errors.New("nmea: bad checksum")
	ErrUnsupported  = errors.New("nmea: unsupported sentence")
	ErrTooFewFields = errors.New("nmea: too few fields")
)

// Sentence is one framed NMEA line.
type Sentence struct {
	Talker string
	Type   string
	// Fields is the comma-split payload. Fields[0] is the address (e.g. "GPGGA")
	// so indexes match the NMEA field numbering.
	Fields []string
	// Checksum is the hex suffix after '*', empty when the line carried none.
	Checksum string

	payload string
}

// Split frames a raw line. The checksum suffix is optional and is not
// validated here; see Verify.
func Split(line string) (Sentence, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, gonmea.SentenceStart) {
		return Sentence{}, fmt.Errorf("%w: missing '$'", ErrNotNMEA)
	}
	payload := line[1:]
	ck := ""
	if star := strings.LastIndexByte(line, '*'); star != -1 {
		payload = line[1:star]
		ck = strings.TrimSpace(line[star+1:])
		if len(ck) > 2 {
			ck = ck[:2]
		}
	}

	parts := strings.Split(payload, gonmea.FieldSep)
	addr := strings.TrimSpace(parts[0])
	if len(addr) < 5 {
		return Sentence{}, fmt.Errorf("%w: short address %q", ErrNotNMEA, addr)
	}
	parts[0] = addr
	return Sentence{
		Talker:   strings.ToUpper(addr[:len(addr)-3]),
		Type:     strings.ToUpper(addr[len(addr)-3:]),
		Fields:   parts,
		Checksum: strings.ToUpper(ck),
		payload:  payload,
	}, nil
}

// Verify checks the '*hh' suffix against the payload.
func (s Sentence) Verify() error {
	if s.Checksum == "" {
		return fmt.Errorf("%w: missing", ErrChecksum)
	}
	if want := gonmea.Checksum(s.payload); want != s.Checksum {
		return fmt.Errorf("%w: got %s want %s", ErrChecksum, s.Checksum, want)
	}
	return nil
}

// Encode renders an address and its data fields as a checksummed line
// without the trailing CRLF.
func Encode(address string, fields ...string) string {
	body := address
	if len(fields) == 0 {
		body += gonmea.FieldSep
	}
	for _, f := range fields {
		body += gonmea.FieldSep + f
	}
	return fmt.Sprintf("%s%s%s%s", gonmea.SentenceStart, body, gonmea.ChecksumSep, gonmea.Checksum(body))
}
