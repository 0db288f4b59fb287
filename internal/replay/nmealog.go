// Package replay records raw NMEA streams and plays them back with their
// original timing.
package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Log format: line-oriented text.
//
//   - Blank lines ignored.
//   - Lines starting with '#' ignored ("# session=<id>" is written as a header).
//   - Line "START" resets the origin (next record time is relative to 0 again).
//   - Data lines are: <t_ns>,<sentence>
//     where t_ns is nanoseconds since START and sentence is the raw line as
//     received. Everything after the first comma belongs to the sentence.

type Record struct {
	At time.Duration
	// Line is empty for START markers.
	Line string
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	recs := make([]Record, 0, 1024)
	n := 0
	for s.Scan() {
		n++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{})
			continue
		}

		comma := strings.IndexByte(line, ',')
		if comma < 0 {
			return nil, fmt.Errorf("replay line %d: missing comma: %q", n, line)
		}
		tsStr := strings.TrimSpace(line[:comma])
		sentence := strings.TrimSpace(line[comma+1:])
		if tsStr == "" || sentence == "" {
			return nil, fmt.Errorf("replay line %d: empty field: %q", n, line)
		}
		tsNs, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("replay line %d: invalid timestamp %q: %w", n, tsStr, err)
		}
		if tsNs < 0 {
			return nil, fmt.Errorf("replay line %d: negative timestamp %d", n, tsNs)
		}
		if sentence[0] != '$' && sentence[0] != '!' {
			return nil, fmt.Errorf("replay line %d: not a sentence: %q", n, sentence)
		}
		recs = append(recs, Record{At: time.Duration(tsNs), Line: sentence})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// ReadFile loads a capture from disk.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

type Writer struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	start  time.Time
	closed bool
}

// CreateWriter truncates path and writes the header. session may be empty.
func CreateWriter(path string, session string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	header := "START\n"
	if session != "" {
		header = "# session=" + session + "\n" + header
	}
	if _, err := bw.WriteString(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, start: time.Now()}, nil
}

func (ww *Writer) WriteLine(now time.Time, line string) error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return errors.New("replay writer is closed")
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return errors.New("line is empty")
	}
	if strings.ContainsAny(line, "\r\n") {
		return errors.New("line contains a line break")
	}
	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	_, err := fmt.Fprintf(ww.w, "%d,%s\n", d.Nanoseconds(), line)
	return err
}

func (ww *Writer) Flush() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Play replays records with their relative timing, calling cb for every
// sentence. START markers reset the origin.
//
// speedMultiplier: 1.0 = real time, 2.0 = 2x speed (half waits), 0.5 = half speed.
func Play(ctx context.Context, records []Record, speedMultiplier float64, loop bool, sleeper Sleeper, cb func(line string) error) error {
	if speedMultiplier <= 0 {
		return fmt.Errorf("speedMultiplier must be > 0")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(records) == 0 {
		return errors.New("no records")
	}

	for {
		var origin, lastAt time.Duration
		haveLast := false

		for _, r := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if r.Line == "" {
				origin = r.At
				lastAt = 0
				haveLast = false
				continue
			}

			at := r.At - origin
			if at < 0 {
				at = 0
			}
			if haveLast {
				wait := at - lastAt
				if wait < 0 {
					wait = 0
				}
				wait = time.Duration(float64(wait) / speedMultiplier)
				if wait > 0 {
					if err := sleeper.Sleep(ctx, wait); err != nil {
						return err
					}
				}
			}

			if err := cb(r.Line); err != nil {
				return err
			}
			lastAt = at
			haveLast = true
		}

		if !loop {
			return nil
		}
	}
}
