package replay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

type fakeSleeper struct {
	slept []time.Duration
}

func (fs *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	fs.slept = append(fs.slept, d)
	return ctx.Err()
}

const (
	gga = "$GPGGA,172814.0,3723.46587704,N,12202.26957864,W,2,6,1.2,18.893,M,25.669,M,2.00031*4F"
	rmc = "$GPRMC,172814.0,A,3723.46587704,N,12202.26957864,W,0.0,0.0,230394,,*3B"
)

func TestReaderReadAll(t *testing.T) {
	in := strings.NewReader(`
# session=abc

START
0, ` + gga + `
10,` + rmc + `
`)

	recs, err := NewReader(in).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].Line != "" {
		t.Fatalf("expected START marker, got %q", recs[0].Line)
	}
	if recs[1].At != 0 || recs[1].Line != gga {
		t.Fatalf("record 1 = %+v", recs[1])
	}
	if recs[2].At != 10*time.Nanosecond || recs[2].Line != rmc {
		t.Fatalf("record 2 = %+v", recs[2])
	}
}

func TestReaderReadAll_InvalidLines(t *testing.T) {
	for _, in := range []string{
		"not-a-valid-line\n",
		"abc,$GPGGA\n",
		"-5,$GPGGA\n",
		"5,GPGGA,1,2\n",
	} {
		if _, err := NewReader(strings.NewReader(in)).ReadAll(); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestPlay_RespectsTimingAndStart(t *testing.T) {
	var lines []string
	fs := &fakeSleeper{}

	recs := []Record{
		{At: 1 * time.Second},
		{At: 1 * time.Second, Line: "$A"},
		{At: 1*time.Second + 100*time.Nanosecond, Line: "$B"},
		{At: 2 * time.Second},
		{At: 2*time.Second + 50*time.Nanosecond, Line: "$C"},
	}

	err := Play(context.Background(), recs, 1.0, false, fs, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"$A", "$B", "$C"}) {
		t.Fatalf("lines = %v", lines)
	}
	if !reflect.DeepEqual(fs.slept, []time.Duration{100 * time.Nanosecond}) {
		t.Fatalf("slept = %v, want [100ns]", fs.slept)
	}
}

func TestPlay_SpeedMultiplier(t *testing.T) {
	fs := &fakeSleeper{}
	recs := []Record{
		{At: 0, Line: "$A"},
		{At: 100 * time.Nanosecond, Line: "$B"},
	}
	if err := Play(context.Background(), recs, 2.0, false, fs, func(string) error { return nil }); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if !reflect.DeepEqual(fs.slept, []time.Duration{50 * time.Nanosecond}) {
		t.Fatalf("slept = %v, want [50ns]", fs.slept)
	}
}

func TestPlay_InvalidSpeed(t *testing.T) {
	recs := []Record{{At: 0, Line: "$A"}}
	if err := Play(context.Background(), recs, 0, false, nil, func(string) error { return nil }); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPlay_LoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	recs := []Record{{At: 0, Line: "$A"}, {At: time.Millisecond, Line: "$B"}}
	n := 0
	err := Play(ctx, recs, 1.0, true, &fakeSleeper{}, func(string) error {
		n++
		if n == 5 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	if n != 5 {
		t.Fatalf("callbacks=%d want 5", n)
	}
}

func TestWriter_WritesExpectedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	w, err := CreateWriter(path, "s1")
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	w.start = time.Unix(0, 0)

	if err := w.WriteLine(time.Unix(0, 20), gga+"\r"); err != nil {
		t.Fatalf("WriteLine() error: %v", err)
	}
	if err := w.WriteLine(time.Unix(0, 30), "a\nb"); err == nil {
		t.Fatalf("expected error for embedded newline")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.WriteLine(time.Unix(0, 40), gga); err == nil {
		t.Fatalf("expected error after close")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if want := "# session=s1\nSTART\n20," + gga + "\n"; string(b) != want {
		t.Fatalf("unexpected file contents: %q", string(b))
	}
}

func TestRecordReplay_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")
	w, err := CreateWriter(path, "")
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	now := time.Now()
	in := []string{gga, rmc, gga}
	for _, l := range in {
		if err := w.WriteLine(now, l); err != nil {
			t.Fatalf("WriteLine() error: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	recs, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	var out []string
	fs := &fakeSleeper{}
	if err := Play(context.Background(), recs, 1.0, false, fs, func(l string) error {
		out = append(out, l)
		return nil
	}); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if len(fs.slept) != 0 {
		t.Fatalf("expected no sleeps, got %v", fs.slept)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("lines mismatch\n got: %q\nwant: %q", out, in)
	}
}
