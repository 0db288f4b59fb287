package gps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gnssview/internal/fix"
	"gnssview/internal/geo"
	"gnssview/internal/nmea"
	"gnssview/internal/pubsub"
	"gnssview/internal/replay"
	"gnssview/internal/satellite"
	"gnssview/internal/sim"
)

// Config controls the receiver feed.
//
// Device may be empty to auto-detect. Addr is host:port for the tcp and
// gpsd sources. All fields are optional unless noted.
type Config struct {
	Enable bool

	// Source is one of "serial", "tcp", "gpsd", "replay" or "sim".
	// When empty, defaults to "serial".
	Source string

	Device string
	Baud   int
	Addr   string

	ReplayPath  string
	ReplaySpeed float64
	ReplayLoop  bool

	Sim SimConfig

	VerifyChecksum bool
	StaleTimeout   time.Duration
	SensorFactor   float64

	// StaticObserver pins the observer; nil follows the fix.
	StaticObserver *geo.Geodetic
	Scene          geo.Scene
	// ShellProjection positions satellites on their orbital shell.
	ShellProjection bool

	// RecordPath captures every raw line to a replay log when set.
	RecordPath string
	SessionID  string
}

type SimConfig struct {
	CenterLatDeg float64
	CenterLonDeg float64
	AltM         float64
	RadiusM      float64
	Period       time.Duration
	Satellites   int
	Interval     time.Duration
	// ScenarioPath replaces the orbit with a scripted YAML scenario.
	ScenarioPath string
}

// Status describes the feed itself; the fix and satellites are published
// separately.
type Status struct {
	Enabled bool   `json:"enabled"`
	Source  string `json:"source"`
	Device  string `json:"device,omitempty"`
	Baud    int    `json:"baud,omitempty"`
	Addr    string `json:"addr,omitempty"`
	State   string `json:"state"`
	Session string `json:"session,omitempty"`

	Lines       uint64 `json:"lines"`
	Accepted    uint64 `json:"accepted"`
	Unsupported uint64 `json:"unsupported"`
	Rejected    uint64 `json:"rejected"`
	Stale       bool   `json:"stale"`

	ObserverMode string        `json:"observer_mode"`
	Observer     *geo.Geodetic `json:"observer,omitempty"`

	LastLineUTC string `json:"last_line_utc,omitempty"`
	LastError   string `json:"last_error,omitempty"`
}

type eventKind int

const (
	evLine eventKind = iota
	evBatch
	evObserver
	evExpire
)

type event struct {
	kind  eventKind
	line  string
	batch []satellite.Status
	obs   geo.Geodetic
}

type Service struct {
	cfg Config
	now func() time.Time

	engine   *Engine[*satellite.Marker]
	markers  *satellite.MarkerPool
	watchdog *fix.Watchdog
	recorder *replay.Writer

	fixes     *pubsub.Broadcaster[fix.Snapshot]
	sats      *pubsub.Broadcaster[[]satellite.Positioned]
	sentences *pubsub.Broadcaster[string]

	events chan event

	cancel context.CancelFunc
	ctx    context.Context
	wg     sync.WaitGroup

	statusMu sync.Mutex
	status   atomic.Value // Status

	mu     sync.Mutex
	closer io.Closer
	closed bool
}

func New(cfg Config) *Service {
	src := strings.ToLower(strings.TrimSpace(cfg.Source))
	if src == "" {
		src = "serial"
	}
	cfg.Source = src
	if cfg.Scene.Scale == 0 {
		cfg.Scene = geo.NewScene(1)
	}

	markers := &satellite.MarkerPool{}
	s := &Service{
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		markers: markers,
		engine: NewEngine[*satellite.Marker](EngineConfig{
			Fix:            fix.Config{Timeout: cfg.StaleTimeout, SensorFactor: cfg.SensorFactor},
			Positioner:     satellite.Positioner{Scene: cfg.Scene, ShellProjection: cfg.ShellProjection},
			VerifyChecksum: cfg.VerifyChecksum,
			StaticObserver: cfg.StaticObserver,
			ExternalSky:    src == "gpsd",
		}, markers),
		fixes:     pubsub.New[fix.Snapshot](),
		sats:      pubsub.New[[]satellite.Positioned](),
		sentences: pubsub.New[string](),
		events:    make(chan event, 64),
	}
	mode := "auto"
	if cfg.StaticObserver != nil {
		mode = "static"
	}
	st := Status{
		Enabled:      cfg.Enable,
		Source:       src,
		Device:       cfg.Device,
		Baud:         cfg.Baud,
		Addr:         strings.TrimSpace(cfg.Addr),
		State:        "stopped",
		Session:      cfg.SessionID,
		ObserverMode: mode,
	}
	if obs, ok := s.engine.Observer(); ok {
		st.Observer = &obs
	}
	s.status.Store(st)
	return s
}

// Fixes publishes a fix.Snapshot after every accepted sentence and on
// staleness invalidation.
func (s *Service) Fixes() *pubsub.Broadcaster[fix.Snapshot] { return s.fixes }

// Satellites publishes the positioned satellite list whenever it changes.
func (s *Service) Satellites() *pubsub.Broadcaster[[]satellite.Positioned] { return s.sats }

// Sentences publishes every accepted raw sentence.
func (s *Service) Sentences() *pubsub.Broadcaster[string] { return s.sentences }

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gps service is nil")
	}
	if !s.cfg.Enable {
		return nil
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("gps service is closed")
	}
	if s.cancel != nil {
		return nil
	}

	if p := strings.TrimSpace(s.cfg.RecordPath); p != "" {
		w, err := replay.CreateWriter(p, s.cfg.SessionID)
		if err != nil {
			return fmt.Errorf("gps record: %w", err)
		}
		s.recorder = w
		log.Printf("gps recording path=%s", p)
	}

	childCtx, cancel := context.WithCancel(ctx)
	var err error
	switch s.cfg.Source {
	case "serial":
		err = s.startSerialLocked(childCtx)
	case "tcp":
		err = s.startTCPLocked(childCtx, false)
	case "gpsd":
		err = s.startTCPLocked(childCtx, true)
	case "replay":
		err = s.startReplayLocked(childCtx)
	case "sim":
		err = s.startSimLocked(childCtx)
	default:
		err = fmt.Errorf("unknown gps source %q", s.cfg.Source)
	}
	if err != nil {
		cancel()
		s.setError(err.Error())
		if s.recorder != nil {
			_ = s.recorder.Close()
			s.recorder = nil
		}
		return err
	}
	s.cancel = cancel
	s.ctx = childCtx

	s.watchdog = fix.NewWatchdog(s.engine.Timeout(), func() {
		s.post(childCtx, event{kind: evExpire})
	}, fix.SystemAfterFunc)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(childCtx)
	}()
	return nil
}

func (s *Service) startSerialLocked(ctx context.Context) error {
	device := strings.TrimSpace(s.cfg.Device)
	if device == "" {
		device = autoDetectDevice()
		if device == "" {
			return fmt.Errorf("gps auto-detect failed: no serial device found")
		}
	}
	baud := s.cfg.Baud
	if baud == 0 {
		baud = 9600
	}
	f, err := openSerial(device, baud)
	if err != nil {
		return fmt.Errorf("gps open failed device=%s baud=%d: %w", device, baud, err)
	}
	s.closer = f
	s.updateStatus(func(st *Status) {
		st.Device = device
		st.Baud = baud
		st.State = "connected"
	})
	log.Printf("gps enabled source=serial device=%s baud=%d", device, baud)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer f.Close()
		err := scanLines(ctx, f, func(line string) { s.post(ctx, event{kind: evLine, line: line}) })
		if ctx.Err() == nil {
			s.setError(fmt.Sprintf("gps read stopped: %v", err))
			s.updateStatus(func(st *Status) { st.State = "disconnected" })
		}
	}()
	return nil
}

func (s *Service) startTCPLocked(ctx context.Context, gpsd bool) error {
	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		if !gpsd {
			return fmt.Errorf("gps tcp source requires addr")
		}
		addr = gpsdDefaultAddr
	}
	s.updateStatus(func(st *Status) { st.Addr = addr })

	c := &lineClient{
		addr: addr,
		onState: func(state string, err error) {
			s.updateStatus(func(st *Status) {
				st.State = state
				if err != nil {
					st.LastError = err.Error()
				}
			})
		},
	}
	if gpsd {
		c.onConnect = gpsdWatch
		c.onLine = func(line string) {
			parsed, err := parseGPSDLine(line)
			switch {
			case err != nil:
				s.setError(err.Error())
			case parsed.sentence != "":
				s.post(ctx, event{kind: evLine, line: parsed.sentence})
			case parsed.hasBatch:
				s.post(ctx, event{kind: evBatch, batch: parsed.batch})
			}
		}
	} else {
		c.onConnect = func(net.Conn) error { return nil }
		c.onLine = func(line string) { s.post(ctx, event{kind: evLine, line: line}) }
	}
	log.Printf("gps enabled source=%s addr=%s", s.cfg.Source, addr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.run(ctx)
	}()
	return nil
}

func (s *Service) startReplayLocked(ctx context.Context) error {
	path := strings.TrimSpace(s.cfg.ReplayPath)
	if path == "" {
		return fmt.Errorf("gps replay source requires a path")
	}
	recs, err := replay.ReadFile(path)
	if err != nil {
		return fmt.Errorf("gps replay: %w", err)
	}
	speed := s.cfg.ReplaySpeed
	if speed <= 0 {
		speed = 1
	}
	s.updateStatus(func(st *Status) {
		st.Device = path
		st.State = "replaying"
	})
	log.Printf("gps enabled source=replay path=%s records=%d speed=%.2f loop=%t", path, len(recs), speed, s.cfg.ReplayLoop)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := replay.Play(ctx, recs, speed, s.cfg.ReplayLoop, nil, func(line string) error {
			s.post(ctx, event{kind: evLine, line: line})
			return ctx.Err()
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.setError(fmt.Sprintf("gps replay stopped: %v", err))
		}
		s.updateStatus(func(st *Status) { st.State = "finished" })
	}()
	return nil
}

func (s *Service) startSimLocked(ctx context.Context) error {
	sc := s.cfg.Sim
	var path sim.Path = sim.Orbit{
		CenterLatDeg: sc.CenterLatDeg,
		CenterLonDeg: sc.CenterLonDeg,
		AltM:         sc.AltM,
		RadiusM:      sc.RadiusM,
		Period:       sc.Period,
	}
	if p := strings.TrimSpace(sc.ScenarioPath); p != "" {
		script, err := sim.LoadScenarioScript(p)
		if err != nil {
			return fmt.Errorf("gps sim scenario: %w", err)
		}
		scn, err := sim.NewScenario(script)
		if err != nil {
			return fmt.Errorf("gps sim scenario: %w", err)
		}
		scn.Loop = true
		path = scn
	}
	rx := sim.NewReceiver(path, sc.Satellites)
	s.updateStatus(func(st *Status) { st.State = "simulating" })
	log.Printf("gps enabled source=sim satellites=%d", rx.Satellites)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = rx.Run(ctx, sc.Interval, func(line string) { s.post(ctx, event{kind: evLine, line: line}) })
	}()
	return nil
}

// scanLines reads newline-delimited sentences until EOF, error or ctx done.
func scanLines(ctx context.Context, r io.ReadCloser, onLine func(string)) error {
	stop := context.AfterFunc(ctx, func() { _ = r.Close() })
	defer stop()
	sc := bufio.NewScanner(r)
	// NMEA sentences are typically < 82 chars, but allow some headroom.
	sc.Buffer(make([]byte, 0, 256), 4096)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		onLine(line)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func (s *Service) post(ctx context.Context, ev event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

func (s *Service) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

func (s *Service) handle(ev event) {
	now := s.now()
	switch ev.kind {
	case evLine:
		s.handleLine(now, ev.line)
	case evBatch:
		s.publish(s.engine.HandleBatch(ev.batch))
	case evObserver:
		s.publish(s.engine.SetObserver(ev.obs))
		s.updateStatus(func(st *Status) {
			obs := ev.obs
			st.Observer = &obs
		})
	case evExpire:
		u := s.engine.Expire(now)
		if u.Fix {
			log.Printf("gps stream stale timeout=%s", s.engine.Timeout())
			s.updateStatus(func(st *Status) { st.Stale = true })
		}
		s.publish(u)
	}
}

func (s *Service) handleLine(now time.Time, line string) {
	if s.recorder != nil {
		if err := s.recorder.WriteLine(now, line); err != nil {
			s.setError(fmt.Sprintf("gps record: %v", err))
		}
	}
	u, err := s.engine.HandleLine(now, line)
	s.updateStatus(func(st *Status) {
		st.Lines++
		st.LastLineUTC = now.Format(time.RFC3339Nano)
		switch {
		case err == nil:
			st.Accepted++
			st.Stale = false
		case errors.Is(err, nmea.ErrUnsupported):
			st.Unsupported++
		default:
			st.Rejected++
			st.LastError = err.Error()
		}
		if obs, ok := s.engine.Observer(); ok {
			st.Observer = &obs
		}
	})
	if err != nil {
		return
	}
	s.watchdog.Kick()
	s.sentences.Publish(line)
	s.publish(u)
}

// publish sends satellites before the fix, so a consumer reacting to a
// fix already sees the satellite list of the same update.
func (s *Service) publish(u Update) {
	if u.Satellites {
		s.sats.Publish(s.engine.Satellites())
	}
	if u.Fix {
		s.fixes.Publish(s.engine.Fix())
	}
}

// SetObserver moves the observer used to position satellites.
func (s *Service) SetObserver(obs geo.Geodetic) {
	if s == nil {
		return
	}
	s.mu.Lock()
	ctx := s.ctx
	running := s.cancel != nil
	closed := s.closed
	if !running && !closed {
		s.engine.SetObserver(obs)
		s.mu.Unlock()
		s.updateStatus(func(st *Status) { st.Observer = &obs })
		return
	}
	s.mu.Unlock()
	if running {
		s.post(ctx, event{kind: evObserver, obs: obs})
	}
}

// Close stops the source and the worker, cancels the staleness timer and
// releases every satellite handle. Nothing is published afterwards.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	closer := s.closer
	s.cancel = nil
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()

	if s.watchdog != nil {
		s.watchdog.Stop()
	}
	s.engine.Teardown()
	s.fixes.Close()
	s.sats.Close()
	s.sentences.Close()
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			log.Printf("gps record close failed: %v", err)
		}
	}
	s.updateStatus(func(st *Status) { st.State = "closed" })
}

// Fix returns the latest published fix.
func (s *Service) Fix() fix.Snapshot {
	v, _ := s.fixes.Last()
	return v
}

// PositionedSatellites returns the latest published satellite list.
func (s *Service) PositionedSatellites() []satellite.Positioned {
	v, _ := s.sats.Last()
	return v
}

func (s *Service) Status() Status {
	if s == nil {
		return Status{}
	}
	v := s.status.Load()
	if v == nil {
		return Status{}
	}
	return v.(Status)
}

func (s *Service) updateStatus(fn func(*Status)) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	cur := s.Status()
	fn(&cur)
	s.status.Store(cur)
}

func (s *Service) setError(msg string) {
	s.updateStatus(func(st *Status) { st.LastError = msg })
}
