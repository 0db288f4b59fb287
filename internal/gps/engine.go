package gps

import (
	"errors"
	"time"

	"gnssview/internal/fix"
	"gnssview/internal/geo"
	"gnssview/internal/nmea"
	"gnssview/internal/satellite"
)

var ErrClosed = errors.New("gps: engine torn down")

type EngineConfig struct {
	Fix            fix.Config
	Positioner     satellite.Positioner
	VerifyChecksum bool
	// StaticObserver pins the observer location. When nil the observer
	// follows the fix once it is valid.
	StaticObserver *geo.Geodetic
	// ExternalSky ignores GSV/GSA for satellites; batches arrive through
	// HandleBatch instead (gpsd SKY reports).
	ExternalSky bool
	// ViewMaxAge drops a talker's satellites when its GSV cycles stop.
	// Zero means satellite.DefaultViewMaxAge.
	ViewMaxAge time.Duration
}

// Update says which published views changed.
type Update struct {
	Fix        bool
	Satellites bool
	Diff       satellite.Diff
}

func (u *Update) merge(o Update) {
	u.Fix = u.Fix || o.Fix
	u.Satellites = u.Satellites || o.Satellites
	u.Diff.Added = append(u.Diff.Added, o.Diff.Added...)
	u.Diff.Updated = append(u.Diff.Updated, o.Diff.Updated...)
	u.Diff.Removed = append(u.Diff.Removed, o.Diff.Removed...)
}

// Engine is not safe for concurrent use.
type Engine[H any] struct {
	cfg EngineConfig

	dec *nmea.Decoder
	agg *fix.Aggregator
	sky *satellite.Sky
	rec *satellite.Reconciler[H]

	follow   bool
	torndown bool
}

func NewEngine[H any](cfg EngineConfig, r satellite.Renderer[H]) *Engine[H] {
	dec := nmea.NewDecoder()
	dec.VerifyChecksum = cfg.VerifyChecksum
	e := &Engine[H]{
		cfg:    cfg,
		dec:    dec,
		agg:    fix.New(cfg.Fix),
		sky:    satellite.NewSky(cfg.ViewMaxAge),
		rec:    satellite.NewReconciler[H](r, cfg.Positioner),
		follow: cfg.StaticObserver == nil,
	}
	if cfg.StaticObserver != nil {
		e.rec.SetObserver(*cfg.StaticObserver)
	}
	return e
}

// HandleLine decodes and applies one raw sentence. Any error means nothing
// changed.
func (e *Engine[H]) HandleLine(nowUTC time.Time, line string) (Update, error) {
	if e.torndown {
		return Update{}, ErrClosed
	}
	rec, err := e.dec.Decode(line)
	if err != nil {
		return Update{}, err
	}
	return e.apply(nowUTC, rec), nil
}

func (e *Engine[H]) apply(nowUTC time.Time, rec nmea.Record) Update {
	var u Update
	u.Fix = e.agg.Apply(nowUTC, rec)
	skyChanged := false
	if !e.cfg.ExternalSky {
		skyChanged = e.sky.Prune(nowUTC)
	}
	switch r := rec.(type) {
	case nmea.GSV:
		if !e.cfg.ExternalSky && e.sky.ApplyGSV(nowUTC, r) {
			skyChanged = true
		}
	case nmea.GSA:
		if !e.cfg.ExternalSky {
			e.sky.ApplyGSA(nowUTC, r)
			skyChanged = true
		}
	case nmea.GGA, nmea.RMC:
		if e.follow {
			u.merge(e.followFix())
		}
	}
	if skyChanged {
		u.merge(e.reconcile())
	}
	return u
}

// HandleBatch replaces the satellite set with a complete external batch.
func (e *Engine[H]) HandleBatch(batch []satellite.Status) Update {
	if e.torndown {
		return Update{}
	}
	e.sky.ApplyStatus(batch)
	return e.reconcile()
}

func (e *Engine[H]) reconcile() Update {
	d := e.rec.Update(e.sky.Batch())
	return Update{Satellites: true, Diff: d}
}

func (e *Engine[H]) followFix() Update {
	obs, ok := observerFromFix(e.agg.Snapshot())
	if !ok {
		return Update{}
	}
	if cur, have := e.rec.Observer(); have && cur == obs {
		return Update{}
	}
	e.rec.SetObserver(obs)
	return Update{Satellites: e.rec.ActiveCount() > 0}
}

func observerFromFix(s fix.Snapshot) (geo.Geodetic, bool) {
	if !s.Valid || s.LatDeg == nil || s.LonDeg == nil {
		return geo.Geodetic{}, false
	}
	obs := geo.Geodetic{LatDeg: *s.LatDeg, LonDeg: *s.LonDeg}
	switch {
	case s.MSLAltitudeM != nil:
		obs.AltM = *s.MSLAltitudeM
	case s.AltitudeM != nil:
		obs.AltM = *s.AltitudeM
	}
	return obs, true
}

// SetObserver overrides the observer location until the next valid fix
// (or permanently with a static observer).
func (e *Engine[H]) SetObserver(obs geo.Geodetic) Update {
	if e.torndown {
		return Update{}
	}
	e.rec.SetObserver(obs)
	return Update{Satellites: true}
}

func (e *Engine[H]) Observer() (geo.Geodetic, bool) { return e.rec.Observer() }

// Expire invalidates everything when the stream has been silent for the
// timeout. Decoder priors and partial GSV cycles are dropped too, so stale
// values cannot reappear through a later partial sentence.
func (e *Engine[H]) Expire(nowUTC time.Time) Update {
	if e.torndown || !e.agg.Expire(nowUTC) {
		return Update{}
	}
	e.dec.Reset()
	e.sky.Reset()
	u := e.reconcile()
	u.Fix = true
	return u
}

func (e *Engine[H]) Timeout() time.Duration { return e.agg.Timeout() }

func (e *Engine[H]) Fix() fix.Snapshot { return e.agg.Snapshot() }

func (e *Engine[H]) Satellites() []satellite.Positioned { return e.rec.Positioned() }

func (e *Engine[H]) Reconciler() *satellite.Reconciler[H] { return e.rec }

// Teardown releases every handle. The engine ignores all input afterwards.
func (e *Engine[H]) Teardown() {
	if e.torndown {
		return
	}
	e.torndown = true
	e.rec.Teardown()
}
