package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"runtime/debug"
	"time"

	"gnssview/internal/fix"
	"gnssview/internal/geo"
	"gnssview/internal/gps"
	"gnssview/internal/pubsub"
	"gnssview/internal/satellite"
)

// Feed is the part of gps.Service the web layer reads from.
type Feed interface {
	Fix() fix.Snapshot
	PositionedSatellites() []satellite.Positioned
	Status() gps.Status
	Fixes() *pubsub.Broadcaster[fix.Snapshot]
	Satellites() *pubsub.Broadcaster[[]satellite.Positioned]
	SetObserver(obs geo.Geodetic)
}

// Info is static process metadata reported by /api/status.
type Info struct {
	Service string
	Session string
	Started time.Time
}

type FixResponse struct {
	fix.Snapshot
	LatDMS string `json:"lat_dms,omitempty"`
	LonDMS string `json:"lon_dms,omitempty"`
}

type SatellitesResponse struct {
	Count      int                    `json:"count"`
	Used       int                    `json:"used"`
	Degraded   int                    `json:"degraded"`
	Satellites []satellite.Positioned `json:"satellites"`
}

type StatusResponse struct {
	Service   string     `json:"service"`
	Session   string     `json:"session,omitempty"`
	NowUTC    string     `json:"now_utc"`
	UptimeSec int64      `json:"uptime_sec"`
	GoVersion string     `json:"go_version"`
	Version   string     `json:"version,omitempty"`
	VCS       string     `json:"vcs_revision,omitempty"`
	GPS       gps.Status `json:"gps"`
	Clients   int        `json:"stream_clients"`
}

type observerRequest struct {
	LatDeg *float64 `json:"lat_deg"`
	LonDeg *float64 `json:"lon_deg"`
	AltM   float64  `json:"alt_m"`
}

func newFixResponse(s fix.Snapshot) FixResponse {
	out := FixResponse{Snapshot: s}
	if s.LatDeg != nil && s.LonDeg != nil {
		out.LatDMS = geo.GeodeticToDMS(*s.LatDeg, geo.Hemisphere(*s.LatDeg, true))
		out.LonDMS = geo.GeodeticToDMS(*s.LonDeg, geo.Hemisphere(*s.LonDeg, false))
	}
	return out
}

func newSatellitesResponse(sats []satellite.Positioned) SatellitesResponse {
	out := SatellitesResponse{Count: len(sats), Satellites: sats}
	if out.Satellites == nil {
		out.Satellites = []satellite.Positioned{}
	}
	for _, s := range sats {
		if s.UsedInFix {
			out.Used++
		}
		if s.Degraded {
			out.Degraded++
		}
	}
	return out
}

func buildVersion() (version, revision string) {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return "", ""
	}
	version = bi.Main.Version
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" {
			revision = s.Value
		}
	}
	return version, revision
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func Handler(feed Feed, info Info, logs *LogBuffer) http.Handler {
	if info.Service == "" {
		info.Service = "gnssview"
	}
	if info.Started.IsZero() {
		info.Started = time.Now()
	}
	version, revision := buildVersion()
	stream := newStream(feed)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/fix", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, newFixResponse(feed.Fix()))
	})

	mux.HandleFunc("/api/satellites", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, newSatellitesResponse(feed.PositionedSatellites()))
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		now := time.Now().UTC()
		writeJSON(w, StatusResponse{
			Service:   info.Service,
			Session:   info.Session,
			NowUTC:    now.Format(time.RFC3339Nano),
			UptimeSec: int64(now.Sub(info.Started.UTC()) / time.Second),
			GoVersion: runtime.Version(),
			Version:   version,
			VCS:       revision,
			GPS:       feed.Status(),
			Clients:   stream.clients(),
		})
	})

	mux.HandleFunc("/api/observer", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 4096)
		var req observerRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
			return
		}
		if req.LatDeg == nil || req.LonDeg == nil {
			http.Error(w, "lat_deg and lon_deg are required", http.StatusBadRequest)
			return
		}
		if *req.LatDeg < -90 || *req.LatDeg > 90 {
			http.Error(w, "lat_deg must be in [-90,90]", http.StatusBadRequest)
			return
		}
		if *req.LonDeg < -180 || *req.LonDeg > 180 {
			http.Error(w, "lon_deg must be in [-180,180]", http.StatusBadRequest)
			return
		}
		obs := geo.Geodetic{LatDeg: *req.LatDeg, LonDeg: *req.LonDeg, AltM: req.AltM}
		feed.SetObserver(obs)
		writeJSON(w, obs)
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.Handle("/ws", stream)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		snap := feed.Fix()
		st := feed.Status()
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>%s</title></head><body>", info.Service)
		_, _ = fmt.Fprintf(w, "<h1>%s</h1>", info.Service)
		_, _ = fmt.Fprintf(w, "<p>JSON: <a href=\"/api/fix\">/api/fix</a> <a href=\"/api/satellites\">/api/satellites</a> <a href=\"/api/status\">/api/status</a>. Stream: /ws.</p>")
		_, _ = fmt.Fprintf(w, "<pre>source=%s\nstate=%s\nknown=%t\nvalid=%t\nsatellites=%d\nlines=%d</pre>",
			st.Source, st.State, snap.Known, snap.Valid, len(feed.PositionedSatellites()), st.Lines,
		)
		_, _ = fmt.Fprintf(w, "</body></html>")
	})

	return mux
}

func Serve(ctx context.Context, listenAddr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
