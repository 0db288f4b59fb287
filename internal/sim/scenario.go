package sim

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ScenarioScript is a deterministic, script-driven receiver description.
//
// Time is expressed as Go duration strings (e.g. "0s", "250ms", "10s").
// If Duration is zero, it is derived from the latest keyframe or outage.
//
// YAML schema (v1):
//
//	version: 1
//	duration: 90s
//	keyframes:
//	  - t: 0s
//	    lat_deg: 37.39
//	    lon_deg: -122.03
//	    alt_m: 20
//	    speed_kt: 5
//	    track_deg: 90
//	    quality: 2
//	outages:
//	  - from: 40s
//	    to: 75s
//
// Keyframes must be sorted by t. During an outage the receiver is silent.
type ScenarioScript struct {
	Version   int           `yaml:"version"`
	Duration  time.Duration `yaml:"duration"`
	Keyframes []Keyframe    `yaml:"keyframes"`
	Outages   []Outage      `yaml:"outages"`
}

type Keyframe struct {
	T        time.Duration `yaml:"t"`
	LatDeg   float64       `yaml:"lat_deg"`
	LonDeg   float64       `yaml:"lon_deg"`
	AltM     float64       `yaml:"alt_m"`
	SpeedKt  float64       `yaml:"speed_kt"`
	TrackDeg float64       `yaml:"track_deg"`
	// Quality defaults to 1 (GPS) when omitted.
	Quality *int `yaml:"quality"`
}

type Outage struct {
	From time.Duration `yaml:"from"`
	To   time.Duration `yaml:"to"`
}

// Scenario is the validated, runtime representation. It implements Path.
type Scenario struct {
	script   ScenarioScript
	duration time.Duration
	// Loop wraps elapsed time around Duration instead of clamping.
	Loop bool
}

// LoadScenarioScript reads and unmarshals a YAML scenario script from path.
func LoadScenarioScript(path string) (ScenarioScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ScenarioScript{}, err
	}
	return ParseScenarioScriptYAML(b)
}

func ParseScenarioScriptYAML(b []byte) (ScenarioScript, error) {
	var s ScenarioScript
	if err := yaml.Unmarshal(b, &s); err != nil {
		return ScenarioScript{}, err
	}
	return s, nil
}

// NewScenario validates script and returns a runtime Scenario.
func NewScenario(script ScenarioScript) (*Scenario, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("unsupported scenario version %d", script.Version)
	}
	if len(script.Keyframes) == 0 {
		return nil, fmt.Errorf("keyframes is required")
	}
	for i, kf := range script.Keyframes {
		if kf.T < 0 {
			return nil, fmt.Errorf("keyframes[%d].t must be >= 0", i)
		}
		if i > 0 && kf.T < script.Keyframes[i-1].T {
			return nil, fmt.Errorf("keyframes must be sorted by t (index %d)", i)
		}
	}
	for i, o := range script.Outages {
		if o.From < 0 || o.To <= o.From {
			return nil, fmt.Errorf("outages[%d] must satisfy 0 <= from < to", i)
		}
	}

	dur := script.Duration
	if dur <= 0 {
		dur = script.Keyframes[len(script.Keyframes)-1].T
		for _, o := range script.Outages {
			if o.To > dur {
				dur = o.To
			}
		}
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration is required (or deriveable from keyframes)")
	}
	return &Scenario{script: script, duration: dur}, nil
}

func (s *Scenario) Duration() time.Duration {
	if s == nil {
		return 0
	}
	return s.duration
}

// StateAt computes the receiver state at elapsed.
func (s *Scenario) StateAt(elapsed time.Duration) State {
	if s == nil {
		return State{Silent: true}
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if s.Loop {
		elapsed = elapsed % s.duration
	} else if elapsed > s.duration {
		elapsed = s.duration
	}

	for _, o := range s.script.Outages {
		if elapsed >= o.From && elapsed < o.To {
			return State{Silent: true}
		}
	}

	k0, k1, alpha := selectSegment(s.script.Keyframes, elapsed)
	q := 1
	if k0.Quality != nil {
		q = *k0.Quality
	}
	return State{
		LatDeg:   lerp(k0.LatDeg, k1.LatDeg, alpha),
		LonDeg:   lerp(k0.LonDeg, k1.LonDeg, alpha),
		AltM:     lerp(k0.AltM, k1.AltM, alpha),
		SpeedKt:  lerp(k0.SpeedKt, k1.SpeedKt, alpha),
		TrackDeg: lerpAngleDeg(k0.TrackDeg, k1.TrackDeg, alpha),
		Quality:  q,
	}
}

func selectSegment(kfs []Keyframe, t time.Duration) (Keyframe, Keyframe, float64) {
	if len(kfs) == 1 {
		return kfs[0], kfs[0], 0
	}
	idx := sort.Search(len(kfs), func(i int) bool { return kfs[i].T > t })
	if idx <= 0 {
		return kfs[0], kfs[0], 0
	}
	if idx >= len(kfs) {
		last := kfs[len(kfs)-1]
		return last, last, 0
	}
	k0 := kfs[idx-1]
	k1 := kfs[idx]
	dt := k1.T - k0.T
	if dt <= 0 {
		return k1, k1, 0
	}
	alpha := float64(t-k0.T) / float64(dt)
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return k0, k1, alpha
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// lerpAngleDeg interpolates along the shorter arc.
func lerpAngleDeg(a0, a1, t float64) float64 {
	norm := func(x float64) float64 {
		for x < 0 {
			x += 360
		}
		for x >= 360 {
			x -= 360
		}
		return x
	}
	a0 = norm(a0)
	a1 = norm(a1)
	delta := a1 - a0
	if delta > 180 {
		delta -= 360
	} else if delta < -180 {
		delta += 360
	}
	return norm(a0 + delta*t)
}
