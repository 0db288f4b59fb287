package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	GPS   GPSConfig   `yaml:"gps" toml:"gps"`
	Scene SceneConfig `yaml:"scene" toml:"scene"`
	Sim   SimConfig   `yaml:"sim" toml:"sim"`
	Web   WebConfig   `yaml:"web" toml:"web"`
	MQTT  MQTTConfig  `yaml:"mqtt" toml:"mqtt"`
	UDP   UDPConfig   `yaml:"udp" toml:"udp"`
}

type GPSConfig struct {
	Enable bool `yaml:"enable" toml:"enable"`
	// Source is one of serial, tcp, gpsd, replay, sim.
	Source string `yaml:"source" toml:"source"`
	// Device may be empty to auto-detect a serial receiver.
	Device string `yaml:"device" toml:"device"`
	Baud   int    `yaml:"baud" toml:"baud"`
	// Addr is host:port for the tcp and gpsd sources.
	Addr string `yaml:"addr" toml:"addr"`

	Replay ReplayConfig `yaml:"replay" toml:"replay"`
	Record RecordConfig `yaml:"record" toml:"record"`

	VerifyChecksum bool          `yaml:"verify_checksum" toml:"verify_checksum"`
	StaleTimeout   time.Duration `yaml:"stale_timeout" toml:"stale_timeout"`
	SensorFactor   float64       `yaml:"sensor_factor" toml:"sensor_factor"`

	Observer ObserverConfig `yaml:"observer" toml:"observer"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path" toml:"path"`
	Speed float64 `yaml:"speed" toml:"speed"`
	Loop  bool    `yaml:"loop" toml:"loop"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable" toml:"enable"`
	Path   string `yaml:"path" toml:"path"`
}

// ObserverConfig selects where satellites are seen from. Mode "auto"
// follows the receiver fix; "static" pins the coordinates below.
type ObserverConfig struct {
	Mode   string  `yaml:"mode" toml:"mode"`
	LatDeg float64 `yaml:"lat_deg" toml:"lat_deg"`
	LonDeg float64 `yaml:"lon_deg" toml:"lon_deg"`
	AltM   float64 `yaml:"alt_m" toml:"alt_m"`
}

type SceneConfig struct {
	ModelRadius float64 `yaml:"model_radius" toml:"model_radius"`
	// YawDeg is a pointer so an explicit 0 survives defaulting.
	YawDeg          *float64 `yaml:"yaw_deg" toml:"yaw_deg"`
	FlipLongitude   bool     `yaml:"flip_longitude" toml:"flip_longitude"`
	ShellProjection bool     `yaml:"shell_projection" toml:"shell_projection"`
}

type SimConfig struct {
	CenterLatDeg float64       `yaml:"center_lat_deg" toml:"center_lat_deg"`
	CenterLonDeg float64       `yaml:"center_lon_deg" toml:"center_lon_deg"`
	AltM         float64       `yaml:"alt_m" toml:"alt_m"`
	RadiusM      float64       `yaml:"radius_m" toml:"radius_m"`
	Period       time.Duration `yaml:"period" toml:"period"`
	Satellites   int           `yaml:"satellites" toml:"satellites"`
	Interval     time.Duration `yaml:"interval" toml:"interval"`
	Scenario     string        `yaml:"scenario" toml:"scenario"`
}

type WebConfig struct {
	Enable     bool   `yaml:"enable" toml:"enable"`
	ListenAddr string `yaml:"listen_addr" toml:"listen_addr"`
	LogLines   int    `yaml:"log_lines" toml:"log_lines"`
}

type MQTTConfig struct {
	Enable      bool   `yaml:"enable" toml:"enable"`
	Broker      string `yaml:"broker" toml:"broker"`
	ClientID    string `yaml:"client_id" toml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix" toml:"topic_prefix"`
	QoS         int    `yaml:"qos" toml:"qos"`
}

type UDPConfig struct {
	Enable bool   `yaml:"enable" toml:"enable"`
	Dest   string `yaml:"dest" toml:"dest"`
}

const (
	DefaultStaleTimeout = 30 * time.Second
	DefaultSensorFactor = 5.0
	DefaultModelRadius  = 1.0
	DefaultYawDeg       = -2.0
)

var sources = map[string]bool{"serial": true, "tcp": true, "gpsd": true, "replay": true, "sim": true}

// Load reads a YAML file, or TOML when the name ends in .toml, applies
// defaults and validates the result.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse toml: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse yaml: %w", err)
		}
	}

	if err := applyDefaults(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) error {
	g := &cfg.GPS
	g.Source = strings.ToLower(strings.TrimSpace(g.Source))
	if g.Source == "" {
		g.Source = "serial"
	}
	if !sources[g.Source] {
		return fmt.Errorf("gps.source must be one of serial, tcp, gpsd, replay, sim (got %q)", g.Source)
	}
	if g.Baud < 0 {
		return fmt.Errorf("gps.baud must be >= 0")
	}
	if (g.Source == "tcp" || g.Source == "gpsd") && strings.TrimSpace(g.Addr) == "" {
		if g.Source == "gpsd" {
			g.Addr = "127.0.0.1:2947"
		} else {
			return fmt.Errorf("gps.addr is required when gps.source is 'tcp'")
		}
	}
	if g.Source == "replay" {
		if strings.TrimSpace(g.Replay.Path) == "" {
			return fmt.Errorf("gps.replay.path is required when gps.source is 'replay'")
		}
		if g.Replay.Speed == 0 {
			g.Replay.Speed = 1
		}
		if g.Replay.Speed < 0 {
			return fmt.Errorf("gps.replay.speed must be > 0")
		}
	}
	if g.Record.Enable {
		if strings.TrimSpace(g.Record.Path) == "" {
			return fmt.Errorf("gps.record.path is required when gps.record.enable is true")
		}
		if g.Source == "replay" {
			return fmt.Errorf("gps.record cannot be used with gps.source=replay")
		}
	}
	if g.StaleTimeout == 0 {
		g.StaleTimeout = DefaultStaleTimeout
	}
	if g.StaleTimeout < 0 {
		return fmt.Errorf("gps.stale_timeout must be > 0")
	}
	if g.SensorFactor == 0 {
		g.SensorFactor = DefaultSensorFactor
	}
	if g.SensorFactor < 0 {
		return fmt.Errorf("gps.sensor_factor must be > 0")
	}

	o := &g.Observer
	o.Mode = strings.ToLower(strings.TrimSpace(o.Mode))
	switch o.Mode {
	case "":
		o.Mode = "auto"
	case "auto":
	case "static":
		if o.LatDeg < -90 || o.LatDeg > 90 {
			return fmt.Errorf("gps.observer.lat_deg must be in [-90,90]")
		}
		if o.LonDeg < -180 || o.LonDeg > 180 {
			return fmt.Errorf("gps.observer.lon_deg must be in [-180,180]")
		}
	default:
		return fmt.Errorf("gps.observer.mode must be 'auto' or 'static' (got %q)", o.Mode)
	}

	if cfg.Scene.ModelRadius == 0 {
		cfg.Scene.ModelRadius = DefaultModelRadius
	}
	if cfg.Scene.ModelRadius < 0 {
		return fmt.Errorf("scene.model_radius must be > 0")
	}
	if cfg.Scene.YawDeg == nil {
		yaw := DefaultYawDeg
		cfg.Scene.YawDeg = &yaw
	}

	// Simulator defaults (safe even if the sim source is not selected).
	if cfg.Sim.Period <= 0 {
		cfg.Sim.Period = 10 * time.Minute
	}
	if cfg.Sim.RadiusM <= 0 {
		cfg.Sim.RadiusM = 500
	}
	if cfg.Sim.Satellites <= 0 {
		cfg.Sim.Satellites = 12
	}
	if cfg.Sim.Interval <= 0 {
		cfg.Sim.Interval = 1 * time.Second
	}

	if cfg.Web.ListenAddr == "" {
		cfg.Web.ListenAddr = ":8080"
	}
	if cfg.Web.LogLines <= 0 {
		cfg.Web.LogLines = 2000
	}

	if cfg.MQTT.Enable && strings.TrimSpace(cfg.MQTT.Broker) == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
	}
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "gnssview"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "gnssview"
	}

	if cfg.UDP.Enable && strings.TrimSpace(cfg.UDP.Dest) == "" {
		return fmt.Errorf("udp.dest is required when udp.enable is true")
	}
	return nil
}
