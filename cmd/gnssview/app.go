package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"gnssview/internal/config"
	"gnssview/internal/geo"
	"gnssview/internal/gps"
	"gnssview/internal/mqtt"
	"gnssview/internal/udp"
	"gnssview/internal/web"
)

func gpsConfig(cfg config.Config, session string) gps.Config {
	g := cfg.GPS
	scene := geo.NewScene(cfg.Scene.ModelRadius)
	if cfg.Scene.YawDeg != nil {
		scene.YawDeg = *cfg.Scene.YawDeg
	}
	scene.FlipLongitude = cfg.Scene.FlipLongitude

	out := gps.Config{
		Enable:      g.Enable,
		Source:      g.Source,
		Device:      g.Device,
		Baud:        g.Baud,
		Addr:        g.Addr,
		ReplayPath:  g.Replay.Path,
		ReplaySpeed: g.Replay.Speed,
		ReplayLoop:  g.Replay.Loop,
		Sim: gps.SimConfig{
			CenterLatDeg: cfg.Sim.CenterLatDeg,
			CenterLonDeg: cfg.Sim.CenterLonDeg,
			AltM:         cfg.Sim.AltM,
			RadiusM:      cfg.Sim.RadiusM,
			Period:       cfg.Sim.Period,
			Satellites:   cfg.Sim.Satellites,
			Interval:     cfg.Sim.Interval,
			ScenarioPath: cfg.Sim.Scenario,
		},
		VerifyChecksum:  g.VerifyChecksum,
		StaleTimeout:    g.StaleTimeout,
		SensorFactor:    g.SensorFactor,
		Scene:           scene,
		ShellProjection: cfg.Scene.ShellProjection,
		SessionID:       session,
	}
	if g.Record.Enable {
		out.RecordPath = g.Record.Path
	}
	if g.Observer.Mode == "static" {
		out.StaticObserver = &geo.Geodetic{LatDeg: g.Observer.LatDeg, LonDeg: g.Observer.LonDeg, AltM: g.Observer.AltM}
	}
	return out
}

// run wires the receiver feed to its outputs and blocks until ctx is done
// or the web server fails.
func run(ctx context.Context, cfg config.Config, session string, logs *web.LogBuffer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gc := gpsConfig(cfg, session)
	svc := gps.New(gc)
	defer svc.Close()
	log.Printf("gps source=%s enable=%t stale_timeout=%s observer=%s", gc.Source, gc.Enable, gc.StaleTimeout, cfg.GPS.Observer.Mode)

	if cfg.MQTT.Enable {
		pub, err := mqtt.NewPublisher(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         byte(cfg.MQTT.QoS),
			Session:     session,
		})
		if err != nil {
			return err
		}
		if err := pub.Connect(); err != nil {
			return err
		}
		defer pub.Close()
		fixID, fixes := svc.Fixes().Subscribe(8)
		defer svc.Fixes().Unsubscribe(fixID)
		satID, sats := svc.Satellites().Subscribe(8)
		defer svc.Satellites().Unsubscribe(satID)
		go pub.Run(ctx, fixes, sats)
		log.Printf("mqtt publishing broker=%s topics=%s,%s", cfg.MQTT.Broker, pub.FixTopic(), pub.SatellitesTopic())
	}

	if cfg.UDP.Enable {
		relay, err := udp.NewRelay(cfg.UDP.Dest)
		if err != nil {
			return fmt.Errorf("udp relay init failed: %w", err)
		}
		defer relay.Close()
		id, lines := svc.Sentences().Subscribe(256)
		defer svc.Sentences().Unsubscribe(id)
		go relay.Run(ctx, lines)
		log.Printf("udp relay dest=%s", relay.Dest())
	}

	webErr := make(chan error, 1)
	if cfg.Web.Enable {
		h := web.Handler(svc, web.Info{Service: "gnssview", Session: session, Started: time.Now()}, logs)
		go func() {
			webErr <- web.Serve(ctx, cfg.Web.ListenAddr, h)
		}()
		log.Printf("web listening addr=%s", cfg.Web.ListenAddr)
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("gps start failed: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-webErr:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("web server stopped: %w", err)
		}
		return nil
	}
}
