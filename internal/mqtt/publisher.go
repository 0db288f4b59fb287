// Package mqtt publishes fix and satellite snapshots to an MQTT broker as
// retained JSON messages.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"gnssview/internal/fix"
	"gnssview/internal/satellite"
)

type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
	// Session is appended to ClientID so two runs never share a client id.
	Session string
}

// client is the subset of paho.Client used here.
type client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

type Publisher struct {
	cfg    Config
	client client
}

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

func NewPublisher(cfg Config) (*Publisher, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, errors.New("mqtt: broker is required")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("mqtt: qos must be 0, 1 or 2 (got %d)", cfg.QoS)
	}
	cfg = withDefaults(cfg)

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID(cfg)).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetWill(cfg.TopicPrefix+"/online", "false", cfg.QoS, true)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Printf("mqtt connected broker=%s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Printf("mqtt connection lost broker=%s err=%v", cfg.Broker, err)
	})
	return newPublisher(cfg, paho.NewClient(opts)), nil
}

func newPublisher(cfg Config, c client) *Publisher {
	return &Publisher{cfg: withDefaults(cfg), client: c}
}

func withDefaults(cfg Config) Config {
	cfg.TopicPrefix = strings.TrimRight(strings.TrimSpace(cfg.TopicPrefix), "/")
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "gnssview"
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		cfg.ClientID = "gnssview"
	}
	return cfg
}

func clientID(cfg Config) string {
	if cfg.Session == "" {
		return cfg.ClientID
	}
	return cfg.ClientID + "-" + cfg.Session
}

func (p *Publisher) FixTopic() string        { return p.cfg.TopicPrefix + "/fix" }
func (p *Publisher) SatellitesTopic() string { return p.cfg.TopicPrefix + "/satellites" }
func (p *Publisher) OnlineTopic() string     { return p.cfg.TopicPrefix + "/online" }

func wait(t paho.Token, timeout time.Duration) error {
	if !t.WaitTimeout(timeout) {
		return errors.New("timeout")
	}
	return t.Error()
}

func (p *Publisher) Connect() error {
	if err := wait(p.client.Connect(), connectTimeout); err != nil {
		return fmt.Errorf("mqtt: connect %s: %w", p.cfg.Broker, err)
	}
	return p.publish(p.OnlineTopic(), []byte("true"))
}

func (p *Publisher) publish(topic string, payload []byte) error {
	if err := wait(p.client.Publish(topic, p.cfg.QoS, true, payload), publishTimeout); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}
	return nil
}

type satellitesPayload struct {
	Count      int                    `json:"count"`
	Satellites []satellite.Positioned `json:"satellites"`
}

func (p *Publisher) PublishFix(s fix.Snapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("mqtt: marshal fix: %w", err)
	}
	return p.publish(p.FixTopic(), b)
}

func (p *Publisher) PublishSatellites(sats []satellite.Positioned) error {
	if sats == nil {
		sats = []satellite.Positioned{}
	}
	b, err := json.Marshal(satellitesPayload{Count: len(sats), Satellites: sats})
	if err != nil {
		return fmt.Errorf("mqtt: marshal satellites: %w", err)
	}
	return p.publish(p.SatellitesTopic(), b)
}

// Run publishes every value received until ctx is done or both channels
// are closed. Publish errors are logged and do not stop the loop.
func (p *Publisher) Run(ctx context.Context, fixes <-chan fix.Snapshot, sats <-chan []satellite.Positioned) {
	var lastErr string
	report := func(err error) {
		if err == nil {
			lastErr = ""
			return
		}
		if err.Error() != lastErr {
			log.Printf("%v", err)
			lastErr = err.Error()
		}
	}
	for fixes != nil || sats != nil {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-fixes:
			if !ok {
				fixes = nil
				continue
			}
			report(p.PublishFix(s))
		case list, ok := <-sats:
			if !ok {
				sats = nil
				continue
			}
			report(p.PublishSatellites(list))
		}
	}
}

// Close marks the feed offline and disconnects.
func (p *Publisher) Close() {
	_ = p.publish(p.OnlineTopic(), []byte("false"))
	p.client.Disconnect(250)
}
