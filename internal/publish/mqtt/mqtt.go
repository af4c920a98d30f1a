// Package mqtt publishes SPS30 readings and unit health to an MQTT broker.
//
// Readings go to "{prefix}/{unit}/measurement" and health snapshots to
// "{prefix}/{unit}/status", both as JSON.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tamzrod/sps30-replicator/internal/publish"
)

const (
	// DefaultTopicPrefix is the default MQTT topic prefix.
	DefaultTopicPrefix = "sps30"

	publishTimeout = 5 * time.Second
)

// Config holds the configuration for an MQTT publisher.
type Config struct {
	// Broker is the MQTT broker URL (e.g., "tcp://broker.example.com:1883").
	Broker   string
	Username string
	Password string
	// ClientID is the MQTT client identifier. If empty, a random one is generated.
	ClientID    string
	TopicPrefix string
	QoS         byte
	Retain      bool
	// Logger is the logger to use. If nil, logging is disabled.
	Logger *zap.Logger
}

// Publisher sends readings and health to MQTT.
type Publisher struct {
	cfg       Config
	client    paho.Client
	log       *zap.Logger
	mu        sync.RWMutex
	connected bool
}

// New creates a publisher. Nothing is connected until Start.
func New(cfg Config) *Publisher {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "sps30-" + uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Publisher{
		cfg: cfg,
		log: cfg.Logger.Named("mqtt"),
	}
}

// Start connects to the broker. Reconnects are handled by the client.
func (p *Publisher) Start(ctx context.Context) error {
	if p.cfg.Broker == "" {
		return errors.New("mqtt: broker URL is required")
	}

	opts := paho.NewClientOptions().
		AddBroker(p.cfg.Broker).
		SetClientID(p.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(2 * time.Minute).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetOnConnectHandler(p.onConnected).
		SetConnectionLostHandler(p.onConnectionLost)

	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
	}
	if p.cfg.Password != "" {
		opts.SetPassword(p.cfg.Password)
	}

	client := paho.NewClient(opts)

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()

	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt: connect: %w", ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: connecting to broker: %w", err)
	}

	return nil
}

// Stop disconnects from the broker.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		p.client.Disconnect(1000)
		p.connected = false
	}
	return nil
}

// IsConnected returns true if the publisher is connected to the broker.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected && p.client != nil && p.client.IsConnected()
}

// PublishReading publishes one fresh measurement.
func (p *Publisher) PublishReading(r publish.Reading) error {
	return p.publishJSON(p.MeasurementTopic(r.Unit), r)
}

// PublishHealth publishes a unit's health snapshot.
func (p *Publisher) PublishHealth(h publish.Health) error {
	return p.publishJSON(p.StatusTopic(h.Unit), h)
}

// MeasurementTopic returns the topic readings for unit are published on.
func (p *Publisher) MeasurementTopic(unit string) string {
	return p.cfg.TopicPrefix + "/" + unit + "/measurement"
}

// StatusTopic returns the topic health for unit is published on.
func (p *Publisher) StatusTopic(unit string) string {
	return p.cfg.TopicPrefix + "/" + unit + "/status"
}

func (p *Publisher) publishJSON(topic string, v any) error {
	if !p.IsConnected() {
		return errors.New("mqtt: not connected")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mqtt: encode: %w", err)
	}

	token := p.client.Publish(topic, p.cfg.QoS, p.cfg.Retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt: timeout publishing to %s", topic)
	}
	return token.Error()
}

func (p *Publisher) onConnected(_ paho.Client) {
	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()

	p.log.Info("connected to MQTT broker", zap.String("broker", p.cfg.Broker))
}

func (p *Publisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()

	p.log.Error("MQTT connection lost", zap.Error(err))
}
