// Package telemetry publishes per-tick drone state to external
// consumers (MQTT for fleet tooling, WebSocket fan-out is handled by
// the API layer).
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cdav1990/overwatch-mission-core/internal/logging"
)

// Sample is one telemetry frame, emitted once per simulation tick while
// a run is active.
type Sample struct {
	MissionID      string    `json:"mission_id"`
	Timestamp      time.Time `json:"timestamp"`
	Phase          string    `json:"phase"`
	SegmentID      string    `json:"segment_id,omitempty"`
	TargetIndex    int       `json:"target_index"`
	LegProgress    float64   `json:"leg_progress"`
	X              float64   `json:"x"`
	Y              float64   `json:"y"`
	Z              float64   `json:"z"`
	LatDeg         float64   `json:"lat_deg"`
	LonDeg         float64   `json:"lon_deg"`
	AltM           float64   `json:"alt_m"`
	HeadingDeg     float64   `json:"heading_deg"`
	CameraPitchDeg float64   `json:"camera_pitch_deg"`
	CameraRollDeg  float64   `json:"camera_roll_deg"`
	Done           bool      `json:"done"`
}

// Publisher delivers telemetry samples to an external sink.
type Publisher interface {
	Publish(ctx context.Context, s Sample) error
	Close()
}

// NoopPublisher drops all samples; used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Sample) error { return nil }
func (NoopPublisher) Close()                                {}

// MQTTConfig holds broker settings for the MQTT publisher.
type MQTTConfig struct {
	BrokerURL   string
	ClientID    string
	TopicPrefix string // defaults to "overwatch/missions"
	QoS         byte
	ConnectWait time.Duration
}

// MQTTPublisher publishes JSON samples to
// <prefix>/<mission_id>/telemetry.
type MQTTPublisher struct {
	client  mqtt.Client
	prefix  string
	qos     byte
	log     logging.Logger
	metrics *Metrics
}

// NewMQTTPublisher connects to the broker and returns a ready publisher.
func NewMQTTPublisher(cfg MQTTConfig, log logging.Logger, metrics *Metrics) (*MQTTPublisher, error) {
	if log == nil {
		log = logging.Noop()
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "overwatch/missions"
	}
	if cfg.ConnectWait <= 0 {
		cfg.ConnectWait = 5 * time.Second
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.ConnectWait)

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(cfg.ConnectWait) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.BrokerURL)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.BrokerURL, err)
	}

	log.Info(context.Background(), "mqtt telemetry connected",
		logging.String("broker", cfg.BrokerURL),
		logging.String("topic_prefix", cfg.TopicPrefix),
	)
	return &MQTTPublisher{
		client:  client,
		prefix:  cfg.TopicPrefix,
		qos:     cfg.QoS,
		log:     log,
		metrics: metrics,
	}, nil
}

// Publish sends one sample. Publish failures are counted and returned
// but never fatal to the tick loop.
func (p *MQTTPublisher) Publish(ctx context.Context, s Sample) error {
	payload, err := json.Marshal(s)
	if err != nil {
		p.metrics.IncPublishErrors()
		return fmt.Errorf("marshal telemetry: %w", err)
	}
	topic := fmt.Sprintf("%s/%s/telemetry", p.prefix, s.MissionID)

	tok := p.client.Publish(topic, p.qos, false, payload)
	// QoS 0 tokens complete immediately; higher QoS waits for the ack.
	tok.Wait()
	if err := tok.Error(); err != nil {
		p.metrics.IncPublishErrors()
		p.log.Warn(ctx, "mqtt publish failed",
			logging.String("topic", topic),
			logging.Err(err),
		)
		return err
	}
	p.metrics.IncPublished()
	return nil
}

// Close disconnects from the broker, allowing in-flight messages a
// short grace period.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
