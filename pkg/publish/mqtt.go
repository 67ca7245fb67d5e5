// Package publish forwards analyzer snapshots to an MQTT broker.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/teslashibe/go-moodcam/internal/log"
	"github.com/teslashibe/go-moodcam/pkg/pipeline"
)

// Config holds MQTT settings. An empty Broker disables publishing.
type Config struct {
	Broker   string `mapstructure:"broker" json:"broker"` // e.g. "tcp://localhost:1883"
	Topic    string `mapstructure:"topic" json:"topic"`
	ClientID string `mapstructure:"client_id" json:"client_id"`
	Device   string `mapstructure:"device" json:"device"` // Added to every payload
	Retain   bool   `mapstructure:"retain" json:"retain"`
}

// DefaultConfig returns publishing disabled with the default topic.
func DefaultConfig() Config {
	return Config{
		Topic:  "moodcam/snapshot",
		Device: "moodcam",
	}
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

// Face is one face of a published snapshot.
type Face struct {
	Index      int     `json:"index"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"` // left, top, right, bottom (upright)
}

// Payload is the JSON document published per snapshot.
type Payload struct {
	Device    string    `json:"device"`
	FrameID   string    `json:"frame_id,omitempty"`
	State     string    `json:"state"`
	Status    string    `json:"status"`
	Faces     []Face    `json:"faces"`
	At        time.Time `json:"at"`
	LatencyMS float64   `json:"latency_ms"`
}

// NewPayload flattens a snapshot for publishing.
func NewPayload(device string, s pipeline.Snapshot) Payload {
	p := Payload{
		Device:    device,
		FrameID:   s.FrameID,
		State:     string(s.State),
		Status:    s.Status,
		Faces:     make([]Face, 0, len(s.Faces)),
		At:        s.At,
		LatencyMS: float64(s.Latency) / float64(time.Millisecond),
	}
	for _, f := range s.Faces {
		p.Faces = append(p.Faces, Face{
			Index:      f.Index,
			Label:      f.Label,
			Confidence: f.Confidence,
			Box:        [4]int{f.Box.Left, f.Box.Top, f.Box.Right, f.Box.Bottom},
		})
	}
	return p
}

// client is the part of mqtt.Client the publisher needs.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher is a pipeline.Sink that sends snapshots to MQTT. Publish
// never blocks; snapshots are dropped while the queue is full.
type Publisher struct {
	cfg    Config
	client client
	conn   mqtt.Client

	queue  chan pipeline.Snapshot
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Connect dials the broker and starts the publishing goroutine.
func Connect(ctx context.Context, cfg Config) (*Publisher, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "moodcam-" + uuid.New().String()
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(c mqtt.Client) {
		log.Info("mqtt connected", "broker", cfg.Broker, "topic", cfg.Topic)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		log.Warn("mqtt connection lost", "error", err)
	}

	conn := mqtt.NewClient(opts)
	token := conn.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}

	p := newPublisher(cfg, conn)
	p.conn = conn
	return p, nil
}

func newPublisher(cfg Config, c client) *Publisher {
	p := &Publisher{
		cfg:    cfg,
		client: c,
		queue:  make(chan pipeline.Snapshot, 16),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Publish queues a snapshot. Snapshots published after Close are ignored.
func (p *Publisher) Publish(s pipeline.Snapshot) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- s:
	default:
		log.Debug("mqtt queue full, snapshot dropped", "frame", s.FrameID)
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for s := range p.queue {
		data, err := json.Marshal(NewPayload(p.cfg.Device, s))
		if err != nil {
			log.Warn("mqtt encode failed", "error", err)
			continue
		}
		token := p.client.Publish(p.cfg.Topic, 0, p.cfg.Retain, data)
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Warn("mqtt publish failed", "error", token.Error())
		}
	}
}

// Close flushes queued snapshots and disconnects.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	if p.conn != nil {
		p.conn.Disconnect(250)
	}
	return nil
}
