package publish

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/teslashibe/go-moodcam/pkg/detection"
	"github.com/teslashibe/go-moodcam/pkg/pipeline"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type fakeClient struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	retained []bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	c.retained = append(c.retained, retained)
	return doneToken{}
}

func snapshot() pipeline.Snapshot {
	return pipeline.Snapshot{
		FrameID: "f-1",
		State:   pipeline.StateFaces,
		Status:  "Face 1: Happy (80.0%)",
		Faces: []pipeline.FaceResult{{
			Index:      1,
			Box:        detection.Box{Left: 10, Top: 20, Right: 110, Bottom: 140},
			Label:      "Happy",
			Confidence: 0.8,
			Text:       "Happy (80.0%)",
		}},
		At:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Latency: 25 * time.Millisecond,
	}
}

func TestNewPayload(t *testing.T) {
	p := NewPayload("kitchen", snapshot())

	if p.Device != "kitchen" || p.State != "faces" || p.LatencyMS != 25 {
		t.Errorf("payload = %+v", p)
	}
	if len(p.Faces) != 1 || p.Faces[0].Box != [4]int{10, 20, 110, 140} || p.Faces[0].Label != "Happy" {
		t.Errorf("faces = %+v", p.Faces)
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"device", "frame_id", "state", "status", "faces", "at", "latency_ms"} {
		if _, ok := m[key]; !ok {
			t.Errorf("payload missing %q: %s", key, data)
		}
	}
}

func TestNoFacePayloadHasEmptyList(t *testing.T) {
	p := NewPayload("d", pipeline.Snapshot{State: pipeline.StateNoFace, Status: pipeline.StatusNoFace})
	data, _ := json.Marshal(p)
	var m map[string]interface{}
	json.Unmarshal(data, &m)
	if faces, ok := m["faces"].([]interface{}); !ok || len(faces) != 0 {
		t.Errorf("faces = %v, want []", m["faces"])
	}
}

func TestPublisher(t *testing.T) {
	fc := &fakeClient{}
	cfg := DefaultConfig()
	cfg.Retain = true
	p := newPublisher(cfg, fc)

	p.Publish(snapshot())
	p.Publish(pipeline.Snapshot{State: pipeline.StateNoFace})
	p.Close()
	p.Close()

	if len(fc.topics) != 2 {
		t.Fatalf("published %d messages, want 2", len(fc.topics))
	}
	if fc.topics[0] != "moodcam/snapshot" || !fc.retained[0] {
		t.Errorf("topic %q retained %v", fc.topics[0], fc.retained[0])
	}
	var got Payload
	if err := json.Unmarshal(fc.payloads[0], &got); err != nil {
		t.Fatal(err)
	}
	if got.FrameID != "f-1" || got.Device != "moodcam" {
		t.Errorf("payload = %+v", got)
	}
}

func TestConfigEnabled(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Enabled() {
		t.Error("default config should be disabled")
	}
	cfg.Broker = "tcp://localhost:1883"
	if !cfg.Enabled() {
		t.Error("config with broker should be enabled")
	}
}
