package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	types   []int
	closed  chan struct{}
	once    sync.Once
	wrote   chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{}), wrote: make(chan struct{}, 16)}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	c.written = append(c.written, data)
	c.types = append(c.types, messageType)
	c.mu.Unlock()
	select {
	case c.wrote <- struct{}{}:
	default:
	}
	return nil
}

func (c *fakeConn) SetReadLimit(int64) {}
func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (c *fakeConn) SetPongHandler(func(appData string) error) {}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.written))
	for _, w := range c.written {
		if len(w) > 0 {
			out = append(out, string(w))
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

func TestBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := New("test")
	go h.Run(ctx)

	conn := newFakeConn()
	client := NewClient(h, conn)
	go client.Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	if err := h.BroadcastJSON(map[string]string{"status": "No face detected"}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(conn.messages()) == 1 })
	if got := conn.messages()[0]; got != `{"status":"No face detected"}` {
		t.Errorf("message = %s", got)
	}

	conn.Close()
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestRetainReplaysLatest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := New("overlay", WithRetain())
	go h.Run(ctx)

	h.Broadcast(Message{Kind: Text, Data: []byte("first")})
	h.Broadcast(Message{Kind: Text, Data: []byte("second")})
	// The run loop handles one case at a time, so a registration made
	// after the queue drains sees the second message as latest.
	waitFor(t, func() bool { return len(h.broadcast) == 0 })

	conn := newFakeConn()
	client := NewClient(h, conn)
	go client.Run()
	defer conn.Close()

	waitFor(t, func() bool { return len(conn.messages()) == 1 })
	if got := conn.messages()[0]; got != "second" {
		t.Errorf("replayed %q, want second", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("test")
	go h.Run(ctx)

	conn := newFakeConn()
	client := NewClient(h, conn)
	go client.Run()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	cancel()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	// The write pump closes the connection when its channel is closed.
	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("client connection not closed")
	}

	// Registering after shutdown must not block.
	late := NewClient(h, newFakeConn())
	if _, ok := <-late.send; ok {
		t.Error("late client channel should be closed")
	}
}

func TestBinaryIsSentButNotRetained(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := New("overlay", WithRetain())
	go h.Run(ctx)

	live := newFakeConn()
	go NewClient(h, live).Run()
	defer live.Close()
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	if err := h.BroadcastJSON(map[string]int{"faces": 1}); err != nil {
		t.Fatal(err)
	}
	h.BroadcastBinary([]byte("\x89PNG"))
	waitFor(t, func() bool { return len(live.messages()) == 2 })

	live.mu.Lock()
	if live.types[0] != websocket.TextMessage || live.types[1] != websocket.BinaryMessage {
		t.Errorf("frame types = %v", live.types)
	}
	live.mu.Unlock()

	late := newFakeConn()
	go NewClient(h, late).Run()
	defer late.Close()
	waitFor(t, func() bool { return len(late.messages()) == 1 })
	if got := late.messages()[0]; got != `{"faces":1}` {
		t.Errorf("replayed %q, want the overlay JSON", got)
	}
}
