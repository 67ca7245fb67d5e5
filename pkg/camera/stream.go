package camera

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-moodcam/internal/log"
	"github.com/teslashibe/go-moodcam/pkg/frame"
)

// StreamHeaderSize is the length of the header in front of every I420
// payload: width, height and rotation as big-endian uint32.
const StreamHeaderSize = 12

// MaxStreamMessage is the largest stream message read: the header plus an
// I420 frame at the capture limit.
const MaxStreamMessage = StreamHeaderSize + MaxWidth*MaxHeight*3/2

// ErrBadMessage is returned for stream messages that cannot be parsed.
var ErrBadMessage = errors.New("malformed stream message")

// Stream receives frames pushed over a websocket by a remote camera.
type Stream struct {
	url       string
	dialer    websocket.Dialer
	readLimit int64
	pool      sync.Pool

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewStream creates a stream source for the ws:// URL in cfg.Device.
func NewStream(cfg Config) *Stream {
	return &Stream{
		url:       cfg.Device,
		readLimit: MaxStreamMessage,
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Run connects and delivers frames until ctx is done or the peer hangs up.
func (s *Stream) Run(ctx context.Context, deliver Deliver) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("stream connect failed: %w", err)
	}
	conn.SetReadLimit(s.readLimit)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return ErrSourceClosed
	}
	s.conn = conn
	s.mu.Unlock()
	log.Info("stream connected", "url", s.url)

	// Unblock ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return ErrSourceClosed
			}
			return fmt.Errorf("stream read: %w", err)
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		f, err := s.decode(data)
		if err != nil {
			log.Warn("stream frame dropped", "error", err)
			continue
		}
		deliver(f)
	}
}

// decode copies the payload into a pooled buffer that returns to the
// pool when the frame is released.
func (s *Stream) decode(data []byte) (*frame.RawFrame, error) {
	w, h, rot, payload, err := ParseStreamMessage(data)
	if err != nil {
		return nil, err
	}

	bp, _ := s.pool.Get().(*[]byte)
	if bp == nil || cap(*bp) < len(payload) {
		b := make([]byte, len(payload))
		bp = &b
	}
	buf := (*bp)[:len(payload)]
	copy(buf, payload)
	*bp = buf

	f, err := frame.FromI420(buf, w, h, rot, func() { s.pool.Put(bp) })
	if err != nil {
		s.pool.Put(bp)
		return nil, err
	}
	return f, nil
}

// Close disconnects from the remote camera.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// ParseStreamMessage splits a stream message into its header fields and
// the I420 payload.
func ParseStreamMessage(data []byte) (width, height, rotation int, payload []byte, err error) {
	if len(data) < StreamHeaderSize {
		return 0, 0, 0, nil, fmt.Errorf("%w: %d bytes", ErrBadMessage, len(data))
	}
	width = int(binary.BigEndian.Uint32(data[0:4]))
	height = int(binary.BigEndian.Uint32(data[4:8]))
	rotation = int(binary.BigEndian.Uint32(data[8:12]))
	if width <= 0 || height <= 0 || width > MaxWidth || height > MaxHeight {
		return 0, 0, 0, nil, fmt.Errorf("%w: size %dx%d", ErrBadMessage, width, height)
	}
	return width, height, rotation, data[StreamHeaderSize:], nil
}

// EncodeStreamMessage builds the message a remote camera sends.
func EncodeStreamMessage(width, height, rotation int, i420 []byte) []byte {
	msg := make([]byte, StreamHeaderSize+len(i420))
	binary.BigEndian.PutUint32(msg[0:4], uint32(width))
	binary.BigEndian.PutUint32(msg[4:8], uint32(height))
	binary.BigEndian.PutUint32(msg[8:12], uint32(rotation))
	copy(msg[StreamHeaderSize:], i420)
	return msg
}
