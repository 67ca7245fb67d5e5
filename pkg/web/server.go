// Package web serves the live overlay, camera controls and still image
// analysis over HTTP and websockets.
package web

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-moodcam/internal/log"
	"github.com/teslashibe/go-moodcam/pkg/camera"
	"github.com/teslashibe/go-moodcam/pkg/emotions"
	"github.com/teslashibe/go-moodcam/pkg/hub"
	"github.com/teslashibe/go-moodcam/pkg/overlay"
	"github.com/teslashibe/go-moodcam/pkg/pipeline"
	"github.com/teslashibe/go-moodcam/pkg/still"
)

// maxLogs is how many log entries are kept for /api/logs.
const maxLogs = 500

// Analyzer is the live analyzer as seen by the dashboard.
// *pipeline.Analyzer implements it.
type Analyzer interface {
	Latest() (pipeline.Snapshot, bool)
	Stats() pipeline.Stats
	Labels() emotions.Labels
	Running() bool
	SetMirrored(m bool)
}

// LogEntry represents a log line for the dashboard
type LogEntry struct {
	Time    string `json:"time"`
	Level   string `json:"level"` // debug, info, warn, error
	Message string `json:"message"`
}

// Options configures a Server. Analyzer, Camera and Still may be nil;
// their endpoints then answer 503.
type Options struct {
	Addr     string
	Static   string // Directory served at /
	Canvas   overlay.Size
	Analyzer Analyzer
	Camera   *camera.Manager
	Still    *still.Analyzer
}

// Server is the web dashboard server
type Server struct {
	app  *fiber.App
	opts Options

	// Log buffer (last maxLogs entries)
	logs   []LogEntry
	logsMu sync.RWMutex

	// Latest overlay, for /api/status
	overlay   *OverlayMessage
	overlayMu sync.RWMutex

	// Hubs for websocket broadcast
	overlayHub *hub.Hub
	logHub     *hub.Hub
}

// NewServer creates a new web dashboard server
func NewServer(opts Options) *Server {
	s := &Server{
		opts:       opts,
		logs:       make([]LogEntry, 0, maxLogs),
		overlayHub: hub.New("overlay", hub.WithRetain()),
		logHub:     hub.New("logs"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "moodcam",
		DisableStartupMessage: true,
		BodyLimit:             16 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
		Output: log.Writer("http"),
	}))
	// CORS for local development
	app.Use(cors.New())

	if opts.Static != "" {
		app.Static("/", opts.Static)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/stats", s.handleStats)
	api.Get("/labels", s.handleLabels)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleUpdateCamera)
	api.Post("/analyze", s.handleAnalyze)
	api.Get("/logs", s.handleGetLogs)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/overlay", websocket.New(s.handleOverlayWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the hubs and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go s.overlayHub.Run(ctx)
	go s.logHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info("web dashboard listening", "addr", s.opts.Addr)
		errCh <- s.app.Listen(s.opts.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(5 * time.Second)
	}
}

// Publish implements pipeline.Sink. It never blocks.
func (s *Server) Publish(snap pipeline.Snapshot) {
	msg := BuildOverlay(snap, s.opts.Canvas)

	s.overlayMu.Lock()
	s.overlay = &msg
	s.overlayMu.Unlock()

	if err := s.overlayHub.BroadcastJSON(msg); err != nil {
		log.Warn("overlay encode failed", "error", err)
	}
}

// AddLog adds a log entry and broadcasts to clients
func (s *Server) AddLog(level, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Level:   level,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

// LogWriter returns a writer that turns each text log line into a
// dashboard entry. Use it as an extra destination for the global logger.
func (s *Server) LogWriter() io.Writer {
	return logWriter{s: s}
}

type logWriter struct{ s *Server }

func (w logWriter) Write(p []byte) (int, error) {
	sc := bufio.NewScanner(bytes.NewReader(p))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		w.s.AddLog(levelOf(line), line)
	}
	return len(p), nil
}

// levelOf extracts the level from a slog text or JSON line.
func levelOf(line string) string {
	for _, lvl := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
		if strings.Contains(line, "level="+lvl) || strings.Contains(line, `"level":"`+lvl+`"`) {
			return strings.ToLower(lvl)
		}
	}
	return "info"
}
