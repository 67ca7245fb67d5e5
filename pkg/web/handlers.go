package web

import (
	"bytes"
	"errors"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-moodcam/pkg/camera"
	"github.com/teslashibe/go-moodcam/pkg/hub"
	"github.com/teslashibe/go-moodcam/pkg/still"
)

func unavailable(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": what + " not configured",
	})
}

// handleStatus returns the latest snapshot and its overlay
func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.opts.Analyzer == nil {
		return unavailable(c, "analyzer")
	}

	resp := fiber.Map{"running": s.opts.Analyzer.Running()}
	if snap, ok := s.opts.Analyzer.Latest(); ok {
		resp["snapshot"] = snap
	}
	s.overlayMu.RLock()
	if s.overlay != nil {
		resp["overlay"] = s.overlay
	}
	s.overlayMu.RUnlock()

	return c.JSON(resp)
}

// handleStats returns frame counters
func (s *Server) handleStats(c *fiber.Ctx) error {
	if s.opts.Analyzer == nil {
		return unavailable(c, "analyzer")
	}
	return c.JSON(fiber.Map{
		"frames":        s.opts.Analyzer.Stats(),
		"overlay_drops": s.overlayHub.Dropped(),
		"clients":       s.overlayHub.ClientCount(),
	})
}

// handleLabels returns the classifier label set in score order
func (s *Server) handleLabels(c *fiber.Ctx) error {
	if s.opts.Analyzer == nil {
		return unavailable(c, "analyzer")
	}
	return c.JSON(s.opts.Analyzer.Labels().Names())
}

// handleGetCamera returns the camera configuration and accepted values
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.opts.Camera == nil {
		return unavailable(c, "camera")
	}
	return c.JSON(fiber.Map{
		"config":       s.opts.Camera.GetConfigJSON(),
		"capabilities": camera.Capabilities(),
	})
}

// handleUpdateCamera applies a partial camera update. Accepts any config
// field, "preset", and "facing": "toggle".
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.opts.Camera == nil {
		return unavailable(c, "camera")
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	if err := s.opts.Camera.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if s.opts.Analyzer != nil {
		s.opts.Analyzer.SetMirrored(s.opts.Camera.Mirrored())
	}

	s.AddLog("info", "camera config updated")
	return c.JSON(s.opts.Camera.GetConfigJSON())
}

// handleAnalyze runs still image analysis on the uploaded "image" file.
// The annotated PNG is pushed to overlay clients as a binary message and,
// with ?format=png, returned instead of JSON.
func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	if s.opts.Still == nil {
		return unavailable(c, "still analyzer")
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "multipart field \"image\" is required",
		})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	defer f.Close()

	img, err := still.Decode(f)
	if err != nil {
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"error": err.Error()})
	}

	res, err := s.opts.Still.Analyze(c.UserContext(), img)
	if err != nil && !errors.Is(err, still.ErrNoFace) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	res.Source = fh.Filename

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, res.Annotated, imaging.PNG); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	// Overlay clients show the latest annotated still next to the live feed.
	s.overlayHub.BroadcastBinary(buf.Bytes())

	if c.Query("format") == "png" {
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(buf.Bytes())
	}

	return c.JSON(fiber.Map{
		"result":  res,
		"summary": res.Summary(),
	})
}

// handleGetLogs returns recent log entries
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

// handleOverlayWS streams overlay messages; the latest one is sent first.
func (s *Server) handleOverlayWS(c *websocket.Conn) {
	hub.NewClient(s.overlayHub, c).Run()
}

// handleLogsWS sends the log history, then live entries.
func (s *Server) handleLogsWS(c *websocket.Conn) {
	s.logsMu.RLock()
	history := make([]LogEntry, len(s.logs))
	copy(history, s.logs)
	s.logsMu.RUnlock()

	for _, entry := range history {
		if err := c.WriteJSON(entry); err != nil {
			return
		}
	}
	hub.NewClient(s.logHub, c).Run()
}
