package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-moodcam/internal/config"
	"github.com/teslashibe/go-moodcam/internal/log"
	"github.com/teslashibe/go-moodcam/pkg/camera"
	"github.com/teslashibe/go-moodcam/pkg/detection"
	"github.com/teslashibe/go-moodcam/pkg/emotions"
	"github.com/teslashibe/go-moodcam/pkg/frame"
	"github.com/teslashibe/go-moodcam/pkg/pipeline"
	"github.com/teslashibe/go-moodcam/pkg/publish"
	"github.com/teslashibe/go-moodcam/pkg/still"
	"github.com/teslashibe/go-moodcam/pkg/web"
)

// statsInterval is how often frame counters are logged.
const statsInterval = 30 * time.Second

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Analyze a camera feed and serve the overlay dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLive(cmd.Context(), cfg)
	},
}

func init() {
	f := liveCmd.Flags()
	f.String("source", "webcam", "frame source: webcam, stream or replay")
	f.String("device", "0", "webcam index or path, stream ws:// URL, or replay directory")
	f.Int("width", 640, "capture width")
	f.Int("height", 480, "capture height")
	f.Int("framerate", 30, "capture frame rate")
	f.Int("rotation", 0, "clockwise rotation that makes frames upright: 0, 90, 180, 270")
	f.String("facing", "front", "camera facing: front (mirrored overlay) or back")
	f.Bool("loop", false, "restart a replay source at the end")
	f.String("render-mode", "summary", "status text: summary (all faces) or primary (best face)")
	f.String("addr", ":8080", "dashboard listen address")
	f.String("static", "", "directory served at / by the dashboard")
	f.String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (empty disables)")
	f.String("mqtt-topic", "moodcam/snapshot", "MQTT topic for snapshots")

	config.Flag(f, "source", "camera.source")
	config.Flag(f, "device", "camera.device")
	config.Flag(f, "width", "camera.width")
	config.Flag(f, "height", "camera.height")
	config.Flag(f, "framerate", "camera.framerate")
	config.Flag(f, "rotation", "camera.rotation")
	config.Flag(f, "facing", "camera.facing")
	config.Flag(f, "loop", "camera.loop")
	config.Flag(f, "render-mode", "pipeline.render_mode")
	config.Flag(f, "addr", "web.addr")
	config.Flag(f, "static", "web.static")
	config.Flag(f, "mqtt-broker", "mqtt.broker")
	config.Flag(f, "mqtt-topic", "mqtt.topic")

	rootCmd.AddCommand(liveCmd)
}

func runLive(ctx context.Context, c config.Config) error {
	labels, err := loadLabels(ctx, c)
	if err != nil {
		return err
	}

	analyzer, err := pipeline.New(c.Pipeline, labels, func(ctx context.Context) (detection.Detector, emotions.Classifier, error) {
		return openModels(ctx, c)
	})
	if err != nil {
		return err
	}
	defer analyzer.Close()

	mgr := camera.NewManager(c.Camera)
	analyzer.SetMirrored(mgr.Mirrored())

	// Still uploads get their own model instances so they never wait on
	// the live worker.
	stillDet, stillCls, err := openModels(ctx, c)
	if err != nil {
		return err
	}
	defer stillDet.Close()
	defer stillCls.Close()

	srv := web.NewServer(web.Options{
		Addr:     c.Web.Addr,
		Static:   c.Web.Static,
		Canvas:   c.Canvas,
		Analyzer: analyzer,
		Camera:   mgr,
		Still:    still.New(c.Still, stillDet, stillCls, labels),
	})
	dashboard.Set(srv.LogWriter())
	defer dashboard.Set(nil)
	analyzer.AddSink(srv)

	if c.MQTT.Enabled() {
		pub, err := publish.Connect(ctx, c.MQTT)
		if err != nil {
			return err
		}
		defer pub.Close()
		analyzer.AddSink(pub)
	}

	analyzer.AddSink(pipeline.SinkFunc(func(s pipeline.Snapshot) {
		log.Debug("snapshot", "frame", s.FrameID, "state", s.State, "faces", len(s.Faces), "latency", s.Latency)
	}))

	if err := analyzer.Start(ctx); err != nil {
		return err
	}

	// Capture changes reopen the source; facing alone only flips mirroring.
	restart := make(chan camera.Config, 1)
	mgr.OnConfigChange = func(next camera.Config) error {
		analyzer.SetMirrored(next.Mirrored())
		select {
		case <-restart:
		default:
		}
		restart <- next
		return nil
	}

	webErr := make(chan error, 1)
	go func() { webErr <- srv.Run(ctx) }()

	go logStats(ctx, analyzer)

	restore := func(prev camera.Config) {
		if err := mgr.SetConfig(prev); err != nil {
			log.Warn("restore camera config", "error", err)
		}
	}
	return runSources(ctx, c.Camera, camera.Open, func(f *frame.RawFrame) {
		analyzer.Submit(f)
	}, restart, webErr, restore)
}

// openSourceFunc opens a camera source for a config.
type openSourceFunc func(cfg camera.Config) (camera.Source, error)

// runSources runs the camera source and reopens it when the capture config
// changes. Only the first open is fatal. A source that fails to open after
// a change is logged, restore is called with the last working config and
// that config is reopened. If it fails too the dashboard stays up with no
// source until the next change.
func runSources(ctx context.Context, first camera.Config, open openSourceFunc, deliver camera.Deliver,
	restart <-chan camera.Config, webErr <-chan error, restore func(camera.Config)) error {
	src, err := open(first)
	if err != nil {
		return err
	}

	current := first
	for {
		var srcErr chan error
		cancelSrc := func() {}
		if src != nil {
			var srcCtx context.Context
			srcCtx, cancelSrc = context.WithCancel(ctx)
			srcErr = make(chan error, 1)
			go func(src camera.Source) {
				srcErr <- src.Run(srcCtx, deliver)
			}(src)
		}

		reopen, srcDone, err := watchSource(ctx, current, srcErr, restart, webErr)
		cancelSrc()
		if src != nil {
			if !srcDone {
				<-srcErr
			}
			src.Close()
		}

		if err != nil || reopen == nil {
			log.Info("shutting down")
			return err
		}

		if src, err = open(*reopen); err == nil {
			current = *reopen
			log.Info("camera reopened", "source", current.Source, "device", current.Device)
			continue
		}
		log.Error("camera reopen failed, restoring previous config",
			"source", reopen.Source, "device", reopen.Device, "error", err)
		if restore != nil {
			restore(current)
		}
		if src, err = open(current); err != nil {
			log.Error("previous camera unavailable", "source", current.Source, "device", current.Device, "error", err)
			src = nil
		}
	}
}

// watchSource waits until the source has to be reopened with a new config,
// or the command has to end (nil config). srcDone reports whether the
// source's Run has returned; a nil srcErr means there is no source. Once
// the source is gone any config change reopens it.
func watchSource(ctx context.Context, current camera.Config, srcErr <-chan error, restart <-chan camera.Config, webErr <-chan error) (reopen *camera.Config, srcDone bool, err error) {
	srcDone = srcErr == nil
	for {
		select {
		case <-ctx.Done():
			return nil, srcDone, nil

		case next := <-restart:
			if srcDone || needsReopen(current, next) {
				return &next, srcDone, nil
			}
			current = next

		case err := <-srcErr:
			srcDone = true
			srcErr = nil
			// The dashboard stays up until the camera is reconfigured or
			// the command is stopped.
			if err != nil {
				log.Error("camera source failed", "error", err)
				continue
			}
			log.Info("camera source finished")

		case err := <-webErr:
			return nil, srcDone, fmt.Errorf("web server: %w", err)
		}
	}
}

// needsReopen reports whether b differs from a in anything but facing.
func needsReopen(a, b camera.Config) bool {
	a.Facing, b.Facing = "", ""
	return a != b
}

func logStats(ctx context.Context, a *pipeline.Analyzer) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := a.Stats()
			log.Info("frame stats",
				"submitted", s.Submitted,
				"admitted", s.Admitted,
				"dropped", s.Dropped,
				"published", s.Published,
				"failed", s.Failed,
				"stale", s.Stale)
		}
	}
}
