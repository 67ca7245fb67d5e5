package camera

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-moodcam/internal/log"
	"github.com/teslashibe/go-moodcam/pkg/frame"
)

// Webcam captures from a local device through OpenCV.
type Webcam struct {
	cfg Config
	cap *gocv.VideoCapture

	mu     sync.Mutex
	closed bool
}

// NewWebcam opens the capture device named by cfg.Device. A numeric
// device is treated as an index, anything else as a path or URL.
func NewWebcam(cfg Config) (*Webcam, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)
	if id, convErr := strconv.Atoi(cfg.Device); convErr == nil {
		vc, err = gocv.OpenVideoCapture(id)
	} else {
		vc, err = gocv.OpenVideoCapture(cfg.Device)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %q: %w", cfg.Device, err)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	log.Info("webcam opened", "device", cfg.Device, "width", cfg.Width, "height", cfg.Height)
	return &Webcam{cfg: cfg, cap: vc}, nil
}

// Run reads frames until ctx is done. Each frame is converted to I420
// and owns its own buffer.
func (w *Webcam) Run(ctx context.Context, deliver Deliver) error {
	bgr := gocv.NewMat()
	defer bgr.Close()
	yuv := gocv.NewMat()
	defer yuv.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return ErrSourceClosed
		}
		ok := w.cap.Read(&bgr)
		w.mu.Unlock()

		if !ok {
			return fmt.Errorf("camera %q: read failed", w.cfg.Device)
		}
		if bgr.Empty() {
			continue
		}

		width, height := bgr.Cols(), bgr.Rows()
		// I420 needs even dimensions.
		if width%2 != 0 || height%2 != 0 {
			width, height = width&^1, height&^1
			region := bgr.Region(image.Rect(0, 0, width, height))
			gocv.CvtColor(region, &yuv, gocv.ColorBGRToYUVI420)
			region.Close()
		} else {
			gocv.CvtColor(bgr, &yuv, gocv.ColorBGRToYUVI420)
		}

		f, err := frame.FromI420(yuv.ToBytes(), width, height, w.cfg.Rotation, nil)
		if err != nil {
			log.Warn("webcam frame dropped", "error", err)
			continue
		}
		deliver(f)
	}
}

// Close releases the capture device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.cap.Close()
}
