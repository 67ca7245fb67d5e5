package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-moodcam/internal/log"
	"github.com/teslashibe/go-moodcam/pkg/detection"
	"github.com/teslashibe/go-moodcam/pkg/emotions"
	"github.com/teslashibe/go-moodcam/pkg/extract"
	"github.com/teslashibe/go-moodcam/pkg/frame"
	"github.com/teslashibe/go-moodcam/pkg/overlay"
)

// OpenFunc acquires the detector and classifier for one Start/Stop scope.
type OpenFunc func(ctx context.Context) (detection.Detector, emotions.Classifier, error)

// Stats are cumulative frame counters.
type Stats struct {
	Submitted uint64 `json:"submitted"`
	Admitted  uint64 `json:"admitted"`
	Dropped   uint64 `json:"dropped"`
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	Stale     uint64 `json:"stale"`
}

// Analyzer processes at most one frame at a time. Frames submitted while a
// frame is in flight are released and dropped, never queued.
type Analyzer struct {
	cfg       Config
	labels    emotions.Labels
	extractor *extract.Extractor
	open      OpenFunc

	mirrored atomic.Bool
	last     atomic.Pointer[Snapshot]

	mu      sync.Mutex
	session *session
	epoch   uint64
	sinks   []Sink
	wg      sync.WaitGroup

	submitted atomic.Uint64
	admitted  atomic.Uint64
	dropped   atomic.Uint64
	published atomic.Uint64
	failed    atomic.Uint64
	stale     atomic.Uint64
}

// session is one Start/Stop scope. It owns the models and the worker.
type session struct {
	epoch      uint64
	ctx        context.Context
	detector   detection.Detector
	classifier emotions.Classifier
	busy       atomic.Bool
	work       chan *frame.RawFrame
	done       chan struct{}
}

// New creates an analyzer. open is called on every Start.
func New(cfg Config, labels emotions.Labels, open OpenFunc, sinks ...Sink) (*Analyzer, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
	}
	if cfg.RenderMode == "" {
		cfg.RenderMode = RenderSummary
	}

	return &Analyzer{
		cfg:       cfg,
		labels:    labels,
		extractor: extract.New(cfg.ColorMode),
		open:      open,
		sinks:     sinks,
	}, nil
}

// AddSink registers a sink for snapshots published from now on.
func (a *Analyzer) AddSink(s Sink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sinks = append(a.sinks, s)
}

// SetMirrored sets whether frames come from a front-facing camera.
func (a *Analyzer) SetMirrored(m bool) { a.mirrored.Store(m) }

// Mirrored reports the current mirroring flag.
func (a *Analyzer) Mirrored() bool { return a.mirrored.Load() }

// Config returns the analyzer configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Labels returns the label set used for classification.
func (a *Analyzer) Labels() emotions.Labels { return a.labels }

// Start opens the models and starts the worker. ctx bounds the models'
// calls for this session.
func (a *Analyzer) Start(ctx context.Context) error {
	a.mu.Lock()

	if a.session != nil {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}

	det, cls, err := a.open(ctx)
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("open models: %w", err)
	}

	a.epoch++
	s := &session{
		epoch:      a.epoch,
		ctx:        ctx,
		detector:   det,
		classifier: cls,
		work:       make(chan *frame.RawFrame, 1),
		done:       make(chan struct{}),
	}
	a.session = s

	a.wg.Add(1)
	go a.run(s)

	log.Info("analyzer started", "epoch", s.epoch, "color_mode", a.extractor.Mode())
	idle := Snapshot{State: StateIdle, Status: StatusIdle, Mirrored: a.mirrored.Load(), At: time.Now()}
	sinks := a.recordLocked(idle)
	a.mu.Unlock()

	publish(idle, sinks)
	return nil
}

// Stop ends the current session. A frame already in flight runs to
// completion but its result is discarded. Stop does not wait for it.
func (a *Analyzer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return
	}
	close(a.session.done)
	log.Info("analyzer stopped", "epoch", a.session.epoch)
	a.session = nil
}

// Close stops the analyzer and waits for all workers to exit.
func (a *Analyzer) Close() error {
	a.Stop()
	a.wg.Wait()
	return nil
}

// Running reports whether a session is active.
func (a *Analyzer) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil
}

// Submit hands f to the worker without blocking. It returns false and
// releases f if the analyzer is stopped or already busy with a frame.
func (a *Analyzer) Submit(f *frame.RawFrame) bool {
	a.submitted.Add(1)

	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.session
	if s == nil || !s.busy.CompareAndSwap(false, true) {
		a.drop(f)
		return false
	}

	select {
	case s.work <- f:
		a.admitted.Add(1)
		return true
	default:
		s.busy.Store(false)
		a.drop(f)
		return false
	}
}

func (a *Analyzer) drop(f *frame.RawFrame) {
	a.dropped.Add(1)
	f.Release()
}

// Latest returns the most recently published snapshot.
func (a *Analyzer) Latest() (Snapshot, bool) {
	s := a.last.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

// Stats returns the frame counters.
func (a *Analyzer) Stats() Stats {
	return Stats{
		Submitted: a.submitted.Load(),
		Admitted:  a.admitted.Load(),
		Dropped:   a.dropped.Load(),
		Published: a.published.Load(),
		Failed:    a.failed.Load(),
		Stale:     a.stale.Load(),
	}
}

func (a *Analyzer) run(s *session) {
	defer a.wg.Done()
	defer func() {
		if err := s.detector.Close(); err != nil {
			log.Warn("close detector", "error", err)
		}
		if err := s.classifier.Close(); err != nil {
			log.Warn("close classifier", "error", err)
		}
	}()

	for {
		select {
		case f := <-s.work:
			a.process(s, f)
		case <-s.done:
			// Release anything admitted just before Stop.
			for {
				select {
				case f := <-s.work:
					a.dropped.Add(1)
					f.Release()
					s.busy.Store(false)
				default:
					return
				}
			}
		}
	}
}

// process runs one admitted frame. The frame is released and the admission
// token cleared on every path.
func (a *Analyzer) process(s *session, f *frame.RawFrame) {
	defer func() {
		f.Release()
		s.busy.Store(false)
	}()

	snap := a.analyze(s, f)

	a.mu.Lock()
	if a.session != s || a.epoch != s.epoch {
		a.mu.Unlock()
		a.stale.Add(1)
		log.Debug("discarding stale result", "frame", f.ID, "epoch", s.epoch)
		return
	}
	sinks := a.recordLocked(snap)
	a.mu.Unlock()

	// Sinks run without the lock so Submit never waits on them.
	publish(snap, sinks)
}

func (a *Analyzer) analyze(s *session, f *frame.RawFrame) (snap Snapshot) {
	start := time.Now()
	logger := log.With("frame", f.ID)

	snap = Snapshot{
		FrameID:      f.ID,
		AnalysisSize: overlay.Size{Width: f.Width, Height: f.Height},
		Mirrored:     a.mirrored.Load(),
		Faces:        []FaceResult{},
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("analysis panicked", "panic", r)
			a.failed.Add(1)
			snap.State, snap.Status, snap.Faces = StateError, StatusError, []FaceResult{}
			snap.Error = fmt.Sprint(r)
		}
		snap.At = time.Now()
		snap.Latency = snap.At.Sub(start)
	}()

	raster := a.extractor.Rasterize(f)
	snap.UprightSize = overlay.Size{Width: raster.Bounds().Dx(), Height: raster.Bounds().Dy()}

	boxes, err := s.detector.Detect(s.ctx, raster)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrDetection, err)
		logger.Warn("detection failed", "error", err)
		a.failed.Add(1)
		snap.State, snap.Status, snap.Error = StateError, StatusError, err.Error()
		return snap
	}

	snap.Faces = a.classifyAll(s.ctx, s.classifier, raster, f, boxes, logger)
	if len(snap.Faces) == 0 {
		snap.State, snap.Status = StateNoFace, StatusNoFace
		return snap
	}

	snap.State = StateFaces
	snap.Status = Summarize(snap.Faces, a.cfg.RenderMode)
	logger.Debug("frame analyzed", "faces", len(snap.Faces), "elapsed", time.Since(start))
	return snap
}

// classifyAll crops and classifies each box. Boxes that clamp to nothing or
// fail to classify are left out.
func (a *Analyzer) classifyAll(ctx context.Context, cls emotions.Classifier, raster image.Image, f *frame.RawFrame, boxes []detection.Box, logger *slog.Logger) []FaceResult {
	faces := []FaceResult{}
	for _, b := range boxes {
		face, cropped, ok := a.extractor.Crop(raster, b, a.cfg.Inflate)
		if !ok {
			logger.Debug("face outside frame", "box", b.String())
			continue
		}

		scores, err := cls.Classify(ctx, face, a.cfg.Normalize)
		if err != nil {
			logger.Warn("classification failed", "box", b.String(), "error", fmt.Errorf("%w: %v", ErrClassification, err))
			continue
		}

		p := emotions.Dominant(scores, a.labels)
		faces = append(faces, FaceResult{
			Index:      len(faces) + 1,
			Box:        cropped,
			SensorBox:  extract.SensorBox(cropped, f),
			Label:      p.Label,
			Confidence: p.Confidence,
			Text:       p.String(),
			Scores:     scores,
		})
	}
	return faces
}

// recordLocked stores snap as the latest snapshot and returns the sinks to
// deliver it to.
func (a *Analyzer) recordLocked(snap Snapshot) []Sink {
	a.last.Store(&snap)
	a.published.Add(1)
	return append([]Sink(nil), a.sinks...)
}

func publish(snap Snapshot, sinks []Sink) {
	for _, sink := range sinks {
		deliver(sink, snap)
	}
}

func deliver(sink Sink, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("sink panicked", "frame", snap.FrameID, "panic", r)
		}
	}()
	sink.Publish(snap)
}
