package camera

import (
	"context"
	"errors"
	"fmt"

	"github.com/teslashibe/go-moodcam/pkg/frame"
)

// Source errors.
var (
	ErrUnknownSource = errors.New("unknown camera source")
	ErrSourceClosed  = errors.New("camera source closed")
)

// Deliver receives every frame a source produces. The receiver owns the
// frame and must release it.
type Deliver func(f *frame.RawFrame)

// Source produces raw frames until its context ends or it fails.
type Source interface {
	// Run blocks, handing frames to deliver. It returns nil when ctx is
	// cancelled and the first fatal error otherwise.
	Run(ctx context.Context, deliver Deliver) error
	Close() error
}

// Open creates the source described by cfg.
func Open(cfg Config) (Source, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid camera config: %v", errs)
	}
	switch cfg.Source {
	case SourceWebcam:
		return NewWebcam(cfg)
	case SourceStream:
		return NewStream(cfg), nil
	case SourceReplay:
		return NewReplay(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, cfg.Source)
	}
}
