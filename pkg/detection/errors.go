package detection

import "errors"

var (
	// ErrModelNotFound is returned when the model or cascade file is missing.
	ErrModelNotFound = errors.New("detector model not found")

	// ErrInvalidConfig is returned when Config.Validate reports problems.
	ErrInvalidConfig = errors.New("invalid detector config")

	// ErrEmptyImage is returned when asked to detect on an image with no pixels.
	ErrEmptyImage = errors.New("empty image")
)
