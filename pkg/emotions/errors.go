package emotions

import "errors"

var (
	// ErrNoLabels is returned when a label set would be empty.
	ErrNoLabels = errors.New("no emotion labels")

	// ErrInvalidLabels is returned for blank or duplicate labels.
	ErrInvalidLabels = errors.New("invalid emotion labels")

	// ErrModelNotFound is returned when the classifier model file is missing.
	ErrModelNotFound = errors.New("classifier model not found")

	// ErrOutputMismatch is returned when the model output does not match the label set.
	ErrOutputMismatch = errors.New("classifier output does not match labels")

	// ErrEmptyImage is returned when asked to classify an image with no pixels.
	ErrEmptyImage = errors.New("empty face image")
)
