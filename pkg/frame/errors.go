package frame

import "errors"

var (
	// ErrInvalidRotation is returned for rotation hints other than 0, 90, 180 and 270.
	ErrInvalidRotation = errors.New("invalid rotation")

	// ErrInvalidSize is returned when dimensions or strides are not usable.
	ErrInvalidSize = errors.New("invalid frame size")

	// ErrShortBuffer is returned when a plane is smaller than its dimensions require.
	ErrShortBuffer = errors.New("frame buffer too short")
)
