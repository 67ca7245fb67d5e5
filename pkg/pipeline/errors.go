package pipeline

import "errors"

var (
	// ErrAlreadyStarted is returned by Start when the analyzer is running.
	ErrAlreadyStarted = errors.New("analyzer already started")

	// ErrInvalidConfig is returned when Config.Validate reports problems.
	ErrInvalidConfig = errors.New("invalid pipeline config")

	// ErrDetection wraps detector failures recorded in a snapshot.
	ErrDetection = errors.New("face detection failed")

	// ErrClassification wraps classifier failures for a single face.
	ErrClassification = errors.New("emotion classification failed")
)
