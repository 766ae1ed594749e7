package domain

import "errors"

// Error taxonomy of the core. All are precondition/state errors surfaced
// synchronously to the caller; nothing here is ever retried automatically.
var (
	// ErrUnsupportedPlatform means no usable BLE adapter exists. Fatal to
	// any connection attempt.
	ErrUnsupportedPlatform = errors.New("bluetooth is not supported on this platform")

	// ErrConnectionFailed wraps a base transport connection failure.
	ErrConnectionFailed = errors.New("device connection failed")

	ErrAlreadyCollecting = errors.New("a collection is already in progress")
	ErrNotStreaming      = errors.New("device is not connected/streaming")
	ErrAlreadyTraining   = errors.New("a training run is already in progress")
	ErrInsufficientData  = errors.New("not enough labeled samples to train")
	ErrEmptyDataset      = errors.New("no usable training windows could be extracted")
	ErrNoModel           = errors.New("no trained model is loaded")
)
