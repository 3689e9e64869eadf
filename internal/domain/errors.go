package domain

import "errors"

var (
	// ErrRunLocked is returned when another invocation holds the state lock.
	ErrRunLocked = errors.New("run is locked by another invocation")

	// ErrDownloadFailed marks a fetch whose attachment could not be stored locally.
	ErrDownloadFailed = errors.New("media download failed")

	// ErrProbeFailed marks a video that the inspection tool could not read.
	ErrProbeFailed = errors.New("media probe failed")

	// ErrEmptyRewrite is returned by rewriters that produced only whitespace.
	ErrEmptyRewrite = errors.New("caption rewrite returned empty text")

	// ErrUnknownSource is returned when a media source name is not registered.
	ErrUnknownSource = errors.New("media source is not registered")

	// ErrPanic wraps a recovered panic from a pipeline pass.
	ErrPanic = errors.New("pipeline panicked")
)
