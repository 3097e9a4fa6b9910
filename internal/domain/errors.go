package domain

import "errors"

var (
	// ErrExtraction signals that the extractor output could not be loaded.
	// Fatal to startup; the caller decides whether to retry or abort.
	ErrExtraction = errors.New("slide extraction failed")
	// ErrEmbeddingUnavailable signals that an embedding could not be produced.
	// Recoverable: retrieval falls back to keyword scoring.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrCacheIO signals a cache store failure. Non-fatal: the call proceeds uncached.
	ErrCacheIO = errors.New("cache io error")
	// ErrValidation signals a rejected request (empty or oversized query).
	ErrValidation = errors.New("validation failed")
	// ErrCompletionProvider signals a chat completion provider failure.
	ErrCompletionProvider = errors.New("completion provider error")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
)
