package domain

import "errors"

var (
	// ErrArtifactMissing signals an absent index artifact file. Startup failure.
	ErrArtifactMissing = errors.New("index artifact missing")
	// ErrArtifactCorrupt signals an unreadable or malformed index artifact. Startup failure.
	ErrArtifactCorrupt = errors.New("index artifact corrupt")
	// ErrArtifactMismatch signals vector/lexical artifacts with inconsistent
	// document ordinals. Startup failure.
	ErrArtifactMismatch = errors.New("index artifacts inconsistent")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")

	// ErrGenerationNetwork signals a network failure talking to the generation backend.
	ErrGenerationNetwork = errors.New("generation backend unreachable")
	// ErrGenerationAuth signals the generation backend rejected our credentials.
	ErrGenerationAuth = errors.New("generation backend auth failed")
	// ErrGenerationParse signals an unparseable generation stream.
	ErrGenerationParse = errors.New("generation stream parse failed")
	// ErrGenerationTimeout signals the generation request exceeded its deadline.
	ErrGenerationTimeout = errors.New("generation backend timeout")

	// ErrStoreDisabled signals an operation against an unconfigured optional store.
	ErrStoreDisabled = errors.New("store not configured")

	// ErrInvalidFeedback signals a feedback entry missing required fields.
	ErrInvalidFeedback = errors.New("invalid feedback entry")
)
