package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal")

	ErrEmbeddingUnavailable   = errors.New("embedding unavailable")
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")
	ErrGenerationFailed       = errors.New("generation failed")
	ErrModelOverloaded        = errors.New("model overloaded")
	ErrNoExtractableText      = errors.New("no extractable text")
	ErrNoChunksProduced       = errors.New("no chunks produced")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable reports whether the caller may usefully retry the request.
// Transient provider overload and embedding outages fall in this bucket.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrModelOverloaded) || errors.Is(err, ErrEmbeddingUnavailable)
}
