package domain

import "errors"

var (
	// ErrRender signals that a document could not be written: the output
	// directory could not be created or the stream failed mid-write.
	ErrRender = errors.New("document render failed")
	// ErrMissingConfiguration signals that a value required by an enabled
	// feature is absent. It is raised at process start only.
	ErrMissingConfiguration = errors.New("missing configuration")
	// ErrUpstream signals that a collaborator (search, email, embedding,
	// vector store, LLM) failed.
	ErrUpstream = errors.New("upstream failure")
	// ErrInvalidInput signals that a caller supplied an unusable argument,
	// such as an empty query.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrTokenStoreNotReady signals that the token store has not been loaded yet.
	// This can happen during startup when the DB isn't ready.
	ErrTokenStoreNotReady = errors.New("token store not ready")
)
