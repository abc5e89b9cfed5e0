package interfaces

import "github.com/m-mizutani/goerr/v2"

// Errors returned by gateway implementations. The use case layer re-exports
// them next to its own sentinels.
var (
	ErrNotFound = goerr.New("not found")

	// Workflow engine
	ErrWorkflowNotConfigured = goerr.New("workflow webhook is not configured")
	ErrUpstreamStatus        = goerr.New("workflow engine returned an error")
	ErrUpstreamResponse      = goerr.New("workflow engine returned an unusable response")

	ErrStorage       = goerr.New("file storage failed")
	ErrMemoryService = goerr.New("memory service failed")
)
