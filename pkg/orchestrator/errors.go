package orchestrator

import "github.com/m-mizutani/goerr/v2"

var (
	ErrNoConversation      = goerr.New("no active conversation")
	ErrUnsupportedFileType = goerr.New("unsupported file type")
	ErrFileTooLarge        = goerr.New("file too large")
)
