package orchestrator

import (
	"fmt"
	"io"
	"slices"

	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultMaxUploadSize = 10 << 20
	contentTypePDF       = "application/pdf"
)

// FileUpload is a file picked by the user
type FileUpload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadPolicy is checked before any backend call is made
type UploadPolicy struct {
	AllowedTypes []string
	MaxSize      int64
}

func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		AllowedTypes: []string{contentTypePDF},
		MaxSize:      DefaultMaxUploadSize,
	}
}

// Validate returns ErrUnsupportedFileType or ErrFileTooLarge
func (p UploadPolicy) Validate(f FileUpload) error {
	if !slices.Contains(p.AllowedTypes, f.ContentType) {
		return goerr.Wrap(ErrUnsupportedFileType, "file type is not accepted",
			goerr.V("file_name", f.Name),
			goerr.V("content_type", f.ContentType))
	}
	if p.MaxSize > 0 && f.Size > p.MaxSize {
		return goerr.Wrap(ErrFileTooLarge, "file exceeds size limit",
			goerr.V("file_name", f.Name),
			goerr.V("size", f.Size),
			goerr.V("max_size", p.MaxSize))
	}
	return nil
}

func (p UploadPolicy) describeMaxSize() string {
	return fmt.Sprintf("%dMB", p.MaxSize>>20)
}
