package interfaces

import (
	"context"
	"io"
)

// FileStorage stores uploaded files and hands out retrievable URLs
type FileStorage interface {
	// Upload writes r under path and returns the URL it can be retrieved from
	Upload(ctx context.Context, path, contentType string, r io.Reader) (string, error)
}
