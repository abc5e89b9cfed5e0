package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/utils/safe"
)

// Local writes uploads below a directory. The HTTP server exposes the
// directory under publicBaseURL.
type Local struct {
	dir           string
	publicBaseURL string
}

var _ interfaces.FileStorage = &Local{}

func NewLocal(dir, publicBaseURL string) (*Local, error) {
	if dir == "" {
		return nil, goerr.New("local storage directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve storage directory", goerr.V("dir", dir))
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, goerr.Wrap(err, "failed to create storage directory", goerr.V("dir", abs))
	}

	return &Local{
		dir:           abs,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Dir is the root directory of stored files
func (s *Local) Dir() string {
	return s.dir
}

func (s *Local) Upload(ctx context.Context, path, _ string, r io.Reader) (string, error) {
	dst := filepath.Join(s.dir, filepath.FromSlash(path))
	if !strings.HasPrefix(dst, s.dir+string(filepath.Separator)) {
		return "", goerr.Wrap(interfaces.ErrStorage, "path escapes storage directory", goerr.V("path", path))
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", goerr.Wrap(interfaces.ErrStorage, "failed to create directory",
			goerr.V("path", path),
			goerr.V("cause", err.Error()))
	}

	// #nosec G304 -- dst is confined to s.dir above
	f, err := os.Create(dst)
	if err != nil {
		return "", goerr.Wrap(interfaces.ErrStorage, "failed to create file",
			goerr.V("path", path),
			goerr.V("cause", err.Error()))
	}
	defer safe.Close(ctx, f)

	if _, err := io.Copy(f, r); err != nil {
		return "", goerr.Wrap(interfaces.ErrStorage, "failed to write file",
			goerr.V("path", path),
			goerr.V("cause", err.Error()))
	}

	return s.publicBaseURL + "/" + escapePath(path), nil
}
