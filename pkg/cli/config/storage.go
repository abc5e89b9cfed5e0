package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/service/storage"
	"github.com/venquis/contractchat/pkg/utils/logging"
)

const (
	StorageNone  = "none"
	StorageLocal = "local"
	StorageGCS   = "gcs"
)

// Storage holds CLI flags for the upload gateway
type Storage struct {
	backend     string
	bucket      string
	credentials string
	publicURL   string
	localDir    string
}

func (s *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-backend",
			Usage:       "File storage backend (local, gcs or none)",
			Value:       StorageLocal,
			Category:    "Storage",
			Sources:     cli.EnvVars("CONTRACTCHAT_STORAGE_BACKEND"),
			Destination: &s.backend,
		},
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Usage:       "GCS bucket for uploaded contracts (required when using gcs backend)",
			Category:    "Storage",
			Sources:     cli.EnvVars("CONTRACTCHAT_GCS_BUCKET"),
			Destination: &s.bucket,
		},
		&cli.StringFlag{
			Name:        "gcs-credentials",
			Usage:       "Service account key file for GCS (application default credentials when empty)",
			Category:    "Storage",
			Sources:     cli.EnvVars("CONTRACTCHAT_GCS_CREDENTIALS"),
			Destination: &s.credentials,
		},
		&cli.StringFlag{
			Name:        "storage-public-url",
			Usage:       "Base URL under which stored files are reachable",
			Category:    "Storage",
			Sources:     cli.EnvVars("CONTRACTCHAT_STORAGE_PUBLIC_URL"),
			Destination: &s.publicURL,
		},
		&cli.StringFlag{
			Name:        "storage-dir",
			Usage:       "Directory for uploaded files when using local backend",
			Value:       "./uploads",
			Category:    "Storage",
			Sources:     cli.EnvVars("CONTRACTCHAT_STORAGE_DIR"),
			Destination: &s.localDir,
		},
	}
}

func (s Storage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", s.backend),
		slog.String("bucket", s.bucket),
		slog.Bool("credentials", s.credentials != ""),
		slog.String("public_url", s.publicURL),
		slog.String("dir", s.localDir),
	)
}

// Backend returns the configured backend type
func (s *Storage) Backend() string {
	return s.backend
}

// Validate checks that the options required by the backend are present
func (s *Storage) Validate() error {
	switch s.backend {
	case StorageNone:
		return nil
	case StorageLocal:
		if s.localDir == "" {
			return goerr.Wrap(ErrMissingRequired, "storage-dir is required when using local backend",
				goerr.V(OptionKey, "storage-dir"))
		}
		return nil
	case StorageGCS:
		if s.bucket == "" {
			return goerr.Wrap(ErrMissingRequired, "gcs-bucket is required when using gcs backend",
				goerr.V(OptionKey, "gcs-bucket"))
		}
		return nil
	default:
		return goerr.Wrap(ErrInvalidBackend, "invalid storage backend", goerr.V(BackendKey, s.backend))
	}
}

// Configure returns the file storage, or nil when uploads are disabled. The
// returned function releases the storage client.
func (s *Storage) Configure(ctx context.Context, serverBaseURL string) (interfaces.FileStorage, func(), error) {
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}

	switch s.backend {
	case StorageLocal:
		publicURL := s.publicURL
		if publicURL == "" {
			publicURL = serverBaseURL + "/files"
		}
		local, err := storage.NewLocal(s.localDir, publicURL)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize local storage")
		}
		logging.Default().Info("Using local file storage", "dir", local.Dir(), "public_url", publicURL)
		return local, func() {}, nil

	case StorageGCS:
		var opts []storage.GCSOption
		if s.credentials != "" {
			opts = append(opts, storage.WithCredentialsFile(s.credentials))
		}
		if s.publicURL != "" {
			opts = append(opts, storage.WithPublicBaseURL(s.publicURL))
		}
		gcs, err := storage.NewGCS(ctx, s.bucket, opts...)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize GCS storage")
		}
		logging.Default().Info("Using GCS file storage", "bucket", s.bucket)
		return gcs, func() {
			if err := gcs.Close(); err != nil {
				logging.Default().Error("failed to close GCS client", "error", err)
			}
		}, nil

	default:
		logging.Default().Warn("File storage is disabled, uploads will fail")
		return nil, func() {}, nil
	}
}

// LocalDir is the directory the HTTP server should expose under /files, or
// "" when files are not stored locally
func (s *Storage) LocalDir() string {
	if s.backend != StorageLocal {
		return ""
	}
	return s.localDir
}
