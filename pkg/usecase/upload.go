package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/domain/model"
	"github.com/venquis/contractchat/pkg/domain/types"
)

// UploadUseCase stores files under <user>/<unix-millis>.<ext>. Type and size
// are checked by the client, not here.
type UploadUseCase struct {
	storage interfaces.FileStorage
	now     func() time.Time
}

func NewUploadUseCase(storage interfaces.FileStorage) *UploadUseCase {
	return &UploadUseCase{storage: storage, now: time.Now}
}

func (uc *UploadUseCase) Upload(ctx context.Context, userID types.UserID, fileName, contentType string, r io.Reader) (*model.UploadedFile, error) {
	if uc.storage == nil {
		return nil, goerr.Wrap(ErrStorage, "file storage is not configured")
	}
	if fileName == "" {
		return nil, goerr.Wrap(ErrInvalidRequest, "file name is required")
	}

	path := StoragePath(userID, fileName, uc.now())
	url, err := uc.storage.Upload(ctx, path, contentType, r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upload file",
			goerr.V("file_name", fileName),
			goerr.V("path", path))
	}

	return &model.UploadedFile{
		FileName: fileName,
		FileURL:  url,
		Path:     path,
	}, nil
}

// StoragePath builds the object path of an upload
func StoragePath(userID types.UserID, fileName string, at time.Time) string {
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d.%s", userID, at.UnixMilli(), strings.ToLower(ext))
}
