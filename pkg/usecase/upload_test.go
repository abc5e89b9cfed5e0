package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/venquis/contractchat/pkg/domain/types"
	"github.com/venquis/contractchat/pkg/usecase"
)

func TestStoragePath(t *testing.T) {
	at := time.UnixMilli(1714000000123)

	testCases := []struct {
		name     string
		file     string
		expected string
	}{
		{"pdf", "Contract.pdf", "user-1/1714000000123.pdf"},
		{"upper case extension", "SCAN.PDF", "user-1/1714000000123.pdf"},
		{"no extension", "README", "user-1/1714000000123.bin"},
		{"dotted name", "v1.2.final.docx", "user-1/1714000000123.docx"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, usecase.StoragePath(testUser, tc.file, at)).Equal(tc.expected)
		})
	}
}

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("stores under the user prefix", func(t *testing.T) {
		storage := &mockStorage{}
		uc := usecase.NewUploadUseCase(storage)
		usecase.SetUploadClock(uc, func() time.Time { return time.UnixMilli(42) })

		file, err := uc.Upload(ctx, testUser, "nda.pdf", "application/pdf", strings.NewReader("%PDF-1.7"))
		gt.NoError(t, err).Required()
		gt.Value(t, file.Path).Equal("user-1/42.pdf")
		gt.Value(t, file.FileName).Equal("nda.pdf")
		gt.Value(t, file.FileURL).Equal("https://files.example.com/user-1/42.pdf")
		gt.Value(t, string(storage.data["user-1/42.pdf"])).Equal("%PDF-1.7")
	})

	t.Run("not configured", func(t *testing.T) {
		uc := usecase.NewUploadUseCase(nil)
		_, err := uc.Upload(ctx, testUser, "nda.pdf", "application/pdf", strings.NewReader("x"))
		gt.Error(t, err).Is(usecase.ErrStorage)
	})

	t.Run("storage failure", func(t *testing.T) {
		uc := usecase.NewUploadUseCase(&mockStorage{err: goerr.Wrap(usecase.ErrStorage, "bucket unavailable")})
		_, err := uc.Upload(ctx, types.UserID("u"), "nda.pdf", "application/pdf", strings.NewReader("x"))
		gt.Error(t, err).Is(usecase.ErrStorage)
	})

	t.Run("missing file name", func(t *testing.T) {
		uc := usecase.NewUploadUseCase(&mockStorage{})
		_, err := uc.Upload(ctx, testUser, "", "application/pdf", strings.NewReader("x"))
		gt.Error(t, err).Is(usecase.ErrInvalidRequest)
	})
}
