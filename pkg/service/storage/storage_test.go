package storage_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/venquis/contractchat/pkg/domain/interfaces"
	"github.com/venquis/contractchat/pkg/service/storage"
)

func TestLocalUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocal(dir, "http://localhost:8080/files/")
	gt.NoError(t, err).Required()

	url, err := store.Upload(context.Background(), "user 1/1700000000000.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	gt.NoError(t, err).Required()
	gt.Value(t, url).Equal("http://localhost:8080/files/user%201/1700000000000.pdf")

	raw, err := os.ReadFile(filepath.Join(dir, "user 1", "1700000000000.pdf"))
	gt.NoError(t, err).Required()
	gt.Value(t, string(raw)).Equal("%PDF-1.4")
}

func TestLocalUploadRejectsTraversal(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir(), "http://localhost/files")
	gt.NoError(t, err).Required()

	_, err = store.Upload(context.Background(), "../escape.pdf", "application/pdf", strings.NewReader("x"))
	gt.Error(t, err).Is(interfaces.ErrStorage)
}

func TestNewLocalRequiresDir(t *testing.T) {
	_, err := storage.NewLocal("", "http://localhost/files")
	gt.Value(t, err).NotNil()
}

func TestGCSUpload(t *testing.T) {
	bucket := os.Getenv("CONTRACTCHAT_TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("CONTRACTCHAT_TEST_GCS_BUCKET not set")
	}

	ctx := context.Background()
	store, err := storage.NewGCS(ctx, bucket)
	gt.NoError(t, err).Required()
	t.Cleanup(func() { gt.NoError(t, store.Close()) })

	path := fmt.Sprintf("test/%d.pdf", time.Now().UnixMilli())
	url, err := store.Upload(ctx, path, "application/pdf", strings.NewReader("%PDF-1.4"))
	gt.NoError(t, err).Required()
	gt.Value(t, url).Equal("https://storage.googleapis.com/" + bucket + "/" + path)
}
