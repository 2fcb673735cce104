package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var knownExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"audio/wav":  ".wav",
	"audio/mpeg": ".mp3",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
}

// BlobStore keeps generated media on the local filesystem and serves it under a public URL prefix.
type BlobStore struct {
	dir       string
	urlPrefix string
}

func NewBlobStore(dir, urlPrefix string) (*BlobStore, error) {
	if dir == "" {
		return nil, errors.New("blob directory must be provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &BlobStore{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

func (b *BlobStore) Dir() string {
	return b.dir
}

// Put writes data under folder and returns its key and public URL.
func (b *BlobStore) Put(ctx context.Context, folder, mimeType string, data []byte) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if len(data) == 0 {
		return "", "", errors.New("empty blob")
	}
	key := path.Join(strings.Trim(folder, "/"), uuid.NewString()+extensionFor(mimeType))
	target := filepath.Join(b.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", "", fmt.Errorf("create blob folder: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write blob: %w", err)
	}
	return key, b.URL(key), nil
}

func (b *BlobStore) URL(key string) string {
	return path.Join(b.urlPrefix, key)
}

// Delete removes a blob; a missing blob is not an error.
func (b *BlobStore) Delete(key string) error {
	if key == "" || strings.Contains(key, "..") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	if err := os.Remove(filepath.Join(b.dir, filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func extensionFor(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ".bin"
	}
	if ext, ok := knownExtensions[mediaType]; ok {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
