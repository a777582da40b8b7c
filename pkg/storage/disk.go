package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/nattapong-dev/inventory-api/pkg/config"
)

// ErrNotImage is returned when an uploaded file is not an image
var ErrNotImage = errors.New("only image files are allowed")

// ErrTooLarge is returned when an uploaded file exceeds the size limit
var ErrTooLarge = errors.New("file exceeds the maximum allowed size")

// DiskStore saves uploaded product images to a local directory and hands back
// the public reference stored on the product. Files get a random name so
// uploads never collide.
type DiskStore struct {
	dir        string
	publicPath string
	maxBytes   int64
}

// NewDiskStore creates the upload directory if needed and returns the store
func NewDiskStore(cfg *config.UploadConfig) (*DiskStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{
		dir:        cfg.Dir,
		publicPath: cfg.PublicPath,
		maxBytes:   cfg.MaxSizeMB * 1024 * 1024,
	}, nil
}

// Dir returns the directory images are written to
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes the uploaded file to disk and returns its public reference
func (s *DiskStore) Save(file *multipart.FileHeader) (string, error) {
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotImage
	}
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return "", ErrTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := uuid.New().String() + strings.ToLower(filepath.Ext(file.Filename))
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	return path.Join(s.publicPath, name), nil
}
