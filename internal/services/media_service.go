package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/markdave123-py/Shopvora/internal/core"
)

// MaxUploadBytes bounds a single media upload.
const MaxUploadBytes = 10 << 20

type MediaService struct {
	storage core.ObjectClient
}

func NewMediaService(storage core.ObjectClient) *MediaService {
	return &MediaService{storage: storage}
}

// Upload stores an image and returns its public URL.
func (s *MediaService) Upload(ctx context.Context, filename, contentType string, data io.Reader) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", Invalid("file", "Only image uploads are supported.")
	}
	url, err := s.storage.UploadFile(ctx, objectKey(uuid.NewString(), filename), data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	return url, nil
}

// Delete removes a previously uploaded file given its public URL.
func (s *MediaService) Delete(ctx context.Context, publicURL string) error {
	key, err := s.storage.Key(strings.TrimSpace(publicURL))
	if err != nil {
		return Invalid("url", "Not an uploaded media URL.")
	}
	if !strings.HasPrefix(key, "media/") {
		return Invalid("url", "Not an uploaded media URL.")
	}
	if err := s.storage.DeleteFile(ctx, key); err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	return nil
}

// objectKey keeps every upload under its own prefix so names never collide.
func objectKey(id, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if name == "" || name == "." || name == "/" {
		name = "upload"
	}
	return path.Join("media", id, name)
}
