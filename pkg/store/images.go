package store

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// UploadImage stores image bytes and returns a URL usable in records. In
// remote mode the bytes go to the public bucket under a unique object name;
// in fallback mode the image is inlined as a data URL, since the cache has
// no public retrieval path.
func (s *Store) UploadImage(ctx context.Context, fileName string, data []byte, contentType string) (string, error) {
	if err := s.await(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if s.useRemote() {
		objectPath := fmt.Sprintf("uploads/%s-%s", uuid.NewString(), fileName)
		return s.remote.Upload(ctx, objectPath, data, contentType)
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DeleteImage removes an uploaded object. Inlined fallback images have
// nothing to remove.
func (s *Store) DeleteImage(ctx context.Context, objectPath string) error {
	if err := s.await(ctx); err != nil {
		return err
	}
	if !s.useRemote() {
		return nil
	}
	return s.remote.Remove(ctx, objectPath)
}
