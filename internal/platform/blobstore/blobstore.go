// Package blobstore stores opaque binary objects (skin photos) by key.
// Metadata that the application queries lives in PostgreSQL; the store only
// holds bytes plus content type, size and a SHA-256 digest.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	ErrNotFound           = errors.New("blob not found")
	ErrTooLarge           = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
)

// MaxPhotoSize caps a single skin photo upload (10 MB).
const MaxPhotoSize = 10 << 20

// AllowedContentTypes lists the image types accepted for skin photos.
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	SHA256      string    `json:"sha256"`
	StoredAt    time.Time `json:"stored_at"`
}

type BlobStore interface {
	Put(ctx context.Context, key, contentType string, content io.Reader, size int64) (*ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// ValidateUpload checks content type and size before anything is stored.
func ValidateUpload(contentType string, size int64) error {
	if !AllowedContentTypes[contentType] {
		return fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}
	if size > MaxPhotoSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, size, MaxPhotoSize)
	}
	return nil
}

// readLimited buffers content, failing if it grows past MaxPhotoSize.
func readLimited(content io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	if len(data) > MaxPhotoSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type storedObject struct {
	info    ObjectInfo
	content []byte
}

// MemoryStore keeps objects in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*storedObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*storedObject)}
}

func (s *MemoryStore) Put(_ context.Context, key, contentType string, content io.Reader, _ int64) (*ObjectInfo, error) {
	data, err := readLimited(content)
	if err != nil {
		return nil, err
	}

	info := ObjectInfo{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		SHA256:      digest(data),
		StoredAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.objects[key] = &storedObject{info: info, content: data}
	s.mu.Unlock()

	out := info
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound
	}
	info := obj.info
	return io.NopCloser(bytes.NewReader(obj.content)), &info, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
