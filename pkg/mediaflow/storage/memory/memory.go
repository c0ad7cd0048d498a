package memory

import (
	"context"
	"fmt"
	"sync"
)

// Signer is an in-memory implementation of the mediaflow.BlobSigner
// interface. Each call returns a fresh fake URL so callers can observe
// re-issued URLs for the same key.
type Signer struct {
	mu     sync.Mutex
	serial int
	issued map[string]int
}

// New creates a new in-memory signer
func New() *Signer {
	return &Signer{
		issued: make(map[string]int),
	}
}

// GetUploadURL returns a fake upload URL for the given object key
func (s *Signer) GetUploadURL(ctx context.Context, objectKey string, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.serial++
	s.issued[objectKey]++
	return fmt.Sprintf("memory://upload/%s?sig=%d", objectKey, s.serial), nil
}

// IssuedCount reports how many URLs have been issued for an object key
func (s *Signer) IssuedCount(objectKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued[objectKey]
}
