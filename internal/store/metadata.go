package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/support-portal/internal/domain"
)

// AttachmentMetadataStore caches attachment metadata by token.
type AttachmentMetadataStore struct {
	Notifier
	mu       sync.RWMutex
	metadata map[string]domain.AttachmentMetadata
	now      func() time.Time
}

func NewAttachmentMetadataStore() *AttachmentMetadataStore {
	return &AttachmentMetadataStore{
		metadata: make(map[string]domain.AttachmentMetadata),
		now:      time.Now,
	}
}

// Set replaces the whole cache.
func (s *AttachmentMetadataStore) Set(all map[string]domain.AttachmentMetadata) {
	s.mu.Lock()
	s.metadata = make(map[string]domain.AttachmentMetadata, len(all))
	for k, v := range all {
		s.metadata[k] = v
	}
	s.mu.Unlock()
	s.notify()
}

// Append merges all into the cache, overwriting existing tokens.
func (s *AttachmentMetadataStore) Append(all map[string]domain.AttachmentMetadata) {
	s.mu.Lock()
	for k, v := range all {
		s.metadata[k] = v
	}
	s.mu.Unlock()
	s.notify()
}

func (s *AttachmentMetadataStore) Put(token string, meta domain.AttachmentMetadata) {
	s.mu.Lock()
	s.metadata[token] = meta
	s.mu.Unlock()
	s.notify()
}

func (s *AttachmentMetadataStore) Remove(tokens ...string) {
	s.mu.Lock()
	for _, t := range tokens {
		delete(s.metadata, t)
	}
	s.mu.Unlock()
	s.notify()
}

func (s *AttachmentMetadataStore) Clear() {
	s.mu.Lock()
	s.metadata = make(map[string]domain.AttachmentMetadata)
	s.mu.Unlock()
	s.notify()
}

func (s *AttachmentMetadataStore) Get(token string) (domain.AttachmentMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metadata[token]
	return m, ok
}

func (s *AttachmentMetadataStore) Has(token string) bool {
	_, ok := s.Get(token)
	return ok
}

// Keys returns all cached tokens, sorted.
func (s *AttachmentMetadataStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.metadata))
	for k := range s.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *AttachmentMetadataStore) ByFileType(fileType string) map[string]domain.AttachmentMetadata {
	return s.filter(func(m domain.AttachmentMetadata) bool { return m.FileType == fileType })
}

func (s *AttachmentMetadataStore) ByContentType(contentType string) map[string]domain.AttachmentMetadata {
	return s.filter(func(m domain.AttachmentMetadata) bool { return m.ContentType == contentType })
}

func (s *AttachmentMetadataStore) Expired() map[string]domain.AttachmentMetadata {
	now := s.now()
	return s.filter(func(m domain.AttachmentMetadata) bool { return m.Expired(now) })
}

// BySizeRange returns entries with minBytes <= size <= maxBytes.
func (s *AttachmentMetadataStore) BySizeRange(minBytes, maxBytes int64) map[string]domain.AttachmentMetadata {
	return s.filter(func(m domain.AttachmentMetadata) bool {
		return m.SizeInBytes >= minBytes && m.SizeInBytes <= maxBytes
	})
}

// Search matches query case-insensitively against name, file type and content type.
func (s *AttachmentMetadataStore) Search(query string) map[string]domain.AttachmentMetadata {
	q := strings.ToLower(query)
	return s.filter(func(m domain.AttachmentMetadata) bool {
		return strings.Contains(strings.ToLower(m.OriginalName), q) ||
			strings.Contains(strings.ToLower(m.FileType), q) ||
			strings.Contains(strings.ToLower(m.ContentType), q)
	})
}

func (s *AttachmentMetadataStore) TotalSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, m := range s.metadata {
		total += m.SizeInBytes
	}
	return total
}

func (s *AttachmentMetadataStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.metadata)
}

func (s *AttachmentMetadataStore) filter(keep func(domain.AttachmentMetadata) bool) map[string]domain.AttachmentMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.AttachmentMetadata)
	for k, m := range s.metadata {
		if keep(m) {
			out[k] = m
		}
	}
	return out
}
