package store

import (
	"sort"
	"strings"
	"sync"
)

// FAQAttachmentStore maps FAQ ids to attachment tokens.
// A FAQ never maps to an empty list; removing its last token removes the key.
type FAQAttachmentStore struct {
	Notifier
	mu          sync.RWMutex
	attachments map[string][]string
}

func NewFAQAttachmentStore() *FAQAttachmentStore {
	return &FAQAttachmentStore{attachments: make(map[string][]string)}
}

func (s *FAQAttachmentStore) Set(all map[string][]string) {
	s.mu.Lock()
	s.attachments = make(map[string][]string, len(all))
	s.merge(all)
	s.mu.Unlock()
	s.notify()
}

func (s *FAQAttachmentStore) Append(all map[string][]string) {
	s.mu.Lock()
	s.merge(all)
	s.mu.Unlock()
	s.notify()
}

func (s *FAQAttachmentStore) merge(all map[string][]string) {
	for id, tokens := range all {
		if len(tokens) == 0 {
			delete(s.attachments, id)
			continue
		}
		s.attachments[id] = append([]string(nil), tokens...)
	}
}

// Add appends token to faqID unless it is already present.
func (s *FAQAttachmentStore) Add(faqID, token string) {
	s.mu.Lock()
	for _, t := range s.attachments[faqID] {
		if t == token {
			s.mu.Unlock()
			return
		}
	}
	s.attachments[faqID] = append(s.attachments[faqID], token)
	s.mu.Unlock()
	s.notify()
}

func (s *FAQAttachmentStore) Remove(faqID, token string) {
	s.mu.Lock()
	current := s.attachments[faqID]
	kept := current[:0:0]
	for _, t := range current {
		if t != token {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(s.attachments, faqID)
	} else {
		s.attachments[faqID] = kept
	}
	s.mu.Unlock()
	s.notify()
}

func (s *FAQAttachmentStore) RemoveAll(faqID string) {
	s.mu.Lock()
	delete(s.attachments, faqID)
	s.mu.Unlock()
	s.notify()
}

func (s *FAQAttachmentStore) Clear() {
	s.mu.Lock()
	s.attachments = make(map[string][]string)
	s.mu.Unlock()
	s.notify()
}

func (s *FAQAttachmentStore) For(faqID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.attachments[faqID]...)
}

func (s *FAQAttachmentStore) Count(faqID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attachments[faqID])
}

// FAQIDs returns the ids of FAQs with at least one attachment, sorted.
func (s *FAQAttachmentStore) FAQIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.attachments))
	for id, tokens := range s.attachments {
		if len(tokens) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Search returns, per FAQ, the tokens containing query (case-insensitive).
func (s *FAQAttachmentStore) Search(query string) map[string][]string {
	q := strings.ToLower(query)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string)
	for id, tokens := range s.attachments {
		for _, t := range tokens {
			if strings.Contains(strings.ToLower(t), q) {
				out[id] = append(out[id], t)
			}
		}
	}
	return out
}
