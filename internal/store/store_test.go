package store

import (
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-portal/internal/domain"
)

func TestMessageStoreNotifiesAndCopies(t *testing.T) {
	s := NewMessageStore()
	var hits atomic.Int32
	unsubscribe := s.Subscribe(func() { hits.Add(1) })

	s.Add(domain.ChatMessage{ID: "1", Text: "Hel", Sender: domain.SenderBot})
	require.True(t, s.AppendText("1", "lo"))
	assert.False(t, s.SetText("missing", "x"))

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Hello", list[0].Text)

	list[0].Text = "mutated"
	assert.Equal(t, "Hello", s.List()[0].Text)

	unsubscribe()
	s.Clear()
	assert.Equal(t, int32(2), hits.Load())
	assert.Zero(t, s.Len())
}

func TestVerificationStoreLifecycle(t *testing.T) {
	s := NewVerificationStore()
	s.Begin("t-1", "ada@example.com")
	s.SetCode("123456")
	s.SetError("wrong code")
	s.SetVerifiedTicket(&domain.VerifiedTicket{TicketID: "t-1"})

	snap := s.Snapshot()
	assert.Equal(t, "t-1", snap.TicketID)
	assert.Equal(t, "123456", snap.Code)
	snap.VerifiedTicketData.TicketID = "changed"
	assert.Equal(t, "t-1", s.Snapshot().VerifiedTicketData.TicketID)

	s.Begin("t-2", "bob@example.com")
	assert.Empty(t, s.Snapshot().Code)
	assert.Empty(t, s.Snapshot().Error)

	s.Reset()
	assert.Equal(t, domain.VerificationSession{}, s.Snapshot())
}

func TestPendingAttachmentStoreLimit(t *testing.T) {
	s := NewPendingAttachmentStore()
	require.NoError(t, s.Add(domain.PendingAttachment{Name: "a.png", Size: 10}))
	require.NoError(t, s.Add(domain.PendingAttachment{Name: "a.png", Size: 20}))
	assert.Equal(t, 1, s.Len())
	assert.EqualValues(t, 20, s.List()[0].Size)

	err := s.Add(domain.PendingAttachment{Name: "big.iso", Size: domain.MaxAttachmentSize + 1})
	assert.ErrorIs(t, err, ErrAttachmentTooLarge)

	err = s.Set([]domain.PendingAttachment{{Name: "b", Size: 1}, {Name: "c", Size: domain.MaxAttachmentSize + 1}})
	assert.ErrorIs(t, err, ErrAttachmentTooLarge)
	assert.Equal(t, 1, s.Len())

	taken := s.Take()
	assert.Len(t, taken, 1)
	assert.Zero(t, s.Len())
	assert.False(t, s.Remove("a.png"))
}

func TestAttachmentMetadataQueries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewAttachmentMetadataStore()
	s.now = func() time.Time { return now }

	s.Set(map[string]domain.AttachmentMetadata{
		"a": {OriginalName: "Invoice.pdf", FileType: "pdf", ContentType: "application/pdf", SizeInBytes: 100, ExpiryDate: now.Add(-time.Hour)},
		"b": {OriginalName: "photo.png", FileType: "png", ContentType: "image/png", SizeInBytes: 5000, ExpiryDate: now.Add(time.Hour)},
	})
	s.Append(map[string]domain.AttachmentMetadata{
		"c": {OriginalName: "notes.txt", FileType: "txt", ContentType: "text/plain", SizeInBytes: 50},
	})

	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())
	assert.Len(t, s.ByFileType("png"), 1)
	assert.Len(t, s.ByContentType("application/pdf"), 1)
	assert.Equal(t, []string{"a"}, keysOf(s.Expired()))
	assert.Equal(t, []string{"a", "c"}, keysOf(s.BySizeRange(0, 100)))
	assert.Equal(t, []string{"a"}, keysOf(s.Search("INVOICE")))
	assert.Equal(t, []string{"b"}, keysOf(s.Search("image")))
	assert.EqualValues(t, 5150, s.TotalSize())

	s.Remove("a", "c")
	assert.Equal(t, 1, s.Count())
	assert.False(t, s.Has("a"))
}

func keysOf(m map[string]domain.AttachmentMetadata) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestFAQAttachmentStore(t *testing.T) {
	s := NewFAQAttachmentStore()
	s.Set(map[string][]string{"f1": {"tok-a"}, "f2": {}})
	assert.Equal(t, []string{"f1"}, s.FAQIDs())

	s.Add("f1", "tok-a")
	s.Add("f1", "tok-b")
	assert.Equal(t, []string{"tok-a", "tok-b"}, s.For("f1"))

	assert.Equal(t, map[string][]string{"f1": {"tok-b"}}, s.Search("B"))

	s.Remove("f1", "tok-a")
	s.Remove("f1", "tok-b")
	assert.Empty(t, s.FAQIDs())
	assert.Zero(t, s.Count("f1"))
}

func TestRatingStoreOnce(t *testing.T) {
	s := NewRatingStore()
	assert.True(t, s.MarkRated("t-1", domain.RatingSatisfied))
	assert.False(t, s.MarkRated("t-1", domain.RatingDissatisfied))

	r, ok := s.Rating("t-1")
	require.True(t, ok)
	assert.Equal(t, domain.RatingSatisfied, r)

	s.Unmark("t-1")
	assert.False(t, s.HasRated("t-1"))
}

func TestTicketHistoryStore(t *testing.T) {
	s := NewTicketHistoryStore()
	s.Set("+49123", domain.TicketHistory{Tickets: []domain.TicketHistoryItem{{ID: "t-1"}}})

	_, ok := s.Get("+49999")
	assert.False(t, ok)

	s.MarkRated("t-1")
	h, ok := s.Get("+49123")
	require.True(t, ok)
	assert.True(t, h.Tickets[0].IsRated)
}
