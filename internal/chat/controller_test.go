package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-portal/internal/backend"
	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/events"
	"github.com/spec-kit/support-portal/internal/store"
)

// chunkReader returns one chunk per Read, then err (io.EOF if nil).
type chunkReader struct {
	chunks []string
	err    error
	closed bool
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func (r *chunkReader) Close() error {
	r.closed = true
	return nil
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []backend.AskRequest
	open     func(ctx context.Context) (io.ReadCloser, error)
	answer   backend.AskResponse
	// onAsk runs before Ask returns its answer.
	onAsk func()
}

func (f *fakeBackend) OpenChatStream(ctx context.Context, in backend.AskRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	f.requests = append(f.requests, in)
	f.mu.Unlock()
	return f.open(ctx)
}

func (f *fakeBackend) Ask(_ context.Context, in backend.AskRequest) (backend.AskResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, in)
	f.mu.Unlock()
	if f.onAsk != nil {
		f.onAsk()
	}
	return f.answer, nil
}

type memTranscript struct {
	mu   sync.Mutex
	msgs []domain.ChatMessage
}

func (m *memTranscript) Append(_ context.Context, _ string, msg domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func frames(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

const (
	metaLine = `data: {"type":"conversation_meta","data":{"conversationId":"conv-42"}}`
	helLine  = `data: {"type":"message","data":"Hel"}`
	loLine   = `data: {"type":"message","data":"lo"}`
	doneLine = `data: {"type":"done"}`
)

func splitEvery(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return append(out, s)
}

func TestSendFinalizesAccumulatedText(t *testing.T) {
	body := &chunkReader{chunks: []string{frames(metaLine, helLine), frames(loLine, doneLine)}}
	fb := &fakeBackend{open: func(context.Context) (io.ReadCloser, error) { return body, nil }}
	messages := store.NewMessageStore()
	transcript := &memTranscript{}
	dispatcher := events.NewInMemoryDispatcher()
	var completed []events.Event
	dispatcher.Subscribe(events.EventChatReplyCompleted, func(_ context.Context, e events.Event) error {
		completed = append(completed, e)
		return nil
	})

	var conversation string
	c := NewController(fb, messages, Options{
		SessionID:      "sess-1",
		Transcript:     transcript,
		Emitter:        events.NewEmitter(dispatcher, "sess-1"),
		OnConversation: func(id string) { conversation = id },
	})

	var partials []string
	reply, err := c.Send(context.Background(), "hi there", func(f domain.StreamFrame, partial string) {
		if f.Type == domain.FrameMessage {
			partials = append(partials, partial)
		}
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello", reply.Message.Text)
	assert.Equal(t, domain.SenderBot, reply.Message.Sender)
	assert.Equal(t, []string{"Hel", "Hello"}, partials)
	assert.Equal(t, "conv-42", c.ConversationID())
	assert.Equal(t, "conv-42", conversation)
	assert.True(t, body.closed)
	assert.False(t, c.Busy())
	assert.False(t, c.Loading())

	log := messages.List()
	require.Len(t, log, 2)
	assert.Equal(t, domain.SenderUser, log[0].Sender)
	assert.Equal(t, "hi there", log[0].Text)
	assert.Equal(t, "Hello", log[1].Text)
	assert.Len(t, transcript.msgs, 2)
	require.Len(t, completed, 1)
	assert.Equal(t, 4, completed[0].Payload.(events.ChatReplyCompletedPayload).Frames)
}

func TestSendReusesConversation(t *testing.T) {
	fb := &fakeBackend{open: func(context.Context) (io.ReadCloser, error) {
		return &chunkReader{chunks: []string{frames(metaLine, helLine)}}, nil
	}}
	c := NewController(fb, store.NewMessageStore(), Options{})

	_, err := c.Send(context.Background(), "one", nil)
	require.NoError(t, err)
	_, err = c.Send(context.Background(), "two", nil)
	require.NoError(t, err)

	require.Len(t, fb.requests, 2)
	assert.Empty(t, fb.requests[0].ConversationID)
	assert.Equal(t, "conv-42", fb.requests[1].ConversationID)
}

func TestSendIsChunkingIndependent(t *testing.T) {
	payload := frames(metaLine, `data: {"type":"message","data":"Grüße "}`, `data: {not json`, `data: {"type":"message","data":"aus 東京"}`, doneLine)
	for _, size := range []int{1, 3, 17, len(payload)} {
		fb := &fakeBackend{open: func(context.Context) (io.ReadCloser, error) {
			return &chunkReader{chunks: splitEvery(payload, size)}, nil
		}}
		c := NewController(fb, store.NewMessageStore(), Options{ReadSize: 5})
		reply, err := c.Send(context.Background(), "q", nil)
		require.NoError(t, err, "chunk size %d", size)
		assert.Equal(t, "Grüße aus 東京", reply.Message.Text, "chunk size %d", size)
		assert.Equal(t, 1, reply.Skipped, "chunk size %d", size)
	}
}

func TestSendOpenFailureAppendsNoBotMessage(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	fb := &fakeBackend{open: func(context.Context) (io.ReadCloser, error) { return nil, boom }}
	messages := store.NewMessageStore()
	c := NewController(fb, messages, Options{})

	_, err := c.Send(context.Background(), "hello?", nil)
	assert.ErrorIs(t, err, boom)
	require.Equal(t, 1, messages.Len())
	assert.Equal(t, domain.SenderUser, messages.List()[0].Sender)
	assert.False(t, c.Loading())
	assert.False(t, c.Busy())
}

func TestSendReadErrorKeepsPartialReply(t *testing.T) {
	reset := errors.New("connection reset by peer")
	fb := &fakeBackend{open: func(context.Context) (io.ReadCloser, error) {
		return &chunkReader{chunks: []string{frames(helLine)}, err: reset}, nil
	}}
	messages := store.NewMessageStore()
	c := NewController(fb, messages, Options{})

	reply, err := c.Send(context.Background(), "q", nil)
	assert.ErrorIs(t, err, reset)
	assert.Equal(t, "Hel", reply.Message.Text)
	assert.Equal(t, 2, messages.Len())
}

func TestSendEmptyStreamStillEmitsOneMessage(t *testing.T) {
	fb := &fakeBackend{open: func(context.Context) (io.ReadCloser, error) { return &chunkReader{}, nil }}
	messages := store.NewMessageStore()
	c := NewController(fb, messages, Options{})

	reply, err := c.Send(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, reply.Message.Text)
	assert.Equal(t, 2, messages.Len())
}

func TestCloseDiscardsInFlightReply(t *testing.T) {
	pr, pw := io.Pipe()
	fb := &fakeBackend{open: func(context.Context) (io.ReadCloser, error) { return pr, nil }}
	messages := store.NewMessageStore()
	c := NewController(fb, messages, Options{})

	go func() {
		_, _ = io.WriteString(pw, frames(helLine))
		_, _ = io.WriteString(pw, frames(loLine))
		pw.Close()
	}()

	var seen []string
	_, err := c.Send(context.Background(), "q", func(f domain.StreamFrame, partial string) {
		seen = append(seen, partial)
		c.Close()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"Hel"}, seen)
	assert.Equal(t, 1, messages.Len())
	assert.Empty(t, c.Partial())
	assert.False(t, c.Busy())
}

func TestSendRejectsConcurrentTurn(t *testing.T) {
	opened := make(chan struct{})
	pr, pw := io.Pipe()
	fb := &fakeBackend{open: func(context.Context) (io.ReadCloser, error) {
		close(opened)
		return pr, nil
	}}
	c := NewController(fb, store.NewMessageStore(), Options{})

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "first", nil)
		done <- err
	}()
	<-opened

	_, err := c.Send(context.Background(), "second", nil)
	assert.ErrorIs(t, err, ErrBusy)

	pw.Close()
	require.NoError(t, <-done)
}

func TestAskAppendsAnswer(t *testing.T) {
	fb := &fakeBackend{answer: backend.AskResponse{Answer: "Use the reset link.", ConversationID: "conv-7"}}
	messages := store.NewMessageStore()
	c := NewController(fb, messages, Options{})

	reply, err := c.Ask(context.Background(), "forgot password", "faq-1")
	require.NoError(t, err)
	assert.Equal(t, "Use the reset link.", reply.Message.Text)
	assert.Equal(t, "conv-7", c.ConversationID())
	assert.Equal(t, "faq-1", fb.requests[0].FAQID)
	assert.Equal(t, 2, messages.Len())
}

func TestAskDropsAnswerAfterClose(t *testing.T) {
	fb := &fakeBackend{answer: backend.AskResponse{Answer: "Too late.", ConversationID: "conv-8"}}
	messages := store.NewMessageStore()
	c := NewController(fb, messages, Options{})
	fb.onAsk = c.Close

	_, err := c.Ask(context.Background(), "anyone there?", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, messages.Len())
	assert.Equal(t, domain.SenderUser, messages.List()[0].Sender)
	assert.Empty(t, c.ConversationID())
	assert.False(t, c.Busy())

	fb.onAsk = nil
	_, err = c.Ask(context.Background(), "hello again", "")
	require.NoError(t, err)
	assert.Equal(t, 3, messages.Len())
}

func TestResetStartsNewConversation(t *testing.T) {
	fb := &fakeBackend{open: func(context.Context) (io.ReadCloser, error) {
		return &chunkReader{chunks: []string{frames(metaLine)}}, nil
	}}
	messages := store.NewMessageStore()
	c := NewController(fb, messages, Options{})
	_, err := c.Send(context.Background(), "q", nil)
	require.NoError(t, err)

	c.Reset()
	assert.Empty(t, c.ConversationID())
	assert.Zero(t, messages.Len())
}
