// Package chat drives one chat widget: it sends a question, consumes the
// streamed reply frame by frame and finalizes exactly one bot message per turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/backend"
	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/events"
	"github.com/spec-kit/support-portal/internal/store"
	"github.com/spec-kit/support-portal/internal/stream"
)

// ErrBusy is returned when a turn is already in flight.
var ErrBusy = errors.New("chat: a reply is already streaming")

// ErrEmptyQuestion is returned for blank input.
var ErrEmptyQuestion = errors.New("chat: question is empty")

// Backend is the part of the support backend the controller talks to.
type Backend interface {
	OpenChatStream(ctx context.Context, in backend.AskRequest) (io.ReadCloser, error)
	Ask(ctx context.Context, in backend.AskRequest) (backend.AskResponse, error)
}

// Transcript persists finalized messages.
type Transcript interface {
	Append(ctx context.Context, sessionID string, msg domain.ChatMessage) error
}

// FrameRecorder counts decoded frames.
type FrameRecorder interface {
	RecordFrame(kind string)
}

// FrameFunc observes each frame as it is applied. partial is the accumulated
// reply text after the frame.
type FrameFunc func(frame domain.StreamFrame, partial string)

// Options configures a Controller.
type Options struct {
	SessionID      string
	UserAvatar     string
	BotAvatar      string
	ReadSize       int
	Logger         *zap.Logger
	Transcript     Transcript
	Emitter        *events.Emitter
	Metrics        FrameRecorder
	OnConversation func(conversationID string)
	Now            func() time.Time
}

// Reply summarizes a finished turn.
type Reply struct {
	Message        domain.ChatMessage
	ConversationID string
	Frames         int
	Skipped        int
}

// Controller owns the accumulator of one widget. Only one turn runs at a time.
type Controller struct {
	client   Backend
	messages *store.MessageStore
	opts     Options
	logger   *zap.Logger

	mu             sync.Mutex
	busy           bool
	loading        bool
	cancel         context.CancelFunc
	body           io.ReadCloser
	conversationID string
	partial        strings.Builder
}

// NewController builds a controller appending to messages.
func NewController(client Backend, messages *store.MessageStore, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.UserAvatar == "" {
		opts.UserAvatar = "/user.svg"
	}
	if opts.BotAvatar == "" {
		opts.BotAvatar = "/assistant.svg"
	}
	return &Controller{
		client:   client,
		messages: messages,
		opts:     opts,
		logger:   opts.Logger.With(zap.String("session_id", opts.SessionID)),
	}
}

// Send runs one streamed turn. The user message is appended immediately. On a
// clean end or a mid-stream read error the bot message is finalized from the
// accumulator; in the latter case the read error is returned alongside the reply.
// A failure to open the stream appends no bot message. Close aborts the turn,
// discards the partial reply and makes Send return context.Canceled.
func (c *Controller) Send(ctx context.Context, question string, onFrame FrameFunc) (Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{}, ErrEmptyQuestion
	}

	turnCtx, err := c.begin(ctx)
	if err != nil {
		return Reply{}, err
	}
	c.appendUser(ctx, question)

	body, err := c.client.OpenChatStream(turnCtx, backend.AskRequest{
		Question:       question,
		ConversationID: c.ConversationID(),
	})
	if err != nil {
		c.end()
		if turnCtx.Err() != nil {
			return Reply{}, context.Canceled
		}
		c.logger.Warn("chat stream failed to open", zap.Error(err))
		return Reply{}, err
	}
	if !c.attach(turnCtx, body) {
		body.Close()
		c.end()
		return Reply{}, context.Canceled
	}
	defer body.Close()

	dec := stream.NewDecoder(c.logger)
	frames := 0
	readErr := stream.Read(body, dec, c.opts.ReadSize, func(frame domain.StreamFrame) error {
		partial, ok := c.apply(turnCtx, frame)
		if !ok {
			return context.Canceled
		}
		frames++
		if c.opts.Metrics != nil {
			c.opts.Metrics.RecordFrame(string(frame.Type))
		}
		if onFrame != nil {
			onFrame(frame, partial)
		}
		return nil
	})

	if turnCtx.Err() != nil {
		c.end()
		c.logger.Debug("chat turn cancelled", zap.Int("frames", frames))
		return Reply{}, context.Canceled
	}

	reply, ok := c.finalize(ctx, turnCtx, frames, dec.Skipped())
	if !ok {
		return Reply{}, context.Canceled
	}
	if readErr != nil {
		c.logger.Warn("chat stream interrupted", zap.Error(readErr), zap.Int("frames", frames))
		return reply, fmt.Errorf("chat stream interrupted: %w", readErr)
	}
	return reply, nil
}

// Ask runs one request/response turn without streaming.
func (c *Controller) Ask(ctx context.Context, question, faqID string) (Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Reply{}, ErrEmptyQuestion
	}
	turnCtx, err := c.begin(ctx)
	if err != nil {
		return Reply{}, err
	}
	c.appendUser(ctx, question)

	out, err := c.client.Ask(turnCtx, backend.AskRequest{
		Question:       question,
		ConversationID: c.ConversationID(),
		FAQID:          faqID,
	})
	if err != nil {
		c.end()
		if turnCtx.Err() != nil {
			return Reply{}, context.Canceled
		}
		return Reply{}, err
	}
	c.mu.Lock()
	if turnCtx.Err() != nil {
		c.release()
		c.mu.Unlock()
		return Reply{}, context.Canceled
	}
	c.partial.WriteString(out.Answer)
	c.mu.Unlock()
	if out.ConversationID != "" {
		c.setConversation(out.ConversationID)
	}
	reply, ok := c.finalize(ctx, turnCtx, 0, 0)
	if !ok {
		return Reply{}, context.Canceled
	}
	return reply, nil
}

// Close aborts any in-flight turn and releases its stream.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	if c.body != nil {
		c.body.Close()
		c.body = nil
	}
	c.partial.Reset()
	c.loading = false
}

// Reset closes the widget and starts a new conversation.
func (c *Controller) Reset() {
	c.Close()
	c.mu.Lock()
	c.conversationID = ""
	c.mu.Unlock()
	c.messages.Clear()
}

// ConversationID returns the conversation established by the backend, if any.
func (c *Controller) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// RestoreConversation reuses a conversation id persisted from an earlier process.
func (c *Controller) RestoreConversation(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversationID = id
}

// Partial returns the reply text accumulated so far in the current turn.
func (c *Controller) Partial() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partial.String()
}

// Loading reports whether the turn still waits for the backend to commit to a conversation.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Busy reports whether a turn is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) begin(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return nil, ErrBusy
	}
	turnCtx, cancel := context.WithCancel(ctx)
	c.busy = true
	c.loading = true
	c.cancel = cancel
	c.partial.Reset()
	return turnCtx, nil
}

// attach registers the open body so Close can release it.
func (c *Controller) attach(turnCtx context.Context, body io.ReadCloser) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if turnCtx.Err() != nil {
		return false
	}
	c.body = body
	return true
}

// apply routes one frame into the accumulator. It refuses frames once the turn is cancelled.
func (c *Controller) apply(turnCtx context.Context, frame domain.StreamFrame) (string, bool) {
	c.mu.Lock()
	if turnCtx.Err() != nil {
		c.mu.Unlock()
		return "", false
	}
	var newConversation string
	switch frame.Type {
	case domain.FrameMessage:
		c.partial.WriteString(frame.Text)
	case domain.FrameConversationMeta:
		c.loading = false
		if frame.ConversationID != "" && frame.ConversationID != c.conversationID {
			c.conversationID = frame.ConversationID
			newConversation = frame.ConversationID
		}
	case domain.FrameDone:
	}
	partial := c.partial.String()
	c.mu.Unlock()

	if newConversation != "" && c.opts.OnConversation != nil {
		c.opts.OnConversation(newConversation)
	}
	return partial, true
}

func (c *Controller) setConversation(id string) {
	c.mu.Lock()
	changed := id != c.conversationID
	c.conversationID = id
	c.mu.Unlock()
	if changed && c.opts.OnConversation != nil {
		c.opts.OnConversation(id)
	}
}

// end releases the turn without emitting a bot message.
func (c *Controller) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release()
}

func (c *Controller) release() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.body = nil
	c.busy = false
	c.loading = false
	c.partial.Reset()
}

// finalize reads the live accumulator and emits the single bot message of the
// turn. It emits nothing and reports false once the turn was closed.
func (c *Controller) finalize(ctx, turnCtx context.Context, frames, skipped int) (Reply, bool) {
	now := c.opts.Now()
	c.mu.Lock()
	if turnCtx.Err() != nil {
		c.release()
		c.mu.Unlock()
		return Reply{}, false
	}
	msg := domain.ChatMessage{
		ID:             uuid.NewString(),
		Text:           c.partial.String(),
		Sender:         domain.SenderBot,
		Avatar:         c.opts.BotAvatar,
		Timestamp:      &now,
		ConversationID: c.conversationID,
	}
	conversationID := c.conversationID
	c.release()
	c.mu.Unlock()

	c.messages.Add(msg)
	c.persist(ctx, msg)
	if err := c.opts.Emitter.Emit(ctx, events.EventChatReplyCompleted, "", events.ChatReplyCompletedPayload{
		ConversationID: conversationID,
		MessageID:      msg.ID,
		Frames:         frames,
		Skipped:        skipped,
		Chars:          len(msg.Text),
	}); err != nil {
		c.logger.Warn("chat reply event failed", zap.Error(err))
	}
	return Reply{Message: msg, ConversationID: conversationID, Frames: frames, Skipped: skipped}, true
}

func (c *Controller) appendUser(ctx context.Context, question string) {
	now := c.opts.Now()
	msg := domain.ChatMessage{
		ID:             uuid.NewString(),
		Text:           question,
		Sender:         domain.SenderUser,
		Avatar:         c.opts.UserAvatar,
		Timestamp:      &now,
		ConversationID: c.ConversationID(),
	}
	c.messages.Add(msg)
	c.persist(ctx, msg)
}

func (c *Controller) persist(ctx context.Context, msg domain.ChatMessage) {
	if c.opts.Transcript == nil {
		return
	}
	if err := c.opts.Transcript.Append(context.WithoutCancel(ctx), c.opts.SessionID, msg); err != nil {
		c.logger.Warn("persist chat message failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
}
