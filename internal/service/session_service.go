package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/attachment"
	"github.com/spec-kit/support-portal/internal/auth"
	"github.com/spec-kit/support-portal/internal/backend"
	"github.com/spec-kit/support-portal/internal/chat"
	"github.com/spec-kit/support-portal/internal/config"
	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/events"
	"github.com/spec-kit/support-portal/internal/locale"
	"github.com/spec-kit/support-portal/internal/observability"
	"github.com/spec-kit/support-portal/internal/persistence"
	"github.com/spec-kit/support-portal/internal/repository"
	"github.com/spec-kit/support-portal/internal/store"
	"github.com/spec-kit/support-portal/internal/ticket"
	"github.com/spec-kit/support-portal/internal/tracking"
	"github.com/spec-kit/support-portal/internal/upload"
	apperrors "github.com/spec-kit/support-portal/pkg/util/errorutil"
)

// SessionDependencies groups the collaborators shared by every portal session.
type SessionDependencies struct {
	Backend     *backend.Client
	Handoff     *upload.Handoff
	Catalog     *locale.Catalog
	Tokens      *auth.TokenManager
	Sessions    repository.SessionRepository
	Transcripts repository.TranscriptRepository
	Redis       *persistence.Redis
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
}

// Session is everything one browser widget owns: its state containers and the
// controllers writing to them.
type Session struct {
	ID             string
	Language       string
	CreatedAt      time.Time
	Printer        *locale.Printer
	Messages       *store.MessageStore
	Verification   *store.VerificationStore
	Pending        *store.PendingAttachmentStore
	Submitted      *store.SubmittedTicketStore
	Guest          *store.GuestStore
	History        *store.TicketHistoryStore
	Ratings        *store.RatingStore
	Metadata       *store.AttachmentMetadataStore
	FAQAttachments *store.FAQAttachmentStore
	Chat           *chat.Controller
	Ticket         *ticket.Lifecycle
	Tracker        *tracking.Tracker
	Resolver       *attachment.Resolver
	Attachments    *attachment.Loader

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns the time of the session's last request.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionService keeps live portal sessions in memory and their durable record
// in the session repository.
type SessionService struct {
	cfg    config.Config
	deps   SessionDependencies
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionService constructs the service.
func NewSessionService(cfg config.Config, deps SessionDependencies, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Sessions == nil {
		deps.Sessions = repository.NewMemorySessionRepository()
	}
	return &SessionService{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Issued is a freshly created session and its token.
type Issued struct {
	Session   *Session
	Token     string
	ExpiresAt time.Time
}

// Create opens a session for guest, choosing the UI language from acceptLanguage.
func (s *SessionService) Create(ctx context.Context, guest domain.Guest, acceptLanguage string) (Issued, error) {
	guest = normalizeGuest(guest)
	now := s.now().UTC()
	rec := repository.SessionRecord{
		ID:        uuid.NewString(),
		Guest:     guest,
		Language:  s.deps.Catalog.Match(acceptLanguage).String(),
		CreatedAt: now,
		LastSeen:  now,
	}
	if err := s.deps.Sessions.Save(ctx, rec); err != nil {
		return Issued{}, apperrors.NewInternalError(err)
	}

	token, expiresAt, err := s.deps.Tokens.GenerateToken(rec.ID, guest.ID)
	if err != nil {
		return Issued{}, apperrors.NewInternalError(err)
	}

	sess := s.build(rec)
	sess.touch(now)
	s.mu.Lock()
	s.sessions[rec.ID] = sess
	s.mu.Unlock()

	s.logger.Info("session created", zap.String("session_id", rec.ID), zap.String("language", rec.Language))
	return Issued{Session: sess, Token: token, ExpiresAt: expiresAt}, nil
}

// Get returns the live session for id, rebuilding it from its record after an
// eviction or a restart.
func (s *SessionService) Get(ctx context.Context, id string) (*Session, error) {
	now := s.now()
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		sess.touch(now)
		return sess, nil
	}

	rec, err := s.deps.Sessions.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewUnauthorized("session expired")
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	rebuilt := s.build(rec)
	s.mu.Lock()
	if existing, raced := s.sessions[id]; raced {
		rebuilt = existing
	} else {
		s.sessions[id] = rebuilt
	}
	s.mu.Unlock()
	rebuilt.touch(now)
	s.logger.Debug("session restored", zap.String("session_id", id))
	return rebuilt, nil
}

// Transcript returns the session's chat log, from memory or from the transcript store.
func (s *SessionService) Transcript(ctx context.Context, sess *Session, limit int) ([]domain.ChatMessage, error) {
	if msgs := sess.Messages.List(); len(msgs) > 0 || s.deps.Transcripts == nil {
		return msgs, nil
	}
	return s.deps.Transcripts.List(ctx, sess.ID, limit)
}

// ResetChat starts a new conversation for the session.
func (s *SessionService) ResetChat(ctx context.Context, sess *Session) error {
	sess.Chat.Reset()
	if s.deps.Transcripts != nil {
		if err := s.deps.Transcripts.DeleteSession(ctx, sess.ID); err != nil {
			s.logger.Warn("transcript cleanup failed", zap.String("session_id", sess.ID), zap.Error(err))
		}
	}
	return s.updateRecord(ctx, sess.ID, func(rec *repository.SessionRecord) { rec.ConversationID = "" })
}

// FAQs lists a department's FAQs and loads the metadata of their attachments.
func (s *SessionService) FAQs(ctx context.Context, sess *Session, departmentID string) (domain.FAQPage, error) {
	page, err := s.deps.Backend.ListFAQs(ctx, departmentID)
	if err != nil {
		return domain.FAQPage{}, err
	}
	sess.FAQAttachments.Set(page.Attachments)
	var tokens []string
	for _, id := range sess.FAQAttachments.FAQIDs() {
		tokens = append(tokens, sess.FAQAttachments.For(id)...)
	}
	if len(tokens) > 0 {
		for token, ferr := range sess.Attachments.Load(ctx, tokens) {
			s.logger.Debug("faq attachment metadata failed", zap.String("token", token), zap.Error(ferr))
		}
	}
	return page, nil
}

// ActivePromotion is a promotion inside its window with the previews of its media.
type ActivePromotion struct {
	domain.Promotion
	Attachments []attachment.Preview `json:"attachments"`
}

// Promotion returns the current promotion when its window is open, or nil.
// Backend failures are logged and hide the banner like an inactive promotion.
func (s *SessionService) Promotion(ctx context.Context, sess *Session) *ActivePromotion {
	page, err := s.deps.Backend.CurrentPromotion(ctx)
	if err != nil {
		s.logger.Warn("promotion unavailable", zap.Error(err))
		return nil
	}
	if page.Promotion.ID == "" || !page.Promotion.Active(s.now()) {
		return nil
	}
	return &ActivePromotion{
		Promotion:   page.Promotion,
		Attachments: sess.Attachments.Previews(ctx, page.Tokens()),
	}
}

// Evict drops sessions idle for longer than idle from memory. Their records
// stay in the repository so the next request rebuilds them.
func (s *SessionService) Evict(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	var stale []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) && !sess.Chat.Busy() {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.Chat.Close()
	}
	if len(stale) > 0 {
		s.logger.Info("evicted idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Len returns the number of live sessions.
func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CloseAll cancels every in-flight chat stream.
func (s *SessionService) CloseAll() {
	s.mu.Lock()
	all := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.Unlock()
	for _, sess := range all {
		sess.Chat.Close()
	}
}

func (s *SessionService) updateRecord(ctx context.Context, id string, fn func(*repository.SessionRecord)) error {
	rec, err := s.deps.Sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	fn(&rec)
	rec.LastSeen = s.now().UTC()
	return s.deps.Sessions.Save(ctx, rec)
}

func (s *SessionService) build(rec repository.SessionRecord) *Session {
	logger := s.logger.With(zap.String("session_id", rec.ID))
	sess := &Session{
		ID:             rec.ID,
		Language:       rec.Language,
		CreatedAt:      rec.CreatedAt,
		Printer:        s.deps.Catalog.Printer(rec.Language),
		Messages:       store.NewMessageStore(),
		Verification:   store.NewVerificationStore(),
		Pending:        store.NewPendingAttachmentStore(),
		Submitted:      store.NewSubmittedTicketStore(),
		Guest:          store.NewGuestStore(),
		History:        store.NewTicketHistoryStore(),
		Ratings:        store.NewRatingStore(),
		Metadata:       store.NewAttachmentMetadataStore(),
		FAQAttachments: store.NewFAQAttachmentStore(),
	}
	sess.Guest.Set(rec.Guest)

	emitter := events.NewEmitter(s.deps.Dispatcher, rec.ID)

	var transcript chat.Transcript
	if s.deps.Transcripts != nil {
		transcript = s.deps.Transcripts
	}
	var frames chat.FrameRecorder
	if s.deps.Metrics != nil {
		frames = s.deps.Metrics
	}
	sess.Chat = chat.NewController(s.deps.Backend, sess.Messages, chat.Options{
		SessionID:  rec.ID,
		UserAvatar: s.cfg.Chat.UserAvatar,
		BotAvatar:  s.cfg.Chat.BotAvatar,
		ReadSize:   s.cfg.Chat.ReadBufferBytes,
		Logger:     logger,
		Transcript: transcript,
		Emitter:    emitter,
		Metrics:    frames,
		OnConversation: func(conversationID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.updateRecord(ctx, rec.ID, func(r *repository.SessionRecord) { r.ConversationID = conversationID }); err != nil {
				logger.Warn("persist conversation id failed", zap.Error(err))
			}
		},
	})
	if rec.ConversationID != "" {
		sess.Chat.RestoreConversation(rec.ConversationID)
	}

	var uploader ticket.Uploader
	if s.deps.Handoff != nil {
		uploader = s.deps.Handoff
	}
	sess.Ticket = ticket.NewLifecycle(s.deps.Backend, uploader, ticket.Stores{
		Verification: sess.Verification,
		Pending:      sess.Pending,
		Submitted:    sess.Submitted,
	}, sess.Printer, ticket.Options{
		CallTimeout: s.cfg.Ticket.CallTimeout,
		Logger:      logger,
		Emitter:     emitter,
	})

	sess.Resolver = attachment.NewResolver(s.deps.Backend, s.cfg.Backend.MediaAccess, logger)
	sess.Attachments = attachment.NewLoader(s.deps.Backend, sess.Resolver, sess.Metadata, logger)

	var ledger tracking.Ledger = tracking.StoreLedger{Ratings: sess.Ratings}
	if s.deps.Redis != nil {
		ledger = repository.NewRedisRatingLedger(s.deps.Redis, rec.ID)
	}
	sess.Tracker = tracking.NewTracker(s.deps.Backend, ledger, tracking.Options{
		GuestID:  sess.Guest.ID,
		Resolver: sess.Resolver,
		Loader:   sess.Attachments,
		History:  sess.History,
		Emitter:  emitter,
		Logger:   logger,
	})
	return sess
}

// normalizeGuest trims the identity fields a browser sends.
func normalizeGuest(g domain.Guest) domain.Guest {
	g.ID = strings.TrimSpace(g.ID)
	g.Name = strings.TrimSpace(g.Name)
	g.Email = strings.TrimSpace(g.Email)
	g.Phone = strings.TrimSpace(g.Phone)
	return g
}
