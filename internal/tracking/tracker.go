// Package tracking looks tickets up by code or phone and collects the one-time
// satisfaction rating.
package tracking

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/attachment"
	"github.com/spec-kit/support-portal/internal/backend"
	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/events"
	"github.com/spec-kit/support-portal/internal/store"
)

type trackingError struct {
	msg string
	key string
}

func (e *trackingError) Error() string      { return e.msg }
func (e *trackingError) MessageKey() string { return e.key }

var (
	// ErrAlreadyRated is returned for a second rating of the same ticket.
	ErrAlreadyRated error = &trackingError{"tracking: ticket already rated", "errors.already_rated"}
	// ErrInvalidPhone is returned for a phone number the form would reject.
	ErrInvalidPhone error = &trackingError{"tracking: invalid phone number", "validation.phone"}
	// ErrInvalidCode is returned for an empty tracking code.
	ErrInvalidCode error = &trackingError{"tracking: tracking code is required", "validation.required"}
	// ErrNotRateable is returned for a ticket that was not tracked here or has no answer yet.
	ErrNotRateable error = &trackingError{"tracking: ticket cannot be rated", "errors.not_rateable"}
)

// Backend is the part of the support backend the tracker calls.
type Backend interface {
	TrackTicket(ctx context.Context, code, guestID string) (domain.TrackedTicket, error)
	TicketHistory(ctx context.Context, phone string) (domain.TicketHistory, error)
	RecordTicketRating(ctx context.Context, ticketID string, rating domain.Rating, guestID string) error
	RecordInteraction(ctx context.Context, kind domain.InteractionType, ticketID, guestID string) (*backend.Interaction, error)
}

// RatingAction is what the detail view offers for rating.
type RatingAction string

const (
	// RatingOffered shows the satisfied/dissatisfied pair.
	RatingOffered RatingAction = "offered"
	// RatingThanked replaces the pair once the ticket is rated.
	RatingThanked RatingAction = "thanked"
	// RatingNone means there is no answer to rate yet.
	RatingNone RatingAction = "none"
)

// AttachmentRef is an attachment of a tracked ticket.
type AttachmentRef struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	FileType    string          `json:"fileType"`
	Kind        attachment.Kind `json:"kind"`
	Size        string          `json:"size"`
	URL         string          `json:"url"`
	Expired     bool            `json:"expired"`
	SizeInBytes int64           `json:"sizeInBytes"`
}

// Detail is the tracking view of one ticket.
type Detail struct {
	TicketID    string                `json:"ticketId"`
	Code        string                `json:"code"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
	Answers     []domain.TicketAnswer `json:"answers"`
	Attachments []AttachmentRef       `json:"attachments"`
	Rating      RatingAction          `json:"rating"`
}

// HistoryItem is one history row with its rating state and previews.
type HistoryItem struct {
	domain.TicketHistoryItem
	Rating      RatingAction         `json:"rating"`
	Attachments []attachment.Preview `json:"attachmentPreviews"`
}

// Options configures a Tracker.
type Options struct {
	GuestID  func() string
	Resolver *attachment.Resolver
	Loader   *attachment.Loader
	History  *store.TicketHistoryStore
	Emitter  *events.Emitter
	Logger   *zap.Logger
	Now      func() time.Time
}

// Tracker serves the tracking views of one visitor.
type Tracker struct {
	backend Backend
	ledger  Ledger
	opts    Options
	logger  *zap.Logger

	mu      sync.Mutex
	actions map[string]RatingAction
}

// NewTracker builds a tracker recording ratings in ledger.
func NewTracker(client Backend, ledger Ledger, opts Options) *Tracker {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.GuestID == nil {
		opts.GuestID = func() string { return "" }
	}
	return &Tracker{
		backend: client,
		ledger:  ledger,
		opts:    opts,
		logger:  opts.Logger,
		actions: make(map[string]RatingAction),
	}
}

// Track fetches the ticket with code and records a VIEWED interaction on a best-effort basis.
func (t *Tracker) Track(ctx context.Context, code string) (Detail, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Detail{}, ErrInvalidCode
	}
	guestID := t.opts.GuestID()
	tracked, err := t.backend.TrackTicket(ctx, code, guestID)
	if err != nil {
		return Detail{}, err
	}

	if _, err := t.backend.RecordInteraction(ctx, domain.InteractionViewed, tracked.Ticket.ID, guestID); err != nil {
		t.logger.Debug("record viewed interaction failed", zap.String("ticket_id", tracked.Ticket.ID), zap.Error(err))
	}

	rated := tracked.IsRated
	if !rated {
		rated, err = t.ledger.HasRated(ctx, tracked.Ticket.ID)
		if err != nil {
			t.logger.Warn("rating ledger unavailable", zap.Error(err))
		}
	}

	detail := Detail{
		TicketID:    tracked.Ticket.ID,
		Code:        tracked.Ticket.Code,
		Subject:     tracked.Ticket.Subject,
		Description: tracked.Ticket.Description,
		Status:      tracked.Ticket.Status,
		CreatedAt:   tracked.Ticket.CreatedAt,
		UpdatedAt:   tracked.Ticket.UpdatedAt,
		Answers:     tracked.Answers,
		Attachments: t.attachmentRefs(ctx, tracked.FileHubAttachments),
		Rating:      ratingAction(len(tracked.Answers) > 0, rated),
	}
	if detail.Answers == nil {
		detail.Answers = []domain.TicketAnswer{}
	}
	t.offer(detail.TicketID, detail.Rating)
	return detail, nil
}

// Rate records the guest's rating of ticketID once, then a RATED interaction on
// a best-effort basis. Only tickets Track or History showed with an answer can be
// rated; anything else returns ErrNotRateable and a repeated attempt returns
// ErrAlreadyRated, both without calling the backend.
func (t *Tracker) Rate(ctx context.Context, ticketID string, rating domain.Rating) error {
	if rating != domain.RatingSatisfied && rating != domain.RatingDissatisfied {
		return &trackingError{"tracking: unknown rating " + string(rating), "errors.invalid_state"}
	}
	switch t.action(ticketID) {
	case RatingThanked:
		return ErrAlreadyRated
	case RatingOffered:
	default:
		return ErrNotRateable
	}
	reserved, err := t.ledger.MarkRated(ctx, ticketID, rating)
	if err != nil {
		return err
	}
	if !reserved {
		return ErrAlreadyRated
	}

	if err := t.backend.RecordTicketRating(ctx, ticketID, rating, t.opts.GuestID()); err != nil {
		if uerr := t.ledger.Unmark(ctx, ticketID); uerr != nil {
			t.logger.Warn("rating ledger rollback failed", zap.String("ticket_id", ticketID), zap.Error(uerr))
		}
		return err
	}

	if _, err := t.backend.RecordInteraction(ctx, domain.InteractionRated, ticketID, t.opts.GuestID()); err != nil {
		t.logger.Debug("record rated interaction failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	t.offer(ticketID, RatingThanked)
	if t.opts.History != nil {
		t.opts.History.MarkRated(ticketID)
	}
	if err := t.opts.Emitter.Emit(ctx, events.EventTicketRated, ticketID, events.TicketRatedPayload{Rating: rating}); err != nil {
		t.logger.Warn("rating event failed", zap.Error(err))
	}
	return nil
}

// History lists the tickets filed with phone, with attachment previews.
func (t *Tracker) History(ctx context.Context, phone string) ([]HistoryItem, error) {
	phone = strings.TrimSpace(phone)
	if !domain.ValidPhone(phone) {
		return nil, ErrInvalidPhone
	}

	history, err := t.backend.TicketHistory(ctx, phone)
	if err != nil {
		return nil, err
	}
	if t.opts.History != nil {
		t.opts.History.Set(phone, history)
	}

	var all []string
	for _, tokens := range history.Attachments {
		all = append(all, tokens...)
	}
	if t.opts.Loader != nil && len(all) > 0 {
		t.opts.Loader.Load(ctx, all)
	}

	items := make([]HistoryItem, 0, len(history.Tickets))
	for _, ticket := range history.Tickets {
		rated := ticket.IsRated
		if !rated {
			rated, _ = t.ledger.HasRated(ctx, ticket.ID)
		}
		item := HistoryItem{
			TicketHistoryItem: ticket,
			Rating:            ratingAction(ticket.Answer != nil && *ticket.Answer != "", rated),
			Attachments:       []attachment.Preview{},
		}
		if t.opts.Loader != nil {
			item.Attachments = t.opts.Loader.Previews(ctx, history.Attachments[ticket.ID])
		}
		t.offer(ticket.ID, item.Rating)
		items = append(items, item)
	}
	return items, nil
}

func (t *Tracker) attachmentRefs(ctx context.Context, files []domain.FileHubAttachment) []AttachmentRef {
	now := t.opts.Now()
	refs := make([]AttachmentRef, 0, len(files))
	for _, f := range files {
		ref := AttachmentRef{
			ID:          f.ID,
			Name:        f.OriginalName,
			FileType:    f.FileType,
			Kind:        kindFromFileType(f.FileType),
			Size:        attachment.FormatSize(f.Size),
			SizeInBytes: f.Size,
			URL:         f.SignedURL,
			Expired:     f.ExpirationDate != nil && f.ExpirationDate.Before(now),
		}
		if ref.URL == "" && t.opts.Resolver != nil {
			ref.URL = t.opts.Resolver.Resolve(ctx, f.ID).URL
		}
		refs = append(refs, ref)
	}
	return refs
}

// kindFromFileType maps a file extension to a preview kind.
func kindFromFileType(ext string) attachment.Kind {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png", "jpg", "jpeg", "gif", "webp", "svg", "bmp":
		return attachment.KindImage
	case "mp4", "webm", "mov", "avi", "mkv":
		return attachment.KindVideo
	case "mp3", "wav", "ogg", "m4a", "flac":
		return attachment.KindAudio
	case "pdf":
		return attachment.KindPDF
	}
	return attachment.KindOther
}

func (t *Tracker) offer(ticketID string, action RatingAction) {
	t.mu.Lock()
	t.actions[ticketID] = action
	t.mu.Unlock()
}

func (t *Tracker) action(ticketID string) RatingAction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.actions[ticketID]
}

func ratingAction(answered, rated bool) RatingAction {
	switch {
	case rated:
		return RatingThanked
	case answered:
		return RatingOffered
	}
	return RatingNone
}
