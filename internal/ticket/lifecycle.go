// Package ticket runs the create, verify and upload flow of a support ticket.
//
// Attachments are staged locally and only handed to the upload subsystem once
// the backend has verified the guest's email code and issued an upload key.
package ticket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/backend"
	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/events"
	"github.com/spec-kit/support-portal/internal/store"
	"github.com/spec-kit/support-portal/internal/upload"
)

// State is the lifecycle position of the current submission.
type State string

const (
	StateIdle                 State = "idle"
	StateSubmitting           State = "submitting"
	StateAwaitingVerification State = "awaiting_verification"
	StateVerifying            State = "verifying"
	StateVerified             State = "verified"
)

type flowError struct {
	msg string
	key string
}

func (e *flowError) Error() string      { return e.msg }
func (e *flowError) MessageKey() string { return e.key }

var (
	// ErrVerificationInFlight rejects a code while another is being checked.
	ErrVerificationInFlight error = &flowError{"ticket: verification already in flight", "errors.verification_in_flight"}
	// ErrInvalidState rejects an operation the current state does not allow.
	ErrInvalidState error = &flowError{"ticket: operation not allowed in current state", "errors.invalid_state"}
	// ErrCancelled is returned when the flow was cancelled while a call was pending.
	ErrCancelled error = &flowError{"ticket: flow cancelled", "errors.invalid_state"}
	// ErrNoUploadKey marks files skipped because verification issued no upload key.
	ErrNoUploadKey = errors.New("ticket: no upload key issued")
	// ErrUploadUnavailable marks files skipped because no upload server is configured.
	ErrUploadUnavailable = errors.New("ticket: upload server not configured")
)

// Backend is the part of the support backend the lifecycle calls.
type Backend interface {
	CreateTicket(ctx context.Context, in backend.CreateTicketRequest) (backend.CreateTicketResponse, error)
	VerifyTicket(ctx context.Context, in backend.VerifyTicketRequest) (backend.VerifyTicketResponse, error)
}

// Uploader hands verified attachments to the upload server.
type Uploader interface {
	UploadAll(ctx context.Context, uploadKey string, files []domain.PendingAttachment) upload.Report
}

// Messages localizes UI strings.
type Messages interface {
	T(key string, pairs ...string) string
	Describe(err error) string
}

// Stores are the state containers the lifecycle writes to.
type Stores struct {
	Verification *store.VerificationStore
	Pending      *store.PendingAttachmentStore
	Submitted    *store.SubmittedTicketStore
}

// Options configures a Lifecycle.
type Options struct {
	CallTimeout time.Duration
	Logger      *zap.Logger
	Emitter     *events.Emitter
}

// SubmitResult is returned once a ticket awaits verification.
type SubmitResult struct {
	TicketID              string `json:"ticketId"`
	Message               string `json:"message"`
	VerificationEmailSent bool   `json:"verificationEmailSent"`
}

// VerifyResult is returned once a ticket is verified.
type VerifyResult struct {
	Ticket  domain.VerifiedTicket `json:"ticket"`
	Message string                `json:"message"`
	Upload  upload.Report         `json:"upload"`
}

// Snapshot is a consistent view of the flow.
type Snapshot struct {
	State        State                      `json:"state"`
	Form         Form                       `json:"form"`
	Error        string                     `json:"error,omitempty"`
	Verification domain.VerificationSession `json:"verification"`
	Pending      []string                   `json:"pendingAttachments"`
	Submitted    *domain.SubmittedTicket    `json:"submitted,omitempty"`
	LastUpload   *upload.Report             `json:"lastUpload,omitempty"`
}

// Lifecycle is the single writer of one visitor's verification session.
type Lifecycle struct {
	backend  Backend
	uploader Uploader
	stores   Stores
	messages Messages
	validate *validator.Validate
	opts     Options
	logger   *zap.Logger

	mu         sync.Mutex
	state      State
	gen        uint64
	form       Form
	lastErr    string
	lastUpload *upload.Report
}

// NewLifecycle builds a lifecycle in the Idle state. uploader may be nil when
// no upload server is configured; staged files are then reported as skipped.
func NewLifecycle(client Backend, uploader Uploader, stores Stores, messages Messages, opts Options) *Lifecycle {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if stores.Verification == nil {
		stores.Verification = store.NewVerificationStore()
	}
	if stores.Pending == nil {
		stores.Pending = store.NewPendingAttachmentStore()
	}
	if stores.Submitted == nil {
		stores.Submitted = store.NewSubmittedTicketStore()
	}
	return &Lifecycle{
		backend:  client,
		uploader: uploader,
		stores:   stores,
		messages: messages,
		validate: newValidator(),
		opts:     opts,
		logger:   opts.Logger,
		state:    StateIdle,
	}
}

// Submit validates form and creates the ticket. Invalid input returns a
// *ValidationError and sends nothing. On a backend failure the state returns to
// Idle and the form is kept for resubmission.
func (l *Lifecycle) Submit(ctx context.Context, form Form) (SubmitResult, error) {
	form = form.normalized()

	l.mu.Lock()
	if l.state != StateIdle {
		l.mu.Unlock()
		return SubmitResult{}, ErrInvalidState
	}
	l.form = form
	if err := validate(l.validate, form); err != nil {
		l.lastErr = ""
		l.mu.Unlock()
		return SubmitResult{}, err
	}
	l.state = StateSubmitting
	l.lastErr = ""
	gen := l.gen
	l.mu.Unlock()

	pending := l.stores.Pending.List()
	names := make([]string, 0, len(pending))
	for _, p := range pending {
		names = append(names, p.Name)
	}

	callCtx, cancel := l.callContext(ctx)
	resp, err := l.backend.CreateTicket(callCtx, backend.CreateTicketRequest{
		Subject:           form.Subject,
		Description:       form.Description,
		DepartmentID:      form.DepartmentID(),
		GuestName:         form.GuestName,
		GuestPhone:        form.GuestPhone,
		GuestEmail:        form.GuestEmail,
		Attach:            len(pending) > 0,
		ChooseAttachments: names,
	})
	cancel()

	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		return SubmitResult{}, ErrCancelled
	}
	if err != nil {
		l.state = StateIdle
		l.lastErr = l.messages.Describe(err)
		l.mu.Unlock()
		l.logger.Warn("ticket create failed", zap.Error(err))
		return SubmitResult{}, err
	}
	l.state = StateAwaitingVerification
	l.stores.Verification.Begin(resp.TicketID, form.GuestEmail)
	l.mu.Unlock()

	l.emit(ctx, events.EventTicketSubmitted, resp.TicketID, events.TicketSubmittedPayload{
		DepartmentID:          form.DepartmentID(),
		PendingAttachments:    len(pending),
		VerificationEmailSent: resp.VerificationEmailSent,
	})
	l.logger.Info("ticket awaiting verification", zap.String("ticket_id", resp.TicketID))

	msg := resp.Message
	if msg == "" {
		msg = l.messages.T("ui.ticket_submitted", "email", form.GuestEmail)
	}
	return SubmitResult{TicketID: resp.TicketID, Message: msg, VerificationEmailSent: resp.VerificationEmailSent}, nil
}

// SubmitCode verifies the ticket with the emailed code. Only one attempt runs at
// a time; a wrong code returns to AwaitingVerification with the same ticket and
// the code left in place. On success staged files are uploaded exactly once.
func (l *Lifecycle) SubmitCode(ctx context.Context, code string) (VerifyResult, error) {
	l.mu.Lock()
	switch l.state {
	case StateVerifying:
		l.mu.Unlock()
		return VerifyResult{}, ErrVerificationInFlight
	case StateAwaitingVerification:
	default:
		l.mu.Unlock()
		return VerifyResult{}, ErrInvalidState
	}
	if err := validate(l.validate, codeInput{Code: code}); err != nil {
		l.mu.Unlock()
		return VerifyResult{}, err
	}
	l.state = StateVerifying
	gen := l.gen
	session := l.stores.Verification.Snapshot()
	l.stores.Verification.SetCode(code)
	l.stores.Verification.SetError("")
	l.stores.Verification.SetVerifying(true)
	l.mu.Unlock()

	callCtx, cancel := l.callContext(ctx)
	resp, err := l.backend.VerifyTicket(callCtx, backend.VerifyTicketRequest{Code: code, TicketID: session.TicketID})
	cancel()

	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		return VerifyResult{}, ErrCancelled
	}
	if err != nil {
		l.state = StateAwaitingVerification
		msg := l.messages.Describe(err)
		l.lastErr = msg
		l.stores.Verification.SetError(msg)
		l.stores.Verification.SetVerifying(false)
		l.mu.Unlock()

		l.emit(ctx, events.EventVerificationFailed, session.TicketID, events.VerificationFailedPayload{Reason: msg})
		l.logger.Info("ticket verification failed", zap.String("ticket_id", session.TicketID), zap.Error(err))
		return VerifyResult{}, err
	}
	verified := domain.VerifiedTicket{
		TicketID:   resp.Ticket.ID,
		Code:       resp.Ticket.Code,
		Subject:    resp.Ticket.Subject,
		Status:     resp.Ticket.Status,
		GuestName:  resp.Ticket.GuestName,
		GuestPhone: resp.Ticket.GuestPhone,
		GuestEmail: resp.Ticket.GuestEmail,
	}
	if verified.TicketID == "" {
		verified.TicketID = session.TicketID
	}
	// Cancel resets the stores under l.mu, so these writes land before its reset or not at all.
	l.lastErr = ""
	l.stores.Verification.SetVerifiedTicket(&verified)
	l.stores.Verification.SetVerified(true)
	l.mu.Unlock()

	report := l.handoff(ctx, verified.TicketID, resp.Key())

	message := l.messages.T("ui.ticket_verified")
	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		l.logger.Info("ticket flow cancelled during upload", zap.String("ticket_id", verified.TicketID))
		return VerifyResult{}, ErrCancelled
	}
	l.state = StateVerified
	l.lastUpload = &report
	l.stores.Submitted.Set(domain.SubmittedTicket{
		Message:               message,
		TicketID:              verified.Code,
		VerificationEmailSent: true,
	})
	l.stores.Verification.SetVerifying(false)
	l.mu.Unlock()

	l.emit(ctx, events.EventTicketVerified, verified.TicketID, events.TicketVerifiedPayload{
		Code:      verified.Code,
		Status:    verified.Status,
		UploadKey: resp.Key() != "",
	})
	return VerifyResult{Ticket: verified, Message: message, Upload: report}, nil
}

// handoff takes the staged files and uploads them under key. It must only run
// after the verification store reports the ticket verified.
func (l *Lifecycle) handoff(ctx context.Context, ticketID, key string) upload.Report {
	files := l.stores.Pending.Take()
	if len(files) == 0 {
		return upload.Report{}
	}

	var reason error
	switch {
	case key == "":
		reason = ErrNoUploadKey
	case l.uploader == nil:
		reason = ErrUploadUnavailable
	}
	if reason != nil {
		report := upload.Report{Skipped: true, Files: make([]upload.FileResult, 0, len(files))}
		names := make([]string, 0, len(files))
		for _, f := range files {
			report.Files = append(report.Files, upload.FileResult{Name: f.Name, Size: f.Size, Err: reason, Error: reason.Error()})
			names = append(names, f.Name)
		}
		l.logger.Warn("attachments present but not uploaded",
			zap.String("ticket_id", ticketID),
			zap.Strings("files", names),
			zap.Error(reason),
		)
		l.emit(ctx, events.EventAttachmentsSkipped, ticketID, events.AttachmentsSkippedPayload{Files: names})
		return report
	}

	report := l.uploader.UploadAll(ctx, key, files)
	l.emit(ctx, events.EventAttachmentsUploaded, ticketID, events.AttachmentsUploadedPayload{
		Succeeded: report.Succeeded(),
		Failed:    report.Failed(),
	})
	return report
}

// Cancel discards the verification session and staged files and returns to
// Idle. A call still in flight finishes with ErrCancelled and changes nothing.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	l.gen++
	l.state = StateIdle
	l.form = Form{}
	l.lastErr = ""
	l.lastUpload = nil
	l.stores.Verification.Reset()
	l.stores.Pending.Clear()
	l.stores.Submitted.Clear()
	l.mu.Unlock()
}

// Stage adds a file to send once the ticket is verified. Files can only be
// staged before the form is submitted, since the create call names them.
func (l *Lifecycle) Stage(file domain.PendingAttachment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateIdle {
		return ErrInvalidState
	}
	return l.stores.Pending.Add(file)
}

// Unstage removes a staged file by name.
func (l *Lifecycle) Unstage(name string) bool {
	return l.stores.Pending.Remove(name)
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Snapshot returns the flow state with the verification session and staged files.
func (l *Lifecycle) Snapshot() Snapshot {
	l.mu.Lock()
	snap := Snapshot{State: l.state, Form: l.form, Error: l.lastErr}
	if l.lastUpload != nil {
		report := *l.lastUpload
		snap.LastUpload = &report
	}
	l.mu.Unlock()

	snap.Verification = l.stores.Verification.Snapshot()
	for _, f := range l.stores.Pending.List() {
		snap.Pending = append(snap.Pending, f.Name)
	}
	if t, ok := l.stores.Submitted.Get(); ok {
		snap.Submitted = &t
	}
	return snap
}

func (l *Lifecycle) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, l.opts.CallTimeout)
	}
	return context.WithCancel(ctx)
}

func (l *Lifecycle) emit(ctx context.Context, eventType events.EventType, ticketID string, payload interface{}) {
	if err := l.opts.Emitter.Emit(ctx, eventType, ticketID, payload); err != nil {
		l.logger.Warn("ticket event failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}
