package ticket

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-portal/internal/backend"
	"github.com/spec-kit/support-portal/internal/domain"
	"github.com/spec-kit/support-portal/internal/events"
	"github.com/spec-kit/support-portal/internal/locale"
	"github.com/spec-kit/support-portal/internal/store"
	"github.com/spec-kit/support-portal/internal/upload"
	apperrors "github.com/spec-kit/support-portal/pkg/util/errorutil"
)

type fakeBackend struct {
	creates    atomic.Int32
	verifies   atomic.Int32
	createErr  error
	lastCreate backend.CreateTicketRequest
	// verifyFn answers each verify call; nil means success with an upload key.
	verifyFn func(ctx context.Context, in backend.VerifyTicketRequest) (backend.VerifyTicketResponse, error)
}

func (f *fakeBackend) CreateTicket(_ context.Context, in backend.CreateTicketRequest) (backend.CreateTicketResponse, error) {
	f.creates.Add(1)
	f.lastCreate = in
	if f.createErr != nil {
		return backend.CreateTicketResponse{}, f.createErr
	}
	return backend.CreateTicketResponse{TicketID: "t-1", VerificationEmailSent: true}, nil
}

func (f *fakeBackend) VerifyTicket(ctx context.Context, in backend.VerifyTicketRequest) (backend.VerifyTicketResponse, error) {
	f.verifies.Add(1)
	if f.verifyFn != nil {
		return f.verifyFn(ctx, in)
	}
	return verified("key-1"), nil
}

func verified(key string) backend.VerifyTicketResponse {
	return backend.VerifyTicketResponse{
		Ticket:           domain.Ticket{ID: "t-1", Code: "TCK-001", Subject: "Printer on fire", Status: domain.TicketStatusOpen},
		FileHubUploadKey: key,
	}
}

type fakeUploader struct {
	mu           sync.Mutex
	calls        int
	files        []string
	key          string
	verifiedSeen bool
	verification *store.VerificationStore
}

func (u *fakeUploader) UploadAll(_ context.Context, key string, files []domain.PendingAttachment) upload.Report {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	u.key = key
	u.verifiedSeen = u.verification.Snapshot().IsVerified
	report := upload.Report{}
	for _, f := range files {
		u.files = append(u.files, f.Name)
		report.Files = append(report.Files, upload.FileResult{Name: f.Name, Size: f.Size})
	}
	return report
}

func validForm() Form {
	return Form{
		MainCategory: "dep-1",
		Subject:      "Printer on fire",
		Description:  "The office printer is on fire again, please advise.",
		GuestName:    "Ada Lovelace",
		GuestPhone:   "+49 30 1234567",
		GuestEmail:   "ada@example.com",
	}
}

func file(name string) domain.PendingAttachment {
	return domain.PendingAttachment{Name: name, ContentType: "text/plain", Size: 3, Content: strings.NewReader("abc")}
}

func newLifecycle(t *testing.T, fb *fakeBackend, withUploader bool) (*Lifecycle, Stores, *fakeUploader) {
	t.Helper()
	stores := Stores{
		Verification: store.NewVerificationStore(),
		Pending:      store.NewPendingAttachmentStore(),
		Submitted:    store.NewSubmittedTicketStore(),
	}
	up := &fakeUploader{verification: stores.Verification}
	var uploader Uploader
	if withUploader {
		uploader = up
	}
	l := NewLifecycle(fb, uploader, stores, locale.MustLoad("en").Printer("en"), Options{})
	return l, stores, up
}

func TestSubmitValidatesBeforeNetwork(t *testing.T) {
	fb := &fakeBackend{}
	l, _, _ := newLifecycle(t, fb, true)

	form := validForm()
	form.Subject = "Hi"
	form.GuestPhone = "call me maybe"
	form.GuestEmail = "not-an-email"

	_, err := l.Submit(context.Background(), form)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	rules := map[string]string{}
	for _, f := range verr.Fields {
		rules[f.Field] = f.Rule
	}
	assert.Equal(t, "min", rules["subject"])
	assert.Equal(t, "phone", rules["guestPhone"])
	assert.Equal(t, "email", rules["guestEmail"])
	assert.Zero(t, fb.creates.Load())
	assert.Equal(t, StateIdle, l.State())
	assert.Equal(t, "Hi", l.Snapshot().Form.Subject)
}

func TestSubmitUsesSubDepartment(t *testing.T) {
	fb := &fakeBackend{}
	l, stores, _ := newLifecycle(t, fb, true)
	require.NoError(t, l.Stage(file("a.txt")))

	form := validForm()
	form.SubDepartment = "dep-1-sub"
	res, err := l.Submit(context.Background(), form)
	require.NoError(t, err)

	assert.Equal(t, "t-1", res.TicketID)
	assert.Equal(t, "dep-1-sub", fb.lastCreate.DepartmentID)
	assert.True(t, fb.lastCreate.Attach)
	assert.Equal(t, StateAwaitingVerification, l.State())
	assert.Equal(t, "ada@example.com", stores.Verification.Snapshot().GuestEmail)
	assert.Equal(t, 1, stores.Pending.Len())
}

func TestSubmitFailureKeepsForm(t *testing.T) {
	fb := &fakeBackend{createErr: apperrors.NewUpstreamError(http.StatusConflict, "", "", map[string]any{"guestEmail": apperrors.ReasonAlreadyExists})}
	l, _, _ := newLifecycle(t, fb, true)

	_, err := l.Submit(context.Background(), validForm())
	require.Error(t, err)

	snap := l.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, "A guest with this email already exists.", snap.Error)
	assert.Equal(t, validForm(), snap.Form)

	fb.createErr = nil
	_, err = l.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.EqualValues(t, 2, fb.creates.Load())
}

func TestAttachmentsOnlyUploadAfterVerification(t *testing.T) {
	attempts := 0
	fb := &fakeBackend{verifyFn: func(_ context.Context, in backend.VerifyTicketRequest) (backend.VerifyTicketResponse, error) {
		attempts++
		if attempts == 1 {
			return backend.VerifyTicketResponse{}, apperrors.NewUpstreamError(http.StatusBadRequest, "", "", map[string]any{"code": apperrors.ReasonCodeIncorrect})
		}
		assert.Equal(t, "t-1", in.TicketID)
		return verified("key-9"), nil
	}}
	l, stores, up := newLifecycle(t, fb, true)
	require.NoError(t, l.Stage(file("a.txt")))
	require.NoError(t, l.Stage(file("b.txt")))

	_, err := l.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Zero(t, up.calls)

	_, err = l.SubmitCode(context.Background(), "111111")
	require.Error(t, err)
	assert.Zero(t, up.calls)
	assert.Equal(t, StateAwaitingVerification, l.State())
	snap := stores.Verification.Snapshot()
	assert.Equal(t, "The verification code is incorrect.", snap.Error)
	assert.Equal(t, "111111", snap.Code)
	assert.False(t, snap.IsVerified)

	res, err := l.SubmitCode(context.Background(), "222222")
	require.NoError(t, err)

	assert.Equal(t, 1, up.calls)
	assert.True(t, up.verifiedSeen)
	assert.Equal(t, "key-9", up.key)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, up.files)
	assert.True(t, res.Upload.OK())
	assert.Equal(t, StateVerified, l.State())
	assert.Zero(t, stores.Pending.Len())
	assert.EqualValues(t, 1, fb.creates.Load())

	submitted, ok := stores.Submitted.Get()
	require.True(t, ok)
	assert.Equal(t, "TCK-001", submitted.TicketID)
}

func TestSingleFlightVerification(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	fb := &fakeBackend{verifyFn: func(context.Context, backend.VerifyTicketRequest) (backend.VerifyTicketResponse, error) {
		close(entered)
		<-release
		return verified("key-1"), nil
	}}
	l, _, _ := newLifecycle(t, fb, true)
	_, err := l.Submit(context.Background(), validForm())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := l.SubmitCode(context.Background(), "123456")
		done <- err
	}()
	<-entered

	_, err = l.SubmitCode(context.Background(), "123456")
	assert.ErrorIs(t, err, ErrVerificationInFlight)
	assert.Equal(t, StateVerifying, l.State())

	close(release)
	require.NoError(t, <-done)
	assert.EqualValues(t, 1, fb.verifies.Load())
}

func TestCodeFormatValidated(t *testing.T) {
	fb := &fakeBackend{}
	l, _, _ := newLifecycle(t, fb, true)
	_, err := l.Submit(context.Background(), validForm())
	require.NoError(t, err)

	for _, code := range []string{"12345", "1234567", "12a456", ""} {
		_, err := l.SubmitCode(context.Background(), code)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "code %q", code)
	}
	assert.Zero(t, fb.verifies.Load())
	assert.Equal(t, StateAwaitingVerification, l.State())
}

func TestMissingUploadKeyIsReported(t *testing.T) {
	fb := &fakeBackend{verifyFn: func(context.Context, backend.VerifyTicketRequest) (backend.VerifyTicketResponse, error) {
		return verified(""), nil
	}}
	dispatcher := events.NewInMemoryDispatcher()
	var skipped []string
	dispatcher.Subscribe(events.EventAttachmentsSkipped, func(_ context.Context, e events.Event) error {
		skipped = e.Payload.(events.AttachmentsSkippedPayload).Files
		return nil
	})

	stores := Stores{Verification: store.NewVerificationStore(), Pending: store.NewPendingAttachmentStore(), Submitted: store.NewSubmittedTicketStore()}
	up := &fakeUploader{verification: stores.Verification}
	l := NewLifecycle(fb, up, stores, locale.MustLoad("en").Printer("en"), Options{Emitter: events.NewEmitter(dispatcher, "s-1")})
	require.NoError(t, l.Stage(file("a.txt")))

	_, err := l.Submit(context.Background(), validForm())
	require.NoError(t, err)
	res, err := l.SubmitCode(context.Background(), "123456")
	require.NoError(t, err)

	assert.True(t, res.Upload.Skipped)
	assert.ErrorIs(t, res.Upload.Files[0].Err, ErrNoUploadKey)
	assert.Equal(t, []string{"a.txt"}, skipped)
	assert.Zero(t, up.calls)
	assert.Zero(t, stores.Pending.Len())
}

func TestCancelDiscardsSession(t *testing.T) {
	fb := &fakeBackend{}
	l, stores, up := newLifecycle(t, fb, true)
	require.NoError(t, l.Stage(file("a.txt")))
	_, err := l.Submit(context.Background(), validForm())
	require.NoError(t, err)

	l.Cancel()
	assert.Equal(t, StateIdle, l.State())
	assert.Equal(t, domain.VerificationSession{}, stores.Verification.Snapshot())
	assert.Zero(t, stores.Pending.Len())

	_, err = l.SubmitCode(context.Background(), "123456")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Zero(t, up.calls)
}

func TestCancelDuringVerifyDropsResult(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	fb := &fakeBackend{verifyFn: func(context.Context, backend.VerifyTicketRequest) (backend.VerifyTicketResponse, error) {
		close(entered)
		<-release
		return verified("key-1"), nil
	}}
	l, _, up := newLifecycle(t, fb, true)
	require.NoError(t, l.Stage(file("a.txt")))
	_, err := l.Submit(context.Background(), validForm())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := l.SubmitCode(context.Background(), "123456")
		done <- err
	}()
	<-entered
	l.Cancel()
	close(release)

	assert.ErrorIs(t, <-done, ErrCancelled)
	assert.Equal(t, StateIdle, l.State())
	assert.Zero(t, up.calls)
}

func TestCallTimeout(t *testing.T) {
	fb := &fakeBackend{verifyFn: func(ctx context.Context, _ backend.VerifyTicketRequest) (backend.VerifyTicketResponse, error) {
		<-ctx.Done()
		return backend.VerifyTicketResponse{}, apperrors.NewUnavailable(ctx.Err())
	}}
	stores := Stores{}
	l := NewLifecycle(fb, nil, stores, locale.MustLoad("en").Printer("en"), Options{CallTimeout: 10 * time.Millisecond})
	_, err := l.Submit(context.Background(), validForm())
	require.NoError(t, err)

	_, err = l.SubmitCode(context.Background(), "123456")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, StateAwaitingVerification, l.State())
	assert.Equal(t, "The server took too long to respond. Please try again.", l.Snapshot().Error)
}

func TestNoUploaderReportsSkipped(t *testing.T) {
	fb := &fakeBackend{}
	l, _, _ := newLifecycle(t, fb, false)
	require.NoError(t, l.Stage(file("a.txt")))
	_, err := l.Submit(context.Background(), validForm())
	require.NoError(t, err)

	res, err := l.SubmitCode(context.Background(), "123456")
	require.NoError(t, err)
	assert.True(t, res.Upload.Skipped)
	assert.ErrorIs(t, res.Upload.Files[0].Err, ErrUploadUnavailable)
}

type cancellingUploader struct {
	lifecycle *Lifecycle
	calls     int
}

func (u *cancellingUploader) UploadAll(_ context.Context, _ string, files []domain.PendingAttachment) upload.Report {
	u.calls++
	u.lifecycle.Cancel()
	report := upload.Report{}
	for _, f := range files {
		report.Files = append(report.Files, upload.FileResult{Name: f.Name, Size: f.Size})
	}
	return report
}

func TestCancelDuringUploadDropsResult(t *testing.T) {
	fb := &fakeBackend{}
	stores := Stores{Verification: store.NewVerificationStore(), Pending: store.NewPendingAttachmentStore(), Submitted: store.NewSubmittedTicketStore()}
	up := &cancellingUploader{}
	l := NewLifecycle(fb, up, stores, locale.MustLoad("en").Printer("en"), Options{})
	up.lifecycle = l

	require.NoError(t, l.Stage(file("a.txt")))
	_, err := l.Submit(context.Background(), validForm())
	require.NoError(t, err)

	_, err = l.SubmitCode(context.Background(), "123456")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 1, up.calls)

	snap := l.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Submitted)
	assert.Nil(t, snap.LastUpload)
	assert.Equal(t, domain.VerificationSession{}, stores.Verification.Snapshot())

	_, err = l.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingVerification, l.State())
}

func TestStageOnlyBeforeSubmit(t *testing.T) {
	fb := &fakeBackend{}
	l, stores, _ := newLifecycle(t, fb, true)
	require.NoError(t, l.Stage(file("a.txt")))

	_, err := l.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, fb.lastCreate.ChooseAttachments)

	assert.ErrorIs(t, l.Stage(file("b.txt")), ErrInvalidState)
	assert.Equal(t, 1, stores.Pending.Len())

	l.Cancel()
	assert.NoError(t, l.Stage(file("b.txt")))
}
