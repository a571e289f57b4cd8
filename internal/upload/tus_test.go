package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-portal/internal/domain"
)

type tusUpload struct {
	length int64
	meta   map[string]string
	data   bytes.Buffer
}

// fakeTUS is a minimal in-memory TUS server. failAfter, when set, makes the
// PATCH that would cross that many stored bytes fail with 500.
type fakeTUS struct {
	mu        sync.Mutex
	uploads   map[string]*tusUpload
	next      int
	patches   int
	failAfter int64
}

func newFakeTUS(t *testing.T) (*fakeTUS, *httptest.Server) {
	t.Helper()
	f := &fakeTUS{uploads: make(map[string]*tusUpload)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeTUS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Tus-Resumable") != "1.0.0" {
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		length, err := strconv.ParseInt(r.Header.Get("Upload-Length"), 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		meta, err := DecodeMetadata(r.Header.Get("Upload-Metadata"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.next++
		id := fmt.Sprintf("u%d", f.next)
		f.uploads[id] = &tusUpload{length: length, meta: meta}
		w.Header().Set("Location", "/files/"+id)
		w.WriteHeader(http.StatusCreated)
	case http.MethodHead:
		up, ok := f.uploads[strings.TrimPrefix(r.URL.Path, "/files/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Upload-Offset", strconv.Itoa(up.data.Len()))
		w.WriteHeader(http.StatusOK)
	case http.MethodPatch:
		up, ok := f.uploads[strings.TrimPrefix(r.URL.Path, "/files/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		offset, _ := strconv.ParseInt(r.Header.Get("Upload-Offset"), 10, 64)
		if offset != int64(up.data.Len()) {
			w.WriteHeader(http.StatusConflict)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if f.failAfter > 0 && offset+int64(len(body)) > f.failAfter {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.patches++
		up.data.Write(body)
		w.Header().Set("Upload-Offset", strconv.Itoa(up.data.Len()))
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func pending(name, content string) domain.PendingAttachment {
	return domain.PendingAttachment{
		Name:        name,
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Content:     strings.NewReader(content),
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	header := EncodeMetadata(map[string]string{"uploadKey": "k-1", "filename": "ä b.txt"})
	assert.True(t, strings.HasPrefix(header, "filename "))

	meta, err := DecodeMetadata(header)
	require.NoError(t, err)
	assert.Equal(t, "ä b.txt", meta["filename"])
	assert.Equal(t, "k-1", meta["uploadKey"])
}

func TestUploadInChunks(t *testing.T) {
	server, srv := newFakeTUS(t)
	c, err := NewTUSClient(srv.URL+"/files/", 4, nil, nil)
	require.NoError(t, err)

	location, err := c.Upload(context.Background(), pending("notes.txt", "hello, tus!"), map[string]string{"uploadKey": "k-1"})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/files/u1", location)

	up := server.uploads["u1"]
	assert.Equal(t, "hello, tus!", up.data.String())
	assert.Equal(t, "k-1", up.meta["uploadKey"])
	assert.Equal(t, 3, server.patches)
}

func TestResumeContinuesFromServerOffset(t *testing.T) {
	server, srv := newFakeTUS(t)
	server.failAfter = 8
	c, err := NewTUSClient(srv.URL+"/files/", 4, nil, nil)
	require.NoError(t, err)

	file := pending("notes.txt", "0123456789AB")
	location, err := c.Upload(context.Background(), file, nil)
	require.Error(t, err)
	require.NotEmpty(t, location)

	offset, err := c.Offset(context.Background(), location)
	require.NoError(t, err)
	assert.EqualValues(t, 8, offset)

	server.mu.Lock()
	server.failAfter = 0
	server.mu.Unlock()
	require.NoError(t, c.Resume(context.Background(), location, file))
	assert.Equal(t, "0123456789AB", server.uploads["u1"].data.String())
}

type fakeUploader struct {
	mu    sync.Mutex
	calls []map[string]string
	fail  map[string]error
}

func (f *fakeUploader) Upload(_ context.Context, file domain.PendingAttachment, meta map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, meta)
	if err := f.fail[file.Name]; err != nil {
		return "", err
	}
	return "/files/" + file.Name, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	ok, fail int
}

func (c *countingRecorder) RecordUpload(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.ok++
	} else {
		c.fail++
	}
}

func TestUploadAllReportsEveryFile(t *testing.T) {
	up := &fakeUploader{fail: map[string]error{"b.txt": errors.New("disk full")}}
	rec := &countingRecorder{}
	h := NewHandoff(up, 2, nil, rec)

	report := h.UploadAll(context.Background(), "key-9", []domain.PendingAttachment{
		pending("a.txt", "a"), pending("b.txt", "b"), pending("c.txt", "c"),
	})

	require.Len(t, report.Files, 3)
	assert.Equal(t, []string{"a.txt", "c.txt"}, report.Succeeded())
	assert.Equal(t, []string{"b.txt"}, report.Failed())
	assert.Equal(t, "disk full", report.Files[1].Error)
	assert.False(t, report.OK())
	assert.Len(t, up.calls, 3)
	for _, meta := range up.calls {
		assert.Equal(t, "key-9", meta[MetaUploadKey])
	}
	assert.Equal(t, 2, rec.ok)
	assert.Equal(t, 1, rec.fail)
}

func TestUploadAllAgainstTUSServer(t *testing.T) {
	server, srv := newFakeTUS(t)
	c, err := NewTUSClient(srv.URL+"/files/", 1024, nil, nil)
	require.NoError(t, err)

	report := NewHandoff(c, 3, nil, nil).UploadAll(context.Background(), "key-1", []domain.PendingAttachment{
		pending("one.txt", "first"), pending("two.txt", "second"),
	})
	require.True(t, report.OK())
	assert.Len(t, server.uploads, 2)
}
