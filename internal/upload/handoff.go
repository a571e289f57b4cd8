package upload

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/support-portal/internal/domain"
)

// Metadata keys sent with every upload.
const (
	MetaFilename  = "filename"
	MetaFiletype  = "filetype"
	MetaUploadKey = "uploadKey"
)

// FileUploader transfers a single file.
type FileUploader interface {
	Upload(ctx context.Context, file domain.PendingAttachment, meta map[string]string) (string, error)
}

// FileResult is the outcome of one file.
type FileResult struct {
	Name     string        `json:"name"`
	Size     int64         `json:"size"`
	Location string        `json:"location,omitempty"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"durationNs"`
}

// OK reports whether the file was stored.
func (r FileResult) OK() bool {
	return r.Err == nil
}

// Report aggregates the per-file results of one handoff.
// Skipped is set when files were staged but no upload key was issued.
type Report struct {
	Files   []FileResult `json:"files"`
	Skipped bool         `json:"skipped"`
}

// Succeeded returns the names of stored files.
func (r Report) Succeeded() []string {
	var out []string
	for _, f := range r.Files {
		if f.OK() {
			out = append(out, f.Name)
		}
	}
	return out
}

// Failed returns the names of files that were not stored.
func (r Report) Failed() []string {
	var out []string
	for _, f := range r.Files {
		if !f.OK() {
			out = append(out, f.Name)
		}
	}
	return out
}

// OK reports whether every file was stored.
func (r Report) OK() bool {
	return !r.Skipped && len(r.Failed()) == 0
}

// Recorder counts upload outcomes.
type Recorder interface {
	RecordUpload(ok bool)
}

// Handoff uploads a batch of files under one upload key.
type Handoff struct {
	uploader    FileUploader
	concurrency int
	logger      *zap.Logger
	metrics     Recorder
}

// NewHandoff builds a handoff running at most concurrency uploads at once.
func NewHandoff(uploader FileUploader, concurrency int, logger *zap.Logger, metrics Recorder) *Handoff {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handoff{uploader: uploader, concurrency: concurrency, logger: logger, metrics: metrics}
}

// UploadAll transfers every file exactly once. Files are independent: a failure
// never stops the others from starting. Results keep the order of files.
func (h *Handoff) UploadAll(ctx context.Context, uploadKey string, files []domain.PendingAttachment) Report {
	report := Report{Files: make([]FileResult, len(files))}
	if len(files) == 0 {
		return report
	}

	var g errgroup.Group
	g.SetLimit(h.concurrency)
	for i, file := range files {
		g.Go(func() error {
			start := time.Now()
			location, err := h.uploader.Upload(ctx, file, map[string]string{
				MetaFilename:  file.Name,
				MetaFiletype:  file.ContentType,
				MetaUploadKey: uploadKey,
			})
			res := FileResult{Name: file.Name, Size: file.Size, Location: location, Err: err, Duration: time.Since(start)}
			if err != nil {
				res.Error = err.Error()
				h.logger.Warn("attachment upload failed", zap.String("file", file.Name), zap.Error(err))
			} else {
				h.logger.Info("attachment uploaded", zap.String("file", file.Name), zap.Int64("size", file.Size))
			}
			if h.metrics != nil {
				h.metrics.RecordUpload(err == nil)
			}
			report.Files[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return report
}
