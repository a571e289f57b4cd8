// Package upload transfers verified ticket attachments to a TUS 1.0.0 server.
package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/domain"
)

const (
	tusVersion         = "1.0.0"
	offsetContentType  = "application/offset+octet-stream"
	defaultChunkSize   = 2 * 1024 * 1024
	headerResumable    = "Tus-Resumable"
	headerUploadLength = "Upload-Length"
	headerUploadOffset = "Upload-Offset"
	headerUploadMeta   = "Upload-Metadata"
)

// ErrOffsetMismatch is returned when the server's offset disagrees with ours.
var ErrOffsetMismatch = errors.New("tus: upload offset mismatch")

// TUSClient speaks the core TUS protocol plus the creation extension.
type TUSClient struct {
	endpoint   *url.URL
	httpClient *http.Client
	chunkSize  int64
	logger     *zap.Logger
}

// NewTUSClient builds a client for the creation endpoint.
func NewTUSClient(endpoint string, chunkSize int64, httpClient *http.Client, logger *zap.Logger) (*TUSClient, error) {
	if endpoint == "" {
		return nil, errors.New("tus: endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("tus: parse endpoint: %w", err)
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TUSClient{endpoint: u, httpClient: httpClient, chunkSize: chunkSize, logger: logger}, nil
}

// EncodeMetadata renders the Upload-Metadata header with keys in sorted order.
func EncodeMetadata(meta map[string]string) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+" "+base64.StdEncoding.EncodeToString([]byte(meta[k])))
	}
	return strings.Join(pairs, ",")
}

// DecodeMetadata parses an Upload-Metadata header.
func DecodeMetadata(header string) (map[string]string, error) {
	out := make(map[string]string)
	if strings.TrimSpace(header) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(header, ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(pair), " ")
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("tus: metadata %q: %w", key, err)
		}
		out[key] = string(decoded)
	}
	return out, nil
}

// Create announces an upload of size bytes and returns its absolute location.
func (c *TUSClient) Create(ctx context.Context, size int64, meta map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set(headerResumable, tusVersion)
	req.Header.Set(headerUploadLength, strconv.FormatInt(size, 10))
	if len(meta) > 0 {
		req.Header.Set(headerUploadMeta, EncodeMetadata(meta))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tus create: %w", err)
	}
	defer drain(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("tus create: unexpected status %s", resp.Status)
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", errors.New("tus create: missing Location header")
	}
	resolved, err := c.endpoint.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("tus create: bad Location %q: %w", loc, err)
	}
	return resolved.String(), nil
}

// Offset asks the server how many bytes of location it has stored.
func (c *TUSClient) Offset(ctx context.Context, location string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, location, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set(headerResumable, tusVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("tus head: %w", err)
	}
	defer drain(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return 0, fmt.Errorf("tus head: unexpected status %s", resp.Status)
	}
	return parseOffset(resp.Header.Get(headerUploadOffset))
}

// Patch sends n bytes from body starting at offset and returns the new offset.
func (c *TUSClient) Patch(ctx context.Context, location string, offset int64, body io.Reader, n int64) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, location, body)
	if err != nil {
		return 0, err
	}
	req.ContentLength = n
	req.Header.Set(headerResumable, tusVersion)
	req.Header.Set(headerUploadOffset, strconv.FormatInt(offset, 10))
	req.Header.Set("Content-Type", offsetContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("tus patch: %w", err)
	}
	defer drain(resp.Body)
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
	case http.StatusConflict:
		return 0, ErrOffsetMismatch
	default:
		return 0, fmt.Errorf("tus patch: unexpected status %s", resp.Status)
	}
	next, err := parseOffset(resp.Header.Get(headerUploadOffset))
	if err != nil {
		return 0, err
	}
	if next != offset+n {
		return next, fmt.Errorf("%w: sent up to %d, server at %d", ErrOffsetMismatch, offset+n, next)
	}
	return next, nil
}

// Upload creates an upload for file and transfers it chunk by chunk.
func (c *TUSClient) Upload(ctx context.Context, file domain.PendingAttachment, meta map[string]string) (string, error) {
	location, err := c.Create(ctx, file.Size, meta)
	if err != nil {
		return "", err
	}
	if err := c.transfer(ctx, location, file, 0); err != nil {
		return location, err
	}
	return location, nil
}

// Resume continues an interrupted upload from the server's current offset.
func (c *TUSClient) Resume(ctx context.Context, location string, file domain.PendingAttachment) error {
	offset, err := c.Offset(ctx, location)
	if err != nil {
		return err
	}
	return c.transfer(ctx, location, file, offset)
}

func (c *TUSClient) transfer(ctx context.Context, location string, file domain.PendingAttachment, offset int64) error {
	for offset < file.Size {
		n := c.chunkSize
		if remaining := file.Size - offset; remaining < n {
			n = remaining
		}
		next, err := c.Patch(ctx, location, offset, io.NewSectionReader(file.Content, offset, n), n)
		if err != nil {
			return err
		}
		c.logger.Debug("tus chunk stored",
			zap.String("file", file.Name),
			zap.Int64("offset", next),
			zap.Int64("size", file.Size),
		)
		offset = next
	}
	return nil
}

func parseOffset(v string) (int64, error) {
	if v == "" {
		return 0, errors.New("tus: missing Upload-Offset header")
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("tus: bad Upload-Offset %q", v)
	}
	return n, nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	body.Close()
}
