package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/spec-kit/support-portal/pkg/util/errorutil"
)

// Ask sends one question and waits for the complete answer.
func (c *Client) Ask(ctx context.Context, in AskRequest) (AskResponse, error) {
	var out AskResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "chat/ask", body: in}, &out)
	return out, err
}

// OpenChatStream starts a streamed chat turn. The caller owns the returned body
// and must close it; closing it releases the connection.
// The client-wide timeout is not applied; cancel ctx to abort.
func (c *Client) OpenChatStream(ctx context.Context, in AskRequest) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, request{method: http.MethodPost, path: "chat/stream", body: in})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUnavailable(err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if readErr != nil {
			return nil, apperrors.NewUnavailable(fmt.Errorf("read error response: %w", readErr))
		}
		return nil, decodeEnvelope(resp.StatusCode, body, nil)
	}
	return resp.Body, nil
}
