package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/spec-kit/support-portal/internal/domain"
)

// AttachmentMetadata fetches the metadata of a token or attachment id.
func (c *Client) AttachmentMetadata(ctx context.Context, token string) (domain.AttachmentMetadata, error) {
	var out domain.AttachmentMetadata
	err := c.do(ctx, request{method: http.MethodGet, path: "attachment/" + url.PathEscape(token) + "/metadata"}, &out)
	if err == nil && out.Token == "" {
		out.Token = token
	}
	return out, err
}

// AttachmentSignedURL asks the backend for a time-limited link to token.
func (c *Client) AttachmentSignedURL(ctx context.Context, token string) (string, error) {
	var out SignedURL
	err := c.do(ctx, request{method: http.MethodGet, path: "attachment/" + url.PathEscape(token) + "/signed-url"}, &out)
	return out.SignedURL, err
}

// AttachmentURL is the direct download link for token.
func (c *Client) AttachmentURL(token string) string {
	return c.endpoint("attachment/"+url.PathEscape(token), nil)
}
