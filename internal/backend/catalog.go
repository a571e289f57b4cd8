package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/spec-kit/support-portal/internal/domain"
)

// ListMainDepartments returns the top-level ticket categories.
func (c *Client) ListMainDepartments(ctx context.Context) ([]domain.Department, error) {
	var out []domain.Department
	err := c.do(ctx, request{method: http.MethodGet, path: "departments/main"}, &out)
	return out, err
}

// ListSubDepartments returns the sub-departments of parentID.
func (c *Client) ListSubDepartments(ctx context.Context, parentID string) ([]domain.Department, error) {
	var out []domain.Department
	err := c.do(ctx, request{method: http.MethodGet, path: "departments/" + url.PathEscape(parentID) + "/sub"}, &out)
	return out, err
}

// ListFAQs returns FAQs, optionally filtered by department, with attachment tokens per FAQ.
func (c *Client) ListFAQs(ctx context.Context, departmentID string) (domain.FAQPage, error) {
	query := url.Values{}
	if departmentID != "" {
		query.Set("departmentId", departmentID)
	}
	var out domain.FAQPage
	err := c.do(ctx, request{method: http.MethodGet, path: "faqs", query: query}, &out)
	return out, err
}

// GetFAQ returns a single FAQ.
func (c *Client) GetFAQ(ctx context.Context, id string) (domain.FAQ, error) {
	var out domain.FAQ
	err := c.do(ctx, request{method: http.MethodGet, path: "faqs/" + url.PathEscape(id)}, &out)
	return out, err
}

// CurrentPromotion returns the promotion the backend is running, whether or not
// its window is open.
func (c *Client) CurrentPromotion(ctx context.Context) (domain.PromotionPage, error) {
	var out domain.PromotionPage
	err := c.do(ctx, request{method: http.MethodGet, path: "promotion"}, &out)
	return out, err
}
