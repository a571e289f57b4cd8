package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spec-kit/support-portal/internal/domain"
)

// CreateTicket files a ticket that stays unverified until VerifyTicket succeeds.
func (c *Client) CreateTicket(ctx context.Context, in CreateTicketRequest) (CreateTicketResponse, error) {
	var out CreateTicketResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "support-tickets", body: in}, &out)
	return out, err
}

// VerifyTicket completes email verification of a ticket.
func (c *Client) VerifyTicket(ctx context.Context, in VerifyTicketRequest) (VerifyTicketResponse, error) {
	var out VerifyTicketResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "support-tickets/verify", body: in}, &out)
	return out, err
}

// TrackTicket looks a ticket up by its public code.
func (c *Client) TrackTicket(ctx context.Context, code, guestID string) (domain.TrackedTicket, error) {
	var out domain.TrackedTicket
	err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    "support-tickets/track/" + url.PathEscape(code),
		guestID: guestID,
	}, &out)
	return out, err
}

// TicketHistory lists the tickets filed with phone.
func (c *Client) TicketHistory(ctx context.Context, phone string) (domain.TicketHistory, error) {
	var out domain.TicketHistory
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "support-tickets/history",
		query:  url.Values{"phone": []string{phone}},
	}, &out)
	return out, err
}

// RecordTicketRating stores the guest's satisfaction with a ticket's answer.
func (c *Client) RecordTicketRating(ctx context.Context, ticketID string, rating domain.Rating, guestID string) error {
	var verb string
	switch rating {
	case domain.RatingSatisfied:
		verb = "satisfaction"
	case domain.RatingDissatisfied:
		verb = "dissatisfaction"
	default:
		return fmt.Errorf("unknown rating %q", rating)
	}
	return c.do(ctx, request{
		method:  http.MethodPost,
		path:    "support-tickets/" + url.PathEscape(ticketID) + "/" + verb,
		guestID: guestID,
	}, nil)
}

// RecordInteraction records a RATED or VIEWED interaction.
func (c *Client) RecordInteraction(ctx context.Context, kind domain.InteractionType, ticketID, guestID string) (*Interaction, error) {
	var out struct {
		Interaction *Interaction `json:"interaction"`
	}
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    "support-tickets/" + strings.ToLower(string(kind)) + "/" + url.PathEscape(ticketID),
		guestID: guestID,
	}, &out)
	return out.Interaction, err
}
