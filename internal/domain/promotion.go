package domain

import "time"

// Promotion is the campaign banner shown on the landing page while its window is open.
type Promotion struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// Active reports whether now falls inside the promotion window, both ends included.
func (p Promotion) Active(now time.Time) bool {
	return !now.Before(p.StartDate) && !now.After(p.EndDate)
}

// PromotionPage is the current promotion with attachment tokens keyed by promotion id.
type PromotionPage struct {
	Promotion   Promotion           `json:"promotion"`
	Attachments map[string][]string `json:"attachments"`
}

// Tokens returns the attachment tokens of the page's own promotion.
func (p PromotionPage) Tokens() []string {
	return p.Attachments[p.Promotion.ID]
}
