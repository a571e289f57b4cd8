package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPromotionWindow(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC)
	p := Promotion{ID: "p-1", StartDate: start, EndDate: end}

	assert.True(t, p.Active(start))
	assert.True(t, p.Active(end))
	assert.True(t, p.Active(start.Add(48*time.Hour)))
	assert.False(t, p.Active(start.Add(-time.Second)))
	assert.False(t, p.Active(end.Add(time.Second)))
}

func TestPromotionPageTokens(t *testing.T) {
	page := PromotionPage{
		Promotion:   Promotion{ID: "p-1"},
		Attachments: map[string][]string{"p-1": {"tok-1", "tok-2"}, "p-0": {"old"}},
	}
	assert.Equal(t, []string{"tok-1", "tok-2"}, page.Tokens())
	assert.Empty(t, PromotionPage{}.Tokens())
}
