package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MEDIA_ACCESS_TYPE", "")
	t.Setenv("TICKET_CALL_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MediaAccessDirect, cfg.Backend.MediaAccess)
	assert.Equal(t, time.Duration(0), cfg.Ticket.CallTimeout)
	assert.Equal(t, "portal_session", cfg.Auth.CookieName)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MEDIA_ACCESS_TYPE", "signed-url")
	t.Setenv("TICKET_CALL_TIMEOUT", "15s")
	t.Setenv("TUS_CONCURRENCY", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MediaAccessSignedURL, cfg.Backend.MediaAccess)
	assert.Equal(t, 15*time.Second, cfg.Ticket.CallTimeout)
	assert.Equal(t, 3, cfg.Upload.Concurrency)
}

func TestLoadRejectsUnknownMediaAccess(t *testing.T) {
	t.Setenv("MEDIA_ACCESS_TYPE", "cdn")

	_, err := Load()
	require.Error(t, err)
}
