package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNamesAreOrdered(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_chat_transcripts.sql", "002_portal_events.sql"}, names)
}

func TestRedisKey(t *testing.T) {
	r := &Redis{KeyPrefix: "portal"}
	assert.Equal(t, "portal:session:abc", r.Key("session", "abc"))

	bare := &Redis{}
	assert.Equal(t, "rating:g:t", bare.Key("rating", "g", "t"))
}
