package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-portal/internal/domain"
)

func TestReadDeliversFramesInOrder(t *testing.T) {
	r := iotest.OneByteReader(strings.NewReader(sampleStream))

	var got []domain.FrameType
	err := Read(r, NewDecoder(nil), 8, func(f domain.StreamFrame) error {
		got = append(got, f.Type)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.FrameType{
		domain.FrameConversationMeta,
		domain.FrameMessage,
		domain.FrameMessage,
		domain.FrameDone,
	}, got)
}

func TestReadStopsOnHandlerError(t *testing.T) {
	calls := 0
	err := Read(strings.NewReader(sampleStream), NewDecoder(nil), 0, func(domain.StreamFrame) error {
		calls++
		return ErrStopped
	})
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, 1, calls)
}

func TestReadReturnsTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(
		strings.NewReader("data: {\"type\":\"message\",\"data\":\"par\"}\n"),
		iotest.ErrReader(boom),
	)

	var text string
	err := Read(r, NewDecoder(nil), 16, func(f domain.StreamFrame) error {
		text += f.Text
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "par", text)
}
