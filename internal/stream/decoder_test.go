package stream

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-portal/internal/domain"
)

const sampleStream = "data: {\"type\":\"conversation_meta\",\"data\":{\"conversationId\":\"conv-1\"}}\n" +
	"data: {\"type\":\"message\",\"data\":\"Grüß \"}\n" +
	"data: {\"type\":\"message\",\"data\":\"dich, 世界 👋\"}\n" +
	"data: {\"type\":\"done\"}\n"

func feedInChunks(dec *Decoder, payload []byte, size int) []domain.StreamFrame {
	var frames []domain.StreamFrame
	for start := 0; start < len(payload); start += size {
		end := start + size
		if end > len(payload) {
			end = len(payload)
		}
		frames = append(frames, dec.Feed(payload[start:end])...)
	}
	return append(frames, dec.Flush()...)
}

func concatText(frames []domain.StreamFrame) string {
	var sb strings.Builder
	for _, f := range frames {
		if f.Type == domain.FrameMessage {
			sb.WriteString(f.Text)
		}
	}
	return sb.String()
}

func TestDecoderChunkingIsTransparent(t *testing.T) {
	payload := []byte(sampleStream)
	whole := feedInChunks(NewDecoder(nil), payload, len(payload))
	require.Len(t, whole, 4)

	for _, size := range []int{1, 2, 3, 7, 17} {
		frames := feedInChunks(NewDecoder(nil), payload, size)
		assert.Equal(t, whole, frames, "chunk size %d", size)
		assert.Equal(t, "Grüß dich, 世界 👋", concatText(frames), "chunk size %d", size)
	}
}

func TestDecoderHoldsBackPartialLine(t *testing.T) {
	dec := NewDecoder(nil)
	frames := dec.Feed([]byte("data: {\"type\":\"message\",\"da"))
	assert.Empty(t, frames)
	assert.Positive(t, dec.Buffered())

	frames = dec.Feed([]byte("ta\":\"hi\"}\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, "hi", frames[0].Text)
	assert.Zero(t, dec.Buffered())
}

func TestDecoderSkipsMalformedLines(t *testing.T) {
	var skippedLines []string
	dec := NewDecoder(nil)
	dec.OnSkip(func(line string, _ error) { skippedLines = append(skippedLines, line) })

	input := "data: {\"type\":\"message\",\"data\":\"a\"}\n" +
		"data: {not json\n" +
		"data: {\"type\":\"message\",\"data\":\"b\"}\n"
	frames := feedInChunks(dec, []byte(input), 5)

	assert.Equal(t, "ab", concatText(frames))
	assert.Equal(t, 1, dec.Skipped())
	assert.Equal(t, []string{"data: {not json"}, skippedLines)
}

func TestDecoderIgnoresNonDataLines(t *testing.T) {
	input := ": keep-alive\n\nevent: ping\r\ndata: {\"type\":\"message\",\"data\":\"x\"}\r\n"
	frames := feedInChunks(NewDecoder(nil), []byte(input), 4)
	require.Len(t, frames, 1)
	assert.Equal(t, "x", frames[0].Text)
}

func TestDecoderFlushesTrailingLine(t *testing.T) {
	frames := feedInChunks(NewDecoder(nil), []byte("data: {\"type\":\"message\",\"data\":\"tail\"}"), 3)
	require.Len(t, frames, 1)
	assert.Equal(t, "tail", frames[0].Text)
}

func TestParseFrame(t *testing.T) {
	frame, err := ParseFrame([]byte(`{"type":"message","data":"[DONE]"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.FrameMessage, frame.Type)

	frame, err = ParseFrame([]byte(`{"type":"end","data":"[DONE]"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.FrameDone, frame.Type)

	_, err = ParseFrame([]byte(`{"type":"typing","data":true}`))
	assert.True(t, errors.Is(err, ErrUnknownFrame))

	_, err = ParseFrame([]byte(`{"type":"message","data":42}`))
	assert.Error(t, err)
}

func TestEncodeFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	for _, f := range []domain.StreamFrame{
		{Type: domain.FrameConversationMeta, ConversationID: "c-9"},
		{Type: domain.FrameMessage, Text: "line\nbreak"},
		{Type: domain.FrameDone},
	} {
		line, err := EncodeFrame(f)
		require.NoError(t, err)
		buf.Write(line)
	}

	frames := feedInChunks(NewDecoder(nil), buf.Bytes(), 3)
	require.Len(t, frames, 3)
	assert.Equal(t, "c-9", frames[0].ConversationID)
	assert.Equal(t, "line\nbreak", frames[1].Text)
	assert.Equal(t, domain.FrameDone, frames[2].Type)
}
