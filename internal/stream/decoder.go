// Package stream decodes the chat backend's newline-delimited `data:` frames.
//
// The wire format is a subset of Server-Sent Events: every line is
//
//	data: {"type": "...", "data": ...}
//
// with no event names, ids or retry directives. Frames may arrive split across
// arbitrary chunk boundaries, including the middle of a multi-byte UTF-8
// sequence, so decoding works on bytes and only complete lines are parsed.
package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-portal/internal/domain"
)

const dataPrefix = "data: "

// doneSentinel is the legacy end marker some backends send as the data value.
const doneSentinel = "[DONE]"

// ErrUnknownFrame marks a well-formed line whose type is not routed.
var ErrUnknownFrame = errors.New("unknown frame type")

type wireFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type conversationMeta struct {
	ConversationID string `json:"conversationId"`
}

// Decoder turns byte chunks into ordered frames. The zero value is not usable;
// build one with NewDecoder. A Decoder is not safe for concurrent use.
type Decoder struct {
	buf     []byte
	logger  *zap.Logger
	skipped int
	onSkip  func(line string, err error)
}

// NewDecoder returns a decoder that logs skipped lines to logger.
func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger}
}

// OnSkip registers a hook called for every line that could not be parsed.
func (d *Decoder) OnSkip(fn func(line string, err error)) {
	d.onSkip = fn
}

// Feed appends chunk to the buffer and returns the frames of every complete
// line. The trailing partial line is held back for the next call.
func (d *Decoder) Feed(chunk []byte) []domain.StreamFrame {
	d.buf = append(d.buf, chunk...)
	var frames []domain.StreamFrame
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := d.buf[:idx]
		frames = d.appendLine(frames, line)
		d.buf = d.buf[idx+1:]
	}
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return frames
}

// Flush parses whatever is left in the buffer once the stream has ended.
func (d *Decoder) Flush() []domain.StreamFrame {
	if len(d.buf) == 0 {
		return nil
	}
	line := d.buf
	d.buf = nil
	return d.appendLine(nil, line)
}

// Buffered returns the number of bytes held back awaiting a newline.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Skipped returns how many data lines were dropped as malformed.
func (d *Decoder) Skipped() int {
	return d.skipped
}

func (d *Decoder) appendLine(frames []domain.StreamFrame, raw []byte) []domain.StreamFrame {
	line := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return frames
	}
	frame, err := ParseFrame(line[len(dataPrefix):])
	if err != nil {
		d.skipped++
		d.logger.Warn("skipping chat stream line", zap.ByteString("line", line), zap.Error(err))
		if d.onSkip != nil {
			d.onSkip(string(line), err)
		}
		return frames
	}
	return append(frames, frame)
}

// ParseFrame decodes the JSON payload of a single `data:` line.
func ParseFrame(payload []byte) (domain.StreamFrame, error) {
	var wire wireFrame
	if err := json.Unmarshal(payload, &wire); err != nil {
		return domain.StreamFrame{}, fmt.Errorf("decode frame: %w", err)
	}
	switch domain.FrameType(wire.Type) {
	case domain.FrameMessage:
		var text string
		if err := json.Unmarshal(wire.Data, &text); err != nil {
			return domain.StreamFrame{}, fmt.Errorf("decode message data: %w", err)
		}
		return domain.StreamFrame{Type: domain.FrameMessage, Text: text}, nil
	case domain.FrameConversationMeta:
		var meta conversationMeta
		if err := json.Unmarshal(wire.Data, &meta); err != nil {
			return domain.StreamFrame{}, fmt.Errorf("decode conversation meta: %w", err)
		}
		return domain.StreamFrame{Type: domain.FrameConversationMeta, ConversationID: meta.ConversationID}, nil
	case domain.FrameDone:
		return domain.StreamFrame{Type: domain.FrameDone}, nil
	case domain.FrameError:
		var text string
		_ = json.Unmarshal(wire.Data, &text)
		return domain.StreamFrame{Type: domain.FrameError, Text: text}, nil
	}
	var sentinel string
	if json.Unmarshal(wire.Data, &sentinel) == nil && sentinel == doneSentinel {
		return domain.StreamFrame{Type: domain.FrameDone}, nil
	}
	return domain.StreamFrame{}, fmt.Errorf("%w: %q", ErrUnknownFrame, wire.Type)
}

// EncodeFrame renders frame as one wire line, including the trailing newline.
func EncodeFrame(frame domain.StreamFrame) ([]byte, error) {
	wire := struct {
		Type string `json:"type"`
		Data any    `json:"data,omitempty"`
	}{Type: string(frame.Type)}
	switch frame.Type {
	case domain.FrameMessage, domain.FrameError:
		wire.Data = frame.Text
	case domain.FrameConversationMeta:
		wire.Data = conversationMeta{ConversationID: frame.ConversationID}
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(dataPrefix)+len(payload)+1)
	out = append(out, dataPrefix...)
	out = append(out, payload...)
	return append(out, '\n'), nil
}
