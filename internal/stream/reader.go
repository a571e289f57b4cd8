package stream

import (
	"errors"
	"io"

	"github.com/spec-kit/support-portal/internal/domain"
)

// DefaultReadSize is the chunk size used when reading a response body.
const DefaultReadSize = 4096

// ErrStopped is returned by Read when the frame handler asked to stop.
var ErrStopped = errors.New("stream stopped")

// Read pulls chunks from r until EOF or a read error, passing each frame to fn
// strictly in arrival order. A clean EOF returns nil. If fn returns an error,
// reading stops and that error is returned.
func Read(r io.Reader, dec *Decoder, readSize int, fn func(domain.StreamFrame) error) error {
	if readSize <= 0 {
		readSize = DefaultReadSize
	}
	buf := make([]byte, readSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, frame := range dec.Feed(buf[:n]) {
				if ferr := fn(frame); ferr != nil {
					return ferr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				for _, frame := range dec.Flush() {
					if ferr := fn(frame); ferr != nil {
						return ferr
					}
				}
				return nil
			}
			return err
		}
	}
}
