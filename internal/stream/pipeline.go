package stream

import (
	"errors"
	"io"

	"github.com/murmurdev/murmur/internal/events"
	"github.com/murmurdev/murmur/internal/logger"
	"github.com/murmurdev/murmur/internal/sse"
)

// pump drives the shared decode pipeline: transport chunks → frames →
// normalized events → handle. It returns nil on clean end of stream. A
// frame whose payload fails to parse is logged and dropped; the stream
// continues.
func pump(r io.Reader, handle func(*events.Event)) error {
	dec := sse.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			for _, f := range dec.Feed(buf[:n]) {
				emit(f, handle)
			}
		}
		if readErr != nil {
			// flush a final frame that lacked its trailing blank line
			for _, f := range dec.Close() {
				emit(f, handle)
			}
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return readErr
		}
	}
}

func emit(f sse.Frame, handle func(*events.Event)) {
	ev, err := events.Normalize(f)
	if err != nil {
		logger.Log.Warn("dropping malformed frame", "event", f.Event, "err", err)
		return
	}
	if ev == nil {
		return
	}
	handle(ev)
}
