package sse

import "strings"

// Frame is one complete event from the wire: the name from the "event:" line
// and the payload from the "data:" line(s).
type Frame struct {
	Event string
	Data  string
}

// Decoder reassembles event frames from a text stream delivered in arbitrary
// chunks. Chunks may split a frame (or a single line) anywhere; the decoder
// carries the unfinished tail across Feed calls. The emitted frame sequence
// is identical for every chunking of the same byte stream.
type Decoder struct {
	buf   string
	event string
	data  []string
	// a frame needs both an event name and data before a blank line emits it
	hasEvent bool
	hasData  bool
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk and returns every frame completed by it.
func (d *Decoder) Feed(chunk []byte) []Frame {
	d.buf += string(chunk)
	lines := strings.Split(d.buf, "\n")
	// trailing element is an unterminated line, keep it buffered
	d.buf = lines[len(lines)-1]
	var frames []Frame
	for _, line := range lines[:len(lines)-1] {
		if f, ok := d.line(line); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// Close flushes the decoder at end of stream. A final frame that was never
// followed by a blank line is emitted rather than lost.
func (d *Decoder) Close() []Frame {
	return d.Feed([]byte("\n\n"))
}

func (d *Decoder) line(line string) (Frame, bool) {
	line = strings.TrimSuffix(line, "\r")
	switch {
	case line == "":
		if !d.hasEvent || !d.hasData {
			// stray blank line, tolerate
			return Frame{}, false
		}
		f := Frame{Event: d.event, Data: strings.Join(d.data, "\n")}
		d.event, d.data = "", nil
		d.hasEvent, d.hasData = false, false
		return f, true
	case strings.HasPrefix(line, ":"):
		// comment / heartbeat
		return Frame{}, false
	case strings.HasPrefix(line, "event:"):
		d.event = strings.TrimPrefix(strings.TrimPrefix(line, "event:"), " ")
		d.hasEvent = true
	case strings.HasPrefix(line, "data:"):
		d.data = append(d.data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		d.hasData = true
	}
	return Frame{}, false
}
