package sse

import (
	"bufio"
	"io"
	"strings"
)

const (
	initialLineBuffer = 64 * 1024
	maxLineBuffer     = 1024 * 1024
)

// Reader parses SSE events from a source stream. Lines split across reads
// are held in the scanner's buffer until their newline arrives, so events
// are only yielded once complete.
//
// When built with NewTeeReader every raw line, including comments and
// blank separators, is also written verbatim to a destination writer
// before the event it belongs to is returned:
//
//	upstream ──▶ Reader.Next() ──▶ Event
//	                  │
//	                  └──▶ dest (client pipe)
type Reader struct {
	scanner *bufio.Scanner
	dest    io.Writer

	current *Event
	hasData bool
}

// NewReader returns a Reader over src that does not forward bytes.
func NewReader(src io.Reader) *Reader {
	return NewTeeReader(src, nil)
}

// NewTeeReader returns a Reader that also copies every raw line to dest.
func NewTeeReader(src io.Reader, dest io.Writer) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, initialLineBuffer), maxLineBuffer)

	return &Reader{
		scanner: scanner,
		dest:    dest,
		current: &Event{},
	}
}

// Next blocks until a complete event is available and returns it.
// It returns nil, nil once the source is exhausted. A trailing event that
// is not followed by a blank line is still yielded at end of stream.
func (r *Reader) Next() (*Event, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()

		if r.dest != nil {
			// Scanner strips the newline; put it back for the relay.
			if _, err := io.WriteString(r.dest, line+"\n"); err != nil {
				return nil, err
			}
		}

		if line == "" {
			if r.hasData {
				return r.flush(), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		r.parseLine(line)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if r.hasData {
		return r.flush(), nil
	}

	return nil, nil
}

// parseLine accumulates one "field:value" line into the current event.
// A single space after the colon is stripped; a line without a colon is a
// field name with an empty value.
func (r *Reader) parseLine(line string) {
	field, value, ok := strings.Cut(line, ":")
	if ok {
		value = strings.TrimPrefix(value, " ")
	}

	switch field {
	case "data":
		if r.hasData && r.current.Data != "" {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasData = true
	case "event":
		r.current.Type = value
		r.hasData = true
	case "id":
		r.current.ID = value
		r.hasData = true
	}
}

func (r *Reader) flush() *Event {
	ev := r.current
	r.current = &Event{}
	r.hasData = false
	return ev
}
