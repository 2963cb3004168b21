// Package sse reads and writes Server-Sent Events for the gateway.
//
// Reader reassembles events from an upstream byte stream regardless of how
// the stream is split across reads, and can tee the raw bytes to a second
// writer for verbatim relays. Writer helpers produce the canonical
// "data: <payload>\n\n" frames sent to clients.
//
// See https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Done is the payload of the terminal sentinel frame.
const Done = "[DONE]"

// Event is a single parsed SSE event, delimited by a blank line.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data is every "data:" line of the event joined with "\n".
	Data string

	// ID is the "id:" field, if present.
	ID string
}

// IsDone reports whether the event is the "[DONE]" sentinel.
func (e *Event) IsDone() bool {
	return e != nil && e.Data == Done
}
