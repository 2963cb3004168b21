package sse

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteData writes payload as a single "data:" frame.
func WriteData(w io.Writer, payload []byte) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return flush(w)
}

// WriteJSON marshals v and writes it as a "data:" frame.
func WriteJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding sse payload: %w", err)
	}
	return WriteData(w, b)
}

// WriteDone writes the "data: [DONE]" terminal frame.
func WriteDone(w io.Writer) error {
	return WriteData(w, []byte(Done))
}

type flusher interface {
	Flush() error
}

// flush pushes buffered frames out immediately when w supports it.
func flush(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
