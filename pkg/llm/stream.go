package llm

// ChatCompletionChunk is one canonical streaming frame. A terminal chunk
// carries a non-nil FinishReason and, when known, Usage.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"`
}

// ChunkChoice is a streamed choice delta. FinishReason marshals as null
// until the stream terminates.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// Delta is the incremental message content of a chunk.
type Delta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// IsTerminal reports whether this chunk ends the stream.
func (c *ChatCompletionChunk) IsTerminal() bool {
	return len(c.Choices) > 0 && c.Choices[0].FinishReason != nil
}
