// Package metrics records per-request measurements (latency, tokens, cost,
// stream shape) and finalizes them exactly once for export.
package metrics

import "time"

// RequestMetrics is the finalized record of one gateway request.
type RequestMetrics struct {
	RequestID string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Status    int       `json:"status"`
	Success   bool      `json:"success"`
	Cached    bool      `json:"cached"`

	Performance Performance `json:"performance"`
	Tokens      Tokens      `json:"tokens"`
	Cost        *Cost       `json:"cost,omitempty"`
	Metadata    Metadata    `json:"metadata"`
	Location    *Location   `json:"location,omitempty"`
}

// Performance holds timings. Durations are reported in milliseconds.
type Performance struct {
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime,omitzero"`
	TTFB         float64   `json:"ttfb"`
	TotalLatency float64   `json:"totalLatency"`
}

// Tokens holds token counts. Unknown counts are nil until Finish, which
// defaults them to zero.
type Tokens struct {
	Input   *int           `json:"input"`
	Output  *int           `json:"output"`
	Total   *int           `json:"total"`
	Details map[string]any `json:"details,omitempty"`
}

// Cost holds USD costs. Total is always Input + Output.
type Cost struct {
	InputCost  float64 `json:"inputCost"`
	OutputCost float64 `json:"outputCost"`
	TotalCost  float64 `json:"totalCost"`
}

// Metadata describes how the response was produced.
type Metadata struct {
	Estimated      bool           `json:"estimated"`
	TotalChunks    int            `json:"totalChunks"`
	StreamComplete bool           `json:"streamComplete"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// Location is the approximate client location, when known.
type Location struct {
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Continent string  `json:"continent,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Timezone  string  `json:"timezone,omitempty"`
	Region    string  `json:"region,omitempty"`
}

// TokenUsage is a partial token update. Nil fields are left untouched.
type TokenUsage struct {
	InputTokens  *int
	OutputTokens *int
	TotalTokens  *int
}

// Usage builds a TokenUsage from known input and output counts.
func Usage(input, output int) TokenUsage {
	return TokenUsage{InputTokens: &input, OutputTokens: &output}
}

// IntOrZero dereferences p, treating nil as zero.
func IntOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// IsSuccess reports whether status is a 2xx code.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
