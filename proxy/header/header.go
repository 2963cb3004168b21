// Package header names the gateway's HTTP headers and filters provider
// response headers on their way to the client.
//
// The gateway sits between a client and an upstream LLM provider like so:
//
//	Client <--> Gateway <--> Upstream LLM Provider
//
// and each leg negotiates compression, hops, encoding, etc. independently,
// so only end-to-end headers are copied across.
package header

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Request headers read by the gateway.
const (
	Provider           = "x-provider"
	Authorization      = "Authorization"
	AWSAccessKeyID     = "x-aws-access-key-id"
	AWSSecretAccessKey = "x-aws-secret-access-key"
	AWSRegion          = "x-aws-region"
)

// Response headers set by the gateway.
const (
	RequestID = "x-request-id"
	Cache     = "x-cache"

	CacheHit  = "HIT"
	CacheMiss = "MISS"
)

// Handler manages headers between the provider response and the client.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// skipResponse is the set of provider response headers
// (client <-- gateway <-- upstream) that are not copied back to the client.
var skipResponse = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection": {},
	"Keep-Alive": {},

	// fasthttp manages chunked transfer encoding for the client-facing
	// response independently.
	"Transfer-Encoding": {},

	// Bodies handed to the gateway are always decoded. Fiber's compress
	// middleware sets the correct Content-Encoding when it re-compresses
	// the response for the client.
	"Content-Encoding": {},

	// Transcoded and re-compressed bodies change size; fiber computes the
	// final Content-Length.
	"Content-Length": {},
}

// SetClientResponseHeaders copies provider response headers to the Fiber
// context, filtering headers that must not be forwarded to the client.
func (h *Handler) SetClientResponseHeaders(c *fiber.Ctx, hdr http.Header) {
	for k, v := range hdr {
		if _, skip := skipResponse[http.CanonicalHeaderKey(k)]; !skip {
			c.Set(k, strings.Join(v, ", "))
		}
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// value. Other schemes yield "".
func BearerToken(value string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
