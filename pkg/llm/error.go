package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway error by where it originated.
type Kind int

const (
	KindInternal Kind = iota
	KindConfig
	KindValidation
	KindUpstream
	KindTranscode
	KindStream
	KindExport
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	case KindTranscode:
		return "transcode"
	case KindStream:
		return "stream"
	case KindExport:
		return "export"
	default:
		return "internal"
	}
}

// Error types rendered in the "type" field of the error envelope.
const (
	TypeAuth       = "auth_error"
	TypeValidation = "validation_error"
	TypeRequest    = "request_error"
	TypeInternal   = "internal_error"
	TypeGateway    = "gateway_error"
	TypeNotFound   = "not_found"
	TypeProvider   = "provider_error"
)

// Error is the tagged error used across the gateway. Status is the HTTP
// status the client sees; Type is rendered verbatim in the envelope.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Type    string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error. A zero status becomes 500.
func NewError(kind Kind, status int, typ, message string) *Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Error{Kind: kind, Status: status, Type: typ, Message: message}
}

// ConfigError reports missing or invalid provider credentials.
func ConfigError(status int, message string) *Error {
	return NewError(KindConfig, status, TypeAuth, message)
}

// ValidationError reports a malformed client request.
func ValidationError(message string, details any) *Error {
	e := NewError(KindValidation, http.StatusBadRequest, TypeValidation, message)
	e.Details = details
	return e
}

// UpstreamError reports a failure returned by, or while reaching, a provider.
func UpstreamError(provider string, status int, message string, details any) *Error {
	e := NewError(KindUpstream, status, ProviderErrorType(provider), message)
	e.Details = details
	return e
}

// InternalError wraps an unexpected failure.
func InternalError(err error) *Error {
	e := NewError(KindInternal, http.StatusInternalServerError, TypeInternal, "Internal Server Error")
	e.Err = err
	return e
}

// ProviderErrorType returns the envelope type for errors raised by provider.
func ProviderErrorType(provider string) string {
	switch provider {
	case "openai", "anthropic", "groq", "bedrock":
		return provider + "_error"
	default:
		return TypeProvider
	}
}

// ErrorResponse is the JSON envelope written for every failed request.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the payload of ErrorResponse.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResponse builds an envelope from its parts.
func NewErrorResponse(status int, typ, message string, details any) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{
		Message: message,
		Type:    typ,
		Code:    status,
		Details: details,
	}}
}

// ToErrorResponse translates any error into a status code and envelope.
// Errors that are not *Error become a 500 of fallbackType.
func ToErrorResponse(err error, fallbackType string) (int, ErrorResponse) {
	var gerr *Error
	if errors.As(err, &gerr) {
		status := gerr.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		typ := gerr.Type
		if typ == "" {
			typ = fallbackType
		}
		return status, NewErrorResponse(status, typ, gerr.Message, gerr.Details)
	}

	msg := "Internal Server Error"
	if err != nil {
		msg = err.Error()
	}
	return http.StatusInternalServerError, NewErrorResponse(http.StatusInternalServerError, fallbackType, msg, nil)
}
