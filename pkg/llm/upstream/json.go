package upstream

import "encoding/json"

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// OptionalInt converts a JSON number held as any into an *int.
func OptionalInt(v any) *int {
	switch n := v.(type) {
	case float64:
		return IntPtr(int(n))
	case int:
		return IntPtr(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return IntPtr(int(i))
		}
	}
	return nil
}

// CleanBody drops nil values from a request body built as a map so unset
// parameters are omitted rather than sent as null.
func CleanBody(body map[string]any) map[string]any {
	for k, v := range body {
		if isNil(v) {
			delete(body, k)
		}
	}
	return body
}

func isNil(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *int:
		return x == nil
	case *float64:
		return x == nil
	case *bool:
		return x == nil
	case []string:
		return x == nil
	}
	return false
}

// FillUsageTotal sets usage.total_tokens in an OpenAI-shaped response body
// when the provider left it out. The body is returned untouched when it
// has no usage object, already carries a total, or cannot be parsed.
func FillUsageTotal(body []byte) []byte {
	var doc map[string]json.RawMessage
	if json.Unmarshal(body, &doc) != nil {
		return body
	}
	raw, ok := doc["usage"]
	if !ok {
		return body
	}

	var usage map[string]any
	if json.Unmarshal(raw, &usage) != nil || usage == nil {
		return body
	}
	if _, ok := usage["total_tokens"]; ok {
		return body
	}
	in, out := OptionalInt(usage["prompt_tokens"]), OptionalInt(usage["completion_tokens"])
	if in == nil || out == nil {
		return body
	}
	usage["total_tokens"] = *in + *out

	patched, err := json.Marshal(usage)
	if err != nil {
		return body
	}
	doc["usage"] = patched
	result, err := json.Marshal(doc)
	if err != nil {
		return body
	}
	return result
}
