package pricing

import (
	"regexp"
	"slices"
	"strings"
)

// rules describes how a provider's model names are matched against its
// price table once an exact lookup has failed.
type rules struct {
	// variants returns the normalized spellings of a model name, in
	// preference order. The same function indexes table keys.
	variants func(model string) []string

	// estimate prices a model that is not in the table at all.
	estimate func(model string) (Price, bool)
}

var (
	anthropicDateSuffix = regexp.MustCompile(`-\d{8}$`)
	contextSuffix       = regexp.MustCompile(`-\d+k$`)
	separators          = regexp.MustCompile(`[-_\s]`)
	dottedDigit         = regexp.MustCompile(`\.(\d)`)
	versionTag          = regexp.MustCompile(`v\d+(\.\d+)?`)
	bedrockVersion      = regexp.MustCompile(`-v\d+(:\d+)?$`)
)

var providerRules = map[string]rules{
	"anthropic": {variants: anthropicVariants},
	"bedrock":   {variants: bedrockVariants},
	"openai":    {variants: openAIVariants},
	"groq":      {variants: groqVariants},
	"fireworks": {variants: compactVariants, estimate: fireworksEstimate},
	"together":  {variants: compactVariants, estimate: togetherEstimate},
}

func anthropicVariants(model string) []string {
	base := anthropicDateSuffix.ReplaceAllString(strings.ToLower(model), "")
	return dedupe(
		base,
		strings.NewReplacer("-", "", "_", "").Replace(base),
		strings.Replace(base, "claude-3-", "claude-3-5-", 1),
		strings.Replace(base, "claude-3-5-", "claude-3-", 1),
	)
}

// bedrockVariants strips the vendor prefix and revision suffix of a Bedrock
// model id ("anthropic.claude-3-haiku-20240307-v1:0") and reuses the
// Anthropic spellings.
func bedrockVariants(model string) []string {
	m := strings.ToLower(model)
	if _, after, ok := strings.Cut(m, "anthropic."); ok {
		m = after
	}
	m = bedrockVersion.ReplaceAllString(m, "")
	return anthropicVariants(m)
}

func openAIVariants(model string) []string {
	m := strings.ToLower(strings.TrimSpace(model))
	return dedupe(m, stripOpenAIDateSuffix(m))
}

func groqVariants(model string) []string {
	m := strings.ToLower(model)
	return dedupe(
		m,
		strings.NewReplacer("-", "", "_", "").Replace(m),
		contextSuffix.ReplaceAllString(m, ""),
	)
}

// compactVariants is shared by Fireworks and Together, whose model names
// carry organisation prefixes, version tags and serving suffixes.
func compactVariants(model string) []string {
	m := strings.ToLower(model)
	if idx := strings.LastIndex(m, "accounts/fireworks/models/"); idx != -1 {
		m = m[idx+len("accounts/fireworks/models/"):]
	}
	return dedupe(m, compact(m))
}

func compact(model string) string {
	m := separators.ReplaceAllString(strings.ToLower(model), "")
	m = dottedDigit.ReplaceAllString(m, "$1")
	if loc := versionTag.FindStringIndex(m); loc != nil {
		m = m[:loc[0]] + m[loc[1]:]
	}
	for _, suffix := range []string{"instruct", "chat", "base", "preview", "serverless"} {
		m = strings.ReplaceAll(m, suffix, "")
	}
	return m
}

func fireworksEstimate(model string) (Price, bool) {
	m := compact(model)
	switch {
	case containsAny(m, "yilarge", "llama31405b"):
		return flat(tierSpecial), true
	case containsAny(m, "mixtral8x22b", "dbrx"):
		return flat(tierMoELarge), true
	case containsAny(m, "mixtral8x7b"):
		return flat(tierMoESmall), true
	case containsAny(m, "72b", "70b", "34b", "33b", "32b"):
		return flat(tierLarge), true
	case containsAny(m, "14b", "13b", "12b", "7b", "6b", "3b"):
		return flat(tierMedium), true
	default:
		return flat(tierSmall), true
	}
}

func togetherEstimate(model string) (Price, bool) {
	m := compact(model)
	for _, q := range togetherQwen {
		if strings.Contains(m, compact(q.name)) {
			return flat(q.price), true
		}
	}

	size := ""
	for _, s := range []string{"405b", "90b", "70b", "11b", "8b", "3b"} {
		if strings.Contains(m, s) {
			size = s
			break
		}
	}
	if size == "" {
		return flat(togetherDefault), true
	}

	variant := "reference"
	switch {
	case strings.Contains(m, "lite"):
		variant = "lite"
	case strings.Contains(m, "turbo"):
		variant = "turbo"
	}

	if p, ok := togetherLlama[size][variant]; ok {
		return flat(p), true
	}
	return flat(togetherDefault), true
}

// stripOpenAIDateSuffix removes a trailing -YYYY-MM-DD date suffix from a model name.
func stripOpenAIDateSuffix(model string) string {
	if len(model) < 12 {
		return model
	}

	suffix := model[len(model)-11:]
	if suffix[0] != '-' {
		return model
	}
	date := suffix[1:]
	if isDigits(date[0:4]) && date[4] == '-' && isDigits(date[5:7]) && date[7] == '-' && isDigits(date[8:10]) {
		return model[:len(model)-11]
	}
	return model
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsAny(s string, subs ...string) bool {
	return slices.ContainsFunc(subs, func(sub string) bool {
		return strings.Contains(s, sub)
	})
}

func dedupe(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
