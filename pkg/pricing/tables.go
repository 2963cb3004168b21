package pricing

// Per-provider list prices in USD per million tokens.

func anthropicModels() Models {
	return Models{
		"claude-3-opus":   {Input: 15.00, Output: 75.00},
		"claude-3-sonnet": {Input: 3.00, Output: 15.00},
		"claude-3-haiku":  {Input: 0.80, Output: 4.00},
	}
}

func openAIModels() Models {
	return Models{
		"gpt-4o":                       {Input: 2.50, Output: 10.00},
		"gpt-4o-mini":                  {Input: 0.15, Output: 0.60},
		"gpt-4o-mini-audio-preview":    {Input: 0.15, Output: 0.60},
		"gpt-4o-mini-realtime-preview": {Input: 0.60, Output: 2.40},
		"gpt-4o-audio-preview":         {Input: 2.50, Output: 10.00},
		"gpt-4o-realtime-preview":      {Input: 5.00, Output: 20.00},
		"o1":                           {Input: 15.00, Output: 60.00},
		"o1-preview":                   {Input: 15.00, Output: 60.00},
		"o1-mini":                      {Input: 3.00, Output: 12.00},
		"gpt-4-turbo":                  {Input: 10.00, Output: 30.00},
		"gpt-4":                        {Input: 30.00, Output: 60.00},
		"gpt-3.5-turbo":                {Input: 0.50, Output: 1.50},
	}
}

func groqModels() Models {
	return Models{
		"llama-3.2-1b-preview-8k":              {Input: 0.04, Output: 0.04},
		"llama-3.2-3b-preview-8k":              {Input: 0.06, Output: 0.06},
		"llama-3.3-70b-versatile-128k":         {Input: 0.59, Output: 0.79},
		"llama-3.1-8b-instant-128k":            {Input: 0.05, Output: 0.08},
		"llama-3.1-8b-instant":                 {Input: 0.05, Output: 0.08},
		"llama-3-70b-8k":                       {Input: 0.59, Output: 0.79},
		"llama-3-8b-8k":                        {Input: 0.05, Output: 0.08},
		"mixtral-8x7b-instruct-32k":            {Input: 0.24, Output: 0.24},
		"gemma-7b-8k-instruct":                 {Input: 0.07, Output: 0.07},
		"gemma-2-9b-8k":                        {Input: 0.20, Output: 0.20},
		"llama-3-groq-70b-tool-use-preview-8k": {Input: 0.89, Output: 0.89},
		"llama-3-groq-8b-tool-use-preview-8k":  {Input: 0.19, Output: 0.19},
		"llama-guard-3-8b-8k":                  {Input: 0.20, Output: 0.20},
		"llama-3.3-70b-specdec-8k":             {Input: 0.59, Output: 0.99},
	}
}

func fireworksModels() Models {
	return Models{
		"llama-3.1-405b":    flat(3.00),
		"llama-3.1-70b":     flat(0.90),
		"llama-3.1-8b":      flat(0.20),
		"llama-3.2-3b":      flat(0.20),
		"mixtral-8x22b":     flat(0.90),
		"mixtral-8x7b":      flat(0.50),
		"qwen2.5-coder-32b": flat(0.90),
		"qwen2-72b":         flat(0.90),
		"qwen2.5-14b":       flat(0.20),
		"qwen2.5-7b":        flat(0.20),
		"yi-large":          flat(3.00),
		"yi-6b":             flat(0.20),
		"code-llama-34b":    flat(0.90),
		"code-llama-7b":     flat(0.20),
		"starcoder-7b":      flat(0.20),
		"starcoder2-15b":    flat(0.20),
		"starcoder2-7b":     flat(0.20),
		"llama-guard-7b":    flat(0.20),
		"zephyr-7b":         flat(0.20),
		"mistral-7b":        flat(0.20),
		"pythia-12b":        flat(0.20),
	}
}

func togetherModels() Models {
	return Models{
		"meta-llama/Meta-Llama-3.1-405B-Instruct-Turbo":  flat(3.50),
		"meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo":   flat(0.88),
		"meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo":    flat(0.18),
		"meta-llama/Meta-Llama-3.1-8B-Instruct-Lite":     flat(0.10),
		"meta-llama/Llama-3.2-3B-Instruct-Turbo":         flat(0.06),
		"meta-llama/Llama-3.2-90B-Vision-Instruct-Turbo": flat(1.20),
		"meta-llama/Llama-3.2-11B-Vision-Instruct-Turbo": flat(0.18),
		"mistralai/Mixtral-8x7B-Instruct-v0.1":           flat(0.50),
		"mistralai/Mixtral-8x22B-Instruct-v0.1":          flat(1.20),
		"Qwen/Qwen2-72B-Instruct":                        flat(0.90),
		"Qwen/Qwen2.5-7B-Instruct-Turbo":                 flat(0.30),
		"Qwen/Qwen2.5-72B-Instruct-Turbo":                flat(1.20),
		"Qwen/Qwen2.5-Coder-32B-Instruct":                flat(0.80),
		"Qwen/QwQ-32B-Preview":                           flat(1.20),
		"google/gemma-2-27b-it":                          flat(0.50),
		"google/gemma-2-9b-it":                           flat(0.20),
		"microsoft/WizardLM-2-8x22B":                     flat(1.20),
	}
}

// Fireworks size tiers, used when a model has no list price.
const (
	tierSmall    = 0.10
	tierMedium   = 0.20
	tierLarge    = 0.90
	tierMoESmall = 0.50
	tierMoELarge = 1.20
	tierSpecial  = 3.00
)

// Together Llama prices by parameter size and serving variant.
var togetherLlama = map[string]map[string]float64{
	"3b":   {"turbo": 0.06},
	"8b":   {"lite": 0.10, "turbo": 0.18, "reference": 0.20},
	"11b":  {"turbo": 0.18},
	"70b":  {"lite": 0.54, "turbo": 0.88, "reference": 0.90},
	"90b":  {"turbo": 1.20},
	"405b": {"turbo": 3.50},
}

// togetherQwen is checked in order; the first normalized substring wins.
var togetherQwen = []struct {
	name  string
	price float64
}{
	{"qwen2-72b", 0.90},
	{"qwen25-7b", 0.30},
	{"qwen25-72b", 1.20},
	{"qwen25-coder-32b", 0.80},
	{"qwen-qwq-32b", 1.20},
}

const togetherDefault = 0.20

func flat(perMillion float64) Price {
	return Price{Input: perMillion, Output: perMillion}
}
