package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/papercomputeco/llmgateway/pkg/llm"
)

func imageFromPart(p llm.ContentPart) *imageSource {
	var img struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(p.ImageURL, &img); err != nil || img.URL == "" {
		return nil
	}

	// data:image/png;base64,AAAA
	if rest, ok := strings.CutPrefix(img.URL, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found {
			return nil
		}
		mediaType, _, _ := strings.Cut(meta, ";")
		return &imageSource{Type: "base64", MediaType: mediaType, Data: data}
	}

	return &imageSource{Type: "url", URL: img.URL}
}
