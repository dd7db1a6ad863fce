package bank

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// parseFrontMatter extracts the leading YAML header delimited by `---`
// lines. A missing or unparseable header returns (nil, false); indexing
// treats that as a minimal record rather than a failure.
func parseFrontMatter(content string) (map[string]interface{}, bool) {
	trimmed := strings.TrimPrefix(content, "\uFEFF")

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 || strings.TrimRight(lines[0], "\r") != "---" {
		return nil, false
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, false
	}

	block := strings.Join(lines[1:end], "\n")

	var meta map[string]interface{}
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return nil, false
	}
	if meta == nil {
		return nil, false
	}

	return meta, true
}

// metaString pulls a string field out of parsed front-matter.
func metaString(meta map[string]interface{}, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}

// metaStrings pulls a string list field out of parsed front-matter.
func metaStrings(meta map[string]interface{}, key string) []string {
	if meta == nil {
		return nil
	}
	raw, ok := meta[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
