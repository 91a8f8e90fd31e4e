package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/prodlens/backend/internal/domain"
)

var fencedJSONPattern = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")

// ExtractJSON pulls a JSON object out of free-form model output. It tries, in order:
// a ```json fenced block, the whole trimmed text, and the span from the first '{'
// to the last '}'.
func ExtractJSON(text string) (json.RawMessage, error) {
	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		if obj, ok := parseObject(m[1]); ok {
			return obj, nil
		}
	}

	trimmed := strings.TrimSpace(text)
	if obj, ok := parseObject(trimmed); ok {
		return obj, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start != -1 && end > start {
		if obj, ok := parseObject(trimmed[start : end+1]); ok {
			return obj, nil
		}
	}

	return nil, fmt.Errorf("%w in AI response (%d bytes)", domain.ErrExtraction, len(text))
}

func parseObject(s string) (json.RawMessage, bool) {
	b := bytes.TrimSpace([]byte(s))
	if len(b) == 0 || b[0] != '{' || !json.Valid(b) {
		return nil, false
	}
	return json.RawMessage(b), true
}
