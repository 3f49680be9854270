package mapping

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// fencePattern matches code-fence markers, optionally tagged json, and the
// line break that follows them.
var fencePattern = regexp.MustCompile("(?i)```(?:json)?[ \t]*\r?\n?")

// StripFences removes every code-fence marker from text and trims the rest.
// Markers are removed wherever they occur, including inside JSON string
// values.
func StripFences(text string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))
}

// OuterBraces returns the substring from the first '{' to the last '}' of
// text. ok is false when there is no such substring.
func OuterBraces(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// Extract recovers a JSON object from service output. It first parses the
// text with code fences stripped, then falls back to the outermost brace
// span of the raw text. If both fail it returns a *ResponseParseError.
func Extract(text string) (map[string]any, error) {
	doc, fencedErr := decodeObject(StripFences(text))
	if fencedErr == nil {
		return doc, nil
	}

	candidate, ok := OuterBraces(text)
	if !ok {
		return nil, &ResponseParseError{
			Fenced: fencedErr,
			Braces: eris.New("no {...} span in response"),
		}
	}

	doc, bracesErr := decodeObject(candidate)
	if bracesErr != nil {
		return nil, &ResponseParseError{Fenced: fencedErr, Braces: bracesErr}
	}

	zap.L().Debug("mapping: recovered JSON from brace span",
		zap.Int("response_len", len(text)),
		zap.Int("json_len", len(candidate)),
	)
	return doc, nil
}

func decodeObject(s string) (map[string]any, error) {
	if s == "" {
		return nil, eris.New("empty input")
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, eris.Wrap(err, "decode json")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, eris.Errorf("top-level JSON value is %s, not an object", jsonType(v))
	}
	return obj, nil
}

// jsonType names the JSON type of a decoded value.
func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
