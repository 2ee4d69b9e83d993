// Package extract recovers structured decisions from free-form model output.
//
// Candidates are tried in order: a fenced code block, the first balanced
// JSON object in the text, then the whole text. The first candidate that
// decodes wins. When none decodes the caller gets ok == false and must apply
// its own deterministic fallback; extraction never returns an error.
package extract

import (
	"strings"

	"github.com/bytedance/sonic"
	"github.com/tbxark/interviewagent/types"
)

// Decode fills v from the first candidate in raw that parses as JSON.
func Decode(raw string, v any) bool {
	for _, candidate := range Candidates(raw) {
		if err := sonic.UnmarshalString(candidate, v); err == nil {
			return true
		}
	}
	return false
}

// Decision extracts a decision object from raw model output.
func Decision(raw string) (*types.Decision, bool) {
	var d types.Decision
	if !Decode(raw, &d) {
		return nil, false
	}
	d.Action = strings.TrimSpace(d.Action)
	return &d, true
}

// Candidates returns the substrings of raw worth attempting to decode, in priority order.
func Candidates(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	var out []string
	if fenced, ok := fencedBlock(s); ok {
		out = append(out, fenced)
	}
	if obj, ok := firstObject(s); ok {
		out = append(out, obj)
	}
	out = append(out, s)
	return out
}

func fencedBlock(s string) (string, bool) {
	idx := strings.Index(s, "```")
	if idx == -1 {
		return "", false
	}
	body := s[idx+3:]
	// optional language tag on the opening fence line
	if nl := strings.IndexByte(body, '\n'); nl != -1 && nl < 20 && !strings.ContainsAny(body[:nl], "{[\"") {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	end := strings.Index(body, "```")
	if end == -1 {
		return "", false
	}
	body = strings.TrimSpace(body[:end])
	if body == "" {
		return "", false
	}
	return body, true
}

// firstObject returns the substring from the first '{' to its matching '}',
// skipping braces inside string literals.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
