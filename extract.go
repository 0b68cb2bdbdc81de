package stepwise

import (
	"encoding/json"
	"regexp"
	"strings"
)

var codeBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON locates the first syntactically valid JSON value in arbitrary
// response text. Reasoning services wrap JSON in markdown code fences or
// surrounding prose even when a JSON content type is requested, and responses
// may be truncated mid-value.
//
// The boolean result is the only failure signal at this boundary: callers
// treat a false return identically to a transport failure. This function
// never panics and never returns invalid JSON with ok=true.
func ExtractJSON(text string) (json.RawMessage, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	// Whole text is already valid JSON.
	if raw, ok := validJSON(text); ok {
		return raw, true
	}

	// Markdown code fences take precedence over raw scanning.
	for _, m := range codeBlockRegex.FindAllStringSubmatch(text, -1) {
		if raw, ok := validJSON(strings.TrimSpace(m[1])); ok {
			return raw, true
		}
	}

	// Scan for the first balanced object or array. Braces inside string
	// literals and escape sequences must not terminate the scan.
	for start := 0; start < len(text); start++ {
		open := text[start]
		if open != '{' && open != '[' {
			continue
		}
		if end := matchDelimiter(text, start); end > start {
			if raw, ok := validJSON(text[start : end+1]); ok {
				return raw, true
			}
		}
	}

	return nil, false
}

// validJSON reports whether s is a single valid JSON object or array and
// returns it as a RawMessage. Bare scalars are rejected: every advertised
// response schema is an object, and accepting a stray number from prose would
// defeat extraction.
func validJSON(s string) (json.RawMessage, bool) {
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return nil, false
	}
	if !json.Valid([]byte(s)) {
		return nil, false
	}
	return json.RawMessage(s), true
}

// matchDelimiter returns the index of the delimiter closing the object or
// array opening at start, or -1 if the text ends before it balances.
func matchDelimiter(text string, start int) int {
	var opening, closing byte
	opening = text[start]
	if opening == '{' {
		closing = '}'
	} else {
		closing = ']'
	}

	depth := 0
	inString := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch c {
			case '\\':
				i++ // skip escaped character
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case opening:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}
