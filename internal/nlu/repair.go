package nlu

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceRegex        = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\\n?(.*?)```")
	bareKeyRegex      = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	trailingCommaRegx = regexp.MustCompile(`,\s*([}\]])`)
)

type scanState int

const (
	stateOutside scanState = iota
	stateInString
	stateInEscape
)

// scanResult describes how far a JSON object got before the text ended.
type scanResult struct {
	end   int // exclusive index of the last byte that belongs to the object
	depth int // braces still open at end
	state scanState
}

// scanObject walks s, which must start with '{', and stops at the brace that
// closes the first object. Quotes inside strings only count when not escaped.
func scanObject(s string) scanResult {
	res := scanResult{state: stateOutside}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch res.state {
		case stateInEscape:
			res.state = stateInString
		case stateInString:
			switch ch {
			case '\\':
				res.state = stateInEscape
			case '"':
				res.state = stateOutside
			}
		case stateOutside:
			switch ch {
			case '"':
				res.state = stateInString
			case '{':
				res.depth++
			case '}':
				res.depth--
				if res.depth == 0 {
					res.end = i + 1
					return res
				}
			}
		}
		res.end = i + 1
	}
	return res
}

// closeObject cuts s after its first object and closes whatever the text
// left open: a dangling escape is dropped, an open string gets its quote,
// then one brace per open level.
func closeObject(s string) string {
	res := scanObject(s)
	out := s[:res.end]
	if res.depth <= 0 {
		return out
	}
	switch res.state {
	case stateInEscape:
		out = out[:len(out)-1] + `"`
	case stateInString:
		out += `"`
	default:
		out = strings.TrimRight(out, " \t\r\n")
	}
	return out + strings.Repeat("}", res.depth)
}

// stripFences replaces fenced code blocks with their inner content. An
// unterminated opening fence is dropped as well.
func stripFences(s string) string {
	s = fenceRegex.ReplaceAllString(s, "$1")
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.Contains(rest[:nl], "{") {
			rest = rest[nl+1:]
		}
		s = s[:idx] + rest
	}
	return s
}

// tidyJSON quotes bare identifier keys and drops trailing commas.
func tidyJSON(s string) string {
	s = bareKeyRegex.ReplaceAllString(s, `$1"$2":`)
	return trailingCommaRegx.ReplaceAllString(s, "$1")
}

// RepairJSON extracts the first JSON object from model output and coerces it
// into parseable JSON. Normalisation only runs when the plainly closed text
// does not parse, so apostrophes inside valid strings survive.
func RepairJSON(raw string) (string, error) {
	body := stripFences(raw)
	start := strings.IndexByte(body, '{')
	if start < 0 {
		return "", &MalformedResponseError{Reason: "no JSON found"}
	}
	body = body[start:]

	closed := closeObject(body)
	candidates := []func() string{
		func() string { return closed },
		func() string { return tidyJSON(closed) },
		func() string { return tidyJSON(closeObject(strings.ReplaceAll(body, "'", `"`))) },
	}
	for _, candidate := range candidates {
		if s := candidate(); json.Valid([]byte(s)) {
			return s, nil
		}
	}
	return closed, &MalformedResponseError{Reason: "invalid JSON"}
}
