package sanitize

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/stevechen1112/aetheria/pkg/models"
)

// parseCall recovers a tool call from suppressed leakage text, e.g.
//
//	default_api.calculate_bazi(birth_date="1990-07-22", gender="male")
//
// possibly wrapped in a tool_code fence or a print(...). Returns false when
// the text does not contain a parseable call.
func parseCall(text string) (models.ToolCall, bool) {
	i := strings.Index(text, callMarker)
	if i < 0 {
		return models.ToolCall{}, false
	}
	rest := text[i+len(callMarker):]

	name, rest := readIdentifier(rest)
	if name == "" || !strings.HasPrefix(rest, "(") {
		return models.ToolCall{}, false
	}

	args, ok := parseKwargs(rest[1:])
	if !ok {
		return models.ToolCall{}, false
	}
	input, err := json.Marshal(args)
	if err != nil {
		return models.ToolCall{}, false
	}
	return models.ToolCall{
		ID:    "recovered_" + uuid.NewString(),
		Name:  name,
		Input: input,
	}, true
}

func readIdentifier(s string) (string, string) {
	end := 0
	for end < len(s) {
		r := rune(s[end])
		if r == '_' || unicode.IsLetter(r) || (end > 0 && unicode.IsDigit(r)) {
			end++
			continue
		}
		break
	}
	return s[:end], s[end:]
}

// parseKwargs reads key=value pairs up to the matching close paren.
func parseKwargs(s string) (map[string]any, bool) {
	args := map[string]any{}
	for {
		s = strings.TrimLeft(s, " \t\n,")
		if s == "" {
			return nil, false
		}
		if s[0] == ')' {
			return args, true
		}

		key, rest := readIdentifier(s)
		rest = strings.TrimLeft(rest, " \t")
		if key == "" || !strings.HasPrefix(rest, "=") {
			return nil, false
		}
		value, rest, ok := readValue(strings.TrimLeft(rest[1:], " \t"))
		if !ok {
			return nil, false
		}
		args[key] = value
		s = rest
	}
}

func readValue(s string) (any, string, bool) {
	if s == "" {
		return nil, "", false
	}
	switch s[0] {
	case '"', '\'':
		quote := s[0]
		for i := 1; i < len(s); i++ {
			if s[i] == '\\' {
				i++
				continue
			}
			if s[i] == quote {
				unquoted := strings.ReplaceAll(s[1:i], `\`+string(quote), string(quote))
				return unquoted, s[i+1:], true
			}
		}
		return nil, "", false
	}

	end := strings.IndexAny(s, ",)")
	if end < 0 {
		return nil, "", false
	}
	token := strings.TrimSpace(s[:end])
	rest := s[end:]
	switch token {
	case "True":
		return true, rest, true
	case "False":
		return false, rest, true
	case "None":
		return nil, rest, true
	}
	if n, err := strconv.ParseFloat(token, 64); err == nil {
		return n, rest, true
	}
	if token == "" {
		return nil, "", false
	}
	return token, rest, true
}
