// Package template provides the variable substitution pass used by message
// and notify steps. It is deliberately not a template engine: every
// {{key}} token with a matching variable is replaced, unknown tokens are
// left verbatim, and rendering never fails.
package template

import "strings"

// Render substitutes {{key}} tokens in s from the variable map. Tokens may
// carry whitespace inside the braces ({{ key }}). Occurrences of the same
// token are all replaced with the same value.
func Render(s string, variables map[string]string) string {
	if len(variables) == 0 || !strings.Contains(s, "{{") {
		return s
	}

	var out strings.Builder

	out.Grow(len(s))

	for {
		start := strings.Index(s, "{{")
		if start < 0 {
			out.WriteString(s)

			break
		}

		end := strings.Index(s[start:], "}}")
		if end < 0 {
			out.WriteString(s)

			break
		}

		end += start

		key := strings.TrimSpace(s[start+2 : end])

		value, ok := variables[key]
		if ok {
			out.WriteString(s[:start])
			out.WriteString(value)
		} else {
			// Unknown token stays as literal text.
			out.WriteString(s[:end+2])
		}

		s = s[end+2:]
	}

	return out.String()
}
