package command

import "strings"

// Tokenize splits s into arguments the way a minimal shell would: unquoted
// spaces separate words, single and double quotes group words and are
// dropped. Backslashes have no special meaning and a quote of the other
// kind is literal inside a quoted run.
func Tokenize(s string) []string {
	s = strings.TrimSpace(s)

	var (
		args     []string
		current  strings.Builder
		inSingle bool
		inDouble bool
	)

	for _, r := range s {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case r == ' ' && !inSingle && !inDouble:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}

	return args
}
