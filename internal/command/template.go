package command

import (
	"errors"
	"strings"
)

var ErrEmptyCommand = errors.New("command resolves to an empty argument vector")

// Template is a tokenized command with placeholders left in place.
// Placeholders are substituted per argument, so substituted paths can
// never introduce additional arguments.
type Template struct {
	raw  string
	args []string
}

func Parse(raw string) (Template, error) {
	args := Tokenize(raw)
	if len(args) == 0 {
		return Template{}, ErrEmptyCommand
	}
	return Template{raw: raw, args: args}, nil
}

func (t Template) String() string {
	return t.raw
}

// Resolve returns the full argument vector, tool name included.
func (t Template) Resolve(inputPath, outputPath string) []string {
	replacer := strings.NewReplacer(InputPlaceholder, inputPath, OutputPlaceholder, outputPath)

	out := make([]string, len(t.args))
	for i, arg := range t.args {
		out[i] = replacer.Replace(arg)
	}
	return out
}
