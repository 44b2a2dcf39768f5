// Package command validates and parses caller-supplied command templates.
package command

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bnema/transcoder/internal/domain"
	"github.com/bnema/transcoder/internal/infrastructure/logger"
)

const (
	InputPlaceholder  = "{input}"
	OutputPlaceholder = "{output}"

	// MaxTemplateLength bounds templates accepted by the strict policy.
	MaxTemplateLength = 2000
)

// Validator decides whether a command template may be executed.
type Validator interface {
	Validate(template string) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(template string) error

func (f ValidatorFunc) Validate(template string) error {
	return f(template)
}

// BasicValidator enforces the structural minimum: placeholders present and
// the template invoking the configured tool.
type BasicValidator struct {
	tool   string
	toolRe *regexp.Regexp
}

func NewBasicValidator(tool string) *BasicValidator {
	return &BasicValidator{
		tool:   tool,
		toolRe: regexp.MustCompile(`^\s*` + regexp.QuoteMeta(tool) + `\b`),
	}
}

func (v *BasicValidator) Validate(template string) error {
	if strings.TrimSpace(template) == "" {
		logger.Error.Printf("command template rejected: empty")
		return domain.NewValidationError("full_command must be a non-empty string")
	}

	if !strings.Contains(template, InputPlaceholder) || !strings.Contains(template, OutputPlaceholder) {
		logger.Error.Printf("command template rejected: missing placeholders: %s", logger.Snippet(template, 200))
		return domain.NewValidationError("template must include %s and %s", InputPlaceholder, OutputPlaceholder)
	}

	if !v.toolRe.MatchString(template) {
		logger.Error.Printf("command template rejected: does not start with %s: %s", v.tool, logger.Snippet(template, 200))
		return domain.NewValidationError("template must start with %q", v.tool)
	}

	logger.Debug.Printf("command template ok: %s", logger.Snippet(template, 120))
	return nil
}

type blockedConstruct struct {
	label string
	re    *regexp.Regexp
}

var blockedConstructs = []blockedConstruct{
	{";", regexp.MustCompile(`;`)},
	{"|", regexp.MustCompile(`\|`)},
	{"&", regexp.MustCompile(`&`)},
	{"$", regexp.MustCompile(`\$`)},
	{"`", regexp.MustCompile("`")},
	{"newline", regexp.MustCompile(`[\r\n]`)},
	{"rm", regexp.MustCompile(`(?i)\brm\s`)},
	{"rmdir", regexp.MustCompile(`(?i)\brmdir\s`)},
	{"sudo", regexp.MustCompile(`(?i)\bsudo\s`)},
}

var redirection = regexp.MustCompile(`[<>]`)

// StrictValidator runs a base policy and then rejects shell constructs,
// redirection and oversized templates.
type StrictValidator struct {
	base Validator
}

func NewStrictValidator(base Validator) *StrictValidator {
	return &StrictValidator{base: base}
}

func (v *StrictValidator) Validate(template string) error {
	if err := v.base.Validate(template); err != nil {
		return err
	}

	for _, b := range blockedConstructs {
		if b.re.MatchString(template) {
			logger.Error.Printf("command template rejected: blocked construct %q: %s", b.label, logger.Snippet(template, 200))
			return domain.NewValidationError("construct not allowed in template: %s", b.label)
		}
	}

	if redirection.MatchString(template) {
		logger.Error.Printf("command template rejected: redirection: %s", logger.Snippet(template, 200))
		return domain.NewValidationError("redirection is not allowed (< or >)")
	}

	if len(template) > MaxTemplateLength {
		logger.Error.Printf("command template rejected: length %d", len(template))
		return domain.NewValidationError("template is too long (max %d characters)", MaxTemplateLength)
	}

	return nil
}

// Chain runs validators in order and stops at the first rejection.
func Chain(validators ...Validator) Validator {
	return ValidatorFunc(func(template string) error {
		for _, v := range validators {
			if err := v.Validate(template); err != nil {
				return err
			}
		}
		return nil
	})
}

// NewPolicy returns the validator registered under name.
func NewPolicy(name, tool string) (Validator, error) {
	switch name {
	case "", "strict":
		return NewStrictValidator(NewBasicValidator(tool)), nil
	case "basic":
		return NewBasicValidator(tool), nil
	default:
		return nil, fmt.Errorf("unknown command policy %q", name)
	}
}
