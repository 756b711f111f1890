// Package validator holds the field-specific checks that decide whether an
// extraction candidate is accepted, and the canonical form it is stored in.
package validator

import (
	"fmt"
	"time"

	"docextract/internal/domain"
)

// Validator checks one candidate value and returns its canonical form.
// A rejected candidate yields an error wrapping domain.ErrNormalize.
type Validator interface {
	RuleKey() string
	RuleName() string
	Validate(value string) (string, error)
}

// Options tune the built-in validators.
type Options struct {
	// MinYear is the earliest accepted year for any date field.
	MinYear int
	// Now returns the reference time for the upper date bound. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MinYear == 0 {
		o.MinYear = 2015
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// fieldValidator is a named check backed by a closure.
type fieldValidator struct {
	ruleKey  string
	ruleName string
	validate func(string) (string, error)
}

func (v *fieldValidator) RuleKey() string  { return v.ruleKey }
func (v *fieldValidator) RuleName() string { return v.ruleName }

func (v *fieldValidator) Validate(value string) (string, error) {
	return v.validate(value)
}

// RejectError describes why a candidate failed a rule.
type RejectError struct {
	Rule   string
	Value  string
	Reason string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("%s: %q %s", e.Rule, e.Value, e.Reason)
}

func (e *RejectError) Unwrap() error {
	return domain.ErrNormalize
}

func rejectf(rule, value, format string, args ...any) error {
	return &RejectError{Rule: rule, Value: value, Reason: fmt.Sprintf(format, args...)}
}
