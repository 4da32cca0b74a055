// Package policy implements the password complexity rules applied when a
// role's password is created or changed.
//
// The evaluator is a pure function: it classifies a candidate password
// against an immutable Config snapshot and returns the complete list of
// violated rules in a fixed order. It performs no I/O and never fails;
// enforcement (reject vs warn) is the caller's decision.
//
// Character classification is byte-wise ASCII on purpose: anything outside
// [A-Za-z0-9] counts as a special character, including whitespace and
// non-ASCII bytes. This mirrors how database servers classify password
// bytes and keeps verdicts independent of locale.
package policy

import (
	"fmt"
	"strings"
)

// Config holds the tunables for one evaluation. Zero value is the strictest
// useful policy except MinLength; use Default() for the shipped defaults.
type Config struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
	RejectUsername bool

	// LogOnly downgrades violations to warnings at the enforcement layer.
	// It does not change what Evaluate returns.
	LogOnly bool
}

// Default returns the default policy: 12+ chars, all character classes
// required, username containment rejected, enforcing.
func Default() Config {
	return Config{
		MinLength:      12,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RequireSpecial: true,
		RejectUsername: true,
	}
}

// Kind identifies one rule of the policy.
type Kind string

const (
	TooShort         Kind = "too_short"
	MissingUpper     Kind = "missing_upper"
	MissingLower     Kind = "missing_lower"
	MissingDigit     Kind = "missing_digit"
	MissingSpecial   Kind = "missing_special"
	ContainsUsername Kind = "contains_username"
)

// Violation is one violated rule. Actual/Required are only set for TooShort.
type Violation struct {
	Kind     Kind `json:"kind"`
	Actual   int  `json:"actual,omitempty"`
	Required int  `json:"required,omitempty"`
}

// Message renders the operator-facing detail for the violation.
func (v Violation) Message() string {
	switch v.Kind {
	case TooShort:
		return fmt.Sprintf("password must be at least %d characters long (got %d)", v.Required, v.Actual)
	case MissingUpper:
		return "password must contain at least one uppercase letter"
	case MissingLower:
		return "password must contain at least one lowercase letter"
	case MissingDigit:
		return "password must contain at least one digit"
	case MissingSpecial:
		return "password must contain at least one special character"
	case ContainsUsername:
		return "password must not contain the username"
	default:
		return string(v.Kind)
	}
}

// Verdict is the ordered list of violations found for one evaluation.
// Empty means the password is accepted.
type Verdict []Violation

// OK reports whether the password passed every enabled rule.
func (v Verdict) OK() bool { return len(v) == 0 }

// First returns the first violation in rule order. Only valid when !OK().
func (v Verdict) First() Violation { return v[0] }

// Messages renders every violation, in rule order.
func (v Verdict) Messages() []string {
	if len(v) == 0 {
		return nil
	}
	out := make([]string, len(v))
	for i, viol := range v {
		out[i] = viol.Message()
	}
	return out
}

// Evaluate classifies password against cfg and returns every violated rule.
//
// A nil password means the credential is being cleared; there is nothing to
// check and the verdict is empty. An empty username disables the
// username-containment rule regardless of cfg.RejectUsername.
//
// All rules always run: a too-short password is still scanned for character
// classes so that log-only deployments see every problem at once.
func Evaluate(username string, password *string, cfg Config) Verdict {
	if password == nil {
		return nil
	}
	pwd := *password

	var verdict Verdict

	if len(pwd) < cfg.MinLength {
		verdict = append(verdict, Violation{Kind: TooShort, Actual: len(pwd), Required: cfg.MinLength})
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for i := 0; i < len(pwd); i++ {
		switch c := pwd[i]; {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= '0' && c <= '9':
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if cfg.RequireUpper && !hasUpper {
		verdict = append(verdict, Violation{Kind: MissingUpper})
	}
	if cfg.RequireLower && !hasLower {
		verdict = append(verdict, Violation{Kind: MissingLower})
	}
	if cfg.RequireDigit && !hasDigit {
		verdict = append(verdict, Violation{Kind: MissingDigit})
	}
	if cfg.RequireSpecial && !hasSpecial {
		verdict = append(verdict, Violation{Kind: MissingSpecial})
	}

	if cfg.RejectUsername && username != "" {
		if strings.Contains(asciiLower(pwd), asciiLower(username)) {
			verdict = append(verdict, Violation{Kind: ContainsUsername})
		}
	}

	return verdict
}

// asciiLower folds A-Z to a-z and leaves every other byte untouched.
// strings.ToLower would also fold non-ASCII runes, which the byte-wise
// contract of the evaluator does not allow.
func asciiLower(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
