// Package store resolves per-role policy overrides, the Go-native stand-in
// for tuning the password rules per role (ALTER ROLE ... SET style).
//
// A Store answers "does role X have its own tunables?"; the answer is a set
// of optional fields merged onto the default policy. Resolution failures are
// the caller's to degrade: a credential change must never be blocked because
// the override backend is down.
package store

import (
	"context"

	"github.com/dropDatabas3/passguard/internal/policy"
)

// Overrides is a partial policy: nil fields inherit from the base config.
type Overrides struct {
	MinLength      *int  `yaml:"min_length" json:"min_length,omitempty"`
	RequireUpper   *bool `yaml:"require_upper" json:"require_upper,omitempty"`
	RequireLower   *bool `yaml:"require_lower" json:"require_lower,omitempty"`
	RequireDigit   *bool `yaml:"require_digit" json:"require_digit,omitempty"`
	RequireSpecial *bool `yaml:"require_special" json:"require_special,omitempty"`
	RejectUsername *bool `yaml:"reject_username" json:"reject_username,omitempty"`
	LogOnly        *bool `yaml:"log_only" json:"log_only,omitempty"`
}

// Apply merges the overrides onto base and returns the effective policy.
func (o Overrides) Apply(base policy.Config) policy.Config {
	if o.MinLength != nil {
		base.MinLength = *o.MinLength
	}
	if o.RequireUpper != nil {
		base.RequireUpper = *o.RequireUpper
	}
	if o.RequireLower != nil {
		base.RequireLower = *o.RequireLower
	}
	if o.RequireDigit != nil {
		base.RequireDigit = *o.RequireDigit
	}
	if o.RequireSpecial != nil {
		base.RequireSpecial = *o.RequireSpecial
	}
	if o.RejectUsername != nil {
		base.RejectUsername = *o.RejectUsername
	}
	if o.LogOnly != nil {
		base.LogOnly = *o.LogOnly
	}
	return base
}

// IsZero reports whether no field is set.
func (o Overrides) IsZero() bool {
	return o.MinLength == nil && o.RequireUpper == nil && o.RequireLower == nil &&
		o.RequireDigit == nil && o.RequireSpecial == nil && o.RejectUsername == nil &&
		o.LogOnly == nil
}

// Store looks up per-role overrides.
type Store interface {
	// RoleOverrides returns the overrides for role. found is false when the
	// role has no entry; that is not an error.
	RoleOverrides(ctx context.Context, role string) (o Overrides, found bool, err error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// None is the Store used when no override backend is configured.
type None struct{}

func (None) RoleOverrides(context.Context, string) (Overrides, bool, error) {
	return Overrides{}, false, nil
}

func (None) Ping(context.Context) error { return nil }
func (None) Close() error               { return nil }
