// Package audit emits one structured event per policy decision.
// Candidate passwords are never part of an event.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/passguard/internal/observability/logger"
	"github.com/dropDatabas3/passguard/internal/policy"
)

// Decision of the enforcement layer for one evaluation.
type Decision string

const (
	Accept Decision = "accept"
	Warn   Decision = "warn"
	Reject Decision = "reject"
)

// Check records the outcome of one password evaluation.
func Check(ctx context.Context, username, role string, decision Decision, verdict policy.Verdict) {
	kinds := make([]string, len(verdict))
	for i, v := range verdict {
		kinds[i] = string(v.Kind)
	}
	logger.From(ctx).Info("password_check",
		zap.String("event", "password_check"),
		zap.String("username", username),
		zap.String("role", role),
		zap.String("decision", string(decision)),
		zap.Strings("violations", kinds),
	)
}
