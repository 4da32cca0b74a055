// Package http exposes the credential-change hook over HTTP. The database
// proxy (or any credential pathway) POSTs the candidate password here and
// acts on the returned decision.
package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dropDatabas3/passguard/internal/audit"
	"github.com/dropDatabas3/passguard/internal/observability/logger"
	"github.com/dropDatabas3/passguard/internal/policy"
	"github.com/dropDatabas3/passguard/internal/store"
)

// Handler serves the policy endpoints.
type Handler struct {
	base      policy.Config
	overrides store.Store
	reportAll bool
}

// NewHandler builds the handler around the default policy and the per-role
// override store.
func NewHandler(base policy.Config, overrides store.Store, reportAll bool) *Handler {
	if overrides == nil {
		overrides = store.None{}
	}
	return &Handler{base: base, overrides: overrides, reportAll: reportAll}
}

type checkRequest struct {
	Username string  `json:"username"`
	Password *string `json:"password"`
	// Role the policy applies to. Defaults to the username: database roles
	// and login names are the same thing in the credential pathway.
	Role string `json:"role,omitempty"`
}

type violationDTO struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Actual   int    `json:"actual,omitempty"`
	Required int    `json:"required,omitempty"`
}

type checkResponse struct {
	Decision   string         `json:"decision"` // accept | warn | reject
	Violations []violationDTO `json:"violations,omitempty"`
}

// resolvePolicy merges any per-role override onto the default policy.
// Store failures degrade to the defaults: the credential pathway must not
// stall because the override backend is down.
func (h *Handler) resolvePolicy(r *http.Request, role string) policy.Config {
	if role == "" {
		return h.base
	}
	o, found, err := h.overrides.RoleOverrides(r.Context(), role)
	if err != nil {
		logger.From(r.Context()).Warn("override lookup failed, using default policy",
			zap.String("role", role), zap.Error(err))
		return h.base
	}
	if !found {
		return h.base
	}
	return o.Apply(h.base)
}

// Check handles POST /v1/check.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !ReadJSON(w, r, &req) {
		return
	}

	role := req.Role
	if role == "" {
		role = req.Username
	}
	cfg := h.resolvePolicy(r, role)
	verdict := policy.Evaluate(req.Username, req.Password, cfg)

	decision := audit.Accept
	switch {
	case verdict.OK():
	case cfg.LogOnly:
		decision = audit.Warn
		for _, v := range verdict {
			logger.From(r.Context()).Warn("password policy violation (log-only)",
				zap.String("role", role),
				zap.String("kind", string(v.Kind)),
				zap.String("detail", v.Message()),
			)
		}
	default:
		decision = audit.Reject
	}

	kinds := make([]string, len(verdict))
	for i, v := range verdict {
		kinds[i] = string(v.Kind)
	}
	observeCheck(string(decision), kinds)
	audit.Check(r.Context(), req.Username, role, decision, verdict)

	reported := verdict
	if !h.reportAll && len(verdict) > 1 {
		reported = verdict[:1]
	}
	resp := checkResponse{Decision: string(decision)}
	for _, v := range reported {
		resp.Violations = append(resp.Violations, violationDTO{
			Kind:     string(v.Kind),
			Message:  v.Message(),
			Actual:   v.Actual,
			Required: v.Required,
		})
	}
	WriteJSON(w, http.StatusOK, resp)
}

type policyResponse struct {
	Role           string `json:"role,omitempty"`
	Overridden     bool   `json:"overridden"`
	MinLength      int    `json:"min_length"`
	RequireUpper   bool   `json:"require_upper"`
	RequireLower   bool   `json:"require_lower"`
	RequireDigit   bool   `json:"require_digit"`
	RequireSpecial bool   `json:"require_special"`
	RejectUsername bool   `json:"reject_username"`
	LogOnly        bool   `json:"log_only"`
}

// Policy handles GET /v1/policy?role= and reports the effective tunables,
// for operators verifying what a role would be checked against.
func (h *Handler) Policy(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")

	cfg := h.base
	overridden := false
	if role != "" {
		if o, found, err := h.overrides.RoleOverrides(r.Context(), role); err == nil && found {
			cfg = o.Apply(h.base)
			overridden = !o.IsZero()
		} else if err != nil {
			WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "override store lookup failed")
			return
		}
	}

	WriteJSON(w, http.StatusOK, policyResponse{
		Role:           role,
		Overridden:     overridden,
		MinLength:      cfg.MinLength,
		RequireUpper:   cfg.RequireUpper,
		RequireLower:   cfg.RequireLower,
		RequireDigit:   cfg.RequireDigit,
		RequireSpecial: cfg.RequireSpecial,
		RejectUsername: cfg.RejectUsername,
		LogOnly:        cfg.LogOnly,
	})
}

// Healthz is liveness: the process is up.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz is readiness: the override store answers.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.overrides.Ping(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
