package policy

// Evaluator is anything that can judge a candidate password for a role.
// The standard implementation is Checker; hosts with more than one policy
// source compose them with Chain.
type Evaluator interface {
	Evaluate(username string, password *string) Verdict
}

// Checker binds a Config snapshot to the Evaluator interface.
type Checker struct {
	cfg Config
}

// New returns a Checker for cfg.
func New(cfg Config) Checker { return Checker{cfg: cfg} }

// Config returns the snapshot the checker was built with.
func (c Checker) Config() Config { return c.cfg }

func (c Checker) Evaluate(username string, password *string) Verdict {
	return Evaluate(username, password, c.cfg)
}

// Func adapts a plain function to Evaluator.
type Func func(username string, password *string) Verdict

func (f Func) Evaluate(username string, password *string) Verdict {
	return f(username, password)
}

// Chain runs evaluators in order and concatenates their verdicts.
// It replaces the mutable prev-hook chaining that password hooks
// traditionally use: composition is explicit and owned by the caller.
type Chain []Evaluator

func (ch Chain) Evaluate(username string, password *string) Verdict {
	var verdict Verdict
	for _, e := range ch {
		verdict = append(verdict, e.Evaluate(username, password)...)
	}
	return verdict
}
