package model

import "time"

// Trial is one audit-log record of an oracle invocation. Retried subsets
// produce one record per attempt, so infra errors remain visible in the log.
type Trial struct {
	Subset    Subset        `yaml:"subset"`
	Command   string        `yaml:"command"`
	Verdict   Verdict       `yaml:"verdict"`
	ExitCode  int           `yaml:"exit_code"`
	Attempt   int           `yaml:"attempt"`
	Duration  time.Duration `yaml:"duration"`
	StartedAt time.Time     `yaml:"started_at"`
}

// Stats aggregates counters for one minimization run.
type Stats struct {
	Trials    int           `yaml:"trials"`
	CacheHits int           `yaml:"cache_hits"`
	WallTime  time.Duration `yaml:"wall_time"`
}

// Report is the final verdict object handed to the reporting layer.
type Report struct {
	RunID  string `yaml:"run_id"`
	Status Status `yaml:"status"`

	// MinimalSubset is the failure-inducing subset of difference units.
	// On CONVERGED it is 1-minimal; on EXHAUSTED it is the best partial
	// reduction found before the budget ran out; on ABORTED it is nil.
	MinimalSubset Subset `yaml:"minimal_subset,omitempty"`

	// PassingOptions is the separator-joined option sequence that still
	// passes the predicate: the target configuration with the minimal
	// subset backed out. Only populated on CONVERGED.
	PassingOptions Sequence `yaml:"passing_options,omitempty"`

	Diagnostic string   `yaml:"diagnostic,omitempty"`
	Warnings   []string `yaml:"warnings,omitempty"`
	Trials     []Trial  `yaml:"trials"`
	Stats      Stats    `yaml:"stats"`
}
