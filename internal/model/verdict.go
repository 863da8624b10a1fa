package model

// Verdict classifies the outcome of one oracle execution.
type Verdict string

// Available Verdict values.
const (
	// VerdictPass means the oracle observed baseline-like behavior.
	VerdictPass Verdict = "PASS"
	// VerdictFail means the oracle observed the target's failing signature.
	VerdictFail Verdict = "FAIL"
	// VerdictInfraError means the oracle could not execute meaningfully:
	// it timed out or a setup stage crashed before the test stage ran.
	VerdictInfraError Verdict = "INFRA_ERROR"
)

// Status is the terminal state of a minimization run.
type Status string

// Available Status values.
const (
	StatusConverged Status = "CONVERGED"
	StatusExhausted Status = "EXHAUSTED"
	StatusAborted   Status = "ABORTED"
)
