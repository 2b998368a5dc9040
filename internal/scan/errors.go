package scan

import "fmt"

// EvalError records a rule that failed to evaluate on a file. Evaluation
// errors never abort the scan; they are collected and returned alongside
// the report so callers can decide how hard to fail.
type EvalError struct {
	RuleID string `json:"rule_id"`
	File   string `json:"file"`
	Err    error  `json:"-"`

	// Message mirrors Err for serialized reports.
	Message string `json:"message"`
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("rule %s failed on %s: %v", e.RuleID, e.File, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that a scan exceeded its line budget or deadline.
// The whole scan fails; no partial report is returned, so callers never
// see misleading under-counts.
type TimeoutError struct {
	Limit   int
	Scanned int
	Cause   error
}

func (e *TimeoutError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("scan aborted: line budget exceeded (%d lines, limit %d)", e.Scanned, e.Limit)
	}
	return fmt.Sprintf("scan aborted: %v", e.Cause)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}
