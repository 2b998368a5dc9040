package scan

import (
	"strings"

	"github.com/example/solscan/internal/rules"
)

// SourceFile is one unit of the corpus: a logical path plus its text
// split into 1-indexed lines. Files are read upstream and never re-read
// by the engine.
type SourceFile struct {
	Path  string   `json:"path"`
	Lines []string `json:"-"`
}

// Finding is one confirmed, non-suppressed match of a rule against a
// specific file and line. Severity is copied from the rule at match time
// so findings stay valid if rule sets are reloaded between scans.
type Finding struct {
	RuleID   string         `json:"rule_id"`
	Severity rules.Severity `json:"severity"`
	File     string         `json:"file"`
	Line     int            `json:"line"`
	Snippet  string         `json:"snippet"`
}

// Report is the immutable result of one scan invocation. Findings are
// ordered by (file, line, rule id) ascending; CountsBySeverity always
// carries every severity level, zeroes included.
type Report struct {
	Findings         []Finding              `json:"findings"`
	CountsBySeverity map[rules.Severity]int `json:"counts_by_severity"`
}

func newFinding(r rules.Rule, file string, line int, text string) Finding {
	return Finding{
		RuleID:   r.ID,
		Severity: r.Severity,
		File:     file,
		Line:     line,
		Snippet:  strings.TrimSpace(text),
	}
}

// countBySeverity folds findings into a per-severity tally with every
// level present.
func countBySeverity(findings []Finding) map[rules.Severity]int {
	counts := make(map[rules.Severity]int, len(rules.Severities))
	for _, sev := range rules.Severities {
		counts[sev] = 0
	}
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// WorstSeverity returns the highest-ranked severity present among the
// report's findings. ok is false when the report has no findings.
func WorstSeverity(r Report) (worst rules.Severity, ok bool) {
	for _, f := range r.Findings {
		if !ok || f.Severity.Rank() > worst.Rank() {
			worst = f.Severity
			ok = true
		}
	}
	return worst, ok
}
