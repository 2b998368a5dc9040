package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/solscan/internal/rules"
)

// failingMatcher simulates a matcher that blows up at evaluation time.
type failingMatcher struct{}

func (failingMatcher) Match(string) (bool, error) {
	return false, errors.New("evaluation blew up")
}

func mustRegistry(t *testing.T, rs []rules.Rule) *rules.Registry {
	t.Helper()
	reg, err := rules.NewRegistry(rs)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func TestScanSuppressesExcludedLines(t *testing.T) {
	reg := mustRegistry(t, []rules.Rule{
		{
			ID:       "SC01",
			Severity: rules.SeverityCritical,
			Matcher:  rules.Literal("tx.origin"),
			Exclusions: []rules.Matcher{
				rules.MustRegex(`^\s*//`),
			},
		},
		{
			ID:       "SC02",
			Severity: rules.SeverityLow,
			Matcher:  rules.Literal("tx.origin"),
		},
	})
	files := []SourceFile{{
		Path: "a.sol",
		Lines: []string{
			"require(tx.origin == owner);",
			"// tx.origin note",
		},
	}}

	report, evalErrs, err := Engine{}.Scan(context.Background(), reg, files)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(evalErrs) != 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}

	var sc01, sc02 []Finding
	for _, f := range report.Findings {
		switch f.RuleID {
		case "SC01":
			sc01 = append(sc01, f)
		case "SC02":
			sc02 = append(sc02, f)
		}
	}

	if len(sc01) != 1 || sc01[0].Line != 1 {
		t.Fatalf("SC01 should fire exactly once at line 1, got %+v", sc01)
	}
	if len(sc02) != 2 {
		t.Fatalf("SC02 has no exclusions and should fire on both lines, got %+v", sc02)
	}
	if sc01[0].Snippet != "require(tx.origin == owner);" {
		t.Fatalf("snippet should be the trimmed matched line, got %q", sc01[0].Snippet)
	}
}

func TestScanEmptyCorpus(t *testing.T) {
	reg := mustRegistry(t, []rules.Rule{
		{ID: "SC01", Severity: rules.SeverityCritical, Matcher: rules.Literal("tx.origin")},
	})

	report, evalErrs, err := Engine{}.Scan(context.Background(), reg, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(report.Findings) != 0 || len(evalErrs) != 0 {
		t.Fatalf("empty corpus should produce nothing, got %+v / %v", report.Findings, evalErrs)
	}

	if len(report.CountsBySeverity) != len(rules.Severities) {
		t.Fatalf("counts must carry every severity, got %v", report.CountsBySeverity)
	}
	for sev, count := range report.CountsBySeverity {
		if count != 0 {
			t.Fatalf("severity %s should count 0, got %d", sev, count)
		}
	}
}

func TestScanZeroLineFile(t *testing.T) {
	reg := mustRegistry(t, []rules.Rule{
		{ID: "SC01", Severity: rules.SeverityLow, Matcher: rules.Literal("x")},
	})
	files := []SourceFile{{Path: "empty.sol"}}

	report, _, err := Engine{}.Scan(context.Background(), reg, files)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(report.Findings) != 0 {
		t.Fatalf("zero-line file should contribute no findings, got %+v", report.Findings)
	}
}

func TestScanEvalErrorDoesNotAbort(t *testing.T) {
	reg := mustRegistry(t, []rules.Rule{
		{ID: "broken", Severity: rules.SeverityHigh, Matcher: failingMatcher{}},
		{ID: "good", Severity: rules.SeverityMedium, Matcher: rules.Literal("selfdestruct")},
	})
	files := []SourceFile{
		{Path: "a.sol", Lines: []string{"selfdestruct(owner);"}},
		{Path: "b.sol", Lines: []string{"selfdestruct(owner);", "noop();"}},
	}

	report, evalErrs, err := Engine{}.Scan(context.Background(), reg, files)
	if err != nil {
		t.Fatalf("scan should not abort on eval errors: %v", err)
	}

	if len(report.Findings) != 2 {
		t.Fatalf("good rule should still fire in both files, got %+v", report.Findings)
	}
	for _, f := range report.Findings {
		if f.RuleID != "good" {
			t.Fatalf("unexpected finding from rule %s", f.RuleID)
		}
	}

	if len(evalErrs) != 2 {
		t.Fatalf("expected one eval error per file, got %v", evalErrs)
	}
	for _, ee := range evalErrs {
		if ee.RuleID != "broken" {
			t.Fatalf("eval error should be attributed to the broken rule, got %s", ee.RuleID)
		}
		if ee.File != "a.sol" && ee.File != "b.sol" {
			t.Fatalf("eval error should carry the file path, got %q", ee.File)
		}
	}
}

func TestScanDeterministicAcrossRuns(t *testing.T) {
	reg := mustRegistry(t, []rules.Rule{
		{ID: "call", Severity: rules.SeverityMedium, Matcher: rules.MustRegex(`\.call\s*[\({]`)},
		{ID: "ts", Severity: rules.SeverityLow, Matcher: rules.Literal("block.timestamp")},
	})

	var files []SourceFile
	for i := 0; i < 40; i++ {
		files = append(files, SourceFile{
			Path: fmt.Sprintf("contracts/f%02d.sol", i),
			Lines: []string{
				"uint t = block.timestamp;",
				"target.call{value: 1}(\"\");",
				"noop();",
				"emit Done(block.timestamp);",
			},
		})
	}

	engine := Engine{Workers: 8}
	first, _, err := engine.Scan(context.Background(), reg, files)
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	second, _, err := engine.Scan(context.Background(), reg, files)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal first: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal second: %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("same registry and corpus must produce byte-identical reports")
	}
}

func TestScanOrderingAndBounds(t *testing.T) {
	reg := mustRegistry(t, []rules.Rule{
		{ID: "ts", Severity: rules.SeverityLow, Matcher: rules.Literal("block.timestamp")},
	})
	// Deliberately out of path order.
	files := []SourceFile{
		{Path: "z.sol", Lines: []string{"block.timestamp", "block.timestamp"}},
		{Path: "a.sol", Lines: []string{"noop", "block.timestamp"}},
	}

	report, _, err := Engine{Workers: 4}.Scan(context.Background(), reg, files)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	lineCounts := map[string]int{"z.sol": 2, "a.sol": 2}
	prevFile, prevLine := "", 0
	for _, f := range report.Findings {
		if f.File < prevFile || (f.File == prevFile && f.Line < prevLine) {
			t.Fatalf("findings out of order: %+v", report.Findings)
		}
		if f.Line < 1 || f.Line > lineCounts[f.File] {
			t.Fatalf("finding line %d out of bounds for %s", f.Line, f.File)
		}
		prevFile, prevLine = f.File, f.Line
	}
	if report.Findings[0].File != "a.sol" {
		t.Fatalf("a.sol should sort first, got %s", report.Findings[0].File)
	}
}

func TestScanCountsConsistency(t *testing.T) {
	reg := mustRegistry(t, []rules.Rule{
		{ID: "hi", Severity: rules.SeverityHigh, Matcher: rules.Literal("delegatecall")},
		{ID: "lo", Severity: rules.SeverityLow, Matcher: rules.Literal("block.timestamp")},
	})
	files := []SourceFile{
		{Path: "a.sol", Lines: []string{
			"impl.delegatecall(data);",
			"uint t = block.timestamp;",
			"uint u = block.timestamp;",
		}},
	}

	report, _, err := Engine{}.Scan(context.Background(), reg, files)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	total := 0
	for _, count := range report.CountsBySeverity {
		total += count
	}
	if total != len(report.Findings) {
		t.Fatalf("counts sum %d != findings %d", total, len(report.Findings))
	}
	if report.CountsBySeverity[rules.SeverityHigh] != 1 || report.CountsBySeverity[rules.SeverityLow] != 2 {
		t.Fatalf("unexpected counts: %v", report.CountsBySeverity)
	}
}

func TestScanLineBudgetExceeded(t *testing.T) {
	reg := mustRegistry(t, []rules.Rule{
		{ID: "ts", Severity: rules.SeverityLow, Matcher: rules.Literal("block.timestamp")},
	})
	files := []SourceFile{
		{Path: "a.sol", Lines: []string{"block.timestamp", "block.timestamp", "block.timestamp"}},
	}

	report, evalErrs, err := Engine{MaxLines: 2}.Scan(context.Background(), reg, files)

	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if len(report.Findings) != 0 || len(evalErrs) != 0 {
		t.Fatal("a timed-out scan must not return partial results")
	}
}

func TestScanHonorsDeadline(t *testing.T) {
	reg := mustRegistry(t, []rules.Rule{
		{ID: "ts", Severity: rules.SeverityLow, Matcher: rules.Literal("block.timestamp")},
	})
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, _, err := Engine{}.Scan(ctx, reg, []SourceFile{{Path: "a.sol", Lines: []string{"block.timestamp"}}})

	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError on expired deadline, got %v", err)
	}
}

func TestWorstSeverity(t *testing.T) {
	report := Report{Findings: []Finding{
		{RuleID: "a", Severity: rules.SeverityLow},
		{RuleID: "b", Severity: rules.SeverityMedium},
	}}

	worst, ok := WorstSeverity(report)
	if !ok || worst != rules.SeverityMedium {
		t.Fatalf("expected medium, got %s (ok=%v)", worst, ok)
	}

	if _, ok := WorstSeverity(Report{}); ok {
		t.Fatal("empty report has no worst severity")
	}
}
