package slither

import (
	"context"
	"testing"

	"github.com/example/solscan/internal/rules"
)

// fakeRunner is a test double for code that depends on Runner.
type fakeRunner struct {
	ensureErr  error
	analyzeErr error
	result     Result
	lastInput  *Input
}

func (f *fakeRunner) EnsureBinary() error {
	return f.ensureErr
}

func (f *fakeRunner) Analyze(ctx context.Context, input Input) (Result, error) {
	f.lastInput = &input
	return f.result, f.analyzeErr
}

var _ Runner = (*fakeRunner)(nil)

func TestNewRunnerDefaults(t *testing.T) {
	runner := NewRunner()
	cr, ok := runner.(*CommandRunner)
	if !ok {
		t.Fatal("NewRunner should return a *CommandRunner")
	}
	if cr.Binary != "slither" {
		t.Fatalf("expected binary name 'slither', got %q", cr.Binary)
	}
}

func TestEnsureBinaryWhenPresent(t *testing.T) {
	runner := &CommandRunner{Binary: "go"} // a binary known to exist in test envs
	if err := runner.EnsureBinary(); err != nil {
		t.Fatalf("EnsureBinary should succeed for 'go': %v", err)
	}
}

func TestEnsureBinaryWhenMissing(t *testing.T) {
	runner := &CommandRunner{Binary: "nonexistent-binary-12345"}
	if err := runner.EnsureBinary(); err == nil {
		t.Fatal("EnsureBinary should fail for nonexistent binary")
	}
}

func TestParsePayloadWithSurroundingNoise(t *testing.T) {
	out := []byte("Compilation warnings ahead\n" +
		`{"success": true, "error": null, "results": {"detectors": [` +
		`{"check": "reentrancy-eth", "impact": "High", "description": "Reentrancy in withdraw\nmore detail", "elements": [` +
		`{"name": "withdraw", "source_mapping": {"filename_relative": "Vault.sol", "lines": [42, 43]}}]}]}}` +
		"\ntrailing noise")

	p, err := parsePayload(out)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if !p.Success {
		t.Fatal("payload should report success")
	}

	findings, detectors := normalize(p)
	if detectors != 1 {
		t.Fatalf("expected 1 detector, got %d", detectors)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}

	f := findings[0]
	if f.Detector != "reentrancy-eth" || f.File != "Vault.sol" || f.Line != 42 {
		t.Fatalf("unexpected finding: %+v", f)
	}
	if f.Severity != rules.SeverityHigh {
		t.Fatalf("impact High should map to high severity, got %s", f.Severity)
	}
	if f.Description != "Reentrancy in withdraw" {
		t.Fatalf("description should be the first line, got %q", f.Description)
	}
}

func TestParsePayloadEmptyOutput(t *testing.T) {
	if _, err := parsePayload(nil); err == nil {
		t.Fatal("empty output must fail to parse")
	}
	if _, err := parsePayload([]byte("no json here")); err == nil {
		t.Fatal("output without a JSON object must fail to parse")
	}
}

func TestNormalizeDeduplicatesAndSorts(t *testing.T) {
	p := payload{Success: true}
	p.Results.Detectors = []detector{
		{
			Check:  "timestamp",
			Impact: "Low",
			Elements: []element{
				{SourceMapping: sourceMapping{FilenameRelative: "b.sol", Lines: []int{7}}},
				{SourceMapping: sourceMapping{FilenameRelative: "b.sol", Lines: []int{7}}},
				{SourceMapping: sourceMapping{FilenameRelative: "a.sol", Lines: []int{3}}},
				{SourceMapping: sourceMapping{Lines: []int{9}}}, // no filename, dropped
			},
		},
	}

	findings, _ := normalize(p)
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings after dedupe, got %d", len(findings))
	}
	if findings[0].File != "a.sol" || findings[1].File != "b.sol" {
		t.Fatalf("findings should be sorted by file, got %+v", findings)
	}
}

func TestSeverityFromImpact(t *testing.T) {
	cases := map[string]rules.Severity{
		"High":          rules.SeverityHigh,
		"medium":        rules.SeverityMedium,
		"LOW":           rules.SeverityLow,
		"Informational": rules.SeverityInformational,
		"Optimization":  rules.SeverityInformational,
		"":              rules.SeverityInformational,
	}
	for impact, want := range cases {
		if got := severityFromImpact(impact); got != want {
			t.Fatalf("impact %q: expected %s, got %s", impact, want, got)
		}
	}
}

func TestPayloadErrorText(t *testing.T) {
	p := payload{Error: "compilation failed"}
	if p.errorText() != "compilation failed" {
		t.Fatalf("unexpected error text: %q", p.errorText())
	}

	p = payload{Error: map[string]interface{}{"reason": "bad"}}
	if p.errorText() == "" {
		t.Fatal("structured errors should serialize to text")
	}

	p = payload{}
	if p.errorText() != "" {
		t.Fatal("nil error should produce empty text")
	}
}
