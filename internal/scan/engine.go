package scan

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"

	"github.com/example/solscan/internal/rules"
)

// Engine applies every rule in a registry to every file in a corpus.
// It holds no state between scans: each Scan call is a pure function of
// (registry, corpus) modulo the collected evaluation errors.
//
// Matching is line-oriented and stateless across lines; a rule cannot
// match text spanning multiple lines. This is a deliberate scope
// limitation of the engine, not an oversight.
type Engine struct {
	// Workers bounds the file-level worker pool. Zero means NumCPU,
	// capped at 32.
	Workers int

	// MaxLines caps the total number of lines a scan may cover. Zero
	// means unbounded. Exceeding the cap fails the scan with a
	// TimeoutError before any file is evaluated.
	MaxLines int
}

type fileResult struct {
	findings []Finding
	errs     []EvalError
}

// Scan evaluates the registry against the corpus and returns the report
// plus any per-rule evaluation errors. Files are scanned concurrently;
// the final ordering is normalized by sorting, never by completion
// order. Zero-line files are permitted and contribute nothing.
func (e Engine) Scan(ctx context.Context, reg *rules.Registry, files []SourceFile) (Report, []EvalError, error) {
	if reg == nil {
		return Report{}, nil, errors.New("scan: registry is nil")
	}

	total := 0
	for _, f := range files {
		total += len(f.Lines)
	}
	if e.MaxLines > 0 && total > e.MaxLines {
		return Report{}, nil, &TimeoutError{Limit: e.MaxLines, Scanned: total}
	}
	if err := ctx.Err(); err != nil {
		return Report{}, nil, scanAborted(err)
	}

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > 32 {
		workers = 32
	}
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	ruleSet := reg.Rules()
	jobs := make(chan SourceFile, len(files))
	results := make(chan fileResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				if ctx.Err() != nil {
					return
				}
				findings, errs := scanFile(f, ruleSet)
				results <- fileResult{findings: findings, errs: errs}
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return Report{}, nil, scanAborted(err)
	}

	var findings []Finding
	var evalErrs []EvalError
	for batch := range results {
		findings = append(findings, batch.findings...)
		evalErrs = append(evalErrs, batch.errs...)
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].File != findings[j].File {
			return findings[i].File < findings[j].File
		}
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}
		return findings[i].RuleID < findings[j].RuleID
	})
	sort.Slice(evalErrs, func(i, j int) bool {
		if evalErrs[i].File != evalErrs[j].File {
			return evalErrs[i].File < evalErrs[j].File
		}
		return evalErrs[i].RuleID < evalErrs[j].RuleID
	})

	report := Report{
		Findings:         findings,
		CountsBySeverity: countBySeverity(findings),
	}
	return report, evalErrs, nil
}

// scanFile evaluates every rule against every line of one file. A rule
// that errors is recorded once and skipped for the remainder of the
// file; other rules keep evaluating independently.
func scanFile(f SourceFile, ruleSet []rules.Rule) ([]Finding, []EvalError) {
	var findings []Finding
	var errs []EvalError
	var failed map[string]bool

	for idx, line := range f.Lines {
		for _, r := range ruleSet {
			if failed[r.ID] {
				continue
			}

			matched, err := r.Matcher.Match(line)
			if err == nil && matched {
				matched, err = notExcluded(r, line)
			}
			if err != nil {
				if failed == nil {
					failed = make(map[string]bool)
				}
				failed[r.ID] = true
				errs = append(errs, EvalError{
					RuleID:  r.ID,
					File:    f.Path,
					Err:     err,
					Message: err.Error(),
				})
				continue
			}
			if matched {
				findings = append(findings, newFinding(r, f.Path, idx+1, line))
			}
		}
	}
	return findings, errs
}

// notExcluded reports whether the already-matched line survives the
// rule's exclusions. An exclusion hit suppresses the finding for this
// rule only.
func notExcluded(r rules.Rule, line string) (bool, error) {
	for _, ex := range r.Exclusions {
		hit, err := ex.Match(line)
		if err != nil {
			return false, err
		}
		if hit {
			return false, nil
		}
	}
	return true, nil
}

func scanAborted(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Cause: err}
	}
	return err
}
