// Package slither drives the external Slither analyzer and normalizes
// its JSON output into severity-tagged findings. Slither runs
// independently of the pattern engine; the two result sets are merged
// only at the reporting layer.
package slither

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/example/solscan/internal/rules"
)

const (
	defaultTimeoutSeconds = 180
	minTimeoutSeconds     = 30
	maxTimeoutSeconds     = 1200
)

// Input describes a single analyzer invocation.
type Input struct {
	Target         string
	Detectors      []string
	TimeoutSeconds int
}

// Finding is one analyzer result normalized to the report model.
type Finding struct {
	Detector    string         `json:"detector"`
	Severity    rules.Severity `json:"severity"`
	File        string         `json:"file"`
	Line        int            `json:"line"`
	Description string         `json:"description"`
}

// Result carries the normalized findings plus invocation metadata.
type Result struct {
	Findings  []Finding     `json:"findings"`
	Detectors int           `json:"detectors"`
	ExitCode  int           `json:"exit_code"`
	Duration  time.Duration `json:"-"`
}

// Runner defines the operations needed to drive the analyzer binary.
type Runner interface {
	EnsureBinary() error
	Analyze(ctx context.Context, input Input) (Result, error)
}

// CommandRunner executes the real slither binary found on PATH.
type CommandRunner struct {
	Binary string
}

// NewRunner returns a default command runner.
func NewRunner() Runner {
	return &CommandRunner{Binary: "slither"}
}

// EnsureBinary verifies that the analyzer binary is discoverable.
func (r *CommandRunner) EnsureBinary() error {
	if _, err := exec.LookPath(r.Binary); err != nil {
		return fmt.Errorf("slither binary not found: %w", err)
	}
	return nil
}

// Analyze runs slither against the target and parses its JSON report.
// Slither exits non-zero when it has findings, so the exit code alone is
// never treated as failure while the payload reports success.
func (r *CommandRunner) Analyze(ctx context.Context, input Input) (Result, error) {
	timeout := normalizeTimeout(input.TimeoutSeconds)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{input.Target, "--json", "-", "--exclude-dependencies"}
	if len(input.Detectors) > 0 {
		detectors := append([]string(nil), input.Detectors...)
		sort.Strings(detectors)
		args = append(args, "--detect", strings.Join(detectors, ","))
	}

	// Binary path is controlled by the application and args are built
	// from validated inputs, making command injection impossible.
	cmd := exec.CommandContext(runCtx, r.Binary, args...) // #nosec G204

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	runErr := cmd.Run()
	result := Result{Duration: time.Since(started)}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return result, fmt.Errorf("slither timed out after %s", timeout)
	}

	payload, parseErr := parsePayload(stdout.Bytes())
	if parseErr != nil {
		if runErr != nil {
			return result, fmt.Errorf("run slither: %s", firstNonEmpty(strings.TrimSpace(stderr.String()), runErr.Error()))
		}
		return result, fmt.Errorf("parse slither output: %w", parseErr)
	}
	if !payload.Success {
		msg := firstNonEmpty(payload.errorText(), strings.TrimSpace(stderr.String()), "slither reported unsuccessful execution")
		return result, fmt.Errorf("slither failed: %s", msg)
	}

	result.Findings, result.Detectors = normalize(payload)
	return result, nil
}

func normalizeTimeout(seconds int) time.Duration {
	switch {
	case seconds <= 0:
		seconds = defaultTimeoutSeconds
	case seconds < minTimeoutSeconds:
		seconds = minTimeoutSeconds
	case seconds > maxTimeoutSeconds:
		seconds = maxTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
