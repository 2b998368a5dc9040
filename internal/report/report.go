// Package report merges pattern-engine findings with external analyzer
// findings and renders them as JSON, Markdown, or SARIF artifacts.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/solscan/internal/rules"
	"github.com/example/solscan/internal/scan"
	"github.com/example/solscan/internal/slither"
)

// Document is the complete, serializable output of one scan run.
type Document struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Target      string            `json:"target"`
	Engine      string            `json:"engine"`
	Scan        scan.Report       `json:"scan"`
	Warnings    []scan.EvalError  `json:"warnings,omitempty"`
	External    []slither.Finding `json:"external,omitempty"`
}

// Write renders the document in each requested format into outDir, one
// timestamped artifact per format. It returns the written paths.
func Write(doc Document, outDir string, formats []string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	ts := doc.GeneratedAt.UTC().Format("20060102_150405")
	var written []string
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		if format == "" {
			continue
		}

		var data []byte
		var err error
		var ext string
		switch format {
		case "json":
			data, err = RenderJSON(doc)
			ext = "json"
		case "markdown", "md":
			data = []byte(RenderMarkdown(doc))
			ext = "md"
		case "sarif":
			data, err = RenderSARIF(doc)
			ext = "sarif"
		default:
			return written, fmt.Errorf("unsupported report format %q", format)
		}
		if err != nil {
			return written, err
		}

		path := filepath.Join(outDir, fmt.Sprintf("solscan_%s.%s", ts, ext))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// Load reads a previously written JSON artifact back into a Document.
func Load(path string) (Document, error) {
	var doc Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse report %s: %w", path, err)
	}
	return doc, nil
}

// RenderJSON serializes the document with stable indentation.
func RenderJSON(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RenderMarkdown produces the human-readable report: a severity counts
// table, the per-finding listing, external analyzer results, and any
// evaluation warnings.
func RenderMarkdown(doc Document) string {
	var b strings.Builder
	b.WriteString("# Solidity Scan Report\n\n")
	fmt.Fprintf(&b, "- Target: `%s`\n", doc.Target)
	fmt.Fprintf(&b, "- Engine: %s\n", doc.Engine)
	fmt.Fprintf(&b, "- Generated: %s\n\n", doc.GeneratedAt.UTC().Format(time.RFC3339))

	b.WriteString("## Severity Counts\n\n")
	b.WriteString("| Severity | Count |\n|---|---|\n")
	for _, sev := range rules.Severities {
		fmt.Fprintf(&b, "| %s | %d |\n", sev, doc.Scan.CountsBySeverity[sev])
	}
	b.WriteString("\n")

	b.WriteString("## Findings\n\n")
	if len(doc.Scan.Findings) == 0 {
		b.WriteString("No pattern findings.\n\n")
	} else {
		for _, f := range doc.Scan.Findings {
			fmt.Fprintf(&b, "- **%s** [%s] %s:%d\n", f.RuleID, f.Severity, f.File, f.Line)
			if f.Snippet != "" {
				fmt.Fprintf(&b, "  `%s`\n", f.Snippet)
			}
		}
		b.WriteString("\n")
	}

	if len(doc.External) > 0 {
		b.WriteString("## External Analyzer Findings\n\n")
		for _, f := range doc.External {
			fmt.Fprintf(&b, "- **%s** [%s] %s:%d", f.Detector, f.Severity, f.File, f.Line)
			if f.Description != "" {
				fmt.Fprintf(&b, " — %s", f.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(doc.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		b.WriteString("Some rules failed to evaluate; their results may be incomplete.\n\n")
		for _, w := range doc.Warnings {
			fmt.Fprintf(&b, "- rule `%s` on `%s`: %s\n", w.RuleID, w.File, w.Message)
		}
		b.WriteString("\n")
	}

	return b.String()
}
