package report

import (
	"encoding/json"
	"fmt"

	"github.com/example/solscan/internal/rules"
)

// SARIF 2.1.0 output, reduced to the fields CI systems consume.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

// RenderSARIF serializes both the engine's and the external analyzer's
// findings as a single SARIF run.
func RenderSARIF(doc Document) ([]byte, error) {
	results := make([]sarifResult, 0, len(doc.Scan.Findings)+len(doc.External))

	for _, f := range doc.Scan.Findings {
		text := f.Snippet
		if text == "" {
			text = fmt.Sprintf("rule %s matched", f.RuleID)
		}
		results = append(results, sarifResult{
			RuleID:    f.RuleID,
			Level:     sarifLevel(f.Severity),
			Message:   sarifMessage{Text: text},
			Locations: []sarifLocation{sarifLocationFor(f.File, f.Line)},
		})
	}

	for _, f := range doc.External {
		text := f.Description
		if text == "" {
			text = fmt.Sprintf("detector %s triggered", f.Detector)
		}
		results = append(results, sarifResult{
			RuleID:    "slither/" + f.Detector,
			Level:     sarifLevel(f.Severity),
			Message:   sarifMessage{Text: text},
			Locations: []sarifLocation{sarifLocationFor(f.File, f.Line)},
		})
	}

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json",
		Runs: []sarifRun{
			{
				Tool:    sarifTool{Driver: sarifDriver{Name: "solscan", Version: "1.0.0"}},
				Results: results,
			},
		},
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func sarifLevel(sev rules.Severity) string {
	switch sev {
	case rules.SeverityCritical, rules.SeverityHigh:
		return "error"
	case rules.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func sarifLocationFor(file string, line int) sarifLocation {
	if line < 1 {
		line = 1
	}
	return sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: file},
			Region:           sarifRegion{StartLine: line},
		},
	}
}
