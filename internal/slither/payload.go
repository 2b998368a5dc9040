package slither

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/example/solscan/internal/rules"
)

type payload struct {
	Success bool        `json:"success"`
	Error   interface{} `json:"error"`
	Results struct {
		Detectors []detector `json:"detectors"`
	} `json:"results"`
}

type detector struct {
	Check       string    `json:"check"`
	Impact      string    `json:"impact"`
	Confidence  string    `json:"confidence"`
	Description string    `json:"description"`
	Elements    []element `json:"elements"`
}

type element struct {
	Name          string        `json:"name"`
	SourceMapping sourceMapping `json:"source_mapping"`
}

type sourceMapping struct {
	FilenameRelative string `json:"filename_relative"`
	FilenameShort    string `json:"filename_short"`
	FilenameUsed     string `json:"filename_used"`
	FilenameAbsolute string `json:"filename_absolute"`
	Lines            []int  `json:"lines"`
}

// parsePayload extracts the JSON object from slither's stdout, which may
// carry compiler noise before or after it.
func parsePayload(out []byte) (payload, error) {
	var p payload
	raw := bytes.TrimSpace(out)
	if len(raw) == 0 {
		return p, fmt.Errorf("empty output")
	}
	start := bytes.IndexByte(raw, '{')
	end := bytes.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return p, fmt.Errorf("no json object in output")
	}
	if err := json.Unmarshal(raw[start:end+1], &p); err != nil {
		return p, err
	}
	return p, nil
}

func (p payload) errorText() string {
	switch e := p.Error.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(e)
	default:
		b, _ := json.Marshal(e)
		return strings.TrimSpace(string(b))
	}
}

// normalize flattens detector elements into findings, dropping elements
// without a usable location and deduplicating repeated (file, line,
// detector) tuples. Findings come back in deterministic order.
func normalize(p payload) ([]Finding, int) {
	var out []Finding
	seen := map[string]bool{}

	for _, det := range p.Results.Detectors {
		sev := severityFromImpact(det.Impact)
		for _, el := range det.Elements {
			file, line := location(el.SourceMapping)
			if file == "" || line <= 0 {
				continue
			}
			key := fmt.Sprintf("%s:%d:%s", file, line, det.Check)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Finding{
				Detector:    det.Check,
				Severity:    sev,
				File:        file,
				Line:        line,
				Description: firstLine(det.Description),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Detector < out[j].Detector
	})
	return out, len(p.Results.Detectors)
}

// severityFromImpact maps slither impact levels onto the report's fixed
// severity scale. Slither never reports critical; "optimization" lands
// on informational.
func severityFromImpact(impact string) rules.Severity {
	switch strings.ToLower(strings.TrimSpace(impact)) {
	case "high":
		return rules.SeverityHigh
	case "medium":
		return rules.SeverityMedium
	case "low":
		return rules.SeverityLow
	default:
		return rules.SeverityInformational
	}
}

func location(sm sourceMapping) (string, int) {
	line := 0
	if len(sm.Lines) > 0 {
		line = sm.Lines[0]
	}
	for _, cand := range []string{sm.FilenameRelative, sm.FilenameShort, sm.FilenameUsed, sm.FilenameAbsolute} {
		if f := strings.TrimSpace(cand); f != "" {
			return f, line
		}
	}
	return "", line
}

func firstLine(v string) string {
	s := strings.TrimSpace(v)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
