package rules

import (
	"fmt"
	"strings"
)

// Severity classifies how dangerous a rule's findings are.
type Severity string

const (
	SeverityCritical      Severity = "critical"
	SeverityHigh          Severity = "high"
	SeverityMedium        Severity = "medium"
	SeverityLow           Severity = "low"
	SeverityInformational Severity = "informational"
)

// Severities lists every level from worst to least severe. Reports key
// their counts off this slice so all levels are always present.
var Severities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInformational,
}

// Rank returns the position of the severity in the fixed order. Higher
// means worse; unknown values rank below informational.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInformational:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the severity is one of the five fixed levels.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// ParseSeverity normalizes user input (config files, rule packs, flags)
// into a Severity.
func ParseSeverity(v string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "critical":
		return SeverityCritical, nil
	case "high":
		return SeverityHigh, nil
	case "medium":
		return SeverityMedium, nil
	case "low":
		return SeverityLow, nil
	case "informational", "info":
		return SeverityInformational, nil
	default:
		return "", fmt.Errorf("unknown severity %q (expected critical, high, medium, low, or informational)", v)
	}
}
