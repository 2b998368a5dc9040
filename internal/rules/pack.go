package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule packs are YAML files that extend or replace the built-in ruleset.
// Each entry names exactly one matcher kind:
//
//	rules:
//	  - id: tx-origin
//	    description: tx.origin used for authorization
//	    severity: high
//	    literal: "tx.origin"
//	    exclude:
//	      - pattern: '^\s*//'
//	  - id: external-transfer
//	    severity: medium
//	    anyOf:
//	      - literal: ".transfer("
//	      - pattern: '\.send\s*\('

type packFile struct {
	Rules []packRule `yaml:"rules"`
}

type packRule struct {
	ID          string        `yaml:"id"`
	Description string        `yaml:"description"`
	Severity    string        `yaml:"severity"`
	packMatcher `yaml:",inline"`
	Exclude     []packMatcher `yaml:"exclude"`
}

type packMatcher struct {
	Literal string        `yaml:"literal"`
	Pattern string        `yaml:"pattern"`
	AnyOf   []packMatcher `yaml:"anyOf"`
}

// LoadPack reads and parses a YAML rule pack from disk.
func LoadPack(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rs, err := ParsePack(data)
	if err != nil {
		return nil, fmt.Errorf("rule pack %s: %w", path, err)
	}
	return rs, nil
}

// ParsePack converts rule-pack YAML into rules ready for NewRegistry.
// Matcher problems (missing, ambiguous, malformed regex) surface as
// InvalidRuleError so pack loading fails the same way registry
// construction does.
func ParsePack(data []byte) ([]Rule, error) {
	var pack packFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	out := make([]Rule, 0, len(pack.Rules))
	for _, pr := range pack.Rules {
		sev, err := ParseSeverity(pr.Severity)
		if err != nil {
			return nil, &InvalidRuleError{RuleID: pr.ID, Reason: err.Error()}
		}

		matcher, err := buildMatcher(pr.packMatcher)
		if err != nil {
			return nil, &InvalidRuleError{RuleID: pr.ID, Reason: err.Error()}
		}

		var exclusions []Matcher
		for _, pe := range pr.Exclude {
			ex, err := buildMatcher(pe)
			if err != nil {
				return nil, &InvalidRuleError{RuleID: pr.ID, Reason: fmt.Sprintf("exclusion: %v", err)}
			}
			exclusions = append(exclusions, ex)
		}

		out = append(out, Rule{
			ID:          pr.ID,
			Description: pr.Description,
			Severity:    sev,
			Matcher:     matcher,
			Exclusions:  exclusions,
		})
	}
	return out, nil
}

func buildMatcher(pm packMatcher) (Matcher, error) {
	kinds := 0
	if pm.Literal != "" {
		kinds++
	}
	if pm.Pattern != "" {
		kinds++
	}
	if len(pm.AnyOf) > 0 {
		kinds++
	}
	if kinds == 0 {
		return nil, fmt.Errorf("matcher requires one of literal, pattern, or anyOf")
	}
	if kinds > 1 {
		return nil, fmt.Errorf("matcher must set exactly one of literal, pattern, or anyOf")
	}

	switch {
	case pm.Literal != "":
		return NewLiteral(pm.Literal)
	case pm.Pattern != "":
		return NewRegex(pm.Pattern)
	default:
		alts := make([]Matcher, 0, len(pm.AnyOf))
		for _, sub := range pm.AnyOf {
			alt, err := buildMatcher(sub)
			if err != nil {
				return nil, err
			}
			alts = append(alts, alt)
		}
		return NewAnyOf(alts...)
	}
}
