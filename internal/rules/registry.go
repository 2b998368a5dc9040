package rules

import "fmt"

// Rule is a named, severity-tagged pattern plus optional suppression
// conditions. A line matching the Matcher but also matching any of the
// Exclusions produces no finding for this rule.
type Rule struct {
	ID          string
	Description string
	Severity    Severity
	Matcher     Matcher
	Exclusions  []Matcher
}

// InvalidRuleError reports a malformed rule definition. Registry
// construction fails entirely on the first invalid rule; partial
// registries are never produced.
type InvalidRuleError struct {
	RuleID string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("invalid rule: %s", e.Reason)
	}
	return fmt.Sprintf("invalid rule %s: %s", e.RuleID, e.Reason)
}

// UnknownRuleError reports a lookup of a rule id absent from the registry.
type UnknownRuleError struct {
	RuleID string
}

func (e *UnknownRuleError) Error() string {
	return fmt.Sprintf("unknown rule: %s", e.RuleID)
}

// Registry holds a validated, ordered rule set. It is immutable after
// construction and safe for concurrent readers.
type Registry struct {
	ordered []Rule
	byID    map[string]Rule
}

// NewRegistry validates every rule before accepting any. It fails with
// InvalidRuleError on duplicate ids, severities outside the five fixed
// levels, or missing matchers.
func NewRegistry(rs []Rule) (*Registry, error) {
	reg := &Registry{
		ordered: make([]Rule, 0, len(rs)),
		byID:    make(map[string]Rule, len(rs)),
	}
	for _, r := range rs {
		if err := validateRule(r); err != nil {
			return nil, err
		}
		if _, dup := reg.byID[r.ID]; dup {
			return nil, &InvalidRuleError{RuleID: r.ID, Reason: "duplicate rule id"}
		}
		reg.byID[r.ID] = r
		reg.ordered = append(reg.ordered, r)
	}
	return reg, nil
}

func validateRule(r Rule) error {
	if r.ID == "" {
		return &InvalidRuleError{Reason: "rule id cannot be empty"}
	}
	if !r.Severity.Valid() {
		return &InvalidRuleError{RuleID: r.ID, Reason: fmt.Sprintf("severity %q is not one of the fixed levels", r.Severity)}
	}
	if r.Matcher == nil {
		return &InvalidRuleError{RuleID: r.ID, Reason: "rule has no matcher"}
	}
	for i, ex := range r.Exclusions {
		if ex == nil {
			return &InvalidRuleError{RuleID: r.ID, Reason: fmt.Sprintf("exclusion %d is nil", i)}
		}
	}
	return nil
}

// Get returns the rule registered under id.
func (r *Registry) Get(id string) (Rule, error) {
	rule, ok := r.byID[id]
	if !ok {
		return Rule{}, &UnknownRuleError{RuleID: id}
	}
	return rule, nil
}

// Rules returns the rules in insertion order. Callers must not mutate
// the returned slice.
func (r *Registry) Rules() []Rule {
	return r.ordered
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.ordered)
}
