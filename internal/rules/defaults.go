package rules

// commentLine suppresses matches on lines that are Solidity comments.
// Line comments, block comment openers, and the continuation lines of
// NatSpec blocks all start with one of these prefixes once indentation
// is stripped.
var commentLine = MustRegex(`^\s*(//|/\*|\*)`)

// DefaultRules returns the built-in Solidity ruleset. Every rule carries
// the comment-line exclusion; rules whose pattern has a common safe form
// carry an extra exclusion for it.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "unprotected-upgrade",
			Description: "Upgrade entrypoint without an obvious access-control modifier",
			Severity:    SeverityCritical,
			Matcher:     MustRegex(`upgradeTo(AndCall)?\s*\(|setImplementation\s*\(`),
			Exclusions: []Matcher{
				commentLine,
				AnyOf{Literal("onlyOwner"), Literal("onlyRole"), Literal("onlyProxy")},
			},
		},
		{
			ID:          "tx-origin",
			Description: "tx.origin used in contract logic; susceptible to phishing, use msg.sender",
			Severity:    SeverityHigh,
			Matcher:     Literal("tx.origin"),
			Exclusions:  []Matcher{commentLine},
		},
		{
			ID:          "delegatecall",
			Description: "delegatecall can hand full storage control to the callee",
			Severity:    SeverityHigh,
			Matcher:     MustRegex(`\.delegatecall\s*[\({]`),
			Exclusions:  []Matcher{commentLine},
		},
		{
			ID:          "selfdestruct",
			Description: "selfdestruct permanently disables the contract",
			Severity:    SeverityHigh,
			Matcher:     MustRegex(`\bselfdestruct\s*\(|\bsuicide\s*\(`),
			Exclusions:  []Matcher{commentLine},
		},
		{
			ID:          "unchecked-call",
			Description: "Low-level call whose return value may be ignored",
			Severity:    SeverityMedium,
			Matcher:     MustRegex(`\.call\s*[\({]`),
			Exclusions: []Matcher{
				commentLine,
				AnyOf{Literal("bool success"), Literal("bool ok"), Literal("require(")},
			},
		},
		{
			ID:          "transfer-send",
			Description: "transfer/send forward a fixed gas stipend and break with gas repricing",
			Severity:    SeverityMedium,
			Matcher:     MustRegex(`\.transfer\s*\(|\.send\s*\(`),
			Exclusions: []Matcher{
				commentLine,
				AnyOf{Literal("safeTransfer"), Literal("SafeERC20")},
			},
		},
		{
			ID:          "weak-randomness",
			Description: "Block attributes are miner-influenced and unfit as entropy",
			Severity:    SeverityMedium,
			Matcher:     MustRegex(`blockhash\s*\(|block\.difficulty|block\.prevrandao`),
			Exclusions:  []Matcher{commentLine},
		},
		{
			ID:          "timestamp-dependence",
			Description: "Logic keyed on block.timestamp can be nudged by validators",
			Severity:    SeverityLow,
			Matcher:     Literal("block.timestamp"),
			Exclusions:  []Matcher{commentLine},
		},
		{
			ID:          "inline-assembly",
			Description: "Inline assembly bypasses compiler safety checks",
			Severity:    SeverityInformational,
			Matcher:     MustRegex(`\bassembly\s*\{`),
			Exclusions:  []Matcher{commentLine},
		},
		{
			ID:          "floating-pragma",
			Description: "Floating pragma allows compilation with untested compiler versions",
			Severity:    SeverityInformational,
			Matcher:     MustRegex(`pragma\s+solidity\s*[\^>]`),
			Exclusions:  []Matcher{commentLine},
		},
	}
}
