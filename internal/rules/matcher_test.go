package rules

import "testing"

func TestLiteralMatch(t *testing.T) {
	m, err := NewLiteral("tx.origin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ok, _ := m.Match("require(tx.origin == owner);"); !ok {
		t.Fatal("literal should match containing line")
	}
	if ok, _ := m.Match("require(msg.sender == owner);"); ok {
		t.Fatal("literal should not match unrelated line")
	}
}

func TestNewLiteralRejectsEmpty(t *testing.T) {
	if _, err := NewLiteral("   "); err == nil {
		t.Fatal("empty literal must be rejected")
	}
}

func TestRegexMatch(t *testing.T) {
	m, err := NewRegex(`\.call\s*[\({]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ok, _ := m.Match("target.call{value: amount}(\"\");"); !ok {
		t.Fatal("regex should match call with value")
	}
	if ok, _ := m.Match("callback();"); ok {
		t.Fatal("regex should not match plain identifier")
	}
}

func TestNewRegexRejectsMalformed(t *testing.T) {
	if _, err := NewRegex(`(`); err == nil {
		t.Fatal("malformed regex must fail at construction")
	}
}

func TestAnyOfMatch(t *testing.T) {
	m, err := NewAnyOf(Literal(".transfer("), MustRegex(`\.send\s*\(`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ok, _ := m.Match("payable(to).send (1 ether);"); !ok {
		t.Fatal("anyOf should match on the regex alternative")
	}
	if ok, _ := m.Match("recipient.transfer(amount);"); !ok {
		t.Fatal("anyOf should match on the literal alternative")
	}
	if ok, _ := m.Match("balanceOf(msg.sender);"); ok {
		t.Fatal("anyOf should not match when no alternative does")
	}
}

func TestNewAnyOfRejectsEmpty(t *testing.T) {
	if _, err := NewAnyOf(); err == nil {
		t.Fatal("anyOf without alternatives must be rejected")
	}
}

func TestSeverityRankOrder(t *testing.T) {
	for i := 1; i < len(Severities); i++ {
		if Severities[i-1].Rank() <= Severities[i].Rank() {
			t.Fatalf("%s should outrank %s", Severities[i-1], Severities[i])
		}
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]Severity{
		"Critical":      SeverityCritical,
		"HIGH":          SeverityHigh,
		" medium ":      SeverityMedium,
		"low":           SeverityLow,
		"informational": SeverityInformational,
		"info":          SeverityInformational,
	}
	for input, want := range cases {
		got, err := ParseSeverity(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", input, want, got)
		}
	}

	if _, err := ParseSeverity("urgent"); err == nil {
		t.Fatal("unknown severity must fail to parse")
	}
}
