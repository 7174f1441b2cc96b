package fasttrack

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleRules = `
rules:
  - problem: printer
    keywords: [printer, принтер, друкує]
    solution: |
      1. Power-cycle the printer.
      2. Check the cable.
    outcome: quickfix
    category: hardware
  - problem: vpn certificate
    keywords: [vpn]
    solution: "VPN certificates are renewed automatically every 90 days."
    outcome: informational
  - problem: dead workstation
    keywords: ["won't turn on", "не вмикається"]
    solution: "A technician will come to you. Ticket is being created."
    outcome: autoticket
    priority: high
`

func loadSample(t *testing.T) *Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(sampleRules), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	table, err := Load(path)
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	return table
}

func TestMatchCyrillicKeyword(t *testing.T) {
	table := loadSample(t)
	rule, ok := table.Match("принтер не друкує")
	if !ok {
		t.Fatal("expected match for cyrillic keyword")
	}
	if rule.Problem != "printer" {
		t.Fatalf("unexpected rule: %s", rule.Problem)
	}
	if rule.Outcome != OutcomeQuickFix {
		t.Fatalf("unexpected outcome: %s", rule.Outcome)
	}
}

func TestMatchIsCaseInsensitive(t *testing.T) {
	table := loadSample(t)
	if _, ok := table.Match("My PRINTER is dead"); !ok {
		t.Fatal("expected case-insensitive match")
	}
}

func TestMatchMissReturnsFalse(t *testing.T) {
	table := loadSample(t)
	if _, ok := table.Match("the coffee machine is empty"); ok {
		t.Fatal("unexpected match")
	}
}

func TestAutoTicketOutcome(t *testing.T) {
	table := loadSample(t)
	rule, ok := table.Match("комп'ютер не вмикається зовсім")
	if !ok {
		t.Fatal("expected match")
	}
	if rule.Outcome != OutcomeAutoTicket {
		t.Fatalf("unexpected outcome: %s", rule.Outcome)
	}
	if rule.Priority != "high" {
		t.Fatalf("unexpected priority: %s", rule.Priority)
	}
}

func TestLoadMissingFileYieldsEmptyTable(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("expected empty table, got %d rules", table.Len())
	}
}

func TestReloadSwapsRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(sampleRules), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	table, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 rules, got %d", table.Len())
	}

	replacement := "rules:\n  - problem: scanner\n    keywords: [scanner]\n    solution: \"Is the scanner plugged in?\"\n    outcome: quickfix\n"
	if err := os.WriteFile(path, []byte(replacement), 0o644); err != nil {
		t.Fatalf("rewrite rules: %v", err)
	}
	if err := table.Reload(path); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("expected 1 rule after reload, got %d", table.Len())
	}
	if _, ok := table.Match("printer"); ok {
		t.Fatal("old rules still active after reload")
	}
}

func TestRulesWithoutSolutionAreDropped(t *testing.T) {
	rules, err := parseRules([]byte("rules:\n  - problem: broken\n    keywords: [x]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("expected invalid rule dropped, got %d", len(rules))
	}
}

func TestCatalogueListsProblems(t *testing.T) {
	table := loadSample(t)
	catalogue := table.Catalogue()
	if catalogue == "" {
		t.Fatal("expected non-empty catalogue")
	}
	for _, want := range []string{"printer", "vpn certificate", "dead workstation"} {
		if !strings.Contains(catalogue, want) {
			t.Fatalf("catalogue missing %q: %s", want, catalogue)
		}
	}
}
