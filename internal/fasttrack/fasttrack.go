// Package fasttrack is the deterministic keyword-to-solution shortcut table
// checked before any model call. Matching costs nothing and well-known
// problems never pay model latency.
package fasttrack

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Outcome string

const (
	// OutcomeInformational answers and stops; no ticket path.
	OutcomeInformational Outcome = "informational"
	// OutcomeQuickFix answers and either keeps gathering (NeedsMoreInfo)
	// or awaits feedback.
	OutcomeQuickFix Outcome = "quickfix"
	// OutcomeAutoTicket sends the canned text and goes straight to ticket
	// confirmation.
	OutcomeAutoTicket Outcome = "autoticket"
)

type Rule struct {
	Problem       string   `yaml:"problem"`
	Keywords      []string `yaml:"keywords"`
	Solution      string   `yaml:"solution"`
	Outcome       Outcome  `yaml:"outcome"`
	NeedsMoreInfo bool     `yaml:"needs_more_info"`
	Category      string   `yaml:"category"`
	Priority      string   `yaml:"priority"`
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// Table holds the rule set behind a mutex so the file watcher can swap it
// while turns are in flight.
type Table struct {
	mu    sync.RWMutex
	rules []Rule
}

func NewTable(rules []Rule) *Table {
	return &Table{rules: rules}
}

// Load reads the rule file. A missing file yields an empty table rather
// than an error: fast-track is an optimization, not a requirement.
func Load(path string) (*Table, error) {
	table := &Table{}
	if err := table.Reload(path); err != nil {
		if os.IsNotExist(err) {
			return table, nil
		}
		return nil, err
	}
	return table, nil
}

func (t *Table) Reload(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	parsed, err := parseRules(data)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.rules = parsed
	t.mu.Unlock()
	return nil
}

func parseRules(data []byte) ([]Rule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fasttrack rules: %w", err)
	}
	rules := make([]Rule, 0, len(f.Rules))
	for _, rule := range f.Rules {
		if strings.TrimSpace(rule.Solution) == "" || len(rule.Keywords) == 0 {
			continue
		}
		switch rule.Outcome {
		case OutcomeInformational, OutcomeQuickFix, OutcomeAutoTicket:
		default:
			rule.Outcome = OutcomeQuickFix
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Match returns the first rule whose keyword occurs in the message.
func (t *Table) Match(message string) (Rule, bool) {
	lower := strings.ToLower(message)
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, rule := range t.rules {
		for _, keyword := range rule.Keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword != "" && strings.Contains(lower, keyword) {
				return rule, true
			}
		}
	}
	return Rule{}, false
}

// Catalogue renders a short problem list for the classifier prompt.
func (t *Table) Catalogue() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.rules) == 0 {
		return ""
	}
	var b strings.Builder
	for _, rule := range t.rules {
		b.WriteString("- ")
		b.WriteString(rule.Problem)
		b.WriteString(" (")
		b.WriteString(strings.Join(rule.Keywords, ", "))
		b.WriteString(")\n")
	}
	return b.String()
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rules)
}
