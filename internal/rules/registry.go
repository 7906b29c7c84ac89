package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// DefaultRuleRegistry is an ordered, in-memory registry.
// Register panics on duplicate rule IDs and on rules whose control is missing
// from the catalogue, so wiring mistakes surface at startup.
type DefaultRuleRegistry struct {
	rules []Rule
	index map[string]struct{}
}

// NewDefaultRuleRegistry returns an empty registry ready for rule registration.
func NewDefaultRuleRegistry() *DefaultRuleRegistry {
	return &DefaultRuleRegistry{
		index: make(map[string]struct{}),
	}
}

// Register adds rule to the registry.
func (r *DefaultRuleRegistry) Register(rule Rule) {
	if _, exists := r.index[rule.ID()]; exists {
		panic(fmt.Sprintf("duplicate rule ID: %q", rule.ID()))
	}
	if _, ok := controls.Lookup(rule.ControlID()); !ok {
		panic(fmt.Sprintf("rule %q references unknown control %q", rule.ID(), rule.ControlID()))
	}
	r.rules = append(r.rules, rule)
	r.index[rule.ID()] = struct{}{}
}

// All returns all registered rules in registration order.
func (r *DefaultRuleRegistry) All() []Rule {
	return r.rules
}

// ForSections returns a new registry holding only the rules whose control
// belongs to one of sections. An empty sections list keeps every rule.
func (r *DefaultRuleRegistry) ForSections(sections []controls.Section) *DefaultRuleRegistry {
	out := NewDefaultRuleRegistry()
	if len(sections) == 0 {
		for _, rule := range r.rules {
			out.Register(rule)
		}
		return out
	}
	want := make(map[controls.Section]struct{}, len(sections))
	for _, s := range sections {
		want[s] = struct{}{}
	}
	for _, rule := range r.rules {
		if _, ok := want[Section(rule)]; ok {
			out.Register(rule)
		}
	}
	return out
}

// EvaluateAll runs every registered rule against ctx sequentially, in
// registration order, and merges the findings.
func (r *DefaultRuleRegistry) EvaluateAll(ctx RuleContext) []models.Finding {
	var findings []models.Finding
	for _, rule := range r.rules {
		findings = append(findings, rule.Evaluate(ctx)...)
	}
	return findings
}
