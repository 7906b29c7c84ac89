package policy

import (
	"strings"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// ApplyPolicy filters and adjusts findings according to cfg. The policy
// domain of a finding is its Domain (control section).
//
// Order of application per finding:
//  1. domain disabled → dropped
//  2. rule disabled → dropped
//  3. rule severity override
//  4. domain min_severity → dropped when below (after the override)
//
// An unrecognised min_severity value is ignored.
func ApplyPolicy(findings []models.Finding, cfg *PolicyConfig) []models.Finding {
	if cfg == nil {
		return findings
	}

	result := make([]models.Finding, 0, len(findings))
	for _, f := range findings {
		d, hasDomain := cfg.Domains[f.Domain]
		if hasDomain && !d.Enabled {
			continue
		}

		ruleCfg, hasRule := cfg.Rules[f.RuleID]
		if hasRule && ruleCfg.Enabled != nil && !*ruleCfg.Enabled {
			continue
		}
		if hasRule && ruleCfg.Severity != "" {
			f.Severity = models.Severity(strings.ToUpper(ruleCfg.Severity))
		}

		if hasDomain && d.MinSeverity != "" {
			min, ok := severityRank[models.Severity(strings.ToUpper(d.MinSeverity))]
			if ok && severityRank[f.Severity] < min {
				continue
			}
		}

		result = append(result, f)
	}
	return result
}

// DomainEnabled reports whether the section may be audited at all. Sections
// absent from the policy are enabled.
func DomainEnabled(domain string, cfg *PolicyConfig) bool {
	if cfg == nil {
		return true
	}
	d, ok := cfg.Domains[domain]
	return !ok || d.Enabled
}

// RuleEnabled reports whether ruleID may run. Rules absent from the policy
// are enabled.
func RuleEnabled(ruleID string, cfg *PolicyConfig) bool {
	if cfg == nil {
		return true
	}
	r, ok := cfg.Rules[ruleID]
	return !ok || r.Enabled == nil || *r.Enabled
}
