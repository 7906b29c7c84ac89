package policy

import (
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
)

// validSeverities is the set of allowed severity strings (upper-case canonical form).
var validSeverities = map[string]struct{}{
	"CRITICAL": {},
	"HIGH":     {},
	"MEDIUM":   {},
	"LOW":      {},
	"INFO":     {},
}

const severityList = "CRITICAL, HIGH, MEDIUM, LOW, INFO"

func sectionList() string {
	var names []string
	for _, s := range controls.Sections() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// Validate checks cfg for semantic correctness and returns all validation errors
// found. An empty slice means the config is valid.
//
// Checks performed:
//   - version must be 1
//   - domain names must be control sections
//   - domain min_severity must be a valid severity value if set
//   - rule IDs must appear in availableRuleIDs
//   - rule severity overrides must be valid severity values if set
//   - enforcement keys must be "all" or a control section
//   - enforcement fail_on_severity must be a valid severity value if set
//
// All errors are collected before returning; Validate never stops at the first error.
func Validate(cfg *PolicyConfig, availableRuleIDs []string) []error {
	if cfg == nil {
		return []error{fmt.Errorf("policy config is nil")}
	}

	knownIDs := make(map[string]struct{}, len(availableRuleIDs))
	for _, id := range availableRuleIDs {
		knownIDs[id] = struct{}{}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", cfg.Version))
	}

	for name, dcfg := range cfg.Domains {
		if !controls.ValidSection(name) {
			errs = append(errs, fmt.Errorf("domains.%s: unknown domain; valid values: %s", name, sectionList()))
		}
		if dcfg.MinSeverity != "" && !validSeverity(dcfg.MinSeverity) {
			errs = append(errs, fmt.Errorf("domains.%s.min_severity: invalid value %q; valid values: %s", name, dcfg.MinSeverity, severityList))
		}
	}

	for ruleID, rcfg := range cfg.Rules {
		if _, ok := knownIDs[ruleID]; !ok {
			errs = append(errs, fmt.Errorf("rules.%s: unknown rule ID", ruleID))
		}
		if rcfg.Severity != "" && !validSeverity(rcfg.Severity) {
			errs = append(errs, fmt.Errorf("rules.%s.severity: invalid value %q; valid values: %s", ruleID, rcfg.Severity, severityList))
		}
		for key, v := range rcfg.Params {
			if v < 0 {
				errs = append(errs, fmt.Errorf("rules.%s.params.%s: must not be negative", ruleID, key))
			}
		}
	}

	for domain, enfCfg := range cfg.Enforcement {
		if domain != EnforcementAll && !controls.ValidSection(domain) {
			errs = append(errs, fmt.Errorf("enforcement.%s: unknown domain; valid values: all, %s", domain, sectionList()))
		}
		if enfCfg.FailOnSeverity != "" && !validSeverity(enfCfg.FailOnSeverity) {
			errs = append(errs, fmt.Errorf("enforcement.%s.fail_on_severity: invalid value %q; valid values: %s", domain, enfCfg.FailOnSeverity, severityList))
		}
	}

	return errs
}

func validSeverity(s string) bool {
	_, ok := validSeverities[strings.ToUpper(s)]
	return ok
}
