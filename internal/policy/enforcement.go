package policy

import (
	"strings"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// ShouldFail reports whether any finding has a severity at or above a
// configured fail_on_severity threshold. Both the "all" enforcement block and
// the block of each finding's own section are consulted.
//
// It returns false when:
//   - cfg is nil (no policy loaded)
//   - no enforcement block matches
//   - fail_on_severity is empty or an unrecognised value
//   - findings is empty
func ShouldFail(findings []models.Finding, cfg *PolicyConfig) bool {
	if cfg == nil {
		return false
	}
	for _, f := range findings {
		rank, ok := severityRank[f.Severity]
		if !ok {
			continue
		}
		for _, key := range []string{EnforcementAll, f.Domain} {
			if threshold, ok := enforcementThreshold(key, cfg); ok && rank >= threshold {
				return true
			}
		}
	}
	return false
}

func enforcementThreshold(domain string, cfg *PolicyConfig) (int, bool) {
	enfCfg, ok := cfg.Enforcement[domain]
	if !ok || enfCfg.FailOnSeverity == "" {
		return 0, false
	}
	threshold, ok := severityRank[models.Severity(strings.ToUpper(enfCfg.FailOnSeverity))]
	return threshold, ok
}
