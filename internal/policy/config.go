package policy

import "github.com/pankaj-dahiya-devops/cisaudit/internal/models"

// EnforcementAll is the enforcement key that applies to findings of every
// section.
const EnforcementAll = "all"

// PolicyConfig is the parsed cisaudit.yaml rule policy. Domains are control
// sections (iam, s3, ec2, rds, logging, monitoring).
type PolicyConfig struct {
	Version     int                          `yaml:"version"`
	Domains     map[string]DomainConfig      `yaml:"domains"`
	Rules       map[string]RuleConfig        `yaml:"rules"`
	Enforcement map[string]EnforcementConfig `yaml:"enforcement"`
}

type DomainConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MinSeverity string `yaml:"min_severity,omitempty"`
}

type RuleConfig struct {
	Enabled  *bool              `yaml:"enabled,omitempty"`
	Severity string             `yaml:"severity,omitempty"`
	Params   map[string]float64 `yaml:"params,omitempty"`
}

type EnforcementConfig struct {
	FailOnSeverity string `yaml:"fail_on_severity"`
}

// severityRank orders severities: CRITICAL (5) > HIGH (4) > MEDIUM (3) >
// LOW (2) > INFO (1).
var severityRank = map[models.Severity]int{
	models.SeverityCritical: 5,
	models.SeverityHigh:     4,
	models.SeverityMedium:   3,
	models.SeverityLow:      2,
	models.SeverityInfo:     1,
}

// SeverityRank returns the rank of s, or 0 for an unknown severity.
func SeverityRank(s models.Severity) int {
	return severityRank[s]
}
