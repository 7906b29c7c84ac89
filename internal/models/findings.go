package models

import "time"

// Severity represents the impact level of a finding.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// ResourceType identifies the kind of AWS resource a finding refers to.
type ResourceType string

const (
	ResourceAWSAccount        ResourceType = "ACCOUNT"
	ResourceAWSRootAccount    ResourceType = "ROOT_ACCOUNT"
	ResourceAWSPasswordPolicy ResourceType = "PASSWORD_POLICY"
	ResourceAWSIAMUser        ResourceType = "IAM_USER"
	ResourceAWSS3Bucket       ResourceType = "S3_BUCKET"
	ResourceAWSTrail          ResourceType = "CLOUDTRAIL_TRAIL"
	ResourceAWSKMSKey         ResourceType = "KMS_KEY"
	ResourceAWSRegion         ResourceType = "REGION"
	ResourceAWSRDS            ResourceType = "RDS_INSTANCE"
	ResourceAWSImage          ResourceType = "AMI"
	ResourceAWSSnapshot       ResourceType = "EBS_SNAPSHOT"
	ResourceAWSEBS            ResourceType = "EBS_VOLUME"
)

// Finding is a single violated control on a single resource.
// It is the atomic output unit of the rule engine.
type Finding struct {
	ID           string       `json:"id"`
	RuleID       string       `json:"rule_id"`
	ControlID    string       `json:"control_id"`
	ResourceID   string       `json:"resource_id"`
	ResourceType ResourceType `json:"resource_type"`
	Region       string       `json:"region"`
	AccountID    string       `json:"account_id"`
	Profile      string       `json:"profile"`
	// Domain is the control section (iam, s3, logging, ...).
	Domain   string   `json:"domain"`
	Severity Severity `json:"severity"`
	// MessageIndex addresses the control's message list; Message is the
	// resolved text, filled by the engine.
	MessageIndex   int            `json:"message_index"`
	Message        string         `json:"message"`
	Explanation    string         `json:"explanation"`
	Recommendation string         `json:"recommendation"`
	DetectedAt     time.Time      `json:"detected_at"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// IssueKey returns the resource key used by the issue ledger. Regional
// resources carry their region so identically named resources in two regions
// do not collide.
func (f Finding) IssueKey() string {
	if f.Region == "" || f.Region == "global" {
		return f.ResourceID
	}
	return f.ResourceID + " (" + f.Region + ")"
}

// AuditSummary aggregates counts across all findings.
type AuditSummary struct {
	TotalFindings    int `json:"total_findings"`
	CriticalFindings int `json:"critical_findings"`
	HighFindings     int `json:"high_findings"`
	MediumFindings   int `json:"medium_findings"`
	LowFindings      int `json:"low_findings"`
	// ResourcesWithIssues counts distinct ledger resources.
	ResourcesWithIssues int `json:"resources_with_issues"`
	// FailedControls lists control IDs with at least one finding.
	FailedControls []string `json:"failed_controls"`
	// PassedControls lists evaluated control IDs without findings.
	PassedControls []string `json:"passed_controls"`
}

// AuditReport is the top-level output of an audit run.
type AuditReport struct {
	ReportID    string       `json:"report_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	AuditType   string       `json:"audit_type"`
	Profile     string       `json:"profile"`
	AccountID   string       `json:"account_id"`
	Regions     []string     `json:"regions"`
	Sections    []string     `json:"sections"`
	Summary     AuditSummary `json:"summary"`
	Findings    []Finding    `json:"findings"`
	// Issues is the deduplicated resource -> control ID -> messages mapping.
	Issues map[string]map[string][]string `json:"issues"`
	// Metadata carries optional key/value pairs such as collection errors.
	Metadata map[string]any `json:"metadata,omitempty"`
}
