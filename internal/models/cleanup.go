package models

import "time"

// Cleanup action verbs.
const (
	ActionDeregister = "deregister"
	ActionDelete     = "delete"
)

// CleanupAction is one planned or executed lifecycle operation.
type CleanupAction struct {
	Action       string       `json:"action"` // deregister | delete
	ResourceID   string       `json:"resource_id"`
	ResourceType ResourceType `json:"resource_type"`
	Name         string       `json:"name,omitempty"`
	Region       string       `json:"region"`
	Reason       string       `json:"reason"`
	// EstimatedMonthlySavings is the storage cost freed by the action.
	EstimatedMonthlySavings float64 `json:"estimated_monthly_savings_usd"`
	Executed                bool    `json:"executed"`
	Error                   string  `json:"error,omitempty"`
}

// CleanupSummary totals a CleanupReport.
type CleanupSummary struct {
	ImagesDeregistered           int     `json:"images_deregistered"`
	ImagesRetained               int     `json:"images_retained"`
	SnapshotsDeleted             int     `json:"snapshots_deleted"`
	SnapshotsRetained            int     `json:"snapshots_retained"`
	VolumesDeleted               int     `json:"volumes_deleted"`
	VolumesRetained              int     `json:"volumes_retained"`
	Failures                     int     `json:"failures"`
	TotalEstimatedMonthlySavings float64 `json:"total_estimated_monthly_savings_usd"`
}

// CleanupReport is the output of a retention run across one or more regions.
type CleanupReport struct {
	ReportID    string          `json:"report_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Profile     string          `json:"profile"`
	AccountID   string          `json:"account_id"`
	Regions     []string        `json:"regions"`
	DryRun      bool            `json:"dry_run"`
	Summary     CleanupSummary  `json:"summary"`
	Actions     []CleanupAction `json:"actions"`
	// Retained lists image names kept by the retention policy.
	Retained []string `json:"retained_images"`
}
