package engine

import (
	"context"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/lifecycle"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/retention"
)

// AuditTypeCIS is the AuditType stamped on every audit report.
const AuditTypeCIS = "cis"

// ReportFormat controls the CLI output format.
type ReportFormat string

const (
	ReportFormatJSON  ReportFormat = "json"
	ReportFormatTable ReportFormat = "table"
	ReportFormatPDF   ReportFormat = "pdf"
)

// AuditOptions configures a single audit run.
// It is the sole input to Engine.RunAudit.
type AuditOptions struct {
	// Profile is the named AWS profile to use. Empty means the default profile.
	Profile string

	// AllProfiles, when true, runs the audit across every configured AWS profile.
	AllProfiles bool

	// HomeRegion is used for global services when the profile has no region.
	HomeRegion string

	// Regions is an explicit list of AWS regions to audit.
	// When empty the engine discovers and iterates all active regions.
	Regions []string

	// Sections restricts the audit to these control sections. Empty means all.
	Sections []controls.Section

	// ReportFormat controls how the CLI renders the returned report.
	ReportFormat ReportFormat

	// BucketConcurrency bounds parallel S3 bucket inspection. Zero uses the
	// collector default.
	BucketConcurrency int
}

// CleanupOptions configures a single image lifecycle run.
type CleanupOptions struct {
	Profile    string
	HomeRegion string

	// Regions to clean. Empty means the profile's home region only.
	Regions []string

	Retention retention.Options
	Filters   lifecycle.Filters

	// Execute must be set for any deregister or delete call to be made.
	Execute bool
}

// Engine is the central orchestration interface for audits.
// It coordinates collection, rule evaluation, policy, and the issue ledger,
// returning a fully populated AuditReport.
//
// Engine must not call AWS SDK clients directly; it delegates to the
// collector and rule interfaces.
type Engine interface {
	RunAudit(ctx context.Context, opts AuditOptions) (*models.AuditReport, error)
}

// Cleaner runs the image lifecycle policy.
type Cleaner interface {
	Run(ctx context.Context, opts CleanupOptions) (*models.CleanupReport, error)
}
