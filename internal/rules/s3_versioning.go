package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// S3VersioningDisabledRule flags buckets whose versioning status is not
// "Enabled". Suspended and never-configured buckets are both flagged.
type S3VersioningDisabledRule struct{}

func (r S3VersioningDisabledRule) ID() string        { return "S3_VERSIONING_DISABLED" }
func (r S3VersioningDisabledRule) Name() string      { return "S3 Bucket Versioning Disabled" }
func (r S3VersioningDisabledRule) ControlID() string { return "2.1.3" }

func (r S3VersioningDisabledRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil {
		return nil
	}

	var findings []models.Finding
	for _, b := range ctx.Account.Buckets {
		if !b.VersioningAvailable || b.VersioningStatus == "Enabled" {
			continue
		}
		status := b.VersioningStatus
		if status == "" {
			status = "never enabled"
		}
		f := newFinding(r, ctx, fmt.Sprintf("%s-%s", r.ID(), b.Name),
			b.Name, models.ResourceAWSS3Bucket, "global", 0)
		f.Explanation = fmt.Sprintf("S3 bucket %q versioning is %s.", b.Name, status)
		f.Recommendation = "Enable versioning so overwritten or deleted objects can be recovered."
		f.Metadata = map[string]any{"versioning_status": b.VersioningStatus}
		findings = append(findings, f)
	}
	return findings
}
