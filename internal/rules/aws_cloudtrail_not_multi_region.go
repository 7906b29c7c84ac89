package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// AWSCloudTrailNotMultiRegionRule flags accounts where no trail records
// events across all regions. An account with no trails at all is reported
// with message 1. Nothing is reported when DescribeTrails failed.
type AWSCloudTrailNotMultiRegionRule struct{}

func (r AWSCloudTrailNotMultiRegionRule) ID() string        { return "CLOUDTRAIL_NOT_MULTI_REGION" }
func (r AWSCloudTrailNotMultiRegionRule) Name() string      { return "No Multi-Region CloudTrail Trail" }
func (r AWSCloudTrailNotMultiRegionRule) ControlID() string { return "3.1" }

func (r AWSCloudTrailNotMultiRegionRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil || !ctx.Account.CloudTrail.DataAvailable {
		return nil
	}
	ct := ctx.Account.CloudTrail
	if ct.HasMultiRegionTrail() {
		return nil
	}

	idx := 0
	explanation := "No CloudTrail trail is configured as multi-region; API activity in other regions is not recorded."
	if len(ct.Trails) == 0 {
		idx = 1
		explanation = "The account has no CloudTrail trails."
	}
	f := newFinding(r, ctx, fmt.Sprintf("%s-%s", r.ID(), ctx.AccountID),
		ctx.AccountID, models.ResourceAWSAccount, "global", idx)
	f.Explanation = explanation
	f.Recommendation = "Create a trail with IsMultiRegionTrail enabled, or update an existing trail."
	f.Metadata = map[string]any{"trail_count": len(ct.Trails)}
	return []models.Finding{f}
}
