package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// AWSConfigDisabledRule flags regions where no AWS Config recorder is
// recording. Without Config there is no history of resource configuration
// changes.
type AWSConfigDisabledRule struct{}

func (r AWSConfigDisabledRule) ID() string        { return "CONFIG_DISABLED" }
func (r AWSConfigDisabledRule) Name() string      { return "AWS Config Not Enabled In Region" }
func (r AWSConfigDisabledRule) ControlID() string { return "3.5" }

func (r AWSConfigDisabledRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil {
		return nil
	}

	var findings []models.Finding
	for _, rd := range ctx.Account.Regions {
		if !rd.Config.DataAvailable || rd.Config.Enabled {
			continue
		}
		f := newFinding(r, ctx, fmt.Sprintf("%s-%s-%s", r.ID(), ctx.AccountID, rd.Region),
			"ConfigRecorder", models.ResourceAWSRegion, rd.Region, 0)
		f.Explanation = fmt.Sprintf("AWS Config is not recording in region %s.", rd.Region)
		f.Recommendation = "Create a configuration recorder for all resource types and start it."
		findings = append(findings, f)
	}
	return findings
}
