package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// AWSGuardDutyDisabledRule flags regions where GuardDuty is not enabled.
// Disabled regions have no automated detection of reconnaissance, data
// exfiltration, or compromised credentials.
type AWSGuardDutyDisabledRule struct{}

func (r AWSGuardDutyDisabledRule) ID() string        { return "GUARDDUTY_DISABLED" }
func (r AWSGuardDutyDisabledRule) Name() string      { return "GuardDuty Not Enabled In Region" }
func (r AWSGuardDutyDisabledRule) ControlID() string { return "4.15" }

func (r AWSGuardDutyDisabledRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil {
		return nil
	}

	var findings []models.Finding
	for _, rd := range ctx.Account.Regions {
		gd := rd.GuardDuty
		if !gd.DataAvailable || gd.Enabled {
			continue
		}
		f := newFinding(r, ctx, fmt.Sprintf("%s-%s-%s", r.ID(), ctx.AccountID, rd.Region),
			"GuardDutyDetector", models.ResourceAWSRegion, rd.Region, 0)
		f.Explanation = fmt.Sprintf("AWS GuardDuty is not enabled in region %s.", rd.Region)
		f.Recommendation = "Enable GuardDuty in all active regions to ensure continuous threat detection."
		findings = append(findings, f)
	}
	return findings
}
