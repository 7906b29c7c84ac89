package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// AWSIAMUserWithoutMFARule flags IAM users that have console access (a login
// profile) but no MFA device registered. API-only users without a login
// profile are skipped because they cannot sign in to the console, and users
// whose MFA devices could not be listed are skipped.
type AWSIAMUserWithoutMFARule struct{}

func (r AWSIAMUserWithoutMFARule) ID() string        { return "IAM_USER_NO_MFA" }
func (r AWSIAMUserWithoutMFARule) Name() string      { return "IAM Console User Without MFA" }
func (r AWSIAMUserWithoutMFARule) ControlID() string { return "1.10" }

// Evaluate returns one finding per console user without an MFA device.
func (r AWSIAMUserWithoutMFARule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil {
		return nil
	}

	var findings []models.Finding
	for _, u := range ctx.Account.IAMUsers {
		if !u.HasLoginProfile || !u.MFAAvailable || u.MFAEnabled {
			continue
		}
		f := newFinding(r, ctx, fmt.Sprintf("%s-%s", r.ID(), u.UserName),
			u.UserName, models.ResourceAWSIAMUser, "global", 0)
		f.Explanation = fmt.Sprintf("IAM user %q can sign in to the console without MFA.", u.UserName)
		f.Recommendation = "Require MFA for every IAM user with a console password."
		findings = append(findings, f)
	}
	return findings
}
