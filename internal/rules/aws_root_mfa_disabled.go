package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// AWSRootAccountMFADisabledRule flags accounts whose root user has no MFA
// device. DataAvailable guards against raising a finding when
// GetAccountSummary failed.
type AWSRootAccountMFADisabledRule struct{}

func (r AWSRootAccountMFADisabledRule) ID() string        { return "IAM_ROOT_MFA_DISABLED" }
func (r AWSRootAccountMFADisabledRule) Name() string      { return "Root Account MFA Not Enabled" }
func (r AWSRootAccountMFADisabledRule) ControlID() string { return "1.5" }

func (r AWSRootAccountMFADisabledRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil || !ctx.Account.Root.DataAvailable {
		return nil
	}
	if ctx.Account.Root.MFAEnabled {
		return nil
	}
	f := newFinding(r, ctx, fmt.Sprintf("%s-%s", r.ID(), ctx.AccountID),
		ctx.AccountID, models.ResourceAWSRootAccount, "global", 0)
	f.Explanation = "The AWS root account does not have multi-factor authentication enabled."
	f.Recommendation = "Enable a hardware or virtual MFA device for the root user."
	return []models.Finding{f}
}
