package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// AWSRootAccessKeyExistsRule flags accounts where the root user has active
// access keys. If compromised, root keys give unrestricted access to the
// entire account.
type AWSRootAccessKeyExistsRule struct{}

func (r AWSRootAccessKeyExistsRule) ID() string        { return "IAM_ROOT_ACCESS_KEY" }
func (r AWSRootAccessKeyExistsRule) Name() string      { return "Root Account Has Active Access Keys" }
func (r AWSRootAccessKeyExistsRule) ControlID() string { return "1.4" }

// Evaluate returns one finding when the root account has access keys.
func (r AWSRootAccessKeyExistsRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil || !ctx.Account.Root.DataAvailable {
		return nil
	}
	if !ctx.Account.Root.HasAccessKeys {
		return nil
	}
	f := newFinding(r, ctx, fmt.Sprintf("%s-%s", r.ID(), ctx.AccountID),
		ctx.AccountID, models.ResourceAWSRootAccount, "global", 0)
	f.Explanation = "The AWS root account has active access keys, which is a critical security risk."
	f.Recommendation = "Delete all root account access keys and use IAM roles with least-privilege policies instead."
	return []models.Finding{f}
}
