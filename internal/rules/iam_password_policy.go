package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/policy"
)

const (
	defaultPasswordMinLength  = 14
	defaultPasswordReuseCount = 24

	// passwordPolicyResource is the ledger key for account password policy
	// findings.
	passwordPolicyResource = "PasswordPolicy"
)

// IAMPasswordMinLengthRule flags accounts whose password policy allows
// passwords shorter than min_length (default 14), or that have no password
// policy at all.
type IAMPasswordMinLengthRule struct{}

func (r IAMPasswordMinLengthRule) ID() string        { return "IAM_PASSWORD_MIN_LENGTH" }
func (r IAMPasswordMinLengthRule) Name() string      { return "Password Policy Minimum Length" }
func (r IAMPasswordMinLengthRule) ControlID() string { return "1.8" }

func (r IAMPasswordMinLengthRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil || !ctx.Account.PasswordPolicy.DataAvailable {
		return nil
	}
	pp := ctx.Account.PasswordPolicy
	required := policy.GetIntThreshold(r.ID(), "min_length", defaultPasswordMinLength, ctx.Policy)

	if !pp.Present {
		return []models.Finding{noPasswordPolicyFinding(r, ctx)}
	}
	if pp.MinimumPasswordLength >= required {
		return nil
	}
	f := newFinding(r, ctx, fmt.Sprintf("%s-%s", r.ID(), ctx.AccountID),
		passwordPolicyResource, models.ResourceAWSPasswordPolicy, "global", 0)
	f.Explanation = fmt.Sprintf("Password policy minimum length is %d; at least %d is required.", pp.MinimumPasswordLength, required)
	f.Recommendation = fmt.Sprintf("Set MinimumPasswordLength to %d or greater.", required)
	f.Metadata = map[string]any{"minimum_password_length": pp.MinimumPasswordLength, "required": required}
	return []models.Finding{f}
}

// IAMPasswordReuseRule flags accounts whose password policy remembers fewer
// than reuse_count (default 24) previous passwords, or that have no password
// policy at all.
type IAMPasswordReuseRule struct{}

func (r IAMPasswordReuseRule) ID() string        { return "IAM_PASSWORD_REUSE" }
func (r IAMPasswordReuseRule) Name() string      { return "Password Policy Reuse Prevention" }
func (r IAMPasswordReuseRule) ControlID() string { return "1.9" }

func (r IAMPasswordReuseRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil || !ctx.Account.PasswordPolicy.DataAvailable {
		return nil
	}
	pp := ctx.Account.PasswordPolicy
	required := policy.GetIntThreshold(r.ID(), "reuse_count", defaultPasswordReuseCount, ctx.Policy)

	if !pp.Present {
		return []models.Finding{noPasswordPolicyFinding(r, ctx)}
	}
	if pp.PasswordReusePrevention >= required {
		return nil
	}
	f := newFinding(r, ctx, fmt.Sprintf("%s-%s", r.ID(), ctx.AccountID),
		passwordPolicyResource, models.ResourceAWSPasswordPolicy, "global", 0)
	f.Explanation = fmt.Sprintf("Password policy prevents reuse of the last %d passwords; %d is required.", pp.PasswordReusePrevention, required)
	f.Recommendation = fmt.Sprintf("Set PasswordReusePrevention to %d.", required)
	f.Metadata = map[string]any{"password_reuse_prevention": pp.PasswordReusePrevention, "required": required}
	return []models.Finding{f}
}

// noPasswordPolicyFinding is the message-1 finding both password rules emit
// when the account has no policy.
func noPasswordPolicyFinding(r Rule, ctx RuleContext) models.Finding {
	f := newFinding(r, ctx, fmt.Sprintf("%s-%s", r.ID(), ctx.AccountID),
		passwordPolicyResource, models.ResourceAWSPasswordPolicy, "global", 1)
	f.Explanation = "The account has no IAM password policy; AWS defaults apply."
	f.Recommendation = "Create an account password policy with UpdateAccountPasswordPolicy."
	return f
}
