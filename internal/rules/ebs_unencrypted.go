package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// EBSDefaultEncryptionDisabledRule flags regions where EBS encryption by
// default is off, so new volumes may be created unencrypted. Regions whose
// setting could not be read are skipped.
type EBSDefaultEncryptionDisabledRule struct{}

func (r EBSDefaultEncryptionDisabledRule) ID() string        { return "EBS_DEFAULT_ENCRYPTION_DISABLED" }
func (r EBSDefaultEncryptionDisabledRule) Name() string      { return "EBS Encryption By Default Disabled" }
func (r EBSDefaultEncryptionDisabledRule) ControlID() string { return "2.2.1" }

func (r EBSDefaultEncryptionDisabledRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil {
		return nil
	}

	var findings []models.Finding
	for _, rd := range ctx.Account.Regions {
		if rd.EBSEncryptionByDefault == nil || *rd.EBSEncryptionByDefault {
			continue
		}
		f := newFinding(r, ctx, fmt.Sprintf("%s-%s-%s", r.ID(), ctx.AccountID, rd.Region),
			"EBSEncryptionByDefault", models.ResourceAWSRegion, rd.Region, 0)
		f.Explanation = fmt.Sprintf("EBS encryption by default is disabled in %s.", rd.Region)
		f.Recommendation = "Run EnableEbsEncryptionByDefault in every region."
		findings = append(findings, f)
	}
	return findings
}
