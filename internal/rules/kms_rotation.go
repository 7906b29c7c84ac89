package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// KMSRotationDisabledRule flags customer-managed symmetric keys without
// automatic rotation. The collector only returns enabled, customer-managed,
// symmetric keys whose rotation status could be read.
type KMSRotationDisabledRule struct{}

func (r KMSRotationDisabledRule) ID() string        { return "KMS_ROTATION_DISABLED" }
func (r KMSRotationDisabledRule) Name() string      { return "KMS Key Rotation Disabled" }
func (r KMSRotationDisabledRule) ControlID() string { return "3.8" }

func (r KMSRotationDisabledRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil {
		return nil
	}

	var findings []models.Finding
	for _, rd := range ctx.Account.Regions {
		for _, k := range rd.KMSKeys {
			if k.RotationEnabled {
				continue
			}
			f := newFinding(r, ctx, fmt.Sprintf("%s-%s", r.ID(), k.KeyID),
				k.KeyID, models.ResourceAWSKMSKey, rd.Region, 0)
			f.Explanation = fmt.Sprintf("KMS key %s does not rotate automatically.", k.KeyID)
			f.Recommendation = "Enable automatic key rotation with EnableKeyRotation."
			f.Metadata = map[string]any{"key_arn": k.ARN}
			findings = append(findings, f)
		}
	}
	return findings
}
