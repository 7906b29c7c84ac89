package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// RDSUnencryptedRule flags DB instances without storage encryption.
type RDSUnencryptedRule struct{}

func (r RDSUnencryptedRule) ID() string        { return "RDS_UNENCRYPTED" }
func (r RDSUnencryptedRule) Name() string      { return "RDS Storage Not Encrypted" }
func (r RDSUnencryptedRule) ControlID() string { return "2.3.1" }

func (r RDSUnencryptedRule) Evaluate(ctx RuleContext) []models.Finding {
	return evaluateRDS(r, ctx, func(db models.AWSRDSInstance) bool { return !db.StorageEncrypted },
		"RDS instance %q does not encrypt its storage.",
		"Encryption cannot be enabled in place: snapshot the instance, copy the snapshot with encryption, and restore.")
}

// RDSAutoMinorUpgradeDisabledRule flags DB instances that do not receive
// minor engine upgrades automatically.
type RDSAutoMinorUpgradeDisabledRule struct{}

func (r RDSAutoMinorUpgradeDisabledRule) ID() string {
	return "RDS_AUTO_MINOR_UPGRADE_DISABLED"
}
func (r RDSAutoMinorUpgradeDisabledRule) Name() string {
	return "RDS Auto Minor Version Upgrade Disabled"
}
func (r RDSAutoMinorUpgradeDisabledRule) ControlID() string {
	return "2.3.2"
}

func (r RDSAutoMinorUpgradeDisabledRule) Evaluate(ctx RuleContext) []models.Finding {
	return evaluateRDS(r, ctx, func(db models.AWSRDSInstance) bool { return !db.AutoMinorVersionUpgrade },
		"RDS instance %q has auto minor version upgrade disabled.",
		"Modify the instance with --auto-minor-version-upgrade.")
}

// RDSPubliclyAccessibleRule flags DB instances reachable from the internet.
type RDSPubliclyAccessibleRule struct{}

func (r RDSPubliclyAccessibleRule) ID() string        { return "RDS_PUBLICLY_ACCESSIBLE" }
func (r RDSPubliclyAccessibleRule) Name() string      { return "RDS Instance Publicly Accessible" }
func (r RDSPubliclyAccessibleRule) ControlID() string { return "2.3.3" }

func (r RDSPubliclyAccessibleRule) Evaluate(ctx RuleContext) []models.Finding {
	return evaluateRDS(r, ctx, func(db models.AWSRDSInstance) bool { return db.PubliclyAccessible },
		"RDS instance %q is publicly accessible.",
		"Modify the instance with --no-publicly-accessible and restrict its security groups.")
}

// evaluateRDS emits a message-0 finding for every instance in every region
// for which violates returns true.
func evaluateRDS(
	r Rule,
	ctx RuleContext,
	violates func(models.AWSRDSInstance) bool,
	explanationFmt, recommendation string,
) []models.Finding {
	if ctx.Account == nil {
		return nil
	}

	var findings []models.Finding
	for _, rd := range ctx.Account.Regions {
		for _, db := range rd.RDSInstances {
			if !violates(db) {
				continue
			}
			f := newFinding(r, ctx, fmt.Sprintf("%s-%s-%s", r.ID(), db.DBInstanceID, rd.Region),
				db.DBInstanceID, models.ResourceAWSRDS, rd.Region, 0)
			f.Explanation = fmt.Sprintf(explanationFmt, db.DBInstanceID)
			f.Recommendation = recommendation
			f.Metadata = map[string]any{
				"engine":         db.Engine,
				"instance_class": db.DBInstanceClass,
			}
			findings = append(findings, f)
		}
	}
	return findings
}
