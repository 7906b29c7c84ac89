// Package cis provides the CIS AWS Foundations rule pack.
//
// Every rule pack lives in internal/rulepacks/<name>/pack.go and exposes a
// single New() func returning []rules.Rule. The CLI registers the pack into a
// DefaultRuleRegistry and narrows it with ForSections before an audit.
package cis

import "github.com/pankaj-dahiya-devops/cisaudit/internal/rules"

// New returns every CIS rule, grouped by section in catalogue order.
func New() []rules.Rule {
	return []rules.Rule{
		// iam
		rules.AWSRootAccessKeyExistsRule{},    // 1.4
		rules.AWSRootAccountMFADisabledRule{}, // 1.5
		rules.IAMPasswordMinLengthRule{},      // 1.8
		rules.IAMPasswordReuseRule{},          // 1.9
		rules.AWSIAMUserWithoutMFARule{},      // 1.10

		// s3
		rules.S3EncryptionRule{},         // 2.1.1
		rules.S3SSLNotEnforcedRule{},     // 2.1.2
		rules.S3VersioningDisabledRule{}, // 2.1.3
		rules.AWSS3PublicBucketRule{},    // 2.1.5

		// ec2
		rules.EBSDefaultEncryptionDisabledRule{}, // 2.2.1

		// rds
		rules.RDSUnencryptedRule{},              // 2.3.1
		rules.RDSAutoMinorUpgradeDisabledRule{}, // 2.3.2
		rules.RDSPubliclyAccessibleRule{},       // 2.3.3

		// logging
		rules.AWSCloudTrailNotMultiRegionRule{}, // 3.1
		rules.CloudTrailLogValidationRule{},     // 3.2
		rules.CloudTrailCloudWatchRule{},        // 3.4
		rules.AWSConfigDisabledRule{},           // 3.5
		rules.CloudTrailBucketLoggingRule{},     // 3.6
		rules.CloudTrailKMSRule{},               // 3.7
		rules.KMSRotationDisabledRule{},         // 3.8

		// monitoring
		rules.AWSGuardDutyDisabledRule{}, // 4.15
	}
}

// Registry returns a registry holding every rule of the pack.
func Registry() *rules.DefaultRuleRegistry {
	reg := rules.NewDefaultRuleRegistry()
	for _, r := range New() {
		reg.Register(r)
	}
	return reg
}

// RuleIDs returns the IDs of every rule in the pack, for policy validation.
func RuleIDs() []string {
	var ids []string
	for _, r := range New() {
		ids = append(ids, r.ID())
	}
	return ids
}
