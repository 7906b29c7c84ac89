package models

import "time"

// AWSAccountData is the raw CIS posture snapshot collected from one AWS
// account. IAM, S3, and CloudTrail are global (account-level); Regions holds
// one entry per audited region.
type AWSAccountData struct {
	AccountID      string              `json:"account_id"`
	PasswordPolicy AWSPasswordPolicy   `json:"password_policy"`
	Root           AWSRootAccountInfo  `json:"root"`
	IAMUsers       []AWSIAMUser        `json:"iam_users"`
	Buckets        []AWSS3Bucket       `json:"buckets"`
	CloudTrail     AWSCloudTrailStatus `json:"cloud_trail"`
	Regions        []AWSRegionData     `json:"regions"`

	// Exceptions are data sources that could not be read. Controls that
	// depend on them were not evaluated.
	Exceptions []AWSCollectionException `json:"exceptions,omitempty"`
}

// AWSCollectionException records one failed read.
type AWSCollectionException struct {
	Resource string `json:"resource"`
	Message  string `json:"message"`
}

// AWSPasswordPolicy is the account password policy.
// DataAvailable is false when GetAccountPasswordPolicy failed for any reason
// other than "no policy configured"; Present is false when the account has no
// policy at all (NoSuchEntity).
type AWSPasswordPolicy struct {
	DataAvailable           bool `json:"data_available"`
	Present                 bool `json:"present"`
	MinimumPasswordLength   int  `json:"minimum_password_length"`
	PasswordReusePrevention int  `json:"password_reuse_prevention"`
	RequireSymbols          bool `json:"require_symbols"`
	RequireNumbers          bool `json:"require_numbers"`
	RequireUppercase        bool `json:"require_uppercase"`
	RequireLowercase        bool `json:"require_lowercase"`
	MaxPasswordAge          int  `json:"max_password_age"`
}

// AWSIAMUser represents an IAM user and its relevant security attributes.
// HasLoginProfile is true when the user has a console password. API-only
// users have HasLoginProfile == false and are not flagged for missing MFA.
type AWSIAMUser struct {
	UserName   string `json:"user_name"`
	MFAEnabled bool   `json:"mfa_enabled"`
	// MFAAvailable is false when ListMFADevices failed; MFAEnabled is then
	// meaningless.
	MFAAvailable    bool `json:"mfa_available"`
	HasLoginProfile bool `json:"has_login_profile"`
}

// AWSRootAccountInfo captures relevant security attributes of the root user.
// DataAvailable is false when GetAccountSummary failed; rules must check it
// before evaluating to avoid false positives on collection failures.
type AWSRootAccountInfo struct {
	HasAccessKeys bool `json:"has_access_keys"`
	MFAEnabled    bool `json:"mfa_enabled"`
	DataAvailable bool `json:"data_available"`
}

// AWSS3Bucket holds the per-bucket settings inspected by the S3 controls.
// Each *Available flag is false when the corresponding API call failed with an
// unexpected error; rules skip that sub-check instead of guessing.
type AWSS3Bucket struct {
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`

	EncryptionAvailable bool `json:"encryption_available"`
	// EncryptionAlgorithms lists the SSE algorithms of every rule in the
	// bucket's encryption configuration. Empty means no configuration.
	EncryptionAlgorithms []string `json:"encryption_algorithms,omitempty"`

	PolicyAvailable bool `json:"policy_available"`
	HasPolicy       bool `json:"has_policy"`
	// EnforcesSSL is true when the policy denies requests whose
	// aws:SecureTransport condition is false.
	EnforcesSSL bool `json:"enforces_ssl"`
	// AllowsAnonymous is true when the policy has an Allow statement for
	// principal "*".
	AllowsAnonymous bool `json:"allows_anonymous"`

	VersioningAvailable bool   `json:"versioning_available"`
	VersioningStatus    string `json:"versioning_status,omitempty"`

	PublicAccessBlockAvailable bool `json:"public_access_block_available"`
	// PublicAccessBlock is nil when the bucket has no configuration.
	PublicAccessBlock *AWSPublicAccessBlock `json:"public_access_block,omitempty"`

	ACLAvailable             bool `json:"acl_available"`
	GrantsAllUsers           bool `json:"grants_all_users"`
	GrantsAuthenticatedUsers bool `json:"grants_authenticated_users"`

	LoggingAvailable bool   `json:"logging_available"`
	LoggingEnabled   bool   `json:"logging_enabled"`
	LoggingTarget    string `json:"logging_target,omitempty"`
}

// AWSPublicAccessBlock mirrors the four S3 Block Public Access flags.
type AWSPublicAccessBlock struct {
	BlockPublicAcls       bool `json:"block_public_acls"`
	IgnorePublicAcls      bool `json:"ignore_public_acls"`
	BlockPublicPolicy     bool `json:"block_public_policy"`
	RestrictPublicBuckets bool `json:"restrict_public_buckets"`
}

// FullyEnabled reports whether every Block Public Access flag is set.
func (p *AWSPublicAccessBlock) FullyEnabled() bool {
	if p == nil {
		return false
	}
	return p.BlockPublicAcls && p.IgnorePublicAcls && p.BlockPublicPolicy && p.RestrictPublicBuckets
}

// AWSCloudTrailStatus holds the CloudTrail configuration of the account.
// DataAvailable is false when DescribeTrails failed.
type AWSCloudTrailStatus struct {
	DataAvailable bool       `json:"data_available"`
	Trails        []AWSTrail `json:"trails"`
}

// HasMultiRegionTrail reports whether any trail records events in all regions.
func (s AWSCloudTrailStatus) HasMultiRegionTrail() bool {
	for _, t := range s.Trails {
		if t.IsMultiRegion {
			return true
		}
	}
	return false
}

// AWSTrail is one CloudTrail trail with its status and bucket logging state.
type AWSTrail struct {
	Name                     string `json:"name"`
	ARN                      string `json:"arn"`
	HomeRegion               string `json:"home_region"`
	IsMultiRegion            bool   `json:"is_multi_region"`
	LogFileValidationEnabled bool   `json:"log_file_validation_enabled"`
	KMSKeyID                 string `json:"kms_key_id,omitempty"`
	CloudWatchLogGroupARN    string `json:"cloudwatch_log_group_arn,omitempty"`
	S3BucketName             string `json:"s3_bucket_name"`

	StatusAvailable bool `json:"status_available"`
	IsLogging       bool `json:"is_logging"`
	// LatestCloudWatchDelivery is nil when CloudTrail never delivered to
	// CloudWatch Logs.
	LatestCloudWatchDelivery *time.Time `json:"latest_cloudwatch_delivery,omitempty"`

	BucketLoggingAvailable bool `json:"bucket_logging_available"`
	BucketLoggingEnabled   bool `json:"bucket_logging_enabled"`
}

// AWSKMSKey is a customer-managed symmetric KMS key and its rotation state.
type AWSKMSKey struct {
	KeyID           string `json:"key_id"`
	ARN             string `json:"arn"`
	Region          string `json:"region"`
	RotationEnabled bool   `json:"rotation_enabled"`
}

// AWSGuardDutyStatus holds the GuardDuty detector status for a single region.
// Enabled is true when at least one detector exists and is in ENABLED state.
type AWSGuardDutyStatus struct {
	Region        string `json:"region"`
	Enabled       bool   `json:"enabled"`
	DataAvailable bool   `json:"data_available"`
}

// AWSConfigStatus holds the AWS Config recorder status for a single region.
// Enabled is true when at least one configuration recorder is recording.
type AWSConfigStatus struct {
	Region        string `json:"region"`
	Enabled       bool   `json:"enabled"`
	DataAvailable bool   `json:"data_available"`
}
