package awssecurity

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	cloudtrailsvc "github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	configsvc "github.com/aws/aws-sdk-go-v2/service/configservice"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	guardduty "github.com/aws/aws-sdk-go-v2/service/guardduty"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	kmssvc "github.com/aws/aws-sdk-go-v2/service/kms"
	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3APIClient is the narrow S3 interface used by the bucket checks.
type s3APIClient interface {
	ListBuckets(ctx context.Context, params *s3svc.ListBucketsInput, optFns ...func(*s3svc.Options)) (*s3svc.ListBucketsOutput, error)
	GetBucketLocation(ctx context.Context, params *s3svc.GetBucketLocationInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketLocationOutput, error)
	GetBucketEncryption(ctx context.Context, params *s3svc.GetBucketEncryptionInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketEncryptionOutput, error)
	GetBucketPolicy(ctx context.Context, params *s3svc.GetBucketPolicyInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyOutput, error)
	GetBucketVersioning(ctx context.Context, params *s3svc.GetBucketVersioningInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketVersioningOutput, error)
	GetPublicAccessBlock(ctx context.Context, params *s3svc.GetPublicAccessBlockInput, optFns ...func(*s3svc.Options)) (*s3svc.GetPublicAccessBlockOutput, error)
	GetBucketAcl(ctx context.Context, params *s3svc.GetBucketAclInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketAclOutput, error)
	GetBucketLogging(ctx context.Context, params *s3svc.GetBucketLoggingInput, optFns ...func(*s3svc.Options)) (*s3svc.GetBucketLoggingOutput, error)
}

// ec2SecurityAPIClient covers the EBS account attribute read by control 2.2.1.
type ec2SecurityAPIClient interface {
	GetEbsEncryptionByDefault(ctx context.Context, params *ec2svc.GetEbsEncryptionByDefaultInput, optFns ...func(*ec2svc.Options)) (*ec2svc.GetEbsEncryptionByDefaultOutput, error)
}

// iamAPIClient is the narrow IAM interface used for user and account-level
// security data. It embeds ListUsersAPIClient so the SDK paginator can be
// used directly.
type iamAPIClient interface {
	iamsvc.ListUsersAPIClient
	ListMFADevices(ctx context.Context, params *iamsvc.ListMFADevicesInput, optFns ...func(*iamsvc.Options)) (*iamsvc.ListMFADevicesOutput, error)
	GetLoginProfile(ctx context.Context, params *iamsvc.GetLoginProfileInput, optFns ...func(*iamsvc.Options)) (*iamsvc.GetLoginProfileOutput, error)
	GetAccountSummary(ctx context.Context, params *iamsvc.GetAccountSummaryInput, optFns ...func(*iamsvc.Options)) (*iamsvc.GetAccountSummaryOutput, error)
	GetAccountPasswordPolicy(ctx context.Context, params *iamsvc.GetAccountPasswordPolicyInput, optFns ...func(*iamsvc.Options)) (*iamsvc.GetAccountPasswordPolicyOutput, error)
}

// cloudTrailAPIClient reads trail configuration and delivery status.
type cloudTrailAPIClient interface {
	DescribeTrails(ctx context.Context, params *cloudtrailsvc.DescribeTrailsInput, optFns ...func(*cloudtrailsvc.Options)) (*cloudtrailsvc.DescribeTrailsOutput, error)
	GetTrailStatus(ctx context.Context, params *cloudtrailsvc.GetTrailStatusInput, optFns ...func(*cloudtrailsvc.Options)) (*cloudtrailsvc.GetTrailStatusOutput, error)
}

// guardDutyAPIClient is the narrow GuardDuty interface for checking detector
// status. ListDetectors returns detector IDs; GetDetector returns the status.
type guardDutyAPIClient interface {
	ListDetectors(ctx context.Context, params *guardduty.ListDetectorsInput, optFns ...func(*guardduty.Options)) (*guardduty.ListDetectorsOutput, error)
	GetDetector(ctx context.Context, params *guardduty.GetDetectorInput, optFns ...func(*guardduty.Options)) (*guardduty.GetDetectorOutput, error)
}

// awsConfigAPIClient is the narrow AWS Config interface for checking recorder
// status.
type awsConfigAPIClient interface {
	DescribeConfigurationRecorderStatus(ctx context.Context, params *configsvc.DescribeConfigurationRecorderStatusInput, optFns ...func(*configsvc.Options)) (*configsvc.DescribeConfigurationRecorderStatusOutput, error)
}

type rdsAPIClient interface {
	rdssvc.DescribeDBInstancesAPIClient
}

type kmsAPIClient interface {
	kmssvc.ListKeysAPIClient
	DescribeKey(ctx context.Context, params *kmssvc.DescribeKeyInput, optFns ...func(*kmssvc.Options)) (*kmssvc.DescribeKeyOutput, error)
	GetKeyRotationStatus(ctx context.Context, params *kmssvc.GetKeyRotationStatusInput, optFns ...func(*kmssvc.Options)) (*kmssvc.GetKeyRotationStatusOutput, error)
}

// secClients bundles all AWS service clients used by the security collector
// for one region.
type secClients struct {
	S3         s3APIClient
	EC2        ec2SecurityAPIClient
	IAM        iamAPIClient
	CloudTrail cloudTrailAPIClient
	GuardDuty  guardDutyAPIClient
	Config     awsConfigAPIClient
	RDS        rdsAPIClient
	KMS        kmsAPIClient
}

// secClientFactory creates secClients from an AWS config.
// Injection point: tests replace this with a function returning fake clients.
type secClientFactory func(cfg aws.Config) *secClients

// newDefaultSecClients creates production AWS SDK clients from the given config.
func newDefaultSecClients(cfg aws.Config) *secClients {
	return &secClients{
		S3:         s3svc.NewFromConfig(cfg),
		EC2:        ec2svc.NewFromConfig(cfg),
		IAM:        iamsvc.NewFromConfig(cfg),
		CloudTrail: cloudtrailsvc.NewFromConfig(cfg),
		GuardDuty:  guardduty.NewFromConfig(cfg),
		Config:     configsvc.NewFromConfig(cfg),
		RDS:        rdssvc.NewFromConfig(cfg),
		KMS:        kmssvc.NewFromConfig(cfg),
	}
}
