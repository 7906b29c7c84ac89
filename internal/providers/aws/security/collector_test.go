package awssecurity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cloudtrailtypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	guarddutytype "github.com/aws/aws-sdk-go-v2/service/guardduty/types"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/common"
)

const sslDenyPolicy = `{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Deny",
    "Principal": "*",
    "Action": "s3:*",
    "Resource": ["arn:aws:s3:::secure", "arn:aws:s3:::secure/*"],
    "Condition": {"Bool": {"aws:SecureTransport": "false"}}
  }]
}`

func fullBlock() *s3types.PublicAccessBlockConfiguration {
	return &s3types.PublicAccessBlockConfiguration{
		BlockPublicAcls:       aws.Bool(true),
		IgnorePublicAcls:      aws.Bool(true),
		BlockPublicPolicy:     aws.Bool(true),
		RestrictPublicBuckets: aws.Bool(true),
	}
}

func newTestClients() (*secClients, *fakeS3) {
	s3 := newFakeS3()
	s3.add("secure", &fakeBucket{
		region:     "us-east-1",
		algorithms: []string{"aws:kms"},
		policy:     sslDenyPolicy,
		versioning: s3types.BucketVersioningStatusEnabled,
		pab:        fullBlock(),
		loggingTo:  "access-logs",
	})
	s3.add("open", &fakeBucket{
		region:    "eu-west-1",
		grantURIs: []string{allUsersURI},
	})
	s3.add("trail-logs", &fakeBucket{region: "us-east-1", algorithms: []string{"AES256"}})

	delivered := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	clients := &secClients{
		S3:  s3,
		EC2: &fakeEC2{ebsDefault: false},
		IAM: &fakeIAM{
			users:   []string{"alice", "ci"},
			mfa:     map[string]bool{},
			console: map[string]bool{"alice": true},
			summary: map[string]int32{"AccountAccessKeysPresent": 0, "AccountMFAEnabled": 1},
			policy: &iamtypes.PasswordPolicy{
				MinimumPasswordLength:   aws.Int32(8),
				PasswordReusePrevention: aws.Int32(24),
			},
		},
		CloudTrail: &fakeCloudTrail{trails: []fakeTrail{{
			trail: cloudtrailtypes.Trail{
				Name:                      aws.String("org"),
				TrailARN:                  aws.String("arn:aws:cloudtrail:us-east-1:123:trail/org"),
				HomeRegion:                aws.String("us-east-1"),
				IsMultiRegionTrail:        aws.Bool(true),
				LogFileValidationEnabled:  aws.Bool(true),
				CloudWatchLogsLogGroupArn: aws.String("arn:aws:logs:us-east-1:123:log-group:ct"),
				S3BucketName:              aws.String("trail-logs"),
			},
			delivered: &delivered,
		}}},
		GuardDuty: &fakeGuardDuty{detectors: map[string]guarddutytype.DetectorStatus{"d1": guarddutytype.DetectorStatusEnabled}},
		Config:    &fakeConfig{recording: true},
		RDS: &fakeRDS{instances: []rdstypes.DBInstance{{
			DBInstanceIdentifier:    aws.String("db1"),
			Engine:                  aws.String("postgres"),
			StorageEncrypted:        aws.Bool(true),
			AutoMinorVersionUpgrade: aws.Bool(false),
			PubliclyAccessible:      aws.Bool(false),
		}}},
		KMS: &fakeKMS{
			order: []string{"cmk", "aws-managed", "disabled"},
			keys: map[string]fakeKey{
				"cmk":         {manager: kmstypes.KeyManagerTypeCustomer, spec: kmstypes.KeySpecSymmetricDefault, state: kmstypes.KeyStateEnabled},
				"aws-managed": {manager: kmstypes.KeyManagerTypeAws, spec: kmstypes.KeySpecSymmetricDefault, state: kmstypes.KeyStateEnabled},
				"disabled":    {manager: kmstypes.KeyManagerTypeCustomer, spec: kmstypes.KeySpecSymmetricDefault, state: kmstypes.KeyStateDisabled},
			},
		},
	}
	return clients, s3
}

func testProfile() *common.ProfileConfig {
	return &common.ProfileConfig{
		ProfileName: "test",
		AccountID:   "123456789012",
		Region:      "us-east-1",
		Config:      aws.Config{Region: "us-east-1"},
	}
}

func TestCollectAll_FullSnapshot(t *testing.T) {
	clients, _ := newTestClients()
	ff := &fakeFactory{clients: clients}
	c := NewDefaultSecurityCollectorWithFactory(ff.build)

	data, err := c.CollectAll(context.Background(), testProfile(), common.NewDefaultAWSClientProvider(),
		CollectOptions{Regions: []string{"us-east-1", "us-west-2"}})
	require.NoError(t, err)

	assert.Equal(t, "123456789012", data.AccountID)

	// IAM
	assert.True(t, data.PasswordPolicy.Present)
	assert.Equal(t, 8, data.PasswordPolicy.MinimumPasswordLength)
	assert.True(t, data.Root.DataAvailable)
	assert.True(t, data.Root.MFAEnabled)
	require.Len(t, data.IAMUsers, 2)
	assert.True(t, data.IAMUsers[0].HasLoginProfile)
	assert.True(t, data.IAMUsers[0].MFAAvailable)
	assert.False(t, data.IAMUsers[1].HasLoginProfile)

	// S3
	require.Len(t, data.Buckets, 3)
	secure := data.Buckets[0]
	assert.Equal(t, []string{"aws:kms"}, secure.EncryptionAlgorithms)
	assert.True(t, secure.EnforcesSSL)
	assert.Equal(t, "Enabled", secure.VersioningStatus)
	assert.True(t, secure.PublicAccessBlock.FullyEnabled())
	assert.True(t, secure.LoggingEnabled)

	open := data.Buckets[1]
	assert.Equal(t, "eu-west-1", open.Region)
	assert.True(t, open.EncryptionAvailable)
	assert.Empty(t, open.EncryptionAlgorithms)
	assert.True(t, open.PolicyAvailable)
	assert.False(t, open.HasPolicy)
	assert.True(t, open.PublicAccessBlockAvailable)
	assert.Nil(t, open.PublicAccessBlock)
	assert.True(t, open.GrantsAllUsers)

	// Regional
	require.Len(t, data.Regions, 2)
	for _, rd := range data.Regions {
		require.NotNil(t, rd.EBSEncryptionByDefault)
		assert.False(t, *rd.EBSEncryptionByDefault)
		assert.True(t, rd.GuardDuty.Enabled)
		assert.True(t, rd.Config.Enabled)
		require.Len(t, rd.RDSInstances, 1)
		assert.False(t, rd.RDSInstances[0].AutoMinorVersionUpgrade)
		require.Len(t, rd.KMSKeys, 1)
		assert.Equal(t, "cmk", rd.KMSKeys[0].KeyID)
	}

	// CloudTrail is read once from the home region.
	require.True(t, data.CloudTrail.DataAvailable)
	require.Len(t, data.CloudTrail.Trails, 1)
	trail := data.CloudTrail.Trails[0]
	assert.True(t, trail.StatusAvailable)
	assert.NotNil(t, trail.LatestCloudWatchDelivery)
	assert.True(t, trail.BucketLoggingAvailable)
	assert.False(t, trail.BucketLoggingEnabled)

	assert.Contains(t, ff.regions, "eu-west-1", "bucket in eu-west-1 must be read with a regional client")
	assert.Empty(t, data.Exceptions)
}

func TestCollectAll_TrailHomedOutsideAuditedRegions(t *testing.T) {
	clients, _ := newTestClients()
	trail := fakeTrail{trail: cloudtrailtypes.Trail{
		Name:               aws.String("org"),
		TrailARN:           aws.String("arn:aws:cloudtrail:eu-west-1:123:trail/org"),
		HomeRegion:         aws.String("eu-west-1"),
		IsMultiRegionTrail: aws.Bool(true),
		S3BucketName:       aws.String("trail-logs"),
	}}
	rf := &regionalFactory{base: clients, trails: map[string]*fakeCloudTrail{
		"us-east-1": {region: "us-east-1", trails: []fakeTrail{trail}},
		"us-west-2": {region: "us-west-2", trails: []fakeTrail{trail}},
		"eu-west-1": {region: "eu-west-1", trails: []fakeTrail{trail}},
	}}
	c := NewDefaultSecurityCollectorWithFactory(rf.build)

	data, err := c.CollectAll(context.Background(), testProfile(), nil,
		CollectOptions{Regions: []string{"us-west-2"}})
	require.NoError(t, err)

	require.True(t, data.CloudTrail.DataAvailable)
	require.Len(t, data.CloudTrail.Trails, 1)
	got := data.CloudTrail.Trails[0]
	assert.Equal(t, "eu-west-1", got.HomeRegion)
	assert.True(t, got.IsMultiRegion)
	assert.True(t, got.StatusAvailable)
	assert.True(t, got.IsLogging)
	assert.Equal(t, 1, rf.trails["eu-west-1"].statusCalls, "status must be read in the trail's home region")
	assert.Zero(t, rf.trails["us-east-1"].statusCalls)
	assert.Zero(t, rf.trails["us-west-2"].statusCalls)
	assert.Empty(t, data.Exceptions)
}

func TestCollectAll_SectionFilter(t *testing.T) {
	clients, s3 := newTestClients()
	ff := &fakeFactory{clients: clients}
	c := NewDefaultSecurityCollectorWithFactory(ff.build)

	data, err := c.CollectAll(context.Background(), testProfile(), nil,
		CollectOptions{Sections: []controls.Section{controls.SectionIAM}})
	require.NoError(t, err)

	assert.Zero(t, s3.calls["ListBuckets"])
	assert.Empty(t, data.Buckets)
	assert.False(t, data.CloudTrail.DataAvailable)
	require.Len(t, data.Regions, 1)
	assert.Equal(t, "us-east-1", data.Regions[0].Region)
	assert.Nil(t, data.Regions[0].EBSEncryptionByDefault)
	assert.True(t, data.PasswordPolicy.DataAvailable)
}

func TestCollectAll_FailuresAreNotFatal(t *testing.T) {
	clients, s3 := newTestClients()
	s3.listErr = errors.New("access denied")
	clients.IAM.(*fakeIAM).summaryErr = errors.New("throttled")
	clients.CloudTrail.(*fakeCloudTrail).describeErr = errors.New("denied")
	clients.GuardDuty.(*fakeGuardDuty).err = errors.New("denied")
	clients.EC2.(*fakeEC2).err = errors.New("denied")

	c := NewDefaultSecurityCollectorWithFactory((&fakeFactory{clients: clients}).build)
	data, err := c.CollectAll(context.Background(), testProfile(), nil, CollectOptions{})
	require.NoError(t, err)

	assert.Empty(t, data.Buckets)
	assert.False(t, data.Root.DataAvailable)
	assert.False(t, data.CloudTrail.DataAvailable)
	assert.False(t, data.Regions[0].GuardDuty.DataAvailable)
	assert.Nil(t, data.Regions[0].EBSEncryptionByDefault)
	assert.True(t, data.Regions[0].Config.DataAvailable)

	var resources []string
	for _, e := range data.Exceptions {
		resources = append(resources, e.Resource)
	}
	assert.Contains(t, resources, "123456789012")
	assert.Contains(t, resources, "123456789012 (us-east-1)")
	assert.Len(t, data.Exceptions, 5)
}

func TestCollectAll_ResourceReadFailuresAreExceptions(t *testing.T) {
	clients, s3 := newTestClients()
	s3.buckets["secure"].aclErr = apiErr("AccessDenied")
	clients.IAM.(*fakeIAM).mfaErr = map[string]error{"alice": apiErr("Throttling")}
	clients.KMS.(*fakeKMS).rotationErr = map[string]error{"cmk": apiErr("AccessDeniedException")}
	clients.CloudTrail.(*fakeCloudTrail).trails[0].statusErr = apiErr("AccessDenied")

	c := NewDefaultSecurityCollectorWithFactory((&fakeFactory{clients: clients}).build)
	data, err := c.CollectAll(context.Background(), testProfile(), nil, CollectOptions{})
	require.NoError(t, err)

	require.Len(t, data.IAMUsers, 2)
	assert.False(t, data.IAMUsers[0].MFAAvailable)
	assert.True(t, data.IAMUsers[1].MFAAvailable)
	assert.False(t, data.Buckets[0].ACLAvailable)
	assert.False(t, data.CloudTrail.Trails[0].StatusAvailable)
	assert.Empty(t, data.Regions[0].KMSKeys)

	var resources []string
	for _, e := range data.Exceptions {
		resources = append(resources, e.Resource)
	}
	assert.ElementsMatch(t, []string{"alice", "secure", "org", "cmk (us-east-1)"}, resources)
}

func TestCollectKMSKeys_DescribeFailureIsReported(t *testing.T) {
	kms := &fakeKMS{
		order: []string{"broken", "cmk"},
		keys: map[string]fakeKey{
			"cmk": {manager: kmstypes.KeyManagerTypeCustomer, spec: kmstypes.KeySpecSymmetricDefault, state: kmstypes.KeyStateEnabled, rotation: true},
		},
		describeErr: map[string]error{"broken": apiErr("AccessDeniedException")},
	}
	keys, failed, err := collectKMSKeys(context.Background(), kms, "eu-west-1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.True(t, keys[0].RotationEnabled)
	require.Len(t, failed, 1)
	assert.Equal(t, "broken (eu-west-1)", failed[0].resource)
}

func TestCollectIAMUsers_MFAFailureLeavesStateUnknown(t *testing.T) {
	iam := &fakeIAM{
		users:   []string{"alice"},
		console: map[string]bool{"alice": true},
		mfaErr:  map[string]error{"alice": apiErr("Throttling")},
	}
	users, failed, err := collectIAMUsers(context.Background(), iam)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].HasLoginProfile)
	assert.False(t, users[0].MFAAvailable)
	assert.False(t, users[0].MFAEnabled)
	require.Len(t, failed, 1)
	assert.Equal(t, "alice", failed[0].resource)
}

func TestCollectPasswordPolicy_NoPolicy(t *testing.T) {
	pp, err := collectPasswordPolicy(context.Background(), &fakeIAM{})
	require.NoError(t, err)
	assert.True(t, pp.DataAvailable)
	assert.False(t, pp.Present)

	_, err = collectPasswordPolicy(context.Background(), &fakeIAM{policyErr: errors.New("denied")})
	assert.Error(t, err)
}

func TestInspectBucket_UnexpectedErrorsClearAvailability(t *testing.T) {
	s3 := newFakeS3()
	s3.add("b", &fakeBucket{
		encErr:     apiErr("AccessDenied"),
		policyErr:  apiErr("AccessDenied"),
		pabErr:     apiErr("AccessDenied"),
		loggingErr: apiErr("AccessDenied"),
	})
	b, failed := inspectBucket(context.Background(), s3, "b", "us-east-1", "123")
	assert.False(t, b.EncryptionAvailable)
	assert.False(t, b.PolicyAvailable)
	assert.False(t, b.PublicAccessBlockAvailable)
	assert.False(t, b.LoggingAvailable)
	assert.True(t, b.VersioningAvailable)
	assert.True(t, b.ACLAvailable)

	require.Len(t, failed, 4)
	for _, f := range failed {
		assert.Equal(t, "b", f.resource)
	}
}

func TestInspectBucket_UnparseablePolicyIsReported(t *testing.T) {
	s3 := newFakeS3()
	s3.add("b", &fakeBucket{policy: "{not json"})
	b, failed := inspectBucket(context.Background(), s3, "b", "us-east-1", "123")
	assert.True(t, b.HasPolicy)
	assert.False(t, b.PolicyAvailable)
	require.Len(t, failed, 1)
	assert.Equal(t, "bucket policy", failed[0].what)
}

func TestLocationRegion(t *testing.T) {
	assert.Equal(t, "us-east-1", locationRegion(""))
	assert.Equal(t, "eu-west-1", locationRegion("EU"))
	assert.Equal(t, "ap-south-1", locationRegion("ap-south-1"))
}
