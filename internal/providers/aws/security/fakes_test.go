package awssecurity

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cloudtrailsvc "github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cloudtrailtypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	configsvc "github.com/aws/aws-sdk-go-v2/service/configservice"
	configtypes "github.com/aws/aws-sdk-go-v2/service/configservice/types"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	guardduty "github.com/aws/aws-sdk-go-v2/service/guardduty"
	guarddutytype "github.com/aws/aws-sdk-go-v2/service/guardduty/types"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	kmssvc "github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

func apiErr(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

// ---------------------------------------------------------------------------
// S3
// ---------------------------------------------------------------------------

type fakeBucket struct {
	region      string
	algorithms  []string
	encErr      error
	policy      string
	policyErr   error
	versioning  s3types.BucketVersioningStatus
	pab         *s3types.PublicAccessBlockConfiguration
	pabErr      error
	grantURIs   []string
	aclErr      error
	loggingTo   string
	loggingErr  error
	locationErr error
}

type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]*fakeBucket
	order   []string
	listErr error
	calls   map[string]int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{buckets: make(map[string]*fakeBucket), calls: make(map[string]int)}
}

func (f *fakeS3) add(name string, b *fakeBucket) {
	f.buckets[name] = b
	f.order = append(f.order, name)
}

func (f *fakeS3) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeS3) bucket(name *string) *fakeBucket {
	if b, ok := f.buckets[aws.ToString(name)]; ok {
		return b
	}
	return &fakeBucket{}
}

func (f *fakeS3) ListBuckets(context.Context, *s3svc.ListBucketsInput, ...func(*s3svc.Options)) (*s3svc.ListBucketsOutput, error) {
	f.count("ListBuckets")
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := &s3svc.ListBucketsOutput{}
	for _, name := range f.order {
		out.Buckets = append(out.Buckets, s3types.Bucket{Name: aws.String(name)})
	}
	return out, nil
}

func (f *fakeS3) GetBucketLocation(_ context.Context, in *s3svc.GetBucketLocationInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketLocationOutput, error) {
	b := f.bucket(in.Bucket)
	if b.locationErr != nil {
		return nil, b.locationErr
	}
	loc := b.region
	if loc == "us-east-1" {
		loc = ""
	}
	return &s3svc.GetBucketLocationOutput{LocationConstraint: s3types.BucketLocationConstraint(loc)}, nil
}

func (f *fakeS3) GetBucketEncryption(_ context.Context, in *s3svc.GetBucketEncryptionInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketEncryptionOutput, error) {
	b := f.bucket(in.Bucket)
	if b.encErr != nil {
		return nil, b.encErr
	}
	if len(b.algorithms) == 0 {
		return nil, apiErr(codeNoEncryption)
	}
	cfg := &s3types.ServerSideEncryptionConfiguration{}
	for _, alg := range b.algorithms {
		cfg.Rules = append(cfg.Rules, s3types.ServerSideEncryptionRule{
			ApplyServerSideEncryptionByDefault: &s3types.ServerSideEncryptionByDefault{SSEAlgorithm: s3types.ServerSideEncryption(alg)},
		})
	}
	return &s3svc.GetBucketEncryptionOutput{ServerSideEncryptionConfiguration: cfg}, nil
}

func (f *fakeS3) GetBucketPolicy(_ context.Context, in *s3svc.GetBucketPolicyInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyOutput, error) {
	b := f.bucket(in.Bucket)
	if b.policyErr != nil {
		return nil, b.policyErr
	}
	if b.policy == "" {
		return nil, apiErr(codeNoBucketPolicy)
	}
	return &s3svc.GetBucketPolicyOutput{Policy: aws.String(b.policy)}, nil
}

func (f *fakeS3) GetBucketVersioning(_ context.Context, in *s3svc.GetBucketVersioningInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketVersioningOutput, error) {
	return &s3svc.GetBucketVersioningOutput{Status: f.bucket(in.Bucket).versioning}, nil
}

func (f *fakeS3) GetPublicAccessBlock(_ context.Context, in *s3svc.GetPublicAccessBlockInput, _ ...func(*s3svc.Options)) (*s3svc.GetPublicAccessBlockOutput, error) {
	b := f.bucket(in.Bucket)
	if b.pabErr != nil {
		return nil, b.pabErr
	}
	if b.pab == nil {
		return nil, apiErr(codeNoPublicAccessBlock)
	}
	return &s3svc.GetPublicAccessBlockOutput{PublicAccessBlockConfiguration: b.pab}, nil
}

func (f *fakeS3) GetBucketAcl(_ context.Context, in *s3svc.GetBucketAclInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketAclOutput, error) {
	b := f.bucket(in.Bucket)
	if b.aclErr != nil {
		return nil, b.aclErr
	}
	out := &s3svc.GetBucketAclOutput{}
	for _, uri := range b.grantURIs {
		out.Grants = append(out.Grants, s3types.Grant{
			Grantee:    &s3types.Grantee{Type: s3types.TypeGroup, URI: aws.String(uri)},
			Permission: s3types.PermissionRead,
		})
	}
	return out, nil
}

func (f *fakeS3) GetBucketLogging(_ context.Context, in *s3svc.GetBucketLoggingInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketLoggingOutput, error) {
	b := f.bucket(in.Bucket)
	if b.loggingErr != nil {
		return nil, b.loggingErr
	}
	if b.loggingTo == "" {
		return &s3svc.GetBucketLoggingOutput{}, nil
	}
	return &s3svc.GetBucketLoggingOutput{LoggingEnabled: &s3types.LoggingEnabled{TargetBucket: aws.String(b.loggingTo)}}, nil
}

// ---------------------------------------------------------------------------
// IAM
// ---------------------------------------------------------------------------

type fakeIAM struct {
	users        []string
	mfa          map[string]bool
	mfaErr       map[string]error
	console      map[string]bool
	summary      map[string]int32
	summaryErr   error
	policy       *iamtypes.PasswordPolicy
	policyErr    error
	listUsersErr error
}

func (f *fakeIAM) ListUsers(context.Context, *iamsvc.ListUsersInput, ...func(*iamsvc.Options)) (*iamsvc.ListUsersOutput, error) {
	if f.listUsersErr != nil {
		return nil, f.listUsersErr
	}
	out := &iamsvc.ListUsersOutput{}
	for _, u := range f.users {
		out.Users = append(out.Users, iamtypes.User{UserName: aws.String(u)})
	}
	return out, nil
}

func (f *fakeIAM) ListMFADevices(_ context.Context, in *iamsvc.ListMFADevicesInput, _ ...func(*iamsvc.Options)) (*iamsvc.ListMFADevicesOutput, error) {
	if err := f.mfaErr[aws.ToString(in.UserName)]; err != nil {
		return nil, err
	}
	out := &iamsvc.ListMFADevicesOutput{}
	if f.mfa[aws.ToString(in.UserName)] {
		out.MFADevices = []iamtypes.MFADevice{{UserName: in.UserName, SerialNumber: aws.String("arn:mfa")}}
	}
	return out, nil
}

func (f *fakeIAM) GetLoginProfile(_ context.Context, in *iamsvc.GetLoginProfileInput, _ ...func(*iamsvc.Options)) (*iamsvc.GetLoginProfileOutput, error) {
	if !f.console[aws.ToString(in.UserName)] {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("no login profile")}
	}
	return &iamsvc.GetLoginProfileOutput{LoginProfile: &iamtypes.LoginProfile{UserName: in.UserName}}, nil
}

func (f *fakeIAM) GetAccountSummary(context.Context, *iamsvc.GetAccountSummaryInput, ...func(*iamsvc.Options)) (*iamsvc.GetAccountSummaryOutput, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return &iamsvc.GetAccountSummaryOutput{SummaryMap: f.summary}, nil
}

func (f *fakeIAM) GetAccountPasswordPolicy(context.Context, *iamsvc.GetAccountPasswordPolicyInput, ...func(*iamsvc.Options)) (*iamsvc.GetAccountPasswordPolicyOutput, error) {
	if f.policyErr != nil {
		return nil, f.policyErr
	}
	if f.policy == nil {
		return nil, &iamtypes.NoSuchEntityException{Message: aws.String("no password policy")}
	}
	return &iamsvc.GetAccountPasswordPolicyOutput{PasswordPolicy: f.policy}, nil
}

// ---------------------------------------------------------------------------
// Regional services
// ---------------------------------------------------------------------------

type fakeTrail struct {
	trail     cloudtrailtypes.Trail
	delivered *time.Time
	statusErr error
}

// fakeCloudTrail answers like the CloudTrail endpoint of region. When region
// is set, shadow trails are only listed on request and trail status is only
// served for trails homed in region.
type fakeCloudTrail struct {
	region      string
	trails      []fakeTrail
	describeErr error
	statusCalls int
}

func (f *fakeCloudTrail) DescribeTrails(_ context.Context, in *cloudtrailsvc.DescribeTrailsInput, _ ...func(*cloudtrailsvc.Options)) (*cloudtrailsvc.DescribeTrailsOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	out := &cloudtrailsvc.DescribeTrailsOutput{}
	for _, t := range f.trails {
		if f.region != "" && !aws.ToBool(in.IncludeShadowTrails) && aws.ToString(t.trail.HomeRegion) != f.region {
			continue
		}
		out.TrailList = append(out.TrailList, t.trail)
	}
	return out, nil
}

func (f *fakeCloudTrail) GetTrailStatus(_ context.Context, in *cloudtrailsvc.GetTrailStatusInput, _ ...func(*cloudtrailsvc.Options)) (*cloudtrailsvc.GetTrailStatusOutput, error) {
	f.statusCalls++
	for _, t := range f.trails {
		if aws.ToString(t.trail.TrailARN) != aws.ToString(in.Name) {
			continue
		}
		if f.region != "" && aws.ToString(t.trail.HomeRegion) != f.region {
			return nil, apiErr("TrailNotFoundException")
		}
		if t.statusErr != nil {
			return nil, t.statusErr
		}
		return &cloudtrailsvc.GetTrailStatusOutput{
			IsLogging:                        aws.Bool(true),
			LatestCloudWatchLogsDeliveryTime: t.delivered,
		}, nil
	}
	return nil, apiErr("TrailNotFoundException")
}

type fakeGuardDuty struct {
	detectors map[string]guarddutytype.DetectorStatus
	err       error
}

func (f *fakeGuardDuty) ListDetectors(context.Context, *guardduty.ListDetectorsInput, ...func(*guardduty.Options)) (*guardduty.ListDetectorsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &guardduty.ListDetectorsOutput{}
	for id := range f.detectors {
		out.DetectorIds = append(out.DetectorIds, id)
	}
	return out, nil
}

func (f *fakeGuardDuty) GetDetector(_ context.Context, in *guardduty.GetDetectorInput, _ ...func(*guardduty.Options)) (*guardduty.GetDetectorOutput, error) {
	return &guardduty.GetDetectorOutput{Status: f.detectors[aws.ToString(in.DetectorId)]}, nil
}

type fakeConfig struct {
	recording bool
	err       error
}

func (f *fakeConfig) DescribeConfigurationRecorderStatus(context.Context, *configsvc.DescribeConfigurationRecorderStatusInput, ...func(*configsvc.Options)) (*configsvc.DescribeConfigurationRecorderStatusOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &configsvc.DescribeConfigurationRecorderStatusOutput{
		ConfigurationRecordersStatus: []configtypes.ConfigurationRecorderStatus{
			{Name: aws.String("default"), Recording: f.recording},
		},
	}, nil
}

type fakeEC2 struct {
	ebsDefault bool
	err        error
}

func (f *fakeEC2) GetEbsEncryptionByDefault(context.Context, *ec2svc.GetEbsEncryptionByDefaultInput, ...func(*ec2svc.Options)) (*ec2svc.GetEbsEncryptionByDefaultOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ec2svc.GetEbsEncryptionByDefaultOutput{EbsEncryptionByDefault: aws.Bool(f.ebsDefault)}, nil
}

type fakeRDS struct {
	instances []rdstypes.DBInstance
}

func (f *fakeRDS) DescribeDBInstances(context.Context, *rdssvc.DescribeDBInstancesInput, ...func(*rdssvc.Options)) (*rdssvc.DescribeDBInstancesOutput, error) {
	return &rdssvc.DescribeDBInstancesOutput{DBInstances: f.instances}, nil
}

type fakeKey struct {
	manager  kmstypes.KeyManagerType
	spec     kmstypes.KeySpec
	state    kmstypes.KeyState
	rotation bool
}

type fakeKMS struct {
	keys        map[string]fakeKey
	order       []string
	describeErr map[string]error
	rotationErr map[string]error
}

func (f *fakeKMS) ListKeys(context.Context, *kmssvc.ListKeysInput, ...func(*kmssvc.Options)) (*kmssvc.ListKeysOutput, error) {
	out := &kmssvc.ListKeysOutput{}
	for _, id := range f.order {
		out.Keys = append(out.Keys, kmstypes.KeyListEntry{KeyId: aws.String(id), KeyArn: aws.String("arn:aws:kms:::key/" + id)})
	}
	return out, nil
}

func (f *fakeKMS) DescribeKey(_ context.Context, in *kmssvc.DescribeKeyInput, _ ...func(*kmssvc.Options)) (*kmssvc.DescribeKeyOutput, error) {
	if err := f.describeErr[aws.ToString(in.KeyId)]; err != nil {
		return nil, err
	}
	k := f.keys[aws.ToString(in.KeyId)]
	return &kmssvc.DescribeKeyOutput{KeyMetadata: &kmstypes.KeyMetadata{
		KeyId:      in.KeyId,
		KeyManager: k.manager,
		KeySpec:    k.spec,
		KeyState:   k.state,
	}}, nil
}

func (f *fakeKMS) GetKeyRotationStatus(_ context.Context, in *kmssvc.GetKeyRotationStatusInput, _ ...func(*kmssvc.Options)) (*kmssvc.GetKeyRotationStatusOutput, error) {
	if err := f.rotationErr[aws.ToString(in.KeyId)]; err != nil {
		return nil, err
	}
	return &kmssvc.GetKeyRotationStatusOutput{KeyRotationEnabled: f.keys[aws.ToString(in.KeyId)].rotation}, nil
}

// fakeFactory returns the same clients for every region and records the
// regions it was asked for.
type fakeFactory struct {
	mu      sync.Mutex
	clients *secClients
	regions []string
}

func (f *fakeFactory) build(cfg aws.Config) *secClients {
	f.mu.Lock()
	f.regions = append(f.regions, cfg.Region)
	f.mu.Unlock()
	return f.clients
}

// regionalFactory hands out the base clients with a CloudTrail fake per
// region, so tests can tell which regional endpoint served a call.
type regionalFactory struct {
	base   *secClients
	trails map[string]*fakeCloudTrail
}

func (f *regionalFactory) build(cfg aws.Config) *secClients {
	cl := *f.base
	if ct, ok := f.trails[cfg.Region]; ok {
		cl.CloudTrail = ct
	}
	return &cl
}
