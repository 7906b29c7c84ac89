package awssecurity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// S3 error codes that mean "not configured" rather than "could not read".
const (
	codeNoEncryption        = "ServerSideEncryptionConfigurationNotFoundError"
	codeNoBucketPolicy      = "NoSuchBucketPolicy"
	codeNoPublicAccessBlock = "NoSuchPublicAccessBlockConfiguration"
)

const (
	allUsersURI           = "http://acs.amazonaws.com/groups/global/AllUsers"
	authenticatedUsersURI = "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"
)

// s3ClientFor returns an S3 client scoped to region.
type s3ClientFor func(region string) s3APIClient

// collectS3Buckets lists every bucket of the account and inspects up to
// concurrency buckets in parallel, each through a client in the bucket's own
// region. Per-bucket failures clear that bucket's *Available flags and are
// returned as readFailures keyed by bucket name.
func collectS3Buckets(
	ctx context.Context,
	client s3APIClient,
	clientFor s3ClientFor,
	accountID string,
	concurrency int,
) ([]models.AWSS3Bucket, []readFailure, error) {
	listed, err := listBuckets(ctx, client)
	if err != nil {
		return nil, nil, err
	}

	buckets := make([]models.AWSS3Bucket, len(listed))
	perBucket := make([][]readFailure, len(listed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, b := range listed {
		g.Go(func() error {
			name := aws.ToString(b.Name)
			region := bucketRegion(gctx, client, b, accountID)
			regional := client
			if region != "" {
				regional = clientFor(region)
			}
			buckets[i], perBucket[i] = inspectBucket(gctx, regional, name, region, accountID)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var failed []readFailure
	for _, f := range perBucket {
		failed = append(failed, f...)
	}
	return buckets, failed, nil
}

func listBuckets(ctx context.Context, client s3APIClient) ([]s3types.Bucket, error) {
	var all []s3types.Bucket
	input := &s3svc.ListBucketsInput{}
	for {
		out, err := client.ListBuckets(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("list S3 buckets: %w", err)
		}
		all = append(all, out.Buckets...)
		if aws.ToString(out.ContinuationToken) == "" {
			return all, nil
		}
		input.ContinuationToken = out.ContinuationToken
	}
}

// bucketRegion returns the bucket's region from the listing, falling back to
// GetBucketLocation. It returns "" when the region cannot be determined.
func bucketRegion(ctx context.Context, client s3APIClient, b s3types.Bucket, accountID string) string {
	if r := aws.ToString(b.BucketRegion); r != "" {
		return r
	}
	out, err := client.GetBucketLocation(ctx, &s3svc.GetBucketLocationInput{
		Bucket:              b.Name,
		ExpectedBucketOwner: owner(accountID),
	})
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("bucket", aws.ToString(b.Name)).Msg("get bucket location failed")
		return ""
	}
	return locationRegion(string(out.LocationConstraint))
}

// locationRegion maps a GetBucketLocation constraint to a region name. The
// empty constraint is us-east-1 and the legacy "EU" is eu-west-1.
func locationRegion(loc string) string {
	switch loc {
	case "":
		return "us-east-1"
	case "EU":
		return "eu-west-1"
	default:
		return loc
	}
}

// owner returns the ExpectedBucketOwner value for accountID, or nil when the
// account is unknown.
func owner(accountID string) *string {
	if accountID == "" {
		return nil
	}
	return aws.String(accountID)
}

// inspectBucket reads every bucket setting the S3 controls look at. Reads
// that fail for a reason other than "not configured" are returned.
func inspectBucket(ctx context.Context, client s3APIClient, name, region, accountID string) (models.AWSS3Bucket, []readFailure) {
	bucket := aws.String(name)
	expected := owner(accountID)
	b := models.AWSS3Bucket{Name: name, Region: region}

	var failed []readFailure
	fail := func(what string, err error) {
		failed = append(failed, readFailure{resource: name, what: what, err: err})
	}

	enc, err := client.GetBucketEncryption(ctx, &s3svc.GetBucketEncryptionInput{Bucket: bucket, ExpectedBucketOwner: expected})
	switch {
	case err == nil:
		b.EncryptionAvailable = true
		if enc.ServerSideEncryptionConfiguration != nil {
			for _, r := range enc.ServerSideEncryptionConfiguration.Rules {
				if r.ApplyServerSideEncryptionByDefault != nil {
					b.EncryptionAlgorithms = append(b.EncryptionAlgorithms, string(r.ApplyServerSideEncryptionByDefault.SSEAlgorithm))
				}
			}
		}
	case isCode(err, codeNoEncryption):
		b.EncryptionAvailable = true
	default:
		fail("bucket encryption", err)
	}

	pol, err := client.GetBucketPolicy(ctx, &s3svc.GetBucketPolicyInput{Bucket: bucket, ExpectedBucketOwner: expected})
	switch {
	case err == nil:
		b.HasPolicy = true
		analysis, perr := analyzeBucketPolicy(aws.ToString(pol.Policy))
		if perr != nil {
			fail("bucket policy", perr)
			break
		}
		b.PolicyAvailable = true
		b.EnforcesSSL = analysis.EnforcesSSL
		b.AllowsAnonymous = analysis.AllowsAnonymous
	case isCode(err, codeNoBucketPolicy):
		b.PolicyAvailable = true
	default:
		fail("bucket policy", err)
	}

	ver, err := client.GetBucketVersioning(ctx, &s3svc.GetBucketVersioningInput{Bucket: bucket, ExpectedBucketOwner: expected})
	if err != nil {
		fail("bucket versioning", err)
	} else {
		b.VersioningAvailable = true
		b.VersioningStatus = string(ver.Status)
	}

	pab, err := client.GetPublicAccessBlock(ctx, &s3svc.GetPublicAccessBlockInput{Bucket: bucket, ExpectedBucketOwner: expected})
	switch {
	case err == nil:
		b.PublicAccessBlockAvailable = true
		if c := pab.PublicAccessBlockConfiguration; c != nil {
			b.PublicAccessBlock = &models.AWSPublicAccessBlock{
				BlockPublicAcls:       aws.ToBool(c.BlockPublicAcls),
				IgnorePublicAcls:      aws.ToBool(c.IgnorePublicAcls),
				BlockPublicPolicy:     aws.ToBool(c.BlockPublicPolicy),
				RestrictPublicBuckets: aws.ToBool(c.RestrictPublicBuckets),
			}
		}
	case isCode(err, codeNoPublicAccessBlock):
		b.PublicAccessBlockAvailable = true
	default:
		fail("public access block", err)
	}

	acl, err := client.GetBucketAcl(ctx, &s3svc.GetBucketAclInput{Bucket: bucket, ExpectedBucketOwner: expected})
	if err != nil {
		fail("bucket ACL", err)
	} else {
		b.ACLAvailable = true
		for _, g := range acl.Grants {
			if g.Grantee == nil {
				continue
			}
			switch aws.ToString(g.Grantee.URI) {
			case allUsersURI:
				b.GrantsAllUsers = true
			case authenticatedUsersURI:
				b.GrantsAuthenticatedUsers = true
			}
		}
	}

	enabled, target, err := bucketLogging(ctx, client, name, accountID)
	if err != nil {
		fail("bucket logging", err)
	} else {
		b.LoggingAvailable = true
		b.LoggingEnabled = enabled
		b.LoggingTarget = target
	}
	return b, failed
}

// bucketLogging reports whether server access logging is enabled on bucket
// and where it is delivered.
func bucketLogging(ctx context.Context, client s3APIClient, bucket, accountID string) (bool, string, error) {
	out, err := client.GetBucketLogging(ctx, &s3svc.GetBucketLoggingInput{
		Bucket:              aws.String(bucket),
		ExpectedBucketOwner: owner(accountID),
	})
	if err != nil {
		return false, "", fmt.Errorf("get bucket logging for %s: %w", bucket, err)
	}
	if out.LoggingEnabled == nil {
		return false, "", nil
	}
	return true, aws.ToString(out.LoggingEnabled.TargetBucket), nil
}
