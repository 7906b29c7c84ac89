package awssecurity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	cloudtrailsvc "github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cloudtrailtypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// cloudTrailClientFor returns a CloudTrail client scoped to region.
type cloudTrailClientFor func(region string) cloudTrailAPIClient

// collectTrails describes every trail visible from the home region. Shadow
// trails are included so a multi-region trail homed elsewhere is still seen;
// duplicates are dropped by ARN. Each trail's status is read through a client
// in the trail's own home region. A failed status read is returned as a
// readFailure and leaves StatusAvailable false.
func collectTrails(
	ctx context.Context,
	client cloudTrailAPIClient,
	clientFor cloudTrailClientFor,
	home string,
) ([]models.AWSTrail, []readFailure, error) {
	out, err := client.DescribeTrails(ctx, &cloudtrailsvc.DescribeTrailsInput{
		IncludeShadowTrails: aws.Bool(true),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("describe trails from %s: %w", home, err)
	}

	var (
		trails []models.AWSTrail
		failed []readFailure
	)
	for _, t := range dedupeTrails(out.TrailList, home) {
		status, err := clientFor(t.HomeRegion).GetTrailStatus(ctx, &cloudtrailsvc.GetTrailStatusInput{
			Name: aws.String(trailRef(t)),
		})
		if err != nil {
			failed = append(failed, readFailure{resource: t.Name, what: "trail status", err: err})
		} else {
			t.StatusAvailable = true
			t.IsLogging = aws.ToBool(status.IsLogging)
			t.LatestCloudWatchDelivery = status.LatestCloudWatchLogsDeliveryTime
		}
		trails = append(trails, t)
	}
	return trails, failed, nil
}

// dedupeTrails converts the SDK trails, keeping the first of each ARN. A
// trail without a home region is taken to live in home.
func dedupeTrails(list []cloudtrailtypes.Trail, home string) []models.AWSTrail {
	seen := make(map[string]bool)
	var trails []models.AWSTrail
	for _, t := range list {
		trail := models.AWSTrail{
			Name:                     aws.ToString(t.Name),
			ARN:                      aws.ToString(t.TrailARN),
			HomeRegion:               aws.ToString(t.HomeRegion),
			IsMultiRegion:            aws.ToBool(t.IsMultiRegionTrail),
			LogFileValidationEnabled: aws.ToBool(t.LogFileValidationEnabled),
			KMSKeyID:                 aws.ToString(t.KmsKeyId),
			CloudWatchLogGroupARN:    aws.ToString(t.CloudWatchLogsLogGroupArn),
			S3BucketName:             aws.ToString(t.S3BucketName),
		}
		if trail.HomeRegion == "" {
			trail.HomeRegion = home
		}
		key := trail.ARN
		if key == "" {
			key = trail.HomeRegion + "/" + trail.Name
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		trails = append(trails, trail)
	}
	return trails
}

// trailRef is the name GetTrailStatus accepts from any region: the ARN when
// known.
func trailRef(t models.AWSTrail) string {
	if t.ARN != "" {
		return t.ARN
	}
	return t.Name
}

// enrichTrailBuckets records whether each trail's S3 bucket has server access
// logging. Trail buckets often live in a central logging account, so the
// owner check is skipped; a bucket that cannot be read leaves
// BucketLoggingAvailable false and is returned as a readFailure.
func enrichTrailBuckets(ctx context.Context, trails []models.AWSTrail, client s3APIClient, clientFor s3ClientFor) []readFailure {
	var failed []readFailure
	for i := range trails {
		t := &trails[i]
		if t.S3BucketName == "" {
			continue
		}
		regional := client
		loc, err := client.GetBucketLocation(ctx, &s3svc.GetBucketLocationInput{Bucket: aws.String(t.S3BucketName)})
		if err == nil {
			regional = clientFor(locationRegion(string(loc.LocationConstraint)))
		}
		enabled, _, err := bucketLogging(ctx, regional, t.S3BucketName, "")
		if err != nil {
			failed = append(failed, readFailure{resource: t.Name, what: "trail bucket " + t.S3BucketName + " logging", err: err})
			continue
		}
		t.BucketLoggingAvailable = true
		t.BucketLoggingEnabled = enabled
	}
	return failed
}
