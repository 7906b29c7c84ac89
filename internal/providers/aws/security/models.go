// Package awssecurity collects the raw CIS posture snapshot of an AWS
// account: IAM, S3 and CloudTrail at account level, and EBS, RDS, KMS,
// AWS Config and GuardDuty per region.
//
// The collector never produces findings. Calls that fail are logged and the
// matching DataAvailable flag is left false so rules skip the check instead
// of reporting a false positive.
package awssecurity

import "github.com/pankaj-dahiya-devops/cisaudit/internal/controls"

const defaultBucketConcurrency = 8

// CollectOptions scopes one collection run.
type CollectOptions struct {
	// Regions to audit. The profile's home region is used when empty.
	Regions []string

	// Sections limits the API calls to those the selected controls need.
	// Empty collects everything.
	Sections []controls.Section

	// BucketConcurrency bounds the number of buckets inspected in parallel.
	BucketConcurrency int
}

func (o CollectOptions) wants(s controls.Section) bool {
	if len(o.Sections) == 0 {
		return true
	}
	for _, want := range o.Sections {
		if want == s {
			return true
		}
	}
	return false
}

func (o CollectOptions) bucketConcurrency() int {
	if o.BucketConcurrency <= 0 {
		return defaultBucketConcurrency
	}
	return o.BucketConcurrency
}
