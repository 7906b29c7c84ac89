package rules

import (
	"fmt"
	"time"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/policy"
)

const defaultMaxDeliveryAgeHours = 24

// trailsOf returns the trails to evaluate, or nil when trail data is missing.
func trailsOf(ctx RuleContext) []models.AWSTrail {
	if ctx.Account == nil || !ctx.Account.CloudTrail.DataAvailable {
		return nil
	}
	return ctx.Account.CloudTrail.Trails
}

func trailFinding(r Rule, ctx RuleContext, t models.AWSTrail, idx int) models.Finding {
	f := newFinding(r, ctx, fmt.Sprintf("%s-%s", r.ID(), t.Name),
		t.Name, models.ResourceAWSTrail, "global", idx)
	f.Metadata = map[string]any{"trail_arn": t.ARN, "home_region": t.HomeRegion}
	return f
}

// CloudTrailLogValidationRule flags trails without log file integrity
// validation.
type CloudTrailLogValidationRule struct{}

func (r CloudTrailLogValidationRule) ID() string        { return "CLOUDTRAIL_LOG_VALIDATION_DISABLED" }
func (r CloudTrailLogValidationRule) Name() string      { return "CloudTrail Log File Validation Disabled" }
func (r CloudTrailLogValidationRule) ControlID() string { return "3.2" }

func (r CloudTrailLogValidationRule) Evaluate(ctx RuleContext) []models.Finding {
	var findings []models.Finding
	for _, t := range trailsOf(ctx) {
		if t.LogFileValidationEnabled {
			continue
		}
		f := trailFinding(r, ctx, t, 0)
		f.Explanation = fmt.Sprintf("Trail %q does not validate log file integrity.", t.Name)
		f.Recommendation = "Enable log file validation on the trail."
		findings = append(findings, f)
	}
	return findings
}

// CloudTrailCloudWatchRule flags trails that do not deliver to CloudWatch
// Logs (message 0), and trails whose last delivery is older than
// max_delivery_age_hours (message 1, default 24).
type CloudTrailCloudWatchRule struct{}

func (r CloudTrailCloudWatchRule) ID() string {
	return "CLOUDTRAIL_CLOUDWATCH_DELIVERY"
}
func (r CloudTrailCloudWatchRule) Name() string {
	return "CloudTrail Not Integrated With CloudWatch Logs"
}
func (r CloudTrailCloudWatchRule) ControlID() string {
	return "3.4"
}

func (r CloudTrailCloudWatchRule) Evaluate(ctx RuleContext) []models.Finding {
	maxAge := time.Duration(policy.GetThreshold(r.ID(), "max_delivery_age_hours", defaultMaxDeliveryAgeHours, ctx.Policy) * float64(time.Hour))
	now := ctx.now()

	var findings []models.Finding
	for _, t := range trailsOf(ctx) {
		if t.CloudWatchLogGroupARN == "" || (t.StatusAvailable && t.LatestCloudWatchDelivery == nil) {
			f := trailFinding(r, ctx, t, 0)
			f.Explanation = fmt.Sprintf("Trail %q is not delivering events to CloudWatch Logs.", t.Name)
			f.Recommendation = "Configure a CloudWatch Logs log group and delivery role on the trail."
			findings = append(findings, f)
			continue
		}
		if !t.StatusAvailable {
			continue
		}
		age := now.Sub(*t.LatestCloudWatchDelivery)
		if age <= maxAge {
			continue
		}
		f := trailFinding(r, ctx, t, 1)
		f.Explanation = fmt.Sprintf("Trail %q last delivered to CloudWatch Logs %s ago.", t.Name, age.Round(time.Minute))
		f.Recommendation = "Check the trail's CloudWatch Logs role and log group; delivery should happen continuously."
		f.Metadata["latest_delivery"] = t.LatestCloudWatchDelivery.UTC().Format(time.RFC3339)
		findings = append(findings, f)
	}
	return findings
}

// CloudTrailBucketLoggingRule flags trails whose S3 bucket has no server
// access logging. Trails whose bucket logging could not be read are skipped.
type CloudTrailBucketLoggingRule struct{}

func (r CloudTrailBucketLoggingRule) ID() string        { return "CLOUDTRAIL_BUCKET_LOGGING_DISABLED" }
func (r CloudTrailBucketLoggingRule) Name() string      { return "CloudTrail Bucket Access Logging Disabled" }
func (r CloudTrailBucketLoggingRule) ControlID() string { return "3.6" }

func (r CloudTrailBucketLoggingRule) Evaluate(ctx RuleContext) []models.Finding {
	var findings []models.Finding
	for _, t := range trailsOf(ctx) {
		if !t.BucketLoggingAvailable || t.BucketLoggingEnabled {
			continue
		}
		f := trailFinding(r, ctx, t, 0)
		f.ResourceID = t.S3BucketName
		f.ResourceType = models.ResourceAWSS3Bucket
		f.ID = fmt.Sprintf("%s-%s", r.ID(), t.S3BucketName)
		f.Explanation = fmt.Sprintf("S3 bucket %q receiving trail %q logs has no server access logging.", t.S3BucketName, t.Name)
		f.Recommendation = "Enable server access logging on the CloudTrail bucket."
		f.Metadata["trail"] = t.Name
		findings = append(findings, f)
	}
	return findings
}

// CloudTrailKMSRule flags trails whose logs are not encrypted with a KMS key.
type CloudTrailKMSRule struct{}

func (r CloudTrailKMSRule) ID() string        { return "CLOUDTRAIL_NOT_KMS_ENCRYPTED" }
func (r CloudTrailKMSRule) Name() string      { return "CloudTrail Logs Not KMS Encrypted" }
func (r CloudTrailKMSRule) ControlID() string { return "3.7" }

func (r CloudTrailKMSRule) Evaluate(ctx RuleContext) []models.Finding {
	var findings []models.Finding
	for _, t := range trailsOf(ctx) {
		if t.KMSKeyID != "" {
			continue
		}
		f := trailFinding(r, ctx, t, 0)
		f.Explanation = fmt.Sprintf("Trail %q logs are encrypted with SSE-S3 only.", t.Name)
		f.Recommendation = "Configure the trail with a customer-managed KMS key (KmsKeyId)."
		findings = append(findings, f)
	}
	return findings
}
