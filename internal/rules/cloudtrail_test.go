package rules

import (
	"testing"
	"time"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/policy"
)

var trailNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func trailCtx(available bool, trails ...models.AWSTrail) RuleContext {
	return RuleContext{
		AccountID: "123456789012",
		Now:       trailNow,
		Account: &models.AWSAccountData{
			CloudTrail: models.AWSCloudTrailStatus{DataAvailable: available, Trails: trails},
		},
	}
}

func TestAWSCloudTrailNotMultiRegionRule(t *testing.T) {
	tests := []struct {
		name      string
		ctx       RuleContext
		want      int
		wantIndex int
	}{
		{"nil account", RuleContext{}, 0, 0},
		{"describe failed", trailCtx(false), 0, 0},
		{"no trails", trailCtx(true), 1, 1},
		{"single region only", trailCtx(true, models.AWSTrail{Name: "t1"}), 1, 0},
		{"multi region", trailCtx(true, models.AWSTrail{Name: "t1"}, models.AWSTrail{Name: "t2", IsMultiRegion: true}), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := AWSCloudTrailNotMultiRegionRule{}.Evaluate(tt.ctx)
			if len(findings) != tt.want {
				t.Fatalf("want %d findings, got %d", tt.want, len(findings))
			}
			if tt.want == 0 {
				return
			}
			f := findings[0]
			if f.MessageIndex != tt.wantIndex {
				t.Errorf("want message index %d, got %d", tt.wantIndex, f.MessageIndex)
			}
			if f.ResourceID != "123456789012" {
				t.Errorf("want account resource, got %s", f.ResourceID)
			}
		})
	}
}

func TestCloudTrailLogValidationRule(t *testing.T) {
	ctx := trailCtx(true,
		models.AWSTrail{Name: "validated", LogFileValidationEnabled: true},
		models.AWSTrail{Name: "plain"},
	)
	findings := CloudTrailLogValidationRule{}.Evaluate(ctx)
	if len(findings) != 1 || findings[0].ResourceID != "plain" {
		t.Fatalf("want one finding for trail plain, got %+v", findings)
	}
}

func TestCloudTrailCloudWatchRule(t *testing.T) {
	recent := trailNow.Add(-2 * time.Hour)
	stale := trailNow.Add(-48 * time.Hour)
	tests := []struct {
		name      string
		trail     models.AWSTrail
		want      int
		wantIndex int
	}{
		{"no log group", models.AWSTrail{Name: "t"}, 1, 0},
		{"never delivered", models.AWSTrail{Name: "t", CloudWatchLogGroupARN: "arn:lg", StatusAvailable: true}, 1, 0},
		{"recent delivery", models.AWSTrail{Name: "t", CloudWatchLogGroupARN: "arn:lg", StatusAvailable: true, LatestCloudWatchDelivery: &recent}, 0, 0},
		{"stale delivery", models.AWSTrail{Name: "t", CloudWatchLogGroupARN: "arn:lg", StatusAvailable: true, LatestCloudWatchDelivery: &stale}, 1, 1},
		{"status unavailable", models.AWSTrail{Name: "t", CloudWatchLogGroupARN: "arn:lg"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := CloudTrailCloudWatchRule{}.Evaluate(trailCtx(true, tt.trail))
			if len(findings) != tt.want {
				t.Fatalf("want %d findings, got %d", tt.want, len(findings))
			}
			if tt.want == 1 && findings[0].MessageIndex != tt.wantIndex {
				t.Errorf("want message index %d, got %d", tt.wantIndex, findings[0].MessageIndex)
			}
		})
	}
}

func TestCloudTrailCloudWatchRule_PolicyMaxAge(t *testing.T) {
	stale := trailNow.Add(-48 * time.Hour)
	ctx := trailCtx(true, models.AWSTrail{
		Name: "t", CloudWatchLogGroupARN: "arn:lg", StatusAvailable: true, LatestCloudWatchDelivery: &stale,
	})
	ctx.Policy = &policy.PolicyConfig{Rules: map[string]policy.RuleConfig{
		"CLOUDTRAIL_CLOUDWATCH_DELIVERY": {Params: map[string]float64{"max_delivery_age_hours": 72}},
	}}
	if findings := (CloudTrailCloudWatchRule{}).Evaluate(ctx); len(findings) != 0 {
		t.Errorf("want 0 findings with a 72h window, got %d", len(findings))
	}
}

func TestCloudTrailBucketLoggingRule(t *testing.T) {
	ctx := trailCtx(true,
		models.AWSTrail{Name: "a", S3BucketName: "logs-a", BucketLoggingAvailable: true},
		models.AWSTrail{Name: "b", S3BucketName: "logs-b", BucketLoggingAvailable: true, BucketLoggingEnabled: true},
		models.AWSTrail{Name: "c", S3BucketName: "logs-c"},
	)
	findings := CloudTrailBucketLoggingRule{}.Evaluate(ctx)
	if len(findings) != 1 {
		t.Fatalf("want 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.ResourceID != "logs-a" || f.ResourceType != models.ResourceAWSS3Bucket {
		t.Errorf("want bucket logs-a, got %s (%s)", f.ResourceID, f.ResourceType)
	}
	if f.Metadata["trail"] != "a" {
		t.Errorf("want trail metadata a, got %v", f.Metadata["trail"])
	}
}

func TestCloudTrailKMSRule(t *testing.T) {
	ctx := trailCtx(true,
		models.AWSTrail{Name: "encrypted", KMSKeyID: "arn:aws:kms:us-east-1:123:key/abc"},
		models.AWSTrail{Name: "sse-s3"},
	)
	findings := CloudTrailKMSRule{}.Evaluate(ctx)
	if len(findings) != 1 || findings[0].ResourceID != "sse-s3" {
		t.Fatalf("want one finding for sse-s3, got %+v", findings)
	}
	if findings[0].ControlID != "3.7" {
		t.Errorf("want control 3.7, got %s", findings[0].ControlID)
	}
}
