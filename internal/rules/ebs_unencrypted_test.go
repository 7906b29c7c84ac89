package rules

import (
	"testing"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func TestEBSDefaultEncryptionDisabledRule_ID(t *testing.T) {
	r := EBSDefaultEncryptionDisabledRule{}
	if r.ID() != "EBS_DEFAULT_ENCRYPTION_DISABLED" {
		t.Error("unexpected rule ID")
	}
}

func TestEBSDefaultEncryptionDisabledRule_NilAccount(t *testing.T) {
	if findings := (EBSDefaultEncryptionDisabledRule{}).Evaluate(RuleContext{}); findings != nil {
		t.Errorf("want nil with nil Account, got %v", findings)
	}
}

func TestEBSDefaultEncryptionDisabledRule_PerRegion(t *testing.T) {
	ctx := RuleContext{
		AccountID: "123",
		Account: &models.AWSAccountData{Regions: []models.AWSRegionData{
			{Region: "us-east-1", EBSEncryptionByDefault: boolPtr(true)},
			{Region: "us-west-2", EBSEncryptionByDefault: boolPtr(false)},
			{Region: "eu-west-1"},
		}},
	}
	findings := EBSDefaultEncryptionDisabledRule{}.Evaluate(ctx)
	if len(findings) != 1 {
		t.Fatalf("want 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Region != "us-west-2" {
		t.Errorf("want us-west-2, got %s", f.Region)
	}
	if f.IssueKey() != "EBSEncryptionByDefault (us-west-2)" {
		t.Errorf("unexpected issue key %q", f.IssueKey())
	}
	if f.Domain != "ec2" {
		t.Errorf("want domain ec2, got %s", f.Domain)
	}
}
