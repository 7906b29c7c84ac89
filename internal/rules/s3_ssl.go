package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// S3SSLNotEnforcedRule flags buckets whose policy does not deny requests made
// without TLS. A bucket with no policy at all is reported with message 1.
type S3SSLNotEnforcedRule struct{}

func (r S3SSLNotEnforcedRule) ID() string        { return "S3_SSL_NOT_ENFORCED" }
func (r S3SSLNotEnforcedRule) Name() string      { return "S3 Bucket Policy Allows HTTP" }
func (r S3SSLNotEnforcedRule) ControlID() string { return "2.1.2" }

func (r S3SSLNotEnforcedRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil {
		return nil
	}

	var findings []models.Finding
	for _, b := range ctx.Account.Buckets {
		if !b.PolicyAvailable || b.EnforcesSSL {
			continue
		}
		idx := 0
		explanation := fmt.Sprintf("Bucket policy of %q does not deny requests where aws:SecureTransport is false.", b.Name)
		if !b.HasPolicy {
			idx = 1
			explanation = fmt.Sprintf("S3 bucket %q has no bucket policy, so plain HTTP requests are not denied.", b.Name)
		}
		f := newFinding(r, ctx, fmt.Sprintf("%s-%s", r.ID(), b.Name),
			b.Name, models.ResourceAWSS3Bucket, "global", idx)
		f.Explanation = explanation
		f.Recommendation = `Add a Deny statement for "s3:*" with condition {"Bool": {"aws:SecureTransport": "false"}}.`
		findings = append(findings, f)
	}
	return findings
}
