package rules

import (
	"fmt"
	"strings"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// acceptedSSEAlgorithms are the server-side encryption algorithms that
// satisfy encryption-at-rest.
var acceptedSSEAlgorithms = map[string]struct{}{
	"AES256":       {},
	"aws:kms":      {},
	"aws:kms:dsse": {},
}

// S3EncryptionRule flags buckets with no default encryption configuration
// (message 1) or with a rule using an unrecognised algorithm (message 0).
// Buckets whose configuration could not be read are skipped.
type S3EncryptionRule struct{}

func (r S3EncryptionRule) ID() string        { return "S3_ENCRYPTION" }
func (r S3EncryptionRule) Name() string      { return "S3 Bucket Default Encryption" }
func (r S3EncryptionRule) ControlID() string { return "2.1.1" }

func (r S3EncryptionRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil {
		return nil
	}

	var findings []models.Finding
	for _, b := range ctx.Account.Buckets {
		if !b.EncryptionAvailable {
			continue
		}
		if len(b.EncryptionAlgorithms) == 0 {
			f := newFinding(r, ctx, fmt.Sprintf("%s-%s", r.ID(), b.Name),
				b.Name, models.ResourceAWSS3Bucket, "global", 1)
			f.Explanation = fmt.Sprintf("S3 bucket %q has no default server-side encryption configuration.", b.Name)
			f.Recommendation = "Enable default encryption with SSE-S3 (AES256) or SSE-KMS."
			findings = append(findings, f)
			continue
		}
		var bad []string
		for _, alg := range b.EncryptionAlgorithms {
			if _, ok := acceptedSSEAlgorithms[alg]; !ok {
				bad = append(bad, alg)
			}
		}
		if len(bad) == 0 {
			continue
		}
		f := newFinding(r, ctx, fmt.Sprintf("%s-%s", r.ID(), b.Name),
			b.Name, models.ResourceAWSS3Bucket, "global", 0)
		f.Explanation = fmt.Sprintf("S3 bucket %q uses unsupported encryption algorithm(s): %s.", b.Name, strings.Join(bad, ", "))
		f.Recommendation = "Use AES256 or aws:kms for the bucket's default encryption rule."
		f.Metadata = map[string]any{"algorithms": b.EncryptionAlgorithms}
		findings = append(findings, f)
	}
	return findings
}
