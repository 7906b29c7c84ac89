package rules

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// AWSS3PublicBucketRule flags buckets that are not covered by a fully enabled
// Public Access Block. Such buckets get message 0, plus one message for every
// exposure actually found: an AllUsers ACL grant (1), an AuthenticatedUsers
// ACL grant (2), or a policy allowing principal "*" (3). ACL and policy
// sub-checks are skipped when their data could not be collected.
type AWSS3PublicBucketRule struct{}

func (r AWSS3PublicBucketRule) ID() string        { return "S3_PUBLIC_ACCESS" }
func (r AWSS3PublicBucketRule) Name() string      { return "S3 Bucket Public Access Not Blocked" }
func (r AWSS3PublicBucketRule) ControlID() string { return "2.1.5" }

func (r AWSS3PublicBucketRule) Evaluate(ctx RuleContext) []models.Finding {
	if ctx.Account == nil {
		return nil
	}

	var findings []models.Finding
	for _, b := range ctx.Account.Buckets {
		if !b.PublicAccessBlockAvailable || b.PublicAccessBlock.FullyEnabled() {
			continue
		}

		pab := newFinding(r, ctx, fmt.Sprintf("%s-%s-pab", r.ID(), b.Name),
			b.Name, models.ResourceAWSS3Bucket, "global", 0)
		if b.PublicAccessBlock == nil {
			pab.Explanation = fmt.Sprintf("S3 bucket %q has no Public Access Block configuration.", b.Name)
		} else {
			pab.Explanation = fmt.Sprintf("S3 bucket %q has a Public Access Block with one or more flags disabled.", b.Name)
			pab.Metadata = map[string]any{"public_access_block": *b.PublicAccessBlock}
		}
		pab.Recommendation = "Enable all four Block Public Access settings on the bucket."
		findings = append(findings, pab)

		if b.ACLAvailable && b.GrantsAllUsers {
			f := newFinding(r, ctx, fmt.Sprintf("%s-%s-allusers", r.ID(), b.Name),
				b.Name, models.ResourceAWSS3Bucket, "global", 1)
			f.Explanation = fmt.Sprintf("S3 bucket %q ACL grants access to the AllUsers group.", b.Name)
			f.Recommendation = "Remove ACL grants to http://acs.amazonaws.com/groups/global/AllUsers."
			findings = append(findings, f)
		}
		if b.ACLAvailable && b.GrantsAuthenticatedUsers {
			f := newFinding(r, ctx, fmt.Sprintf("%s-%s-authusers", r.ID(), b.Name),
				b.Name, models.ResourceAWSS3Bucket, "global", 2)
			f.Explanation = fmt.Sprintf("S3 bucket %q ACL grants access to any authenticated AWS user.", b.Name)
			f.Recommendation = "Remove ACL grants to http://acs.amazonaws.com/groups/global/AuthenticatedUsers."
			findings = append(findings, f)
		}
		if b.PolicyAvailable && b.AllowsAnonymous {
			f := newFinding(r, ctx, fmt.Sprintf("%s-%s-anonymous", r.ID(), b.Name),
				b.Name, models.ResourceAWSS3Bucket, "global", 3)
			f.Explanation = fmt.Sprintf("Bucket policy of %q allows principal \"*\".", b.Name)
			f.Recommendation = "Scope Allow statements to specific principals or add restrictive conditions."
			findings = append(findings, f)
		}
	}
	return findings
}
