// Package controls holds the static CIS AWS Foundations control catalogue.
// Rules refer to violation messages by control ID and message index; the
// catalogue is the single place those strings live.
package controls

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// Section groups controls by the AWS service area they audit. Section names
// double as policy domain names.
type Section string

const (
	SectionIAM        Section = "iam"
	SectionS3         Section = "s3"
	SectionEC2        Section = "ec2"
	SectionRDS        Section = "rds"
	SectionLogging    Section = "logging"
	SectionMonitoring Section = "monitoring"
)

// Sections returns every section in display order.
func Sections() []Section {
	return []Section{SectionIAM, SectionS3, SectionEC2, SectionRDS, SectionLogging, SectionMonitoring}
}

// Control is a single benchmark recommendation.
type Control struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Section  Section         `json:"section"`
	Severity models.Severity `json:"severity"`

	// Messages are the violation strings a rule may record for this control,
	// addressed by index.
	Messages []string `json:"messages"`
}

var catalogue = []Control{
	{
		ID: "1.4", Title: "Ensure no root user account access key exists",
		Section: SectionIAM, Severity: models.SeverityCritical,
		Messages: []string{"Root account has active access keys"},
	},
	{
		ID: "1.5", Title: "Ensure MFA is enabled for the root user account",
		Section: SectionIAM, Severity: models.SeverityCritical,
		Messages: []string{"MFA not enabled for root account"},
	},
	{
		ID: "1.8", Title: "Ensure IAM password policy requires minimum length of 14 or greater",
		Section: SectionIAM, Severity: models.SeverityMedium,
		Messages: []string{
			"Password minimum length below required value",
			"NO password policy configured",
		},
	},
	{
		ID: "1.9", Title: "Ensure IAM password policy prevents password reuse",
		Section: SectionIAM, Severity: models.SeverityMedium,
		Messages: []string{
			"Password reuse prevention below required value",
			"NO password policy configured",
		},
	},
	{
		ID: "1.10", Title: "Ensure MFA is enabled for all IAM users that have a console password",
		Section: SectionIAM, Severity: models.SeverityHigh,
		Messages: []string{"MFA not enabled for console user"},
	},
	{
		ID: "2.1.1", Title: "Ensure all S3 buckets employ encryption-at-rest",
		Section: SectionS3, Severity: models.SeverityHigh,
		Messages: []string{
			"Incorrect server side encryption",
			"NO server side encryption config",
		},
	},
	{
		ID: "2.1.2", Title: "Ensure S3 Bucket Policy is set to deny HTTP requests",
		Section: SectionS3, Severity: models.SeverityMedium,
		Messages: []string{
			"SSL NOT enforced",
			"NO bucket policy",
		},
	},
	{
		ID: "2.1.3", Title: "Ensure versioning is enabled on S3 buckets",
		Section: SectionS3, Severity: models.SeverityLow,
		Messages: []string{"Versioning not enabled"},
	},
	{
		ID: "2.1.5", Title: "Ensure that S3 Buckets are configured with Block public access",
		Section: SectionS3, Severity: models.SeverityCritical,
		Messages: []string{
			"NO Public Access Block configuration",
			"AllUser access",
			"AuthenticatedUsers access",
			"Anonymous user access",
		},
	},
	{
		ID: "2.2.1", Title: "Ensure EBS volume encryption is enabled",
		Section: SectionEC2, Severity: models.SeverityHigh,
		Messages: []string{"EBS encryption disabled"},
	},
	{
		ID: "2.3.1", Title: "Ensure that encryption is enabled for RDS Instances",
		Section: SectionRDS, Severity: models.SeverityHigh,
		Messages: []string{"RDS encryption disabled"},
	},
	{
		ID: "2.3.2", Title: "Ensure Auto Minor Version Upgrade feature is Enabled for RDS Instances",
		Section: SectionRDS, Severity: models.SeverityLow,
		Messages: []string{"RDS Auto Minor Version Upgrade disabled"},
	},
	{
		ID: "2.3.3", Title: "Ensure that public access is not given to RDS Instance",
		Section: SectionRDS, Severity: models.SeverityCritical,
		Messages: []string{"RDS Publicly Accessible"},
	},
	{
		ID: "3.1", Title: "Ensure CloudTrail is enabled in all regions",
		Section: SectionLogging, Severity: models.SeverityHigh,
		Messages: []string{
			"Multi-region is not enabled for any trails",
			"NO trail configured",
		},
	},
	{
		ID: "3.2", Title: "Ensure CloudTrail log file validation is enabled",
		Section: SectionLogging, Severity: models.SeverityMedium,
		Messages: []string{"Logfile validation is not enabled"},
	},
	{
		ID: "3.4", Title: "Ensure CloudTrail trails are integrated with CloudWatch Logs",
		Section: SectionLogging, Severity: models.SeverityMedium,
		Messages: []string{
			"CloudWatch is not being logged",
			"CloudWatch delivery is overdue",
		},
	},
	{
		ID: "3.5", Title: "Ensure AWS Config is enabled in all regions",
		Section: SectionLogging, Severity: models.SeverityMedium,
		Messages: []string{"AWS Config is not recording"},
	},
	{
		ID: "3.6", Title: "Ensure S3 bucket access logging is enabled on the CloudTrail S3 bucket",
		Section: SectionLogging, Severity: models.SeverityLow,
		Messages: []string{"Logging not enabled"},
	},
	{
		ID: "3.7", Title: "Ensure CloudTrail logs are encrypted at rest using KMS CMKs",
		Section: SectionLogging, Severity: models.SeverityMedium,
		Messages: []string{"Trail logs are not encrypted with KMS"},
	},
	{
		ID: "3.8", Title: "Ensure rotation for customer created symmetric CMKs is enabled",
		Section: SectionLogging, Severity: models.SeverityMedium,
		Messages: []string{"KMS key rotation not enabled"},
	},
	{
		ID: "4.15", Title: "Ensure GuardDuty threat detection is enabled",
		Section: SectionMonitoring, Severity: models.SeverityMedium,
		Messages: []string{"GuardDuty detector not enabled"},
	},
}

var byID = func() map[string]Control {
	m := make(map[string]Control, len(catalogue))
	for _, c := range catalogue {
		m[c.ID] = c
	}
	return m
}()

// Lookup returns the control with the given ID.
func Lookup(id string) (Control, bool) {
	c, ok := byID[id]
	return c, ok
}

// All returns a copy of the catalogue ordered by control ID.
func All() []Control {
	out := make([]Control, len(catalogue))
	copy(out, catalogue)
	sort.SliceStable(out, func(i, j int) bool {
		return CompareIDs(out[i].ID, out[j].ID) < 0
	})
	return out
}

// InSection returns the controls of one section ordered by control ID.
func InSection(s Section) []Control {
	var out []Control
	for _, c := range All() {
		if c.Section == s {
			out = append(out, c)
		}
	}
	return out
}

// Message resolves the violation message at index for control id.
func Message(id string, index int) (string, error) {
	c, ok := byID[id]
	if !ok {
		return "", fmt.Errorf("control %q: not in catalogue", id)
	}
	if index < 0 || index >= len(c.Messages) {
		return "", fmt.Errorf("control %q: message index %d out of range [0,%d)", id, index, len(c.Messages))
	}
	return c.Messages[index], nil
}

// ValidSection reports whether s names a known section.
func ValidSection(s string) bool {
	for _, sec := range Sections() {
		if string(sec) == s {
			return true
		}
	}
	return false
}

// CompareIDs orders dotted control IDs numerically, so "2.1.10" sorts after
// "2.1.2". Non-numeric segments fall back to string comparison.
func CompareIDs(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aErr := strconv.Atoi(as[i])
		bn, bErr := strconv.Atoi(bs[i])
		if aErr == nil && bErr == nil {
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	}
	return 0
}
