package rules

import (
	"time"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/policy"
)

// RuleContext carries all collected data for one account and profile.
// It is the sole input to Rule.Evaluate and must contain everything a rule
// needs; rules must never make network calls or read external state.
type RuleContext struct {
	// AccountID is the AWS account being evaluated.
	AccountID string

	// Profile is the AWS profile name for this evaluation run.
	Profile string

	// Account holds the collected posture snapshot. Rules must treat nil as
	// "nothing to evaluate".
	Account *models.AWSAccountData

	// Policy holds the active PolicyConfig for threshold overrides. May be nil
	// when no policy file is loaded; rules must treat nil as "use defaults".
	Policy *policy.PolicyConfig

	// Now is the evaluation time used by age-based rules. Zero means
	// time.Now().
	Now time.Time
}

func (c RuleContext) now() time.Time {
	if c.Now.IsZero() {
		return time.Now().UTC()
	}
	return c.Now
}

// Rule is a single deterministic benchmark check.
// Rules must be stateless and safe to call concurrently.
// They must never call the AWS SDK or any external service.
type Rule interface {
	// ID returns the unique, stable identifier for this rule (e.g. "S3_VERSIONING_DISABLED").
	ID() string

	// Name returns a short human-readable rule name.
	Name() string

	// ControlID returns the catalogue control this rule evaluates.
	ControlID() string

	// Evaluate inspects the provided context and returns zero or more findings.
	// An empty slice means no issue was detected.
	Evaluate(ctx RuleContext) []models.Finding
}

// RuleRegistry manages the set of active rules and drives evaluation.
type RuleRegistry interface {
	// Register adds a rule to the registry. Panics on duplicate ID.
	Register(rule Rule)

	// All returns all registered rules in registration order.
	All() []Rule

	// EvaluateAll runs every registered rule against ctx and merges results.
	EvaluateAll(ctx RuleContext) []models.Finding
}

// Section returns the control section of r, or "" when its control is not in
// the catalogue.
func Section(r Rule) controls.Section {
	c, ok := controls.Lookup(r.ControlID())
	if !ok {
		return ""
	}
	return c.Section
}

// newFinding fills the fields every finding of r shares: control, section,
// default severity, resolved message, and identity. Callers add Explanation,
// Recommendation, and Metadata.
func newFinding(
	r Rule,
	ctx RuleContext,
	id string,
	resourceID string,
	resourceType models.ResourceType,
	region string,
	messageIndex int,
) models.Finding {
	c, _ := controls.Lookup(r.ControlID())
	msg, _ := controls.Message(r.ControlID(), messageIndex)
	return models.Finding{
		ID:           id,
		RuleID:       r.ID(),
		ControlID:    r.ControlID(),
		ResourceID:   resourceID,
		ResourceType: resourceType,
		Region:       region,
		AccountID:    ctx.AccountID,
		Profile:      ctx.Profile,
		Domain:       string(c.Section),
		Severity:     c.Severity,
		MessageIndex: messageIndex,
		Message:      msg,
		DetectedAt:   ctx.now(),
	}
}
