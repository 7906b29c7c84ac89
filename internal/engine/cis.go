package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/policy"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/common"
	awssecurity "github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/security"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/rules"
)

// ErrNoSections is returned when the policy disables every requested section.
var ErrNoSections = errors.New("no enabled sections to audit")

// CISEngine implements Engine for the CIS benchmark audit.
// It never calls AWS SDK clients directly; all calls are delegated to the
// SecurityCollector and the rule registry.
type CISEngine struct {
	provider  common.AWSClientProvider
	collector awssecurity.SecurityCollector
	registry  *rules.DefaultRuleRegistry
	policy    *policy.PolicyConfig
	now       func() time.Time
}

// NewCISEngine constructs a CISEngine wired to the supplied provider,
// collector, and rule registry. policyCfg may be nil.
func NewCISEngine(
	provider common.AWSClientProvider,
	collector awssecurity.SecurityCollector,
	registry *rules.DefaultRuleRegistry,
	policyCfg *policy.PolicyConfig,
) *CISEngine {
	return &CISEngine{
		provider:  provider,
		collector: collector,
		registry:  registry,
		policy:    policyCfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// profileResult is the evaluated output of one profile.
type profileResult struct {
	findings   []models.Finding
	exceptions []models.AWSCollectionException
	regions    []string
}

// RunAudit implements Engine.
func (e *CISEngine) RunAudit(ctx context.Context, opts AuditOptions) (*models.AuditReport, error) {
	sections := e.enabledSections(opts.Sections)
	if len(sections) == 0 {
		return nil, ErrNoSections
	}
	registry := e.registry.ForSections(sections)

	if opts.AllProfiles {
		return e.runAllProfiles(ctx, opts, sections, registry)
	}

	profile, err := e.provider.LoadProfile(ctx, opts.Profile, opts.HomeRegion)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", opts.Profile, err)
	}
	res, err := e.auditProfile(ctx, profile, opts, sections, registry)
	if err != nil {
		return nil, err
	}
	in := reportInput{
		profile:    profile.ProfileName,
		accountID:  profile.AccountID,
		regions:    res.regions,
		sections:   sections,
		evaluated:  e.evaluatedControls(registry),
		findings:   res.findings,
		exceptions: map[string][]models.AWSCollectionException{profile.AccountID: res.exceptions},
		now:        e.now(),
	}
	return buildReport(in, e.policy)
}

// runAllProfiles audits every configured profile and merges the results into
// one report. Profile failures are skipped; an error is returned only when no
// profile can be audited.
func (e *CISEngine) runAllProfiles(
	ctx context.Context,
	opts AuditOptions,
	sections []controls.Section,
	registry *rules.DefaultRuleRegistry,
) (*models.AuditReport, error) {
	log := zerolog.Ctx(ctx)
	profiles, err := e.provider.LoadAllProfiles(ctx, opts.HomeRegion)
	if err != nil {
		return nil, fmt.Errorf("load all profiles: %w", err)
	}

	var (
		allFindings []models.Finding
		allRegions  []string
		seenRegions = make(map[string]struct{})
		exceptions  = make(map[string][]models.AWSCollectionException)
		audited     int
	)
	for _, profile := range profiles {
		res, err := e.auditProfile(ctx, profile, opts, sections, registry)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Str("profile", profile.ProfileName).Msg("profile skipped")
			continue
		}
		audited++
		allFindings = append(allFindings, res.findings...)
		exceptions[profile.AccountID] = append(exceptions[profile.AccountID], res.exceptions...)
		for _, r := range res.regions {
			if _, seen := seenRegions[r]; !seen {
				seenRegions[r] = struct{}{}
				allRegions = append(allRegions, r)
			}
		}
	}
	if audited == 0 {
		return nil, fmt.Errorf("all profiles failed; no data collected")
	}

	in := reportInput{
		profile:    "multi",
		regions:    allRegions,
		sections:   sections,
		evaluated:  e.evaluatedControls(registry),
		findings:   allFindings,
		exceptions: exceptions,
		multi:      true,
		now:        e.now(),
	}
	return buildReport(in, e.policy)
}

func (e *CISEngine) auditProfile(
	ctx context.Context,
	profile *common.ProfileConfig,
	opts AuditOptions,
	sections []controls.Section,
	registry *rules.DefaultRuleRegistry,
) (*profileResult, error) {
	regions, err := e.resolveRegions(ctx, profile, opts.Regions)
	if err != nil {
		return nil, fmt.Errorf("resolve regions for profile %q: %w", profile.ProfileName, err)
	}

	data, err := e.collector.CollectAll(ctx, profile, e.provider, awssecurity.CollectOptions{
		Regions:           regions,
		Sections:          sections,
		BucketConcurrency: opts.BucketConcurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("collect data for profile %q: %w", profile.ProfileName, err)
	}

	findings := registry.EvaluateAll(rules.RuleContext{
		AccountID: profile.AccountID,
		Profile:   profile.ProfileName,
		Account:   data,
		Policy:    e.policy,
		Now:       e.now(),
	})
	return &profileResult{findings: findings, exceptions: data.Exceptions, regions: regions}, nil
}

// resolveRegions returns the explicit region list when provided, otherwise
// discovers the regions enabled for the account.
func (e *CISEngine) resolveRegions(
	ctx context.Context,
	profile *common.ProfileConfig,
	explicit []string,
) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	return e.provider.GetActiveRegions(ctx, profile)
}

// enabledSections returns the requested sections, or all of them, minus
// those the policy disables.
func (e *CISEngine) enabledSections(requested []controls.Section) []controls.Section {
	if len(requested) == 0 {
		requested = controls.Sections()
	}
	var out []controls.Section
	for _, s := range requested {
		if policy.DomainEnabled(string(s), e.policy) {
			out = append(out, s)
		}
	}
	return out
}

// evaluatedControls lists the controls of every rule the policy leaves on.
func (e *CISEngine) evaluatedControls(registry *rules.DefaultRuleRegistry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range registry.All() {
		if !policy.RuleEnabled(r.ID(), e.policy) {
			continue
		}
		if _, ok := seen[r.ControlID()]; ok {
			continue
		}
		seen[r.ControlID()] = struct{}{}
		out = append(out, r.ControlID())
	}
	return out
}
