package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/issues"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/policy"
)

// reportInput is everything buildReport needs from one audit run.
type reportInput struct {
	profile   string
	accountID string
	regions   []string
	sections  []controls.Section
	// evaluated are the control IDs whose rules ran.
	evaluated []string
	findings  []models.Finding
	// exceptions are failed reads keyed by account ID.
	exceptions map[string][]models.AWSCollectionException
	// multi prefixes ledger keys with the account ID so resources of two
	// accounts cannot collide.
	multi bool
	now   time.Time
}

// buildReport assembles the final AuditReport. Findings go through the
// policy, are deduplicated and sorted, and then fill the issue ledger.
func buildReport(in reportInput, policyCfg *policy.PolicyConfig) (*models.AuditReport, error) {
	findings := policy.ApplyPolicy(in.findings, policyCfg)
	findings = dedupeFindings(findings)
	sortFindings(findings)

	ledger, err := buildLedger(findings, in.exceptions, in.multi)
	if err != nil {
		return nil, fmt.Errorf("build issue ledger: %w", err)
	}

	sections := make([]string, len(in.sections))
	for i, s := range in.sections {
		sections[i] = string(s)
	}

	report := &models.AuditReport{
		ReportID:    fmt.Sprintf("audit-%d", in.now.UnixNano()),
		GeneratedAt: in.now,
		AuditType:   AuditTypeCIS,
		Profile:     in.profile,
		AccountID:   in.accountID,
		Regions:     in.regions,
		Sections:    sections,
		Summary:     computeSummary(findings, in.evaluated),
		Findings:    findings,
		Issues:      ledger.Map(),
	}
	if n := countExceptions(in.exceptions); n > 0 {
		report.Metadata = map[string]any{"collection_exceptions": n}
	}
	return report, nil
}

// findingKey identifies a finding for deduplication: the same rule recording
// the same message for the same resource of the same account.
type findingKey struct {
	accountID string
	ruleID    string
	resource  string
	message   int
}

// dedupeFindings drops repeated findings, keeping the first occurrence.
// Insertion order is preserved so sortFindings controls the final order.
func dedupeFindings(raw []models.Finding) []models.Finding {
	seen := make(map[findingKey]struct{}, len(raw))
	out := make([]models.Finding, 0, len(raw))
	for _, f := range raw {
		key := findingKey{
			accountID: f.AccountID,
			ruleID:    f.RuleID,
			resource:  f.IssueKey(),
			message:   f.MessageIndex,
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

// sortFindings sorts findings in-place: severity descending (CRITICAL
// first), then control ID, then resource.
func sortFindings(findings []models.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ri := policy.SeverityRank(findings[i].Severity)
		rj := policy.SeverityRank(findings[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if c := controls.CompareIDs(findings[i].ControlID, findings[j].ControlID); c != 0 {
			return c < 0
		}
		return findings[i].IssueKey() < findings[j].IssueKey()
	})
}

// buildLedger records every finding under its resource and control, then
// notes collection exceptions under the reserved exception key.
func buildLedger(
	findings []models.Finding,
	exceptions map[string][]models.AWSCollectionException,
	multi bool,
) (*issues.Ledger, error) {
	if !multi {
		l, err := issues.FromFindings(findings)
		if err != nil {
			return nil, err
		}
		noteExceptions(l, exceptions, false)
		return l, nil
	}

	l := issues.New()
	for _, f := range findings {
		if err := l.Log(f.AccountID+"/"+f.IssueKey(), f.ControlID, f.MessageIndex); err != nil {
			return nil, fmt.Errorf("finding %s: %w", f.ID, err)
		}
	}
	noteExceptions(l, exceptions, true)
	return l, nil
}

func noteExceptions(l *issues.Ledger, exceptions map[string][]models.AWSCollectionException, multi bool) {
	for account, list := range exceptions {
		for _, e := range list {
			key := e.Resource
			if multi {
				key = account + "/" + key
			}
			l.Note(key, e.Message)
		}
	}
}

func countExceptions(exceptions map[string][]models.AWSCollectionException) int {
	n := 0
	for _, list := range exceptions {
		n += len(list)
	}
	return n
}

// computeSummary aggregates finding counts and splits the evaluated controls
// into failed and passed.
func computeSummary(findings []models.Finding, evaluated []string) models.AuditSummary {
	var s models.AuditSummary
	s.TotalFindings = len(findings)

	resources := make(map[string]struct{})
	failed := make(map[string]struct{})
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityCritical:
			s.CriticalFindings++
		case models.SeverityHigh:
			s.HighFindings++
		case models.SeverityMedium:
			s.MediumFindings++
		case models.SeverityLow:
			s.LowFindings++
		}
		resources[f.AccountID+"/"+f.IssueKey()] = struct{}{}
		failed[f.ControlID] = struct{}{}
	}
	s.ResourcesWithIssues = len(resources)

	s.FailedControls = make([]string, 0, len(failed))
	for id := range failed {
		s.FailedControls = append(s.FailedControls, id)
	}
	sort.Slice(s.FailedControls, func(i, j int) bool {
		return controls.CompareIDs(s.FailedControls[i], s.FailedControls[j]) < 0
	})

	s.PassedControls = []string{}
	for _, id := range evaluated {
		if _, ok := failed[id]; !ok {
			s.PassedControls = append(s.PassedControls, id)
		}
	}
	sort.Slice(s.PassedControls, func(i, j int) bool {
		return controls.CompareIDs(s.PassedControls[i], s.PassedControls[j]) < 0
	})
	return s
}
