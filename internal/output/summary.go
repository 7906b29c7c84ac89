package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

var (
	passColor = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
)

func init() {
	passColor.EnableColor()
	failColor.EnableColor()
}

func status(failed, colored bool) string {
	switch {
	case failed && colored:
		return failColor.Sprint("FAIL")
	case failed:
		return "FAIL"
	case colored:
		return passColor.Sprint("PASS")
	default:
		return "PASS"
	}
}

// RenderSummary writes the report header, severity counts, and a
// per-section pass/fail breakdown.
func RenderSummary(w io.Writer, report *models.AuditReport, colored bool) {
	s := report.Summary
	account := report.AccountID
	if account == "" {
		account = "(multiple)"
	}
	fmt.Fprintf(w, "Account:   %s\n", account)
	fmt.Fprintf(w, "Profile:   %s\n", report.Profile)
	fmt.Fprintf(w, "Regions:   %s\n", strings.Join(report.Regions, ", "))
	fmt.Fprintf(w, "Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	fmt.Fprintf(w, "Findings: %d  (%s %d, %s %d, %s %d, %s %d)\n",
		s.TotalFindings,
		ColorSeverity(models.SeverityCritical, colored), s.CriticalFindings,
		ColorSeverity(models.SeverityHigh, colored), s.HighFindings,
		ColorSeverity(models.SeverityMedium, colored), s.MediumFindings,
		ColorSeverity(models.SeverityLow, colored), s.LowFindings)
	fmt.Fprintf(w, "Resources with issues: %d\n", s.ResourcesWithIssues)
	fmt.Fprintf(w, "Controls: %d failed, %d passed\n\n", len(s.FailedControls), len(s.PassedControls))

	failed := toSet(s.FailedControls)
	passed := toSet(s.PassedControls)

	table := newTable(w, []string{"CONTROL", "SECTION", "STATUS", "TITLE"})
	for _, c := range controls.All() {
		_, isFailed := failed[c.ID]
		_, isPassed := passed[c.ID]
		if !isFailed && !isPassed {
			continue
		}
		table.Append([]string{c.ID, string(c.Section), status(isFailed, colored), ShortenMessage(c.Title, messageWidth)})
	}
	table.Render()

	if n, ok := report.Metadata["collection_exceptions"]; ok {
		fmt.Fprintf(w, "\n%v data source(s) could not be read; see the exception entries in the issue list.\n", n)
	}
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// RenderControls lists catalogue entries, one row per control.
func RenderControls(w io.Writer, list []controls.Control) {
	table := newTable(w, []string{"CONTROL", "SECTION", "SEVERITY", "TITLE"})
	for _, c := range list {
		table.Append([]string{c.ID, string(c.Section), string(c.Severity), c.Title})
	}
	table.Render()
}
