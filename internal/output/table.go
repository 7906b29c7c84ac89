package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/issues"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// messageWidth is the widest message shown before truncation.
const messageWidth = 60

// TableOptions controls which columns RenderTable renders and how severity is coloured.
type TableOptions struct {
	// Colored wraps severity labels with ANSI codes. Default false (CI-safe).
	Colored bool

	// IncludeDomain adds a SECTION column.
	IncludeDomain bool

	// IncludeProfile adds a PROFILE column (useful with --all-profiles).
	IncludeProfile bool
}

var severityColors = map[models.Severity]*color.Color{
	models.SeverityCritical: color.New(color.FgRed, color.Bold),
	models.SeverityHigh:     color.New(color.FgRed),
	models.SeverityMedium:   color.New(color.FgYellow),
	models.SeverityLow:      color.New(color.FgBlue),
}

func init() {
	// Colour is decided per call by the caller's --color choice, not by
	// fatih/color's terminal detection.
	for _, c := range severityColors {
		c.EnableColor()
	}
}

// ColorSeverity wraps a severity string with ANSI codes when colored is true.
// When colored is false the string is returned unchanged (CI-safe default).
func ColorSeverity(sev models.Severity, colored bool) string {
	c, ok := severityColors[sev]
	if !colored || !ok {
		return string(sev)
	}
	return c.Sprint(string(sev))
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// RenderTable writes one row per finding to w.
//
// Column order:
//
//	RESOURCE  [PROFILE]  REGION  CONTROL  SEVERITY  [SECTION]  TYPE  MESSAGE
func RenderTable(w io.Writer, findings []models.Finding, opts TableOptions) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No findings.")
		return
	}

	header := []string{"RESOURCE"}
	if opts.IncludeProfile {
		header = append(header, "PROFILE")
	}
	header = append(header, "REGION", "CONTROL", "SEVERITY")
	if opts.IncludeDomain {
		header = append(header, "SECTION")
	}
	header = append(header, "TYPE", "MESSAGE")

	table := newTable(w, header)
	for _, f := range findings {
		row := []string{f.ResourceID}
		if opts.IncludeProfile {
			row = append(row, f.Profile)
		}
		row = append(row, f.Region, f.ControlID, ColorSeverity(f.Severity, opts.Colored))
		if opts.IncludeDomain {
			row = append(row, f.Domain)
		}
		row = append(row, string(f.ResourceType), ShortenMessage(f.Message, messageWidth))
		table.Append(row)
	}
	table.Render()
}

// RenderIssues writes the issue ledger as one row per resource and control,
// messages joined with "; ". Resources and controls keep ledger order.
func RenderIssues(w io.Writer, ledger map[string]map[string][]string) {
	if len(ledger) == 0 {
		fmt.Fprintln(w, "No issues.")
		return
	}
	l := issues.FromMap(ledger)

	table := newTable(w, []string{"RESOURCE", "CONTROL", "ISSUES"})
	for _, res := range l.Resources() {
		for _, ctl := range l.Controls(res) {
			table.Append([]string{res, ctl, strings.Join(l.Messages(res, ctl), "; ")})
		}
	}
	table.Render()
}
