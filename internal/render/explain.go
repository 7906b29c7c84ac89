// Package render provides presentation-layer helpers for cisaudit CLI output.
// It is a pure rendering package: no evaluation logic and no AWS API calls.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// FindingsForControl returns the findings recorded against controlID, in
// report order.
func FindingsForControl(findings []models.Finding, controlID string) []models.Finding {
	var out []models.Finding
	for _, f := range findings {
		if f.ControlID == controlID {
			out = append(out, f)
		}
	}
	return out
}

// RenderControlExplanation writes a breakdown of one control to w: its
// catalogue entry, the violation messages it can record, and the findings
// against it grouped by rule ID. Rule IDs are sorted for stable output.
//
// Example output:
//
//	CONTROL 2.1.3 (s3, LOW)
//	Ensure versioning is enabled on S3 buckets
//
//	Messages:
//	  [0] Versioning not enabled
//
//	Findings (2):
//
//	  ✓ S3_VERSIONING_DISABLED
//	    - logs: Versioning not enabled
//	    - assets: Versioning not enabled
func RenderControlExplanation(w io.Writer, c controls.Control, findings []models.Finding) {
	fmt.Fprintf(w, "CONTROL %s (%s, %s)\n", c.ID, c.Section, c.Severity)
	fmt.Fprintln(w, c.Title)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Messages:")
	for i, m := range c.Messages {
		fmt.Fprintf(w, "  [%d] %s\n", i, m)
	}

	related := FindingsForControl(findings, c.ID)
	if findings == nil {
		return
	}
	fmt.Fprintln(w)
	if len(related) == 0 {
		fmt.Fprintln(w, "Findings (0): control passed")
		return
	}

	byRule := make(map[string][]models.Finding)
	var ruleOrder []string
	for _, f := range related {
		if _, ok := byRule[f.RuleID]; !ok {
			ruleOrder = append(ruleOrder, f.RuleID)
		}
		byRule[f.RuleID] = append(byRule[f.RuleID], f)
	}
	sort.Strings(ruleOrder)

	fmt.Fprintf(w, "Findings (%d):\n", len(related))
	for _, ruleID := range ruleOrder {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  ✓ %s\n", ruleID)
		for _, f := range byRule[ruleID] {
			fmt.Fprintf(w, "    - %s: %s\n", f.IssueKey(), f.Message)
		}
	}
}

// WriteExplainJSON writes the control explanation as indented JSON to w.
//
// When c is non-nil, the output is:
//
//	{"control": {...}, "findings": [...]}
//
// When c is nil (unknown control ID), the output is:
//
//	{"error": "No control found with ID X"}
func WriteExplainJSON(w io.Writer, c *controls.Control, findings []models.Finding, id string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if c == nil {
		return enc.Encode(map[string]string{
			"error": fmt.Sprintf("No control found with ID %s", id),
		})
	}
	related := FindingsForControl(findings, c.ID)
	if related == nil {
		related = []models.Finding{}
	}
	return enc.Encode(map[string]any{
		"control":  c,
		"findings": related,
	})
}
