package output

import (
	"encoding/json"
	"io"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteIssuesJSON writes only the issue ledger of report: resource, then
// control ID, then messages. An empty ledger is written as {}.
func WriteIssuesJSON(w io.Writer, report *models.AuditReport) error {
	ledger := report.Issues
	if ledger == nil {
		ledger = map[string]map[string][]string{}
	}
	return WriteJSON(w, ledger)
}
