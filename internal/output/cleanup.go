package output

import (
	"fmt"
	"io"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

func actionStatus(a models.CleanupAction, dryRun bool) string {
	switch {
	case a.Error != "":
		return "FAILED: " + ShortenMessage(a.Error, 40)
	case a.Executed:
		return "done"
	case dryRun:
		return "planned"
	default:
		return "skipped"
	}
}

// RenderCleanupTable writes one row per cleanup action followed by totals.
func RenderCleanupTable(w io.Writer, report *models.CleanupReport) {
	mode := "EXECUTE"
	if report.DryRun {
		mode = "DRY RUN"
	}
	fmt.Fprintf(w, "Cleanup (%s) for %s in %v\n\n", mode, report.Profile, report.Regions)

	if len(report.Actions) == 0 {
		fmt.Fprintln(w, "Nothing to clean up.")
	} else {
		table := newTable(w, []string{"ACTION", "RESOURCE", "TYPE", "REGION", "REASON", "SAVINGS/MO", "STATUS"})
		for _, a := range report.Actions {
			resource := a.ResourceID
			if a.Name != "" {
				resource += " (" + a.Name + ")"
			}
			table.Append([]string{
				a.Action,
				resource,
				string(a.ResourceType),
				a.Region,
				ShortenMessage(a.Reason, messageWidth),
				fmt.Sprintf("$%.2f", a.EstimatedMonthlySavings),
				actionStatus(a, report.DryRun),
			})
		}
		table.Render()
	}

	s := report.Summary
	fmt.Fprintf(w, "\nImages:    %d deregistered, %d retained\n", s.ImagesDeregistered, s.ImagesRetained)
	fmt.Fprintf(w, "Snapshots: %d deleted, %d retained\n", s.SnapshotsDeleted, s.SnapshotsRetained)
	fmt.Fprintf(w, "Volumes:   %d deleted, %d retained\n", s.VolumesDeleted, s.VolumesRetained)
	if s.Failures > 0 {
		fmt.Fprintf(w, "Failures:  %d\n", s.Failures)
	}
	fmt.Fprintf(w, "Estimated monthly savings: $%.2f\n", s.TotalEstimatedMonthlySavings)
	if report.DryRun {
		fmt.Fprintln(w, "\nNo changes were made. Re-run with --execute to apply.")
	}
}
