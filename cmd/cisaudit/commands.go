package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/config"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/engine"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/issues"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/logging"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/output"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/policy"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/lifecycle"
	awssecurity "github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/security"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/render"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/retention"
	cispack "github.com/pankaj-dahiya-devops/cisaudit/internal/rulepacks/cis"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/version"
)

// errPolicyViolation makes the process exit 1 when enforcement trips.
var errPolicyViolation = errors.New("findings exceed the policy enforcement threshold")

// app carries state shared by every subcommand once the root pre-run has
// loaded the configuration.
type app struct {
	configPath string
	logLevel   string
	noColor    bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "cisaudit",
		Short:         "CIS AWS Foundations audit and AMI retention cleanup",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default ~/.config/cisaudit/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level override: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable coloured table output")

	root.AddCommand(
		newAuditCmd(a),
		newCleanupCmd(a),
		newControlsCmd(),
		newExplainCmd(),
		newBenchCmd(a),
		newDoctorCmd(a),
		newVersionCmd(),
	)
	return root
}

// init loads the config and attaches the logger to the command context.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	logger := logging.New(cmd.ErrOrStderr(), level, cfg.Log.Format)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx))
	return nil
}

func (a *app) colored() bool {
	return !a.noColor && !color.NoColor
}

// ── audit ─────────────────────────────────────────────────────────────────────

// auditFlags are the presentation flags of the audit command.
type auditFlags struct {
	report     string
	output     string
	summary    bool
	issuesOnly bool
	colored    bool
}

func newAuditCmd(a *app) *cobra.Command {
	var (
		sections    []string
		profile     string
		allProfiles bool
		regions     []string
		policyPath  string
		flags       auditFlags
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit an AWS account against the CIS AWS Foundations Benchmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			secs, err := parseSections(sections)
			if err != nil {
				return err
			}
			if err := validateAuditFlags(flags); err != nil {
				return err
			}
			if policyPath == "" {
				policyPath = a.cfg.Policy.Path
			}
			pol, err := loadPolicy(policyPath)
			if err != nil {
				return err
			}
			if len(regions) == 0 {
				regions = a.cfg.AWS.Regions
			}
			if profile == "" {
				profile = a.cfg.AWS.DefaultProfile
			}
			flags.colored = a.colored()

			eng := engine.NewCISEngine(
				common.NewDefaultAWSClientProvider(),
				awssecurity.NewDefaultSecurityCollector(),
				cispack.Registry(),
				pol,
			)
			opts := engine.AuditOptions{
				Profile:           profile,
				AllProfiles:       allProfiles,
				HomeRegion:        a.cfg.AWS.DefaultRegion,
				Regions:           regions,
				Sections:          secs,
				ReportFormat:      engine.ReportFormat(flags.report),
				BucketConcurrency: a.cfg.Audit.BucketConcurrency,
			}
			report, err := runAudit(cmd.Context(), eng, opts, flags, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if policy.ShouldFail(report.Findings, pol) {
				return errPolicyViolation
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sections, "section", nil, "Control section(s) to audit: "+sectionNames())
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile name (default: environment / default profile)")
	cmd.Flags().BoolVar(&allProfiles, "all-profiles", false, "Audit every configured AWS profile")
	cmd.Flags().StringSliceVar(&regions, "region", nil, "AWS region(s) to audit (default: all active regions)")
	cmd.Flags().StringVar(&flags.report, "report", "table", "Output format: json, table or pdf")
	cmd.Flags().StringVar(&flags.output, "output", "", "Also write the report to this file (JSON, or PDF with --report pdf)")
	cmd.Flags().BoolVar(&flags.summary, "summary", false, "Print the summary and per-control status instead of every finding")
	cmd.Flags().BoolVar(&flags.issuesOnly, "issues-only", false, "Print only the resource -> control -> messages ledger")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Rule policy file (default from config, ./cisaudit.yaml)")
	return cmd
}

// runAudit runs the engine and renders the report to w.
func runAudit(ctx context.Context, eng engine.Engine, opts engine.AuditOptions, f auditFlags, w io.Writer) (*models.AuditReport, error) {
	if err := validateAuditFlags(f); err != nil {
		return nil, err
	}
	report, err := eng.RunAudit(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("audit failed: %w", err)
	}

	if f.output != "" {
		if err := writeReportFile(f.output, report, engine.ReportFormat(f.report)); err != nil {
			return nil, err
		}
	}
	if err := renderAudit(w, report, f, opts.AllProfiles); err != nil {
		return nil, err
	}
	return report, nil
}

func renderAudit(w io.Writer, report *models.AuditReport, f auditFlags, multi bool) error {
	format := engine.ReportFormat(f.report)
	switch {
	case format == engine.ReportFormatPDF:
		fmt.Fprintf(w, "PDF report written to %s\n", f.output)
		return nil
	case f.issuesOnly && format == engine.ReportFormatJSON:
		return output.WriteIssuesJSON(w, report)
	case f.issuesOnly:
		output.RenderIssues(w, report.Issues)
		return nil
	case format == engine.ReportFormatJSON:
		return output.WriteJSON(w, report)
	case f.summary:
		output.RenderSummary(w, report, f.colored)
		return nil
	}

	s := report.Summary
	fmt.Fprintf(w, "Profile: %s  Account: %s  Regions: %d  Findings: %d  Controls failed: %d\n\n",
		report.Profile, report.AccountID, len(report.Regions), s.TotalFindings, len(s.FailedControls))
	output.RenderTable(w, report.Findings, output.TableOptions{
		Colored:        f.colored,
		IncludeDomain:  true,
		IncludeProfile: multi,
	})
	return nil
}

// writeReportFile writes the report to path as PDF or indented JSON,
// creating or overwriting the file.
func writeReportFile(path string, report *models.AuditReport, format engine.ReportFormat) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close report file %q: %w", path, cerr)
		}
	}()
	if format == engine.ReportFormatPDF {
		return output.WritePDF(file, report)
	}
	return output.WriteJSON(file, report)
}

func loadPolicy(path string) (*policy.PolicyConfig, error) {
	return policy.LoadValidated(path, cispack.RuleIDs())
}

func parseSections(names []string) ([]controls.Section, error) {
	var out []controls.Section
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if !controls.ValidSection(n) {
			return nil, fmt.Errorf("unknown section %q (want one of %s)", n, sectionNames())
		}
		out = append(out, controls.Section(n))
	}
	return out, nil
}

func sectionNames() string {
	var names []string
	for _, s := range controls.Sections() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// validateAuditFlags rejects flag combinations before any AWS call is made.
func validateAuditFlags(f auditFlags) error {
	if err := validateReportFormat(f.report, true); err != nil {
		return err
	}
	if engine.ReportFormat(f.report) == engine.ReportFormatPDF && f.output == "" {
		return errors.New("--report pdf requires --output")
	}
	return nil
}

func validateReportFormat(format string, pdf bool) error {
	switch engine.ReportFormat(format) {
	case engine.ReportFormatJSON, engine.ReportFormatTable:
		return nil
	case engine.ReportFormatPDF:
		if pdf {
			return nil
		}
	}
	return fmt.Errorf("unsupported report format %q", format)
}

// ── cleanup ───────────────────────────────────────────────────────────────────

func newCleanupCmd(a *app) *cobra.Command {
	var (
		profile    string
		regions    []string
		report     string
		execute    bool
		retain     int
		keepWindow int
		volumeDays int
		orphanDays int
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Deregister old AMIs and delete their snapshots and stale volumes",
		Long: "Applies the image retention policy. Without --execute the planned\n" +
			"actions are only printed and no AWS resource is modified.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateReportFormat(report, false); err != nil {
				return err
			}
			opts := cleanupOptions(a.cfg, cmd)
			opts.Execute = execute
			if profile != "" {
				opts.Profile = profile
			}
			if len(regions) > 0 {
				opts.Regions = regions
			}

			cleaner := engine.NewCleanupEngine(
				common.NewDefaultAWSClientProvider(),
				lifecycle.NewDefaultInventoryCollector(),
				lifecycle.NewExecutor(),
			)
			return runCleanup(cmd.Context(), cleaner, opts, report, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile name")
	cmd.Flags().StringSliceVar(&regions, "region", nil, "Region(s) to clean (default: the profile's home region)")
	cmd.Flags().StringVar(&report, "report", "table", "Output format: json or table")
	cmd.Flags().BoolVar(&execute, "execute", false, "Perform the deregister and delete calls")
	cmd.Flags().IntVar(&retain, "retain", retention.DefaultRetain, "Newest images kept per build")
	cmd.Flags().IntVar(&keepWindow, "keep-window-days", 0, "Only images newer than this count toward --retain (0 disables)")
	cmd.Flags().IntVar(&volumeDays, "volume-days", retention.DefaultVolumeDays, "Delete unattached volumes older than this")
	cmd.Flags().IntVar(&orphanDays, "snapshot-orphan-days", 0, "Also delete unreferenced snapshots older than this (0 disables)")
	return cmd
}

// cleanupOptions starts from the config file and applies every retention
// flag the user set explicitly.
func cleanupOptions(cfg *config.Config, cmd *cobra.Command) engine.CleanupOptions {
	c := cfg.Cleanup
	opts := engine.CleanupOptions{
		Profile:    cfg.AWS.DefaultProfile,
		HomeRegion: cfg.AWS.DefaultRegion,
		Retention: retention.Options{
			Retain:             c.Retain,
			KeepWindowDays:     c.KeepWindowDays,
			VolumeDays:         c.VolumeDays,
			SnapshotOrphanDays: c.SnapshotOrphanDays,
		},
		Filters: lifecycle.Filters{
			ImageNamePatterns:       c.ImageNamePatterns,
			ImageDescriptionTags:    c.ImageDescriptionTags,
			SnapshotDescriptionTags: c.SnapshotDescriptionTag,
		},
	}
	flags := cmd.Flags()
	if flags.Changed("retain") {
		opts.Retention.Retain, _ = flags.GetInt("retain")
	}
	if flags.Changed("keep-window-days") {
		opts.Retention.KeepWindowDays, _ = flags.GetInt("keep-window-days")
	}
	if flags.Changed("volume-days") {
		opts.Retention.VolumeDays, _ = flags.GetInt("volume-days")
	}
	if flags.Changed("snapshot-orphan-days") {
		opts.Retention.SnapshotOrphanDays, _ = flags.GetInt("snapshot-orphan-days")
	}
	return opts
}

func runCleanup(ctx context.Context, cleaner engine.Cleaner, opts engine.CleanupOptions, format string, w io.Writer) error {
	report, err := cleaner.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	if engine.ReportFormat(format) == engine.ReportFormatJSON {
		if err := output.WriteJSON(w, report); err != nil {
			return err
		}
	} else {
		output.RenderCleanupTable(w, report)
	}
	if report.Summary.Failures > 0 {
		return fmt.Errorf("%d cleanup action(s) failed", report.Summary.Failures)
	}
	return nil
}

// ── controls ──────────────────────────────────────────────────────────────────

func newControlsCmd() *cobra.Command {
	var (
		sections []string
		report   string
	)
	cmd := &cobra.Command{
		Use:   "controls",
		Short: "List the CIS controls this tool evaluates",
		RunE: func(cmd *cobra.Command, args []string) error {
			secs, err := parseSections(sections)
			if err != nil {
				return err
			}
			list := selectControls(secs)
			if engine.ReportFormat(report) == engine.ReportFormatJSON {
				return output.WriteJSON(cmd.OutOrStdout(), list)
			}
			output.RenderControls(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&sections, "section", nil, "Only list these sections")
	cmd.Flags().StringVar(&report, "report", "table", "Output format: json or table")
	return cmd
}

func selectControls(secs []controls.Section) []controls.Control {
	if len(secs) == 0 {
		return controls.All()
	}
	var out []controls.Control
	for _, s := range secs {
		out = append(out, controls.InSection(s)...)
	}
	return out
}

// ── explain ───────────────────────────────────────────────────────────────────

func newExplainCmd() *cobra.Command {
	var (
		input  string
		format string
	)
	cmd := &cobra.Command{
		Use:   "explain <control-id>",
		Short: "Show a control and, given a saved report, its findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd.OutOrStdout(), args[0], input, format)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "JSON report written by audit --output")
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	return cmd
}

func runExplain(w io.Writer, id, input, format string) error {
	var findings []models.Finding
	if input != "" {
		report, err := readReportFile(input)
		if err != nil {
			return err
		}
		findings = report.Findings
		if findings == nil {
			findings = []models.Finding{}
		}
	}

	c, ok := controls.Lookup(id)
	if format == "json" {
		if !ok {
			return render.WriteExplainJSON(w, nil, nil, id)
		}
		return render.WriteExplainJSON(w, &c, findings, id)
	}
	if !ok {
		return fmt.Errorf("%w: %s", issues.ErrUnknownControl, id)
	}
	render.RenderControlExplanation(w, c, findings)
	return nil
}

func readReportFile(path string) (*models.AuditReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %q: %w", path, err)
	}
	var report models.AuditReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report %q: %w", path, err)
	}
	return &report, nil
}

// ── bench ─────────────────────────────────────────────────────────────────────

func newBenchCmd(a *app) *cobra.Command {
	var (
		profile string
		regions []string
		runs    int
	)
	cmd := &cobra.Command{
		Use:   "bench <section>",
		Short: "Time repeated audits of one section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secs, err := parseSections(args)
			if err != nil {
				return err
			}
			eng := engine.NewCISEngine(
				common.NewDefaultAWSClientProvider(),
				awssecurity.NewDefaultSecurityCollector(),
				cispack.Registry(),
				nil,
			)
			opts := engine.AuditOptions{
				Profile:           profile,
				HomeRegion:        a.cfg.AWS.DefaultRegion,
				Regions:           regions,
				BucketConcurrency: a.cfg.Audit.BucketConcurrency,
			}
			res, err := eng.BenchSection(cmd.Context(), opts, secs[0], runs)
			if err != nil {
				return err
			}
			printBench(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile name")
	cmd.Flags().StringSliceVar(&regions, "region", nil, "AWS region(s) (default: all active regions)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of audit runs")
	return cmd
}

func printBench(w io.Writer, r engine.BenchResult) {
	fmt.Fprintf(w, "%s: %d runs, total %s, mean %s, min %s, max %s\n",
		r.Name, r.Runs, r.Total, r.Mean, r.Min, r.Max)
}

// ── version ───────────────────────────────────────────────────────────────────

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// The version command works without a config file.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
			return nil
		},
	}
}
