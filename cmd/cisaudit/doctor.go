package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/config"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/policy"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/common"
	cispack "github.com/pankaj-dahiya-devops/cisaudit/internal/rulepacks/cis"
)

// DoctorResult is the structured output of cisaudit doctor. It can be
// serialised to JSON via --format=json or rendered as text (default).
type DoctorResult struct {
	Config struct {
		Path  string `json:"path,omitempty"`
		Valid bool   `json:"valid"`
		Error string `json:"error,omitempty"`
	} `json:"config"`

	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		Region      string `json:"region,omitempty"`
		RegionsOK   bool   `json:"regions_ok"`
		Regions     int    `json:"regions,omitempty"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	Policy struct {
		Path    string   `json:"path"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	OverallHealthy bool `json:"overall_healthy"`
}

// doctorInput names what runDoctor checks.
type doctorInput struct {
	configPath string
	profile    string
	region     string
	policyPath string
}

func newDoctorCmd(a *app) *cobra.Command {
	var (
		format     string
		profile    string
		policyPath string
	)
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run environment diagnostics",
		// Doctor reports a broken config instead of refusing to start.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			in := doctorInput{
				configPath: a.configPath,
				profile:    profile,
				region:     common.DefaultRegion,
				policyPath: policyPath,
			}
			if cfg, err := config.Load(a.configPath); err == nil {
				if cfg.AWS.DefaultRegion != "" {
					in.region = cfg.AWS.DefaultRegion
				}
				if in.profile == "" {
					in.profile = cfg.AWS.DefaultProfile
				}
				if in.policyPath == "" {
					in.policyPath = cfg.Policy.Path
				}
			}
			if in.policyPath == "" {
				in.policyPath = "./cisaudit.yaml"
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			result, err := runDoctor(ctx, common.NewDefaultAWSClientProvider(), cmd.OutOrStdout(), format, in)
			if err != nil {
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile to use (default: credential chain)")
	cmd.Flags().StringVar(&policyPath, "policy", "", "Rule policy file to validate")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result. The returned error covers only
// rendering failures; callers inspect result.OverallHealthy.
func runDoctor(ctx context.Context, awsProvider common.AWSClientProvider, w io.Writer, format string, in doctorInput) (DoctorResult, error) {
	result := collectDoctorResult(ctx, awsProvider, in)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}
	return result, nil
}

// collectDoctorResult runs all environment checks. It performs no rendering.
func collectDoctorResult(ctx context.Context, awsProvider common.AWSClientProvider, in doctorInput) DoctorResult {
	var result DoctorResult

	// Config: a missing default file is fine, an invalid one is not.
	result.Config.Path = in.configPath
	if result.Config.Path == "" {
		result.Config.Path = config.DefaultPath()
	}
	if _, err := config.Load(in.configPath); err != nil {
		result.Config.Error = err.Error()
	} else {
		result.Config.Valid = true
	}

	// AWS: credentials → STS account ID → region discovery.
	result.AWS.Profile = in.profile
	profileCfg, err := awsProvider.LoadProfile(ctx, in.profile, in.region)
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profileCfg.AccountID
		result.AWS.Region = profileCfg.Region
		regions, err := awsProvider.GetActiveRegions(ctx, profileCfg)
		if err != nil {
			result.AWS.Error = err.Error()
		} else {
			result.AWS.RegionsOK = true
			result.AWS.Regions = len(regions)
		}
	}

	// Policy: stat → load → validate (file is optional).
	result.Policy.Path = in.policyPath
	_, statErr := os.Stat(in.policyPath)
	if statErr == nil {
		result.Policy.Present = true
		cfg, loadErr := policy.LoadPolicy(in.policyPath)
		if loadErr != nil {
			result.Policy.Errors = []string{loadErr.Error()}
		} else {
			errs := policy.Validate(cfg, cispack.RuleIDs())
			if len(errs) == 0 {
				result.Policy.Valid = true
			}
			for _, e := range errs {
				result.Policy.Errors = append(result.Policy.Errors, e.Error())
			}
		}
	} else if !os.IsNotExist(statErr) {
		result.Policy.Present = true
		result.Policy.Errors = []string{statErr.Error()}
	}

	result.OverallHealthy = result.Config.Valid &&
		result.AWS.Credentials &&
		result.AWS.RegionsOK &&
		(!result.Policy.Present || result.Policy.Valid)
	return result
}

// renderDoctorTable writes the human-readable diagnostic output to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintln(w, "\nConfig:")
	if result.Config.Valid {
		doctorPrint(w, "Config file", "OK", result.Config.Path)
	} else {
		doctorPrint(w, "Config file", "FAIL", result.Config.Error)
	}

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
		doctorPrint(w, "Regions API", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		if result.AWS.RegionsOK {
			doctorPrint(w, "Regions API", "OK", fmt.Sprintf("%d active", result.AWS.Regions))
		} else {
			doctorPrint(w, "Regions API", "FAIL", result.AWS.Error)
		}
	}

	fmt.Fprintln(w, "\nPolicy:")
	if !result.Policy.Present {
		doctorPrint(w, result.Policy.Path+" present", "Not found (optional)", "")
		return
	}
	doctorPrint(w, result.Policy.Path+" present", "YES", "")
	if result.Policy.Valid {
		doctorPrint(w, "Policy valid", "OK", "")
		return
	}
	for _, e := range result.Policy.Errors {
		doctorPrint(w, "Policy valid", "FAIL", e)
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
