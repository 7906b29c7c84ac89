package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"
	"gopkg.in/ini.v1"
)

// ErrNoProfiles is returned by LoadAllProfiles when no profile could be
// loaded.
var ErrNoProfiles = errors.New("no usable AWS profiles found")

// DefaultAWSClientProvider is the production AWSClientProvider. It reads the
// standard shared config and credentials files through the AWS SDK v2.
type DefaultAWSClientProvider struct {
	factory ClientFactory

	// awsDir overrides ~/.aws for profile discovery; empty means the home
	// directory default.
	awsDir string
}

// NewDefaultAWSClientProvider returns a provider backed by the real AWS SDK.
func NewDefaultAWSClientProvider() *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: NewClientSet}
}

// NewDefaultAWSClientProviderWithFactory returns a provider that uses f to
// create its ClientSet. Pass a mock factory in tests.
func NewDefaultAWSClientProviderWithFactory(f ClientFactory) *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: f}
}

// LoadProfile loads the AWS SDK config for the named profile and resolves its
// account ID through STS. region is only used when neither the profile nor
// the environment (AWS_REGION) sets one.
func (p *DefaultAWSClientProvider) LoadProfile(ctx context.Context, profile, region string) (*ProfileConfig, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS profile %q: %w", profileDisplayName(profile), err)
	}
	cfg.Region = homeRegion(cfg.Region, region)

	clients := p.factory(cfg)
	accountID, err := resolveAccountID(ctx, clients.STS)
	if err != nil {
		return nil, fmt.Errorf("resolve account ID for profile %q: %w", profileDisplayName(profile), err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("profile", profileDisplayName(profile)).
		Str("account", accountID).
		Str("region", cfg.Region).
		Msg("loaded AWS profile")

	return &ProfileConfig{
		ProfileName: profileDisplayName(profile),
		AccountID:   accountID,
		Region:      cfg.Region,
		Config:      cfg,
		Clients:     clients,
	}, nil
}

// LoadAllProfiles discovers every profile in the shared files and loads each
// one. Profiles that cannot be loaded are logged and skipped so one bad
// profile does not block the rest.
func (p *DefaultAWSClientProvider) LoadAllProfiles(ctx context.Context, region string) ([]*ProfileConfig, error) {
	names, err := p.discoverProfileNames()
	if err != nil {
		return nil, fmt.Errorf("discover AWS profiles: %w", err)
	}

	log := zerolog.Ctx(ctx)
	var profiles []*ProfileConfig
	for _, name := range names {
		arg := ""
		if name != "default" {
			arg = name
		}
		pc, loadErr := p.LoadProfile(ctx, arg, region)
		if loadErr != nil {
			log.Warn().Err(loadErr).Str("profile", name).Msg("skipping profile")
			continue
		}
		profiles = append(profiles, pc)
	}
	if len(profiles) == 0 {
		return nil, ErrNoProfiles
	}
	return profiles, nil
}

// GetActiveRegions returns the regions the account has opted into. EC2
// DescribeRegions is a global call and works from any home region.
func (p *DefaultAWSClientProvider) GetActiveRegions(ctx context.Context, cfg *ProfileConfig) ([]string, error) {
	out, err := cfg.Clients.EC2.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("describe regions for profile %q: %w", cfg.ProfileName, err)
	}

	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if r.RegionName != nil {
			regions = append(regions, *r.RegionName)
		}
	}
	return regions, nil
}

// ConfigForRegion returns a copy of cfg.Config with Region set to region.
func (p *DefaultAWSClientProvider) ConfigForRegion(cfg *ProfileConfig, region string) aws.Config {
	regional := cfg.Config
	regional.Region = region
	return regional
}

// homeRegion picks the profile's own region, then fallback, then
// DefaultRegion.
func homeRegion(configured, fallback string) string {
	switch {
	case configured != "":
		return configured
	case fallback != "":
		return fallback
	default:
		return DefaultRegion
	}
}

func profileDisplayName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}

func resolveAccountID(ctx context.Context, stsClient STSClient) (string, error) {
	out, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("STS GetCallerIdentity: %w", err)
	}
	if out.Account == nil {
		return "", errors.New("STS GetCallerIdentity returned nil account")
	}
	return aws.ToString(out.Account), nil
}

// discoverProfileNames returns the deduplicated profile names from the
// credentials file followed by the config file.
func (p *DefaultAWSClientProvider) discoverProfileNames() ([]string, error) {
	dir := p.awsDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".aws")
	}

	credProfiles, err := profilesFromFile(filepath.Join(dir, "credentials"), false)
	if err != nil {
		return nil, err
	}
	cfgProfiles, err := profilesFromFile(filepath.Join(dir, "config"), true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var all []string
	for _, name := range append(credProfiles, cfgProfiles...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		all = append(all, name)
	}
	return all, nil
}

// profilesFromFile returns the section names of an AWS shared INI file.
// In ~/.aws/config non-default sections are "[profile <name>]"; pass
// stripProfilePrefix to remove the prefix. A missing file yields nil.
func profilesFromFile(path string, stripProfilePrefix bool) ([]string, error) {
	f, err := ini.LooseLoad(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var profiles []string
	for _, name := range f.SectionStrings() {
		if name == ini.DefaultSection {
			continue
		}
		if stripProfilePrefix && name != "default" {
			if !strings.HasPrefix(name, "profile ") {
				// sso-session and services sections are not profiles.
				continue
			}
			name = strings.TrimPrefix(name, "profile ")
		}
		profiles = append(profiles, strings.TrimSpace(name))
	}
	return profiles, nil
}
