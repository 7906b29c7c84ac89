package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// DefaultRegion is used when neither the profile nor the caller names one.
const DefaultRegion = "us-east-1"

// ProfileConfig is a resolved AWS profile with its SDK configuration and
// identity clients. It is the unit passed between collectors and the engine.
type ProfileConfig struct {
	// ProfileName is the name from ~/.aws/credentials or "default".
	ProfileName string

	// AccountID is the resolved AWS account ID for this profile (via STS).
	AccountID string

	// Region is the home region. Global services (IAM, S3 listing,
	// CloudTrail DescribeTrails) are called here.
	Region string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config

	Clients *ClientSet
}

// AWSClientProvider loads AWS configurations and resolves active regions.
// It is the sole entry point for AWS credential and region management.
type AWSClientProvider interface {
	// LoadProfile returns a ProfileConfig for the named profile. An empty
	// profile loads the default credential chain. The profile's configured
	// region always wins; region is the fallback for a profile without one,
	// and DefaultRegion the last resort.
	LoadProfile(ctx context.Context, profile, region string) (*ProfileConfig, error)

	// LoadAllProfiles returns ProfileConfigs for every profile found in
	// ~/.aws/credentials and ~/.aws/config that has usable credentials.
	LoadAllProfiles(ctx context.Context, region string) ([]*ProfileConfig, error)

	// GetActiveRegions returns all regions enabled for the account.
	GetActiveRegions(ctx context.Context, cfg *ProfileConfig) ([]string, error)

	// ConfigForRegion clones cfg with the target region set.
	ConfigForRegion(cfg *ProfileConfig, region string) aws.Config
}
