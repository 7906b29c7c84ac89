package engine

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/lifecycle"
	awssecurity "github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/security"
)

// fakeProvider serves fixed profiles without touching AWS.
type fakeProvider struct {
	profiles []*common.ProfileConfig
	regions  []string
}

func (p *fakeProvider) LoadProfile(_ context.Context, name, _ string) (*common.ProfileConfig, error) {
	for _, pr := range p.profiles {
		if pr.ProfileName == name || name == "" {
			return pr, nil
		}
	}
	return nil, errors.New("profile not found")
}

func (p *fakeProvider) LoadAllProfiles(context.Context, string) ([]*common.ProfileConfig, error) {
	return p.profiles, nil
}

func (p *fakeProvider) GetActiveRegions(context.Context, *common.ProfileConfig) ([]string, error) {
	return p.regions, nil
}

func (p *fakeProvider) ConfigForRegion(cfg *common.ProfileConfig, region string) aws.Config {
	c := cfg.Config
	c.Region = region
	return c
}

// fakeCollector returns canned account data per account ID.
type fakeCollector struct {
	data  map[string]*models.AWSAccountData
	fail  map[string]bool
	calls []awssecurity.CollectOptions
}

func (c *fakeCollector) CollectAll(
	_ context.Context,
	profile *common.ProfileConfig,
	_ common.AWSClientProvider,
	opts awssecurity.CollectOptions,
) (*models.AWSAccountData, error) {
	c.calls = append(c.calls, opts)
	if c.fail[profile.AccountID] {
		return nil, errors.New("AccessDenied")
	}
	return c.data[profile.AccountID], nil
}

// fakeInventory returns canned inventories.
type fakeInventory struct {
	invs    []models.AWSImageInventory
	err     error
	regions []string
}

func (f *fakeInventory) CollectAll(
	_ context.Context,
	_ *common.ProfileConfig,
	_ common.AWSClientProvider,
	regions []string,
	_ lifecycle.Filters,
) ([]models.AWSImageInventory, error) {
	f.regions = regions
	return f.invs, f.err
}

func (f *fakeInventory) CollectRegion(context.Context, aws.Config, string, lifecycle.Filters) (*models.AWSImageInventory, error) {
	return nil, errors.New("not used")
}

// fakeExecutor records what it was asked to do.
type fakeExecutor struct {
	dryRun  []bool
	failIDs map[string]bool
}

func (f *fakeExecutor) Execute(_ context.Context, _ aws.Config, actions []models.CleanupAction, dryRun bool) []models.CleanupAction {
	f.dryRun = append(f.dryRun, dryRun)
	out := make([]models.CleanupAction, len(actions))
	copy(out, actions)
	if dryRun {
		return out
	}
	for i := range out {
		if f.failIDs[out[i].ResourceID] {
			out[i].Error = "UnauthorizedOperation"
			continue
		}
		out[i].Executed = true
	}
	return out
}
