package lifecycle

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/common"
)

// maxConcurrentRegions is the maximum number of regions collected in parallel.
const maxConcurrentRegions = 5

// DefaultInventoryCollector is the production InventoryCollector.
//
// Inject a custom clientFactory via NewDefaultInventoryCollectorWithFactory
// to replace the SDK client with a fake in unit tests.
type DefaultInventoryCollector struct {
	factory clientFactory
}

// NewDefaultInventoryCollector returns a collector backed by the real AWS SDK.
func NewDefaultInventoryCollector() *DefaultInventoryCollector {
	return &DefaultInventoryCollector{factory: newDefaultClient}
}

// NewDefaultInventoryCollectorWithFactory returns a collector that uses f to
// create its EC2 clients.
func NewDefaultInventoryCollectorWithFactory(f clientFactory) *DefaultInventoryCollector {
	return &DefaultInventoryCollector{factory: f}
}

// CollectAll collects each region with a regional aws.Config obtained from
// provider. Results keep the order of regions.
func (d *DefaultInventoryCollector) CollectAll(
	ctx context.Context,
	profile *common.ProfileConfig,
	provider common.AWSClientProvider,
	regions []string,
	filters Filters,
) ([]models.AWSImageInventory, error) {
	out := make([]models.AWSImageInventory, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRegions)
	for i, region := range regions {
		cfg := provider.ConfigForRegion(profile, region)
		g.Go(func() error {
			inv, err := d.CollectRegion(gctx, cfg, region, filters)
			if err != nil {
				return fmt.Errorf("collect region %s: %w", region, err)
			}
			out[i] = *inv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CollectRegion gathers the inventory of one region.
func (d *DefaultInventoryCollector) CollectRegion(
	ctx context.Context,
	cfg aws.Config,
	region string,
	filters Filters,
) (*models.AWSImageInventory, error) {
	client := d.factory(cfg)
	inv := &models.AWSImageInventory{Region: region}

	var err error
	inv.Images, err = collectImages(ctx, client, region, filters)
	if err != nil {
		return nil, fmt.Errorf("collect images in %s: %w", region, err)
	}

	inv.Instances, err = collectInstances(ctx, client, region)
	if err != nil {
		return nil, fmt.Errorf("collect instances in %s: %w", region, err)
	}
	inv.InUseImageIDs = inUseImageIDs(inv.Instances)

	inv.Snapshots, err = collectSnapshots(ctx, client, region, filters)
	if err != nil {
		return nil, fmt.Errorf("collect snapshots in %s: %w", region, err)
	}

	inv.Volumes, err = collectVolumes(ctx, client, region)
	if err != nil {
		return nil, fmt.Errorf("collect volumes in %s: %w", region, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("region", region).
		Int("images", len(inv.Images)).
		Int("instances", len(inv.Instances)).
		Int("in_use", len(inv.InUseImageIDs)).
		Int("snapshots", len(inv.Snapshots)).
		Int("volumes", len(inv.Volumes)).
		Msg("inventory collected")
	return inv, nil
}
