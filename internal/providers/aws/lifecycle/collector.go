package lifecycle

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/common"
)

// Filters select the images and snapshots the retention policy manages.
// Values are EC2 filter wildcards.
type Filters struct {
	// ImageNamePatterns match the AMI name.
	ImageNamePatterns []string

	// ImageDescriptionTags match the AMI's Description tag.
	ImageDescriptionTags []string

	// SnapshotDescriptionTags match the snapshot's Description tag.
	SnapshotDescriptionTags []string
}

// DefaultFilters returns the filters used when the config sets none.
func DefaultFilters() Filters {
	return Filters{
		ImageNamePatterns:       []string{"*RHEL-*"},
		ImageDescriptionTags:    []string{"packer*", "*RHEL*", "Spel*"},
		SnapshotDescriptionTags: []string{"*RHEL*", "packer image*"},
	}
}

// InventoryCollector gathers the image inventory the cleanup planner works
// on. It must not decide what to delete.
type InventoryCollector interface {
	// CollectAll collects every region in parallel. Any region failure
	// fails the whole call: a partial inventory could make an in-use image
	// look unused.
	CollectAll(
		ctx context.Context,
		profile *common.ProfileConfig,
		provider common.AWSClientProvider,
		regions []string,
		filters Filters,
	) ([]models.AWSImageInventory, error)

	// CollectRegion gathers images, snapshots, volumes and the in-use image
	// set of a single region.
	CollectRegion(ctx context.Context, cfg aws.Config, region string, filters Filters) (*models.AWSImageInventory, error)
}
