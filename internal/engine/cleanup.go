package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/lifecycle"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/retention"
)

// actionExecutor applies cleanup actions to one region.
type actionExecutor interface {
	Execute(ctx context.Context, cfg aws.Config, actions []models.CleanupAction, dryRun bool) []models.CleanupAction
}

// CleanupEngine implements Cleaner. It collects the image inventory, plans
// with the retention package, and hands the actions to the executor.
type CleanupEngine struct {
	provider  common.AWSClientProvider
	collector lifecycle.InventoryCollector
	executor  actionExecutor
	now       func() time.Time
}

// NewCleanupEngine constructs a CleanupEngine.
func NewCleanupEngine(
	provider common.AWSClientProvider,
	collector lifecycle.InventoryCollector,
	executor actionExecutor,
) *CleanupEngine {
	return &CleanupEngine{
		provider:  provider,
		collector: collector,
		executor:  executor,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run implements Cleaner. Any region whose inventory cannot be read fails
// the run before a single action is taken.
func (e *CleanupEngine) Run(ctx context.Context, opts CleanupOptions) (*models.CleanupReport, error) {
	profile, err := e.provider.LoadProfile(ctx, opts.Profile, opts.HomeRegion)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", opts.Profile, err)
	}

	regions := opts.Regions
	if len(regions) == 0 {
		home := profile.Region
		if home == "" {
			home = common.DefaultRegion
		}
		regions = []string{home}
	}

	inventories, err := e.collector.CollectAll(ctx, profile, e.provider, regions, opts.Filters)
	if err != nil {
		return nil, fmt.Errorf("collect image inventory: %w", err)
	}

	now := e.now()
	dryRun := !opts.Execute
	report := &models.CleanupReport{
		ReportID:    fmt.Sprintf("cleanup-%d", now.UnixNano()),
		GeneratedAt: now,
		Profile:     profile.ProfileName,
		AccountID:   profile.AccountID,
		Regions:     regions,
		DryRun:      dryRun,
		Actions:     []models.CleanupAction{},
		Retained:    []string{},
	}

	for _, inv := range inventories {
		plan := retention.Build(inv, now, opts.Retention)
		zerolog.Ctx(ctx).Info().
			Str("region", inv.Region).
			Int("deregister", len(plan.DeregisterImages)).
			Int("delete_snapshots", len(plan.DeleteSnapshots)).
			Int("delete_volumes", len(plan.DeleteVolumes)).
			Bool("dry_run", dryRun).
			Msg("cleanup plan")

		cfg := e.provider.ConfigForRegion(profile, inv.Region)
		done := e.executor.Execute(ctx, cfg, planActions(plan, opts.Retention), dryRun)
		report.Actions = append(report.Actions, done...)

		report.Summary.ImagesRetained += len(plan.RetainImages)
		report.Summary.SnapshotsRetained += len(plan.RetainSnapshots)
		report.Summary.VolumesRetained += len(plan.RetainVolumes)
		for _, img := range plan.RetainImages {
			report.Retained = append(report.Retained, img.Name)
		}
	}

	for _, a := range report.Actions {
		if a.Error != "" {
			report.Summary.Failures++
			continue
		}
		switch a.ResourceType {
		case models.ResourceAWSImage:
			report.Summary.ImagesDeregistered++
		case models.ResourceAWSSnapshot:
			report.Summary.SnapshotsDeleted++
		case models.ResourceAWSEBS:
			report.Summary.VolumesDeleted++
		}
		report.Summary.TotalEstimatedMonthlySavings += a.EstimatedMonthlySavings
	}
	return report, nil
}

// planActions converts a region plan into ordered actions with reasons.
func planActions(p retention.Plan, opts retention.Options) []models.CleanupAction {
	var out []models.CleanupAction

	for _, img := range p.DeregisterImages {
		out = append(out, models.CleanupAction{
			Action:       models.ActionDeregister,
			ResourceID:   img.ImageID,
			ResourceType: models.ResourceAWSImage,
			Name:         img.Name,
			Region:       img.Region,
			Reason:       fmt.Sprintf("not among the newest images of build %s and not used by any instance", retention.BuildName(img.Name)),
		})
	}

	for _, s := range p.DeleteSnapshots {
		reason := fmt.Sprintf("no retained image references it after %d days", opts.SnapshotOrphanDays)
		if img, ok := backingImage(s, p.DeregisterImages); ok {
			reason = "backs deregistered image " + img
		}
		out = append(out, models.CleanupAction{
			Action:                  models.ActionDelete,
			ResourceID:              s.SnapshotID,
			ResourceType:            models.ResourceAWSSnapshot,
			Region:                  s.Region,
			Reason:                  reason,
			EstimatedMonthlySavings: retention.SnapshotMonthlyCost(s),
		})
	}

	volumeDays := opts.VolumeDays
	if volumeDays <= 0 {
		volumeDays = retention.DefaultVolumeDays
	}
	for _, v := range p.DeleteVolumes {
		out = append(out, models.CleanupAction{
			Action:                  models.ActionDelete,
			ResourceID:              v.VolumeID,
			ResourceType:            models.ResourceAWSEBS,
			Region:                  v.Region,
			Reason:                  fmt.Sprintf("%s and older than %d days", v.State, volumeDays),
			EstimatedMonthlySavings: retention.VolumeMonthlyCost(v),
		})
	}
	return out
}

// backingImage returns the deregistered image a snapshot belongs to.
func backingImage(s models.AWSSnapshot, images []models.AWSImage) (string, bool) {
	for _, img := range images {
		if (img.ImageID != "" && strings.Contains(s.Description, img.ImageID)) || slices.Contains(img.SnapshotIDs, s.SnapshotID) {
			return img.ImageID, true
		}
	}
	return "", false
}
