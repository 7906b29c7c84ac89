package lifecycle

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// Executor applies cleanup actions to one region.
type Executor struct {
	factory clientFactory
}

// NewExecutor returns an Executor backed by the real AWS SDK.
func NewExecutor() *Executor {
	return &Executor{factory: newDefaultClient}
}

// NewExecutorWithFactory returns an Executor that uses f to create its EC2
// client.
func NewExecutorWithFactory(f clientFactory) *Executor {
	return &Executor{factory: f}
}

// phase orders actions: images are deregistered before their snapshots can
// be deleted, and volumes go last.
func phase(a models.CleanupAction) int {
	switch a.ResourceType {
	case models.ResourceAWSImage:
		return 0
	case models.ResourceAWSSnapshot:
		return 1
	default:
		return 2
	}
}

// Execute applies actions in phase order and returns them with Executed and
// Error filled in. With dryRun set no AWS call is made. A failed item is
// logged and recorded; the run continues with the next one.
func (e *Executor) Execute(ctx context.Context, cfg aws.Config, actions []models.CleanupAction, dryRun bool) []models.CleanupAction {
	out := make([]models.CleanupAction, len(actions))
	copy(out, actions)
	sort.SliceStable(out, func(i, j int) bool { return phase(out[i]) < phase(out[j]) })

	if dryRun || len(out) == 0 {
		return out
	}

	log := zerolog.Ctx(ctx)
	client := e.factory(cfg)
	for i := range out {
		a := &out[i]
		if err := ctx.Err(); err != nil {
			a.Error = err.Error()
			continue
		}
		if err := apply(ctx, client, *a); err != nil {
			a.Error = err.Error()
			log.Warn().Err(err).
				Str("resource", a.ResourceID).
				Str("region", a.Region).
				Msg("cleanup action failed")
			continue
		}
		a.Executed = true
		log.Info().
			Str("action", a.Action).
			Str("resource", a.ResourceID).
			Str("region", a.Region).
			Msg("cleanup action applied")
	}
	return out
}

func apply(ctx context.Context, client ec2LifecycleClient, a models.CleanupAction) error {
	id := aws.String(a.ResourceID)
	var err error
	switch a.ResourceType {
	case models.ResourceAWSImage:
		_, err = client.DeregisterImage(ctx, &ec2svc.DeregisterImageInput{ImageId: id})
	case models.ResourceAWSSnapshot:
		_, err = client.DeleteSnapshot(ctx, &ec2svc.DeleteSnapshotInput{SnapshotId: id})
	case models.ResourceAWSEBS:
		_, err = client.DeleteVolume(ctx, &ec2svc.DeleteVolumeInput{VolumeId: id})
	default:
		return fmt.Errorf("unsupported resource type %q", a.ResourceType)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", a.Action, a.ResourceID, err)
	}
	return nil
}
