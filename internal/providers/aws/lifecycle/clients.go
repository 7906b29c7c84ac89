package lifecycle

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
)

// ec2LifecycleClient covers the EC2 operations used for image inventory and
// cleanup. *ec2.Client satisfies it, and the describe methods also satisfy
// the SDK v2 paginator interfaces.
type ec2LifecycleClient interface {
	DescribeImages(
		ctx context.Context,
		params *ec2svc.DescribeImagesInput,
		optFns ...func(*ec2svc.Options),
	) (*ec2svc.DescribeImagesOutput, error)

	DescribeSnapshots(
		ctx context.Context,
		params *ec2svc.DescribeSnapshotsInput,
		optFns ...func(*ec2svc.Options),
	) (*ec2svc.DescribeSnapshotsOutput, error)

	DescribeVolumes(
		ctx context.Context,
		params *ec2svc.DescribeVolumesInput,
		optFns ...func(*ec2svc.Options),
	) (*ec2svc.DescribeVolumesOutput, error)

	DescribeInstances(
		ctx context.Context,
		params *ec2svc.DescribeInstancesInput,
		optFns ...func(*ec2svc.Options),
	) (*ec2svc.DescribeInstancesOutput, error)

	DeregisterImage(
		ctx context.Context,
		params *ec2svc.DeregisterImageInput,
		optFns ...func(*ec2svc.Options),
	) (*ec2svc.DeregisterImageOutput, error)

	DeleteSnapshot(
		ctx context.Context,
		params *ec2svc.DeleteSnapshotInput,
		optFns ...func(*ec2svc.Options),
	) (*ec2svc.DeleteSnapshotOutput, error)

	DeleteVolume(
		ctx context.Context,
		params *ec2svc.DeleteVolumeInput,
		optFns ...func(*ec2svc.Options),
	) (*ec2svc.DeleteVolumeOutput, error)
}

// clientFactory creates a regional EC2 client from an aws.Config.
type clientFactory func(cfg aws.Config) ec2LifecycleClient

func newDefaultClient(cfg aws.Config) ec2LifecycleClient {
	return ec2svc.NewFromConfig(cfg)
}
