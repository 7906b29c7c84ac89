package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// fakeEC2 serves canned single-page describe results and records mutations.
type fakeEC2 struct {
	mu sync.Mutex

	images    []ec2types.Image
	snapshots []ec2types.Snapshot
	volumes   []ec2types.Volume
	instances []ec2types.Instance

	imagesErr error
	failIDs   map[string]bool

	imagesInput    *ec2svc.DescribeImagesInput
	snapshotsInput *ec2svc.DescribeSnapshotsInput
	volumesInput   *ec2svc.DescribeVolumesInput

	calls []string
}

var errFake = errors.New("UnauthorizedOperation")

func (f *fakeEC2) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeEC2) DescribeImages(_ context.Context, in *ec2svc.DescribeImagesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeImagesOutput, error) {
	f.imagesInput = in
	if f.imagesErr != nil {
		return nil, f.imagesErr
	}
	return &ec2svc.DescribeImagesOutput{Images: f.images}, nil
}

func (f *fakeEC2) DescribeSnapshots(_ context.Context, in *ec2svc.DescribeSnapshotsInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeSnapshotsOutput, error) {
	f.snapshotsInput = in
	return &ec2svc.DescribeSnapshotsOutput{Snapshots: f.snapshots}, nil
}

func (f *fakeEC2) DescribeVolumes(_ context.Context, in *ec2svc.DescribeVolumesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeVolumesOutput, error) {
	f.volumesInput = in
	return &ec2svc.DescribeVolumesOutput{Volumes: f.volumes}, nil
}

func (f *fakeEC2) DescribeInstances(_ context.Context, _ *ec2svc.DescribeInstancesInput, _ ...func(*ec2svc.Options)) (*ec2svc.DescribeInstancesOutput, error) {
	return &ec2svc.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: f.instances}},
	}, nil
}

func (f *fakeEC2) DeregisterImage(_ context.Context, in *ec2svc.DeregisterImageInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeregisterImageOutput, error) {
	id := aws.ToString(in.ImageId)
	f.record("deregister " + id)
	if f.failIDs[id] {
		return nil, errFake
	}
	return &ec2svc.DeregisterImageOutput{}, nil
}

func (f *fakeEC2) DeleteSnapshot(_ context.Context, in *ec2svc.DeleteSnapshotInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeleteSnapshotOutput, error) {
	id := aws.ToString(in.SnapshotId)
	f.record("delete " + id)
	if f.failIDs[id] {
		return nil, errFake
	}
	return &ec2svc.DeleteSnapshotOutput{}, nil
}

func (f *fakeEC2) DeleteVolume(_ context.Context, in *ec2svc.DeleteVolumeInput, _ ...func(*ec2svc.Options)) (*ec2svc.DeleteVolumeOutput, error) {
	id := aws.ToString(in.VolumeId)
	f.record("delete " + id)
	if f.failIDs[id] {
		return nil, errFake
	}
	return &ec2svc.DeleteVolumeOutput{}, nil
}

func factoryFor(byRegion map[string]*fakeEC2) clientFactory {
	return func(cfg aws.Config) ec2LifecycleClient {
		return byRegion[cfg.Region]
	}
}
