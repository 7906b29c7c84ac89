package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// createImageSnapshotDescription matches snapshots created for an AMI. AWS
// writes the AMI ID into the description, which the planner relies on.
const createImageSnapshotDescription = "Created by CreateImage*"

// filter returns an EC2 filter, or nothing when values is empty.
func filter(name string, values []string) []ec2types.Filter {
	if len(values) == 0 {
		return nil
	}
	return []ec2types.Filter{{Name: aws.String(name), Values: values}}
}

func collectImages(ctx context.Context, client ec2LifecycleClient, region string, f Filters) ([]models.AWSImage, error) {
	var filters []ec2types.Filter
	filters = append(filters, filter("name", f.ImageNamePatterns)...)
	filters = append(filters, filter("tag:Description", f.ImageDescriptionTags)...)

	paginator := ec2svc.NewDescribeImagesPaginator(client, &ec2svc.DescribeImagesInput{
		Owners:  []string{"self"},
		Filters: filters,
	})

	var images []models.AWSImage
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeImages page: %w", err)
		}
		for _, img := range page.Images {
			images = append(images, toImage(img, region))
		}
	}
	return images, nil
}

func toImage(img ec2types.Image, region string) models.AWSImage {
	out := models.AWSImage{
		ImageID: aws.ToString(img.ImageId),
		Name:    aws.ToString(img.Name),
		Region:  region,
		State:   string(img.State),
	}
	if t, err := time.Parse(time.RFC3339, aws.ToString(img.CreationDate)); err == nil {
		out.CreationDate = t
	}
	for _, bdm := range img.BlockDeviceMappings {
		if bdm.Ebs != nil && bdm.Ebs.SnapshotId != nil {
			out.SnapshotIDs = append(out.SnapshotIDs, *bdm.Ebs.SnapshotId)
		}
	}
	return out
}

// collectInstances lists every instance in the region, whatever its state.
// A stopped instance still needs its AMI to be relaunched.
func collectInstances(ctx context.Context, client ec2LifecycleClient, region string) ([]models.AWSEC2Instance, error) {
	paginator := ec2svc.NewDescribeInstancesPaginator(client, &ec2svc.DescribeInstancesInput{})

	var instances []models.AWSEC2Instance
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeInstances page: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				i := models.AWSEC2Instance{
					InstanceID:   aws.ToString(inst.InstanceId),
					InstanceType: string(inst.InstanceType),
					ImageID:      aws.ToString(inst.ImageId),
					Region:       region,
				}
				if inst.State != nil {
					i.State = string(inst.State.Name)
				}
				if inst.LaunchTime != nil {
					i.LaunchTime = *inst.LaunchTime
				}
				instances = append(instances, i)
			}
		}
	}
	return instances, nil
}

// inUseImageIDs is the set of image IDs referenced by instances.
func inUseImageIDs(instances []models.AWSEC2Instance) map[string]struct{} {
	inUse := make(map[string]struct{})
	for _, i := range instances {
		if i.ImageID != "" {
			inUse[i.ImageID] = struct{}{}
		}
	}
	return inUse
}

func collectSnapshots(ctx context.Context, client ec2LifecycleClient, region string, f Filters) ([]models.AWSSnapshot, error) {
	filters := []ec2types.Filter{
		{Name: aws.String("status"), Values: []string{"completed"}},
		{Name: aws.String("description"), Values: []string{createImageSnapshotDescription}},
	}
	filters = append(filters, filter("tag:Description", f.SnapshotDescriptionTags)...)

	paginator := ec2svc.NewDescribeSnapshotsPaginator(client, &ec2svc.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
		Filters:  filters,
	})

	var snapshots []models.AWSSnapshot
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeSnapshots page: %w", err)
		}
		for _, s := range page.Snapshots {
			snapshots = append(snapshots, models.AWSSnapshot{
				SnapshotID:  aws.ToString(s.SnapshotId),
				Description: aws.ToString(s.Description),
				Region:      region,
				VolumeSize:  aws.ToInt32(s.VolumeSize),
				StartTime:   aws.ToTime(s.StartTime),
			})
		}
	}
	return snapshots, nil
}

func collectVolumes(ctx context.Context, client ec2LifecycleClient, region string) ([]models.AWSEBSVolume, error) {
	paginator := ec2svc.NewDescribeVolumesPaginator(client, &ec2svc.DescribeVolumesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("status"), Values: []string{"available", "in-use"}},
		},
	})

	var volumes []models.AWSEBSVolume
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("DescribeVolumes page: %w", err)
		}
		for _, v := range page.Volumes {
			volumes = append(volumes, models.AWSEBSVolume{
				VolumeID:   aws.ToString(v.VolumeId),
				Region:     region,
				State:      string(v.State),
				VolumeType: string(v.VolumeType),
				SizeGiB:    aws.ToInt32(v.Size),
				CreateTime: aws.ToTime(v.CreateTime),
			})
		}
	}
	return volumes, nil
}
