package awssecurity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// collectRDSInstances lists every DB instance in the region.
func collectRDSInstances(ctx context.Context, client rdsAPIClient, region string) ([]models.AWSRDSInstance, error) {
	paginator := rdssvc.NewDescribeDBInstancesPaginator(client, &rdssvc.DescribeDBInstancesInput{})
	var out []models.AWSRDSInstance
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return out, fmt.Errorf("describe DB instances in %s: %w", region, err)
		}
		for _, db := range page.DBInstances {
			out = append(out, models.AWSRDSInstance{
				DBInstanceID:            aws.ToString(db.DBInstanceIdentifier),
				DBInstanceClass:         aws.ToString(db.DBInstanceClass),
				Engine:                  aws.ToString(db.Engine),
				Region:                  region,
				StorageEncrypted:        aws.ToBool(db.StorageEncrypted),
				AutoMinorVersionUpgrade: aws.ToBool(db.AutoMinorVersionUpgrade),
				PubliclyAccessible:      aws.ToBool(db.PubliclyAccessible),
			})
		}
	}
	return out, nil
}
