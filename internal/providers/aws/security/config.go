package awssecurity

import (
	"context"
	"fmt"

	configsvc "github.com/aws/aws-sdk-go-v2/service/configservice"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// collectConfigStatus checks whether AWS Config has a recorder that is
// recording in the region.
func collectConfigStatus(ctx context.Context, client awsConfigAPIClient, region string) (models.AWSConfigStatus, error) {
	out, err := client.DescribeConfigurationRecorderStatus(ctx, &configsvc.DescribeConfigurationRecorderStatusInput{})
	if err != nil {
		return models.AWSConfigStatus{Region: region}, fmt.Errorf("describe configuration recorder status in %s: %w", region, err)
	}

	status := models.AWSConfigStatus{Region: region, DataAvailable: true}
	for _, s := range out.ConfigurationRecordersStatus {
		if s.Recording {
			status.Enabled = true
			break
		}
	}
	return status, nil
}
