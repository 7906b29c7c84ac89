package awssecurity

import (
	"context"
	"fmt"

	guardduty "github.com/aws/aws-sdk-go-v2/service/guardduty"
	guarddutytype "github.com/aws/aws-sdk-go-v2/service/guardduty/types"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// collectGuardDutyStatus checks whether the region has an enabled GuardDuty
// detector. A region without detectors is available and disabled.
func collectGuardDutyStatus(ctx context.Context, client guardDutyAPIClient, region string) (models.AWSGuardDutyStatus, error) {
	listOut, err := client.ListDetectors(ctx, &guardduty.ListDetectorsInput{})
	if err != nil {
		return models.AWSGuardDutyStatus{Region: region}, fmt.Errorf("list GuardDuty detectors in %s: %w", region, err)
	}

	status := models.AWSGuardDutyStatus{Region: region, DataAvailable: true}
	for _, id := range listOut.DetectorIds {
		detOut, err := client.GetDetector(ctx, &guardduty.GetDetectorInput{DetectorId: &id})
		if err != nil {
			return models.AWSGuardDutyStatus{Region: region}, fmt.Errorf("get GuardDuty detector %s in %s: %w", id, region, err)
		}
		if detOut.Status == guarddutytype.DetectorStatusEnabled {
			status.Enabled = true
			break
		}
	}
	return status, nil
}
