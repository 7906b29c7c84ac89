package awssecurity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	kmssvc "github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// collectKMSKeys returns the enabled, customer-managed, symmetric keys of the
// region with their rotation state. AWS-managed keys rotate on their own and
// asymmetric keys cannot rotate, so both are skipped. Keys whose metadata or
// rotation status cannot be read are left out and returned as readFailures
// keyed "keyID (region)".
func collectKMSKeys(ctx context.Context, client kmsAPIClient, region string) ([]models.AWSKMSKey, []readFailure, error) {
	paginator := kmssvc.NewListKeysPaginator(client, &kmssvc.ListKeysInput{})

	var (
		keys   []models.AWSKMSKey
		failed []readFailure
	)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return keys, failed, fmt.Errorf("list KMS keys in %s: %w", region, err)
		}
		for _, entry := range page.Keys {
			keyID := aws.ToString(entry.KeyId)
			resource := keyID + " (" + region + ")"
			desc, err := client.DescribeKey(ctx, &kmssvc.DescribeKeyInput{KeyId: entry.KeyId})
			if err != nil {
				failed = append(failed, readFailure{resource: resource, what: "KMS key metadata", err: err})
				continue
			}
			md := desc.KeyMetadata
			if md == nil ||
				md.KeyManager != kmstypes.KeyManagerTypeCustomer ||
				md.KeySpec != kmstypes.KeySpecSymmetricDefault ||
				md.KeyState != kmstypes.KeyStateEnabled {
				continue
			}
			rot, err := client.GetKeyRotationStatus(ctx, &kmssvc.GetKeyRotationStatusInput{KeyId: entry.KeyId})
			if err != nil {
				failed = append(failed, readFailure{resource: resource, what: "KMS key rotation status", err: err})
				continue
			}
			keys = append(keys, models.AWSKMSKey{
				KeyID:           keyID,
				ARN:             aws.ToString(entry.KeyArn),
				Region:          region,
				RotationEnabled: rot.KeyRotationEnabled,
			})
		}
	}
	return keys, failed, nil
}
