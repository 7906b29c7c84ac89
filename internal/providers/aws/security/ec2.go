package awssecurity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
)

// collectEBSEncryptionByDefault reads the regional EBS encryption-by-default
// account attribute.
func collectEBSEncryptionByDefault(ctx context.Context, client ec2SecurityAPIClient) (bool, error) {
	out, err := client.GetEbsEncryptionByDefault(ctx, &ec2svc.GetEbsEncryptionByDefaultInput{})
	if err != nil {
		return false, fmt.Errorf("get EBS encryption by default: %w", err)
	}
	return aws.ToBool(out.EbsEncryptionByDefault), nil
}
