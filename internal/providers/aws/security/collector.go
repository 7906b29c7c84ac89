package awssecurity

import (
	"context"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/common"
)

// SecurityCollector collects raw CIS posture data from an AWS account.
//
// Implementations must never apply business logic or produce findings.
// Non-fatal collection failures must be logged and skipped so the rest of the
// audit can complete. Only context cancellation is returned as an error.
type SecurityCollector interface {
	CollectAll(
		ctx context.Context,
		profile *common.ProfileConfig,
		provider common.AWSClientProvider,
		opts CollectOptions,
	) (*models.AWSAccountData, error)
}
