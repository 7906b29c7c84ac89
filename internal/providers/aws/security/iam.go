package awssecurity

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

// collectPasswordPolicy reads the account password policy. NoSuchEntity means
// the account has none: the result is available but not present.
func collectPasswordPolicy(ctx context.Context, client iamAPIClient) (models.AWSPasswordPolicy, error) {
	out, err := client.GetAccountPasswordPolicy(ctx, &iamsvc.GetAccountPasswordPolicyInput{})
	if err != nil {
		var nse *iamtypes.NoSuchEntityException
		if errors.As(err, &nse) {
			return models.AWSPasswordPolicy{DataAvailable: true}, nil
		}
		return models.AWSPasswordPolicy{}, fmt.Errorf("get account password policy: %w", err)
	}
	pp := out.PasswordPolicy
	if pp == nil {
		return models.AWSPasswordPolicy{DataAvailable: true}, nil
	}
	return models.AWSPasswordPolicy{
		DataAvailable:           true,
		Present:                 true,
		MinimumPasswordLength:   int(aws.ToInt32(pp.MinimumPasswordLength)),
		PasswordReusePrevention: int(aws.ToInt32(pp.PasswordReusePrevention)),
		RequireSymbols:          pp.RequireSymbols,
		RequireNumbers:          pp.RequireNumbers,
		RequireUppercase:        pp.RequireUppercaseCharacters,
		RequireLowercase:        pp.RequireLowercaseCharacters,
		MaxPasswordAge:          int(aws.ToInt32(pp.MaxPasswordAge)),
	}, nil
}

// collectRootAccountInfo reads the IAM account summary.
// AccountAccessKeysPresent is the number of root access keys and
// AccountMFAEnabled is 1 when root has an MFA device.
func collectRootAccountInfo(ctx context.Context, client iamAPIClient) (models.AWSRootAccountInfo, error) {
	out, err := client.GetAccountSummary(ctx, &iamsvc.GetAccountSummaryInput{})
	if err != nil {
		return models.AWSRootAccountInfo{}, fmt.Errorf("get IAM account summary: %w", err)
	}
	return models.AWSRootAccountInfo{
		HasAccessKeys: out.SummaryMap["AccountAccessKeysPresent"] > 0,
		MFAEnabled:    out.SummaryMap["AccountMFAEnabled"] > 0,
		DataAvailable: true,
	}, nil
}

// collectIAMUsers returns all IAM users with their MFA and console-login
// state. The ListUsers paginator handles accounts with many users. Per-user
// reads that fail are returned as readFailures keyed by user name.
func collectIAMUsers(ctx context.Context, client iamAPIClient) ([]models.AWSIAMUser, []readFailure, error) {
	paginator := iamsvc.NewListUsersPaginator(client, &iamsvc.ListUsersInput{})
	var (
		users  []models.AWSIAMUser
		failed []readFailure
	)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return users, failed, fmt.Errorf("list IAM users: %w", err)
		}
		for _, u := range page.Users {
			user := models.AWSIAMUser{UserName: aws.ToString(u.UserName)}

			mfa, err := userHasMFA(ctx, client, user.UserName)
			if err != nil {
				failed = append(failed, readFailure{resource: user.UserName, what: "MFA devices", err: err})
			} else {
				user.MFAAvailable = true
				user.MFAEnabled = mfa
			}

			console, err := userHasLoginProfile(ctx, client, user.UserName)
			if err != nil {
				failed = append(failed, readFailure{resource: user.UserName, what: "login profile", err: err})
			}
			user.HasLoginProfile = console
			users = append(users, user)
		}
	}
	return users, failed, nil
}

// userHasMFA reports whether the user has at least one MFA device.
func userHasMFA(ctx context.Context, client iamAPIClient, userName string) (bool, error) {
	out, err := client.ListMFADevices(ctx, &iamsvc.ListMFADevicesInput{
		UserName: aws.String(userName),
	})
	if err != nil {
		return false, fmt.Errorf("list MFA devices for %s: %w", userName, err)
	}
	return len(out.MFADevices) > 0, nil
}

// userHasLoginProfile reports whether the user has a console password.
// NoSuchEntity means API-only. On any other error the user is reported as
// having no console access so it is not flagged on a guess.
func userHasLoginProfile(ctx context.Context, client iamAPIClient, userName string) (bool, error) {
	_, err := client.GetLoginProfile(ctx, &iamsvc.GetLoginProfileInput{
		UserName: aws.String(userName),
	})
	if err == nil {
		return true, nil
	}
	var nse *iamtypes.NoSuchEntityException
	if errors.As(err, &nse) {
		return false, nil
	}
	return false, fmt.Errorf("get login profile for %s: %w", userName, err)
}
