package awssecurity

import (
	"errors"

	"github.com/aws/smithy-go"
)

// errorCode returns the AWS API error code of err, or "" when err is not an
// API error.
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// isCode reports whether err is an API error with one of codes.
func isCode(err error, codes ...string) bool {
	code := errorCode(err)
	if code == "" {
		return false
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
