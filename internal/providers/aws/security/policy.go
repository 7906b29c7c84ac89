package awssecurity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// bucketPolicyAnalysis is what the S3 controls need from a bucket policy.
type bucketPolicyAnalysis struct {
	// EnforcesSSL is true when a Deny statement matches requests whose
	// aws:SecureTransport is false.
	EnforcesSSL bool
	// AllowsAnonymous is true when an Allow statement names principal "*".
	// Conditions are not evaluated.
	AllowsAnonymous bool
}

type policyDocument struct {
	Statement statementList `json:"Statement"`
}

type policyStatement struct {
	Effect    string                                `json:"Effect"`
	Principal json.RawMessage                       `json:"Principal"`
	Condition map[string]map[string]json.RawMessage `json:"Condition"`
}

// statementList accepts both a single statement object and an array.
type statementList []policyStatement

func (s *statementList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var one policyStatement
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = statementList{one}
		return nil
	}
	var many []policyStatement
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// analyzeBucketPolicy parses a bucket policy document. Documents returned by
// GetBucketPolicy are plain JSON; URL-encoded documents are also accepted.
func analyzeBucketPolicy(doc string) (bucketPolicyAnalysis, error) {
	if strings.HasPrefix(doc, "%7B") {
		if decoded, err := url.QueryUnescape(doc); err == nil {
			doc = decoded
		}
	}
	var pd policyDocument
	if err := json.Unmarshal([]byte(doc), &pd); err != nil {
		return bucketPolicyAnalysis{}, fmt.Errorf("parse bucket policy: %w", err)
	}

	var a bucketPolicyAnalysis
	for _, st := range pd.Statement {
		switch {
		case strings.EqualFold(st.Effect, "Deny") && deniesInsecureTransport(st):
			a.EnforcesSSL = true
		case strings.EqualFold(st.Effect, "Allow") && isAnonymousPrincipal(st.Principal):
			a.AllowsAnonymous = true
		}
	}
	return a, nil
}

func deniesInsecureTransport(st policyStatement) bool {
	for op, kv := range st.Condition {
		if !strings.EqualFold(op, "Bool") {
			continue
		}
		for key, raw := range kv {
			if !strings.EqualFold(key, "aws:SecureTransport") {
				continue
			}
			for _, v := range stringValues(raw) {
				if strings.EqualFold(v, "false") {
					return true
				}
			}
		}
	}
	return false
}

// isAnonymousPrincipal reports whether principal is "*" or {"AWS": "*"}.
func isAnonymousPrincipal(raw json.RawMessage) bool {
	for _, v := range stringValues(raw) {
		if v == "*" {
			return true
		}
	}
	var byType map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byType); err != nil {
		return false
	}
	for _, v := range stringValues(byType["AWS"]) {
		if v == "*" {
			return true
		}
	}
	return false
}

// stringValues decodes a policy value that may be a string, a bool, or an
// array of either.
func stringValues(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return []string{fmt.Sprint(b)}
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			out = append(out, fmt.Sprint(v))
		}
		return out
	}
	return nil
}
