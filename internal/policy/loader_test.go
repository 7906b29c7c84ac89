package policy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cisaudit.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPolicy_Success(t *testing.T) {
	path := writePolicy(t, `
version: 1
domains:
  s3:
    enabled: true
    min_severity: MEDIUM
rules:
  IAM_PASSWORD_MIN_LENGTH:
    severity: HIGH
    params:
      min_length: 16
  S3_VERSIONING_DISABLED:
    enabled: false
enforcement:
  all:
    fail_on_severity: CRITICAL
`)

	cfg, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.Domains["s3"].Enabled || cfg.Domains["s3"].MinSeverity != "MEDIUM" {
		t.Fatalf("unexpected s3 domain config: %+v", cfg.Domains["s3"])
	}

	rc := cfg.Rules["IAM_PASSWORD_MIN_LENGTH"]
	if rc.Severity != "HIGH" || rc.Params["min_length"] != 16 {
		t.Fatalf("unexpected rule config: %+v", rc)
	}

	vc := cfg.Rules["S3_VERSIONING_DISABLED"]
	if vc.Enabled == nil || *vc.Enabled {
		t.Fatalf("expected S3_VERSIONING_DISABLED enabled=false")
	}

	if cfg.Enforcement[EnforcementAll].FailOnSeverity != "CRITICAL" {
		t.Fatalf("expected enforcement.all CRITICAL")
	}
}

func TestLoadPolicy_InvalidVersion(t *testing.T) {
	path := writePolicy(t, "version: 2\n")

	_, err := LoadPolicy(path)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestLoadPolicy_EmptyMapsInitialised(t *testing.T) {
	path := writePolicy(t, "version: 1\n")

	cfg, err := LoadPolicy(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Domains == nil || cfg.Rules == nil || cfg.Enforcement == nil {
		t.Fatal("expected non-nil maps")
	}
}

func TestLoadPolicy_MalformedYAML(t *testing.T) {
	path := writePolicy(t, "version: [1\n")
	if _, err := LoadPolicy(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOptional_Missing(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil || cfg != nil {
		t.Fatalf("expected nil, nil; got %v, %v", cfg, err)
	}

	cfg, err = LoadOptional("")
	if err != nil || cfg != nil {
		t.Fatalf("empty path: expected nil, nil; got %v, %v", cfg, err)
	}
}

// ── LoadValidated ─────────────────────────────────────────────────────────────

func TestLoadValidated(t *testing.T) {
	ids := []string{"IAM_PASSWORD_MIN_LENGTH"}

	cfg, err := LoadValidated(filepath.Join(t.TempDir(), "missing.yaml"), ids)
	if err != nil || cfg != nil {
		t.Fatalf("missing file: want nil, nil; got %v, %v", cfg, err)
	}

	good := writePolicy(t, "version: 1\nrules:\n  IAM_PASSWORD_MIN_LENGTH:\n    severity: HIGH\n")
	if cfg, err := LoadValidated(good, ids); err != nil || cfg == nil {
		t.Fatalf("valid policy: got %v, %v", cfg, err)
	}

	bad := writePolicy(t, "version: 1\nrules:\n  NO_SUCH_RULE:\n    enabled: false\n")
	if _, err := LoadValidated(bad, ids); err == nil || !strings.Contains(err.Error(), "NO_SUCH_RULE") {
		t.Fatalf("unknown rule: want error naming NO_SUCH_RULE, got %v", err)
	}
}
