package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/config"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/engine"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

type fakeEngine struct {
	report *models.AuditReport
	err    error
	opts   engine.AuditOptions
}

func (f *fakeEngine) RunAudit(_ context.Context, opts engine.AuditOptions) (*models.AuditReport, error) {
	f.opts = opts
	return f.report, f.err
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func testHandler(eng *fakeEngine, store *fakeS3) *auditHandler {
	return &auditHandler{
		cfg: &config.Config{
			AWS:   config.AWSConfig{DefaultRegion: "eu-west-1", Regions: []string{"eu-west-1"}},
			Audit: config.AuditConfig{BucketConcurrency: 4},
		},
		logger:   zerolog.New(&bytes.Buffer{}),
		engine:   eng,
		uploader: store,
		bucket:   "audit-reports",
		prefix:   "cis/",
	}
}

func sampleReport() *models.AuditReport {
	return &models.AuditReport{
		ReportID:    "audit-1",
		AccountID:   "123456789012",
		GeneratedAt: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
		Summary:     models.AuditSummary{TotalFindings: 1},
		Issues:      map[string]map[string][]string{"123456789012": {"1.4": {"Root account has access keys"}}},
	}
}

func TestHandle_UploadsReport(t *testing.T) {
	eng := &fakeEngine{report: sampleReport()}
	store := &fakeS3{}
	h := testHandler(eng, store)

	require.NoError(t, h.handle(context.Background(), events.CloudWatchEvent{ID: "evt-1"}))

	require.NotNil(t, store.input)
	assert.Equal(t, "audit-reports", aws.ToString(store.input.Bucket))
	assert.Equal(t, "cis/123456789012/20240601T123000Z.json", aws.ToString(store.input.Key))
	assert.Equal(t, "application/json", aws.ToString(store.input.ContentType))

	var got models.AuditReport
	require.NoError(t, json.Unmarshal(store.body, &got))
	assert.Equal(t, "audit-1", got.ReportID)

	assert.Equal(t, "eu-west-1", eng.opts.HomeRegion)
	assert.Equal(t, []string{"eu-west-1"}, eng.opts.Regions)
	assert.Equal(t, 4, eng.opts.BucketConcurrency)
	assert.False(t, eng.opts.AllProfiles)
}

func TestHandle_Errors(t *testing.T) {
	t.Run("no bucket", func(t *testing.T) {
		h := testHandler(&fakeEngine{report: sampleReport()}, &fakeS3{})
		h.bucket = ""
		assert.ErrorIs(t, h.handle(context.Background(), events.CloudWatchEvent{}), errNoBucket)
	})
	t.Run("audit", func(t *testing.T) {
		store := &fakeS3{}
		h := testHandler(&fakeEngine{err: errors.New("boom")}, store)
		assert.ErrorContains(t, h.handle(context.Background(), events.CloudWatchEvent{}), "audit failed")
		assert.Nil(t, store.input)
	})
	t.Run("upload", func(t *testing.T) {
		h := testHandler(&fakeEngine{report: sampleReport()}, &fakeS3{err: errors.New("access denied")})
		assert.ErrorContains(t, h.handle(context.Background(), events.CloudWatchEvent{}), "s3://audit-reports/")
	})
}

func TestReportKey(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, "cisaudit/123456789012/20240601T123000Z.json", reportKey("", r))
	assert.Equal(t, "a/b/123456789012/20240601T123000Z.json", reportKey("/a/b/", r))
	r.AccountID = ""
	assert.Equal(t, "x/unknown/20240601T123000Z.json", reportKey("x", r))
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestBuildHandler(t *testing.T) {
	cfg := &config.Config{Log: config.LogConfig{Level: "info"}}
	store := &fakeS3{}

	h, err := buildHandler(cfg, envMap(map[string]string{"REPORT_BUCKET": "reports"}), store)
	require.NoError(t, err)
	assert.Equal(t, "reports", h.bucket)
	assert.Equal(t, defaultPrefix, h.prefix)
	assert.Same(t, store, h.uploader)

	t.Run("invalid policy fails start-up", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cisaudit.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 1\nrules:\n  NOT_A_RULE:\n    enabled: false\n"), 0o600))

		_, err := buildHandler(cfg, envMap(map[string]string{"POLICY_PATH": path}), store)
		assert.ErrorContains(t, err, "NOT_A_RULE")
	})

	t.Run("missing policy file is optional", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "none.yaml")
		_, err := buildHandler(cfg, envMap(map[string]string{"POLICY_PATH": missing}), store)
		assert.NoError(t, err)
	})
}
