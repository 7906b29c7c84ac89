// Command cisaudit-lambda runs the full CIS audit on a schedule and stores
// the JSON report in S3.
//
// Environment:
//
//	REPORT_BUCKET   destination bucket (required)
//	REPORT_PREFIX   key prefix, default "cisaudit"
//	POLICY_PATH     optional rule policy file, validated at start-up
//	CISAUDIT_*      application config overrides (log level, regions, ...)
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/config"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/engine"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/logging"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/output"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/policy"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/common"
	awssecurity "github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/security"
	cispack "github.com/pankaj-dahiya-devops/cisaudit/internal/rulepacks/cis"
)

const defaultPrefix = "cisaudit"

var errNoBucket = errors.New("REPORT_BUCKET is not set")

// putObjectAPI is the S3 call used to store the report.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// auditHandler holds what one invocation needs. Fields are swapped in tests.
type auditHandler struct {
	cfg      *config.Config
	logger   zerolog.Logger
	engine   engine.Engine
	uploader putObjectAPI
	bucket   string
	prefix   string
}

func (h *auditHandler) handle(ctx context.Context, event events.CloudWatchEvent) error {
	ctx = h.logger.WithContext(ctx)
	log := zerolog.Ctx(ctx)
	log.Debug().Str("event_id", event.ID).Str("source", event.Source).Msg("scheduled audit triggered")

	if h.bucket == "" {
		return errNoBucket
	}

	report, err := h.engine.RunAudit(ctx, engine.AuditOptions{
		HomeRegion:        h.cfg.AWS.DefaultRegion,
		Regions:           h.cfg.AWS.Regions,
		ReportFormat:      engine.ReportFormatJSON,
		BucketConcurrency: h.cfg.Audit.BucketConcurrency,
	})
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	var body bytes.Buffer
	if err := output.WriteJSON(&body, report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	key := reportKey(h.prefix, report)
	_, err = h.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload report to s3://%s/%s: %w", h.bucket, key, err)
	}

	log.Info().
		Str("account", report.AccountID).
		Int("findings", report.Summary.TotalFindings).
		Int("failed_controls", len(report.Summary.FailedControls)).
		Str("location", "s3://"+h.bucket+"/"+key).
		Msg("audit report stored")
	return nil
}

// reportKey is <prefix>/<account>/<timestamp>.json.
func reportKey(prefix string, report *models.AuditReport) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = defaultPrefix
	}
	account := report.AccountID
	if account == "" {
		account = "unknown"
	}
	return path.Join(prefix, account, report.GeneratedAt.UTC().Format("20060102T150405Z")+".json")
}

// buildHandler wires the handler from cfg and the environment. The policy is
// validated here so a bad POLICY_PATH fails the cold start, not every run.
func buildHandler(cfg *config.Config, getenv func(string) string, store putObjectAPI) (*auditHandler, error) {
	pol, err := policy.LoadValidated(getenv("POLICY_PATH"), cispack.RuleIDs())
	if err != nil {
		return nil, err
	}

	prefix := getenv("REPORT_PREFIX")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &auditHandler{
		cfg:    cfg,
		logger: logging.New(os.Stderr, cfg.Log.Level, "json"),
		engine: engine.NewCISEngine(
			common.NewDefaultAWSClientProvider(),
			awssecurity.NewDefaultSecurityCollector(),
			cispack.Registry(),
			pol,
		),
		uploader: store,
		bucket:   getenv("REPORT_BUCKET"),
		prefix:   prefix,
	}, nil
}

func newHandler(ctx context.Context) (*auditHandler, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	// The function's own role and AWS_REGION; no STS call is needed here.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return buildHandler(cfg, os.Getenv, s3.NewFromConfig(awsCfg))
}

func main() {
	h, err := newHandler(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(1)
	}
	h.logger.Info().Time("start", time.Now().UTC()).Msg("cisaudit lambda initialised")
	lambda.Start(h.handle)
}
