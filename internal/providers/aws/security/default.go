package awssecurity

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/providers/aws/common"
)

// regionConcurrency bounds the number of regions collected in parallel.
const regionConcurrency = 4

// DefaultSecurityCollector is the production SecurityCollector.
// Global services (IAM, S3 listing, CloudTrail) are read from the profile's
// home region; everything else is read per audited region and merged.
type DefaultSecurityCollector struct {
	factory secClientFactory
}

// NewDefaultSecurityCollector returns a DefaultSecurityCollector wired to
// production AWS SDK clients.
func NewDefaultSecurityCollector() *DefaultSecurityCollector {
	return &DefaultSecurityCollector{factory: newDefaultSecClients}
}

// NewDefaultSecurityCollectorWithFactory returns a DefaultSecurityCollector
// that uses the supplied factory, allowing tests to inject fake clients.
func NewDefaultSecurityCollectorWithFactory(f secClientFactory) *DefaultSecurityCollector {
	return &DefaultSecurityCollector{factory: f}
}

// clientCache builds at most one secClients per region.
type clientCache struct {
	mu       sync.Mutex
	factory  secClientFactory
	profile  *common.ProfileConfig
	provider common.AWSClientProvider
	byRegion map[string]*secClients
}

func (c *clientCache) get(region string) *secClients {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.byRegion[region]; ok {
		return cl
	}
	var cfg aws.Config
	if c.provider != nil {
		cfg = c.provider.ConfigForRegion(c.profile, region)
	} else {
		cfg = c.profile.Config
		cfg.Region = region
	}
	cl := c.factory(cfg)
	c.byRegion[region] = cl
	return cl
}

// exceptionLog collects failed reads from concurrent region workers.
type exceptionLog struct {
	mu   sync.Mutex
	list []models.AWSCollectionException
}

func (l *exceptionLog) add(log zerolog.Logger, resource, what string, err error) {
	log.Warn().Err(err).Str("resource", resource).Str("code", errorCode(err)).Msg(what + " unavailable")
	l.mu.Lock()
	l.list = append(l.list, models.AWSCollectionException{
		Resource: resource,
		Message:  what + " unavailable: " + err.Error(),
	})
	l.mu.Unlock()
}

// readFailure is one setting of one resource that could not be read. Nested
// collectors return these instead of failing so CollectAll can record them.
type readFailure struct {
	resource string
	what     string
	err      error
}

func (l *exceptionLog) addAll(log zerolog.Logger, failures []readFailure) {
	for _, f := range failures {
		l.add(log, f.resource, f.what, f.err)
	}
}

// CollectAll gathers the posture snapshot for the given profile. Sections not
// selected in opts are not queried and stay at their zero value.
func (c *DefaultSecurityCollector) CollectAll(
	ctx context.Context,
	profile *common.ProfileConfig,
	provider common.AWSClientProvider,
	opts CollectOptions,
) (*models.AWSAccountData, error) {
	log := zerolog.Ctx(ctx).With().
		Str("profile", profile.ProfileName).
		Str("account", profile.AccountID).
		Logger()
	ctx = log.WithContext(ctx)

	home := profile.Region
	if home == "" {
		home = common.DefaultRegion
	}
	regions := opts.Regions
	if len(regions) == 0 {
		regions = []string{home}
	}

	cache := &clientCache{
		factory:  c.factory,
		profile:  profile,
		provider: provider,
		byRegion: make(map[string]*secClients),
	}
	global := cache.get(home)

	data := &models.AWSAccountData{AccountID: profile.AccountID}
	exc := &exceptionLog{}
	account := profile.AccountID

	if opts.wants(controls.SectionIAM) {
		var err error
		if data.PasswordPolicy, err = collectPasswordPolicy(ctx, global.IAM); err != nil {
			exc.add(log, account, "password policy", err)
		}
		if data.Root, err = collectRootAccountInfo(ctx, global.IAM); err != nil {
			exc.add(log, account, "root account summary", err)
		}
		users, failed, err := collectIAMUsers(ctx, global.IAM)
		if err != nil {
			exc.add(log, account, "IAM users", err)
		}
		data.IAMUsers = users
		exc.addAll(log, failed)
	}

	s3For := func(region string) s3APIClient { return cache.get(region).S3 }

	if opts.wants(controls.SectionS3) {
		buckets, failed, err := collectS3Buckets(ctx, global.S3, s3For, profile.AccountID, opts.bucketConcurrency())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			exc.add(log, account, "S3 buckets", err)
		}
		data.Buckets = buckets
		exc.addAll(log, failed)
	}

	// Trails are global: one DescribeTrails in the home region, shadow
	// trails included, sees every trail whatever regions are audited.
	if opts.wants(controls.SectionLogging) {
		trailFor := func(region string) cloudTrailAPIClient { return cache.get(region).CloudTrail }
		trails, failed, err := collectTrails(ctx, global.CloudTrail, trailFor, home)
		if err != nil {
			exc.add(log, account, "CloudTrail trails", err)
		} else {
			data.CloudTrail = models.AWSCloudTrailStatus{DataAvailable: true, Trails: trails}
		}
		exc.addAll(log, failed)
		exc.addAll(log, enrichTrailBuckets(ctx, data.CloudTrail.Trails, global.S3, s3For))
	}

	regional := make([]models.AWSRegionData, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(regionConcurrency)
	for i, region := range regions {
		g.Go(func() error {
			rlog := log.With().Str("region", region).Logger()
			rctx := rlog.WithContext(gctx)
			cl := cache.get(region)

			rd := models.AWSRegionData{Region: region}
			res := regionResource(account, region)
			if opts.wants(controls.SectionEC2) {
				enabled, err := collectEBSEncryptionByDefault(rctx, cl.EC2)
				if err != nil {
					exc.add(rlog, res, "EBS default encryption", err)
				} else {
					rd.EBSEncryptionByDefault = &enabled
				}
			}
			if opts.wants(controls.SectionRDS) {
				dbs, err := collectRDSInstances(rctx, cl.RDS, region)
				if err != nil {
					exc.add(rlog, res, "RDS instances", err)
				}
				rd.RDSInstances = dbs
			}
			if opts.wants(controls.SectionLogging) {
				var err error
				if rd.Config, err = collectConfigStatus(rctx, cl.Config, region); err != nil {
					exc.add(rlog, res, "AWS Config status", err)
				}
				keys, failed, err := collectKMSKeys(rctx, cl.KMS, region)
				if err != nil {
					exc.add(rlog, res, "KMS keys", err)
				}
				rd.KMSKeys = keys
				exc.addAll(rlog, failed)
			}
			if opts.wants(controls.SectionMonitoring) {
				var err error
				if rd.GuardDuty, err = collectGuardDutyStatus(rctx, cl.GuardDuty, region); err != nil {
					exc.add(rlog, res, "GuardDuty status", err)
				}
			}
			regional[i] = rd
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	data.Regions = regional
	data.Exceptions = exc.list

	log.Debug().
		Int("exceptions", len(data.Exceptions)).
		Int("buckets", len(data.Buckets)).
		Int("users", len(data.IAMUsers)).
		Int("trails", len(data.CloudTrail.Trails)).
		Int("regions", len(data.Regions)).
		Msg("collection complete")
	return data, nil
}

// regionResource is the ledger key for a failed regional read.
func regionResource(account, region string) string {
	return account + " (" + region + ")"
}
