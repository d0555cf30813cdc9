// Package runner wires configuration into live clients and executes one
// ingestion task end to end.
package runner

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/pkg/errors"

	"github.com/lakeroad/hubspot-ingest/internal/cli/config"
	"github.com/lakeroad/hubspot-ingest/internal/hubspot"
	"github.com/lakeroad/hubspot-ingest/internal/ingest"
	"github.com/lakeroad/hubspot-ingest/internal/storage"
	"github.com/lakeroad/hubspot-ingest/internal/syncstate"
)

type Options struct {
	Task    string
	Verbose bool
}

type Runner struct {
	opts Options
	cfg  *config.Config
}

func New(opts Options, cfg *config.Config) *Runner {
	return &Runner{opts: opts, cfg: cfg}
}

// Run executes the configured task and returns the number of rows written.
func (r *Runner) Run(ctx context.Context) (int, error) {
	cfg := r.cfg

	startDate, err := cfg.ParsedStartDate()
	if err != nil {
		return 0, err
	}

	// One shared AWS config, loaded lazily so FS-only local runs with a
	// static token never touch the credential chain.
	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return aws.Config{}, errors.Wrap(err, "loading AWS config")
		}
		awsCfg = &loaded
		return loaded, nil
	}

	var secrets hubspot.SecretsAPI
	if cfg.Token == "" && cfg.SecretARN != "" {
		ac, err := loadAWS()
		if err != nil {
			return 0, err
		}
		secrets = secretsmanager.NewFromConfig(ac)
	}
	tokens := hubspot.NewTokenProvider(hubspot.TokenProviderConfig{
		StaticToken: cfg.Token,
		SecretARN:   cfg.SecretARN,
		TTL:         time.Duration(cfg.TokenTTLMinutes) * time.Minute,
	}, secrets)

	client := hubspot.NewClient(hubspot.ClientConfig{
		RateLimitPause: time.Duration(cfg.RateLimitPauseMS) * time.Millisecond,
		MaxRetries:     cfg.MaxRetries,
	}, tokens)

	var store syncstate.StateStore
	if cfg.SyncStateTable != "" {
		ac, err := loadAWS()
		if err != nil {
			return 0, err
		}
		store = syncstate.NewDynamoStore(dynamodb.NewFromConfig(ac), cfg.SyncStateTable)
	} else {
		log.Printf("Runner: no sync_state_table configured, using in-memory sync state")
		store = syncstate.NewMemoryStore()
	}

	var flag syncstate.FlagSource
	if cfg.IncrementalParameter != "" {
		ac, err := loadAWS()
		if err != nil {
			return 0, err
		}
		flag = syncstate.NewSSMFlag(ssm.NewFromConfig(ac), cfg.IncrementalParameter)
	} else {
		log.Printf("Runner: no incremental_parameter configured, full sync every run")
		flag = syncstate.StaticFlag(false)
	}

	sync := syncstate.NewManager(store, flag, cfg.Buffer())

	storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
		StorageType: cfg.StorageType,
		BucketName:  cfg.BucketName,
		LocalPath:   cfg.LocalPath,
		Region:      cfg.Region,
	})
	if err != nil {
		return 0, err
	}
	defer storageClient.Close()

	deps := ingest.Deps{
		Client:        client,
		Sync:          sync,
		Storage:       storageClient,
		CuratedRoot:   cfg.CuratedPrefix,
		DimRoot:       cfg.DimPrefix,
		Compression:   storage.CompressionCodec(cfg.Compression),
		StartDate:     startDate,
		ActivityPause: time.Duration(cfg.ActivityPauseMS) * time.Millisecond,
	}

	return ingest.Run(ctx, r.opts.Task, deps)
}
