package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mailbak/mailbak/internal/config"
	"github.com/mailbak/mailbak/internal/jmap"
	"github.com/mailbak/mailbak/internal/storage"
)

const httpTimeout = 2 * time.Minute

// app holds what every subcommand needs: the parsed configuration,
// the logger, and an opened backup store.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  storage.Store
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "fs":
		fs, err := storage.NewFSStore(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("opening backup directory: %w", err)
		}
		return storage.WithRetry(fs), nil
	case "s3":
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Storage.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Storage.Region))
		}
		if cfg.Storage.AccessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.Storage.AccessKey, cfg.Storage.SecretKey, "")))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Storage.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
				o.UsePathStyle = true
			}
		})
		return storage.WithRetry(storage.NewS3Store(client, cfg.Storage.Bucket, cfg.Storage.Prefix)), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// connect resolves the account secret and opens a JMAP session.
func (a *app) connect(ctx context.Context) (*jmap.Client, error) {
	ring, err := config.OpenRing()
	if err != nil {
		return nil, err
	}
	secret, err := a.cfg.Secret(ring, config.PromptSecret, a.logger)
	if err != nil {
		return nil, err
	}

	var auth string
	switch a.cfg.JMAP.AuthMode {
	case "bearer":
		auth = jmap.BearerAuth(secret)
	default:
		auth = jmap.BasicAuth(a.cfg.JMAP.Username, secret)
	}

	client := jmap.NewClient(a.cfg.JMAP.SessionURL, auth, &http.Client{Timeout: httpTimeout})
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", a.cfg.JMAP.SessionURL, err)
	}
	return client, nil
}

// indexPath is the bleve directory: configured explicitly, or derived
// from the fs backup root.
func (a *app) indexPath() string {
	if a.cfg.Search.Path != "" {
		return a.cfg.Search.Path
	}
	if a.cfg.Storage.Backend == "fs" {
		return a.cfg.Storage.Path + ".bleve"
	}
	return "mailbak.bleve"
}
