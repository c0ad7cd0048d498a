package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/startup-factory/unitalk/pkg/mediaflow"
	"github.com/startup-factory/unitalk/pkg/mediaflow/queue/kafka"
	repomem "github.com/startup-factory/unitalk/pkg/mediaflow/repo/memory"
	repopg "github.com/startup-factory/unitalk/pkg/mediaflow/repo/postgres"
	storagemem "github.com/startup-factory/unitalk/pkg/mediaflow/storage/memory"
	storages3 "github.com/startup-factory/unitalk/pkg/mediaflow/storage/s3"
	"github.com/startup-factory/unitalk/pkg/mediaflow/transcode/elastic"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		StorageType:  "memory",
	}
}

// ServerConfig represents server configuration for the media workflow service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use

	// Blob storage configuration
	StorageType     string // "memory", "s3"
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UploadBucket    string
	PublicBucket    string
	ThumbnailBucket string
	Endpoint        string // public endpoint assets are served from
	S3Endpoint      string // optional custom endpoint for S3-compatible services
	UsePathStyle    bool
	PresignDuration int

	// Transcoding pipeline
	PipelineID     string
	PresetID       string
	PortraitPreset string
	AudioPresetID  string

	// Background job queue; transcript jobs are skipped when unset
	KafkaBrokers string // comma separated
	KafkaTopic   string

	// Auth
	JWTSecret string
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.StorageType != "memory" && c.StorageType != "s3" {
		return errors.New("storage_type must be 'memory' or 's3'")
	}

	if c.StorageType == "s3" && c.UploadBucket == "" {
		return errors.New("upload_bucket is required when using s3")
	}

	return nil
}

// HasTranscoder reports whether a transcoding pipeline is configured
func (c *ServerConfig) HasTranscoder() bool {
	return c.PipelineID != ""
}

// HasQueue reports whether a background job queue is configured
func (c *ServerConfig) HasQueue() bool {
	return c.KafkaBrokers != "" && c.KafkaTopic != ""
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService() (mediaflow.Service, error) {
	var options []mediaflow.Option

	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	options = append(options, mediaflow.WithRepository(repo))

	signer, err := c.buildSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to build upload signer: %w", err)
	}
	options = append(options, mediaflow.WithBlobSigner(signer))

	options = append(options, mediaflow.WithBuckets(mediaflow.BucketConfig{
		UploadBucket:    c.UploadBucket,
		PublicBucket:    c.PublicBucket,
		ThumbnailBucket: c.ThumbnailBucket,
		Endpoint:        c.Endpoint,
	}))

	if c.HasTranscoder() {
		transcoder, err := elastic.New(elastic.Config{
			Region:          c.Region,
			AccessKeyID:     c.AccessKeyID,
			SecretAccessKey: c.SecretAccessKey,
			PipelineID:      c.PipelineID,
			PresetID:        c.PresetID,
			PortraitPreset:  c.PortraitPreset,
			AudioPresetID:   c.AudioPresetID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build transcoder: %w", err)
		}
		options = append(options, mediaflow.WithTranscoder(transcoder))
	}

	if c.HasQueue() {
		queue, err := kafka.New(kafka.Config{
			Brokers: strings.Split(c.KafkaBrokers, ","),
			Topic:   c.KafkaTopic,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build job queue: %w", err)
		}
		options = append(options, mediaflow.WithAttachHook(mediaflow.TranscriptHook(queue)))
	}

	return mediaflow.New(options...)
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository() (mediaflow.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return repomem.New(), nil
	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		if schema != "" {
			cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
				_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
				return err
			}
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// buildSigner creates a BlobSigner based on the configuration
func (c *ServerConfig) buildSigner() (mediaflow.BlobSigner, error) {
	switch c.StorageType {
	case "memory":
		return storagemem.New(), nil
	case "s3":
		return storages3.New(storages3.Config{
			Region:          c.Region,
			Bucket:          c.UploadBucket,
			AccessKeyID:     c.AccessKeyID,
			SecretAccessKey: c.SecretAccessKey,
			Endpoint:        c.S3Endpoint,
			UsePathStyle:    c.UsePathStyle,
			PresignDuration: c.PresignDuration,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}
}

// PingPostgres verifies connectivity to Postgres and optionally sets
// search_path for the session. It fails if the schema (when provided) does
// not exist.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
