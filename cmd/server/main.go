package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/startup-factory/unitalk/internal/api"
	"github.com/startup-factory/unitalk/pkg/mediaflow/config"
)

// EnvConfig is the environment-variable surface of the server
type EnvConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"`
	DBSchema     string `env:"DB_SCHEMA"`

	StorageType     string `env:"STORAGE_TYPE" env-default:"memory"`
	Region          string `env:"AWS_REGION" env-default:"us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	UploadBucket    string `env:"UPLOAD_BUCKET"`
	PublicBucket    string `env:"PUBLIC_BUCKET"`
	ThumbnailBucket string `env:"THUMBNAIL_BUCKET"`
	Endpoint        string `env:"MEDIA_ENDPOINT" env-default:"s3.amazonaws.com"`
	S3Endpoint      string `env:"AWS_S3_ENDPOINT"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	PresignDuration int    `env:"PRESIGN_DURATION" env-default:"3600"`

	PipelineID     string `env:"TRANSCODER_PIPELINE_ID"`
	PresetID       string `env:"TRANSCODER_PRESET_ID"`
	PortraitPreset string `env:"TRANSCODER_PORTRAIT_PRESET_ID"`
	AudioPresetID  string `env:"TRANSCODER_AUDIO_PRESET_ID"`

	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_JOBS_TOPIC" env-default:"background-jobs"`

	JWTSecret string `env:"JWT_SECRET" env-default:"dev-secret"`
}

func main() {
	var env EnvConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	serverConfig, err := config.Load(func(c *config.ServerConfig) error {
		c.Port = env.Port
		c.Environment = env.Environment
		c.DatabaseURL = env.DatabaseURL
		c.DatabaseType = env.DatabaseType
		c.DBSchema = env.DBSchema
		c.StorageType = env.StorageType
		c.Region = env.Region
		c.AccessKeyID = env.AccessKeyID
		c.SecretAccessKey = env.SecretAccessKey
		c.UploadBucket = env.UploadBucket
		c.PublicBucket = env.PublicBucket
		c.ThumbnailBucket = env.ThumbnailBucket
		c.Endpoint = env.Endpoint
		c.S3Endpoint = env.S3Endpoint
		c.UsePathStyle = env.UsePathStyle
		c.PresignDuration = env.PresignDuration
		c.PipelineID = env.PipelineID
		c.PresetID = env.PresetID
		c.PortraitPreset = env.PortraitPreset
		c.AudioPresetID = env.AudioPresetID
		c.KafkaBrokers = env.KafkaBrokers
		c.KafkaTopic = env.KafkaTopic
		c.JWTSecret = env.JWTSecret
		return nil
	})
	if err != nil {
		slog.Error("Failed to load server configuration", "err", err)
		os.Exit(1)
	}

	svc, err := serverConfig.BuildService()
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}

	tokenAuth := api.NewTokenAuth(serverConfig.JWTSecret)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status": "healthy", "environment": "%s"}`, serverConfig.Environment)
	})

	mediaHandler := api.NewMediaHandler(svc)
	collectionHandler := api.NewCollectionHandler(svc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Mount("/media", mediaHandler.Routes())
		})

		r.Mount("/collections", collectionHandler.Routes())
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverConfig.Port),
		Handler: r,
	}

	go func() {
		slog.Info("Media workflow server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"storage", serverConfig.StorageType,
			"transcoder", serverConfig.HasTranscoder(),
			"queue", serverConfig.HasQueue())

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "err", err)
		os.Exit(1)
	}

	slog.Info("Server exiting")
}
