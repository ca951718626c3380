package config

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENV" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`

	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`

	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"raw-videos"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	GCPProjectID         string `envconfig:"GCP_PROJECT_ID"`
	ConversionEventTopic string `envconfig:"CONVERSION_EVENT_TOPIC" default:"conversion-events"`
	PubSubEmulatorHost   string `envconfig:"PUBSUB_EMULATOR_HOST"`

	// Cleanup push endpoint verification (Cloud Scheduler -> Pub/Sub push).
	CleanupEndpointURL            string `envconfig:"CLEANUP_ENDPOINT_URL"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`

	FFmpegPath  string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath string `envconfig:"FFPROBE_PATH" default:"ffprobe"`

	ArtifactDir        string `envconfig:"ARTIFACT_DIR" default:"/tmp/vidiooh-artifacts"`
	ArtifactTTLMinutes int    `envconfig:"ARTIFACT_TTL_MINUTES" default:"120"`

	TranscodeSlots      int    `envconfig:"TRANSCODE_SLOTS" default:"1"`
	CleanupScheduleSpec string `envconfig:"CLEANUP_SCHEDULE" default:"0 * * * *"`
	RetentionHours      int    `envconfig:"RETENTION_HOURS" default:"2"`

	// Secret Manager references, resolved in production when set
	// (projects/<p>/secrets/<s>/versions/latest).
	JWTSecretRef   string `envconfig:"JWT_SECRET_REF"`
	S3SecretKeyRef string `envconfig:"S3_SECRET_KEY_REF"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveSecrets replaces secret values with their Secret Manager versions
// when references are configured. Development environments skip this and
// use the env values directly.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	if c.Environment == "development" || (c.JWTSecretRef == "" && c.S3SecretKeyRef == "") {
		return nil
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create secret manager client: %w", err)
	}
	defer client.Close()

	access := func(name string) (string, error) {
		resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
		if err != nil {
			return "", fmt.Errorf("access secret %s: %w", name, err)
		}
		return string(resp.Payload.Data), nil
	}

	if c.JWTSecretRef != "" {
		if c.JWTSecret, err = access(c.JWTSecretRef); err != nil {
			return err
		}
	}
	if c.S3SecretKeyRef != "" {
		if c.S3SecretKey, err = access(c.S3SecretKeyRef); err != nil {
			return err
		}
	}
	return nil
}
