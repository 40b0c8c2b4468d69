package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by storage.driver.
const (
	StorageDriverCloudinary = "cloudinary"
	StorageDriverGCS        = "gcs"
	StorageDriverLocal      = "local"
)

// ResourceActivity holds the signed score deltas for resource actions.
type ResourceActivity struct {
	Add       int
	Delete    int
	Like      int
	Unlike    int
	Dislike   int
	Undislike int
	View      int
}

// InteractionActivity holds the signed score deltas for comment actions.
type InteractionActivity struct {
	Add       int
	Update    int
	Delete    int
	Like      int
	Unlike    int
	Dislike   int
	Undislike int
	Rate      int
}

// ActivityConfig groups the per-target activity tables.
type ActivityConfig struct {
	Resource    ResourceActivity
	Interaction InteractionActivity
}

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	EventSubjectPrefix     string
	JWTSecret              string
	StorageDriver          string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	GCSBucket              string
	GCSCredentialsFile     string
	LocalStorageRoot       string
	UploadMaxSizeMB        int
	UploadRateLimit        int
	UploadRateWindow       time.Duration
	CORSAllowOrigins       string
	EngagementCacheTTL     time.Duration
	Activity               ActivityConfig
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("OPENCOURSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "OpenCourse API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.subject_prefix", "opencourse.activity")
	v.SetDefault("storage.driver", StorageDriverCloudinary)
	v.SetDefault("cloudinary.folder", "opencourse")
	v.SetDefault("local.root", "./data/blobs")
	v.SetDefault("upload.max_size_mb", 50)
	v.SetDefault("upload.rate_limit", 5)
	v.SetDefault("upload.rate_window", "1m")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("engagement.cache_ttl", "10m")

	v.SetDefault("activity.resource.add", 10)
	v.SetDefault("activity.resource.delete", -5)
	v.SetDefault("activity.resource.like", 2)
	v.SetDefault("activity.resource.unlike", -1)
	v.SetDefault("activity.resource.dislike", -1)
	v.SetDefault("activity.resource.undislike", 1)
	v.SetDefault("activity.resource.view", 0)

	v.SetDefault("activity.interaction.add", 10)
	v.SetDefault("activity.interaction.update", 0)
	v.SetDefault("activity.interaction.delete", -5)
	v.SetDefault("activity.interaction.like", 2)
	v.SetDefault("activity.interaction.unlike", -1)
	v.SetDefault("activity.interaction.dislike", -1)
	v.SetDefault("activity.interaction.undislike", 1)
	v.SetDefault("activity.interaction.rate", 1)
}

func fromViper(v *viper.Viper) (Config, error) {
	ttlString := v.GetString("engagement.cache_ttl")
	if ttlString == "" {
		ttlString = "10m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid engagement cache ttl: %w", err)
	}

	window, err := time.ParseDuration(v.GetString("upload.rate_window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid upload rate window: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		EventSubjectPrefix:     v.GetString("events.subject_prefix"),
		JWTSecret:              v.GetString("jwt.secret"),
		StorageDriver:          strings.ToLower(strings.TrimSpace(v.GetString("storage.driver"))),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		GCSBucket:              v.GetString("gcs.bucket"),
		GCSCredentialsFile:     v.GetString("gcs.credentials_file"),
		LocalStorageRoot:       v.GetString("local.root"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		UploadRateLimit:        v.GetInt("upload.rate_limit"),
		UploadRateWindow:       window,
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
		EngagementCacheTTL:     ttl,
		Activity: ActivityConfig{
			Resource: ResourceActivity{
				Add:       v.GetInt("activity.resource.add"),
				Delete:    v.GetInt("activity.resource.delete"),
				Like:      v.GetInt("activity.resource.like"),
				Unlike:    v.GetInt("activity.resource.unlike"),
				Dislike:   v.GetInt("activity.resource.dislike"),
				Undislike: v.GetInt("activity.resource.undislike"),
				View:      v.GetInt("activity.resource.view"),
			},
			Interaction: InteractionActivity{
				Add:       v.GetInt("activity.interaction.add"),
				Update:    v.GetInt("activity.interaction.update"),
				Delete:    v.GetInt("activity.interaction.delete"),
				Like:      v.GetInt("activity.interaction.like"),
				Unlike:    v.GetInt("activity.interaction.unlike"),
				Dislike:   v.GetInt("activity.interaction.dislike"),
				Undislike: v.GetInt("activity.interaction.undislike"),
				Rate:      v.GetInt("activity.interaction.rate"),
			},
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.StorageDriver {
	case StorageDriverCloudinary, StorageDriverGCS, StorageDriverLocal:
	default:
		return Config{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 50
	}

	return cfg, nil
}
