package api

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the API server configuration. Values come from the same
// environment surface the pipeline functions use, so one deployment config
// covers both.
type Config struct {
	Port          string
	ProjectID     string
	IntakeBucket  string
	ResultsBucket string
	ArchiveBucket string
	Topic         string
}

// LoadConfig reads configuration from the environment with sensible defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("API_PORT", "8080")
	v.SetDefault("STORAGE_BUCKET_NAME", "document-processing")
	v.SetDefault("RESULT_BUCKET_NAME", "document-results")
	v.SetDefault("BACKUP_BUCKET_NAME", "document-backup")
	v.SetDefault("PUBSUB_TOPIC_NAME", "document-processing")

	config := &Config{
		Port:          v.GetString("API_PORT"),
		ProjectID:     v.GetString("GCP_PROJECT"),
		IntakeBucket:  v.GetString("STORAGE_BUCKET_NAME"),
		ResultsBucket: v.GetString("RESULT_BUCKET_NAME"),
		ArchiveBucket: v.GetString("BACKUP_BUCKET_NAME"),
		Topic:         v.GetString("PUBSUB_TOPIC_NAME"),
	}
	if config.ProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT environment variable must be set")
	}
	return config, nil
}
