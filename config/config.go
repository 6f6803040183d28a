package config

import (
	"log"
	"os"
)

// Config holds all client configuration
type Config struct {
	Firebase FirebaseConfig
	Cache    CacheConfig
	Sync     SyncConfig
	Logging  LoggingConfig
}

type FirebaseConfig struct {
	ProjectID       string
	APIKey          string
	CredentialsPath string
	StorageBucket   string
}

type CacheConfig struct {
	Path string
}

// SyncConfig carries the credentials the headless client signs in with.
type SyncConfig struct {
	Email    string
	Password string
}

type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", "odyssea-app"),
			APIKey:          getEnv("FIREBASE_API_KEY", ""),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./serviceAccountKey.json"),
			StorageBucket:   getEnv("STORAGE_BUCKET", "odyssea-app.firebasestorage.app"),
		},
		Cache: CacheConfig{
			Path: getEnv("CACHE_PATH", "./odyssea-cache.db"),
		},
		Sync: SyncConfig{
			Email:    getEnv("SYNC_EMAIL", ""),
			Password: getEnv("SYNC_PASSWORD", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) Validate() {
	if c.Firebase.ProjectID == "" {
		log.Fatal("FIREBASE_PROJECT_ID must be set")
	}
	if c.Firebase.APIKey == "" {
		log.Fatal("FIREBASE_API_KEY must be set")
	}
	if _, err := os.Stat(c.Firebase.CredentialsPath); os.IsNotExist(err) {
		log.Fatalf("Firebase credentials file not found: %s", c.Firebase.CredentialsPath)
	}
}
