// Package config handles loading and validation of run configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	"multiship/internal/model"
)

// Config holds everything a run needs, validated once at startup.
// Steps never read the environment; they receive this value explicitly.
type Config struct {
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// Artifact output directory for response snapshots.
	ArtifactDir string

	// GCP settings (required in production)
	GCPProject string

	// Platform connection (loaded from secrets in production)
	Platform PlatformConfig
}

// PlatformConfig contains the commerce platform connection settings.
// In production this block is loaded from Secret Manager as JSON.
type PlatformConfig struct {
	AuthURL      string `json:"auth_url"`
	APIURL       string `json:"api_url"`
	ProjectKey   string `json:"project_key"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Scope        string `json:"scope,omitempty"` // defaults to manage_project:{project_key}
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Every required field missing is a fatal configuration error, reported
// before any network activity.
func Load(ctx context.Context) (*Config, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		ArtifactDir: envOrDefault("ARTIFACT_DIR", "artifacts"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
	}

	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, model.NewConfigError("GCP_PROJECT", "required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading platform config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Environment string         `json:"environment"`
		LogLevel    string         `json:"log_level"`
		ArtifactDir string         `json:"artifact_dir"`
		Platform    PlatformConfig `json:"platform"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Environment: withDefault(fileConfig.Environment, "development"),
		LogLevel:    withDefault(fileConfig.LogLevel, "info"),
		ArtifactDir: withDefault(fileConfig.ArtifactDir, "artifacts"),
		Platform:    fileConfig.Platform,
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromSecretManager fetches the platform block from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{project_key}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	projectKey := os.Getenv("CTP_PROJECT_KEY")
	if projectKey == "" {
		return model.NewConfigError("CTP_PROJECT_KEY", "required to address the platform secret")
	}

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, projectKey)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Platform); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	c.Platform.ProjectKey = projectKey

	return nil
}

// loadFromEnv reads the platform block from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() error {
	c.Platform = PlatformConfig{
		AuthURL:      os.Getenv("CTP_AUTH_URL"),
		APIURL:       os.Getenv("CTP_API_URL"),
		ProjectKey:   os.Getenv("CTP_PROJECT_KEY"),
		ClientID:     os.Getenv("CTP_CLIENT_ID"),
		ClientSecret: os.Getenv("CTP_CLIENT_SECRET"),
		Scope:        os.Getenv("CTP_SCOPE"),
	}
	return nil
}

// applyDefaults fills in values derivable from required fields.
func (c *Config) applyDefaults() {
	if c.Platform.Scope == "" && c.Platform.ProjectKey != "" {
		c.Platform.Scope = "manage_project:" + c.Platform.ProjectKey
	}
	c.Platform.AuthURL = strings.TrimSuffix(c.Platform.AuthURL, "/")
	c.Platform.APIURL = strings.TrimSuffix(c.Platform.APIURL, "/")
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	required := []struct {
		name, value string
	}{
		{"auth_url", c.Platform.AuthURL},
		{"api_url", c.Platform.APIURL},
		{"project_key", c.Platform.ProjectKey},
		{"client_id", c.Platform.ClientID},
		{"client_secret", c.Platform.ClientSecret},
	}
	for _, f := range required {
		if f.value == "" {
			return model.NewConfigError(f.name, "is required")
		}
	}

	for _, u := range []struct {
		name, value string
	}{
		{"auth_url", c.Platform.AuthURL},
		{"api_url", c.Platform.APIURL},
	} {
		parsed, err := url.Parse(u.value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return model.NewConfigError(u.name, fmt.Sprintf("invalid URL %q", u.value))
		}
	}

	return nil
}

// TokenURL returns the OAuth client-credentials token endpoint.
func (c *Config) TokenURL() string {
	return c.Platform.AuthURL + "/oauth/token"
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
