package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Slack delivery modes.
const (
	// ModeSocket receives events over a Socket Mode WebSocket (requires an app-level token).
	ModeSocket = "socket"
	// ModeHTTP receives events on signed Events API / Interactivity webhooks.
	ModeHTTP = "http"
)

// Config holds all application configuration loaded from environment variables.
// It is built once at startup and passed by reference into constructors.
type Config struct {
	Slack    SlackConfig
	GitHub   GitHubConfig
	Workflow WorkflowConfig
	Server   ServerConfig
}

// SlackConfig holds Slack integration settings.
type SlackConfig struct {
	BotToken      string
	SigningSecret string //nolint:gosec // G117: Slack signing secret config
	AppToken      string
	Mode          string
	Debug         bool

	// NotifyChannelID receives advisory status lines.
	NotifyChannelID string
	// AuthorizedChannelID is the only channel the bot acts in.
	AuthorizedChannelID string
}

// GitHubConfig holds the remote workflow platform settings.
type GitHubConfig struct {
	Token        string //nolint:gosec // G117: GitHub token config
	Owner        string
	Repo         string
	BaseURL      string
	Timeout      time.Duration
	RunsPageSize int
}

// WorkflowConfig holds the fixed parameters of the branch lock workflow.
type WorkflowConfig struct {
	File        string
	Ref         string
	Branch      string
	SettleDelay time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	SlackRateLimit float64
	SlackBurst     int
}

// Load reads configuration from environment variables.
// Credentials have no defaults and must be set explicitly.
func Load() (*Config, error) {
	slackDebug, err := getEnvBool("RELEASEBOT_SLACK_DEBUG", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	githubTimeout, err := getEnvDuration("RELEASEBOT_GITHUB_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	runsPageSize, err := getEnvInt("RELEASEBOT_RUNS_PAGE_SIZE", 1)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	settleDelay, err := getEnvDuration("RELEASEBOT_SETTLE_DELAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("RELEASEBOT_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("RELEASEBOT_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	slackRate, err := getEnvFloat("RELEASEBOT_SLACK_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	slackBurst, err := getEnvInt("RELEASEBOT_SLACK_RATE_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	notifyChannel := getEnv("SLACK_CHANNEL_ID", "")

	cfg := &Config{
		Slack: SlackConfig{
			BotToken:            getEnv("SLACK_BOT_TOKEN", ""),
			SigningSecret:       getEnv("SLACK_SIGNING_SECRET", ""),
			AppToken:            getEnv("SLACK_APP_TOKEN", ""),
			Mode:                strings.ToLower(getEnv("RELEASEBOT_SLACK_MODE", ModeSocket)),
			Debug:               slackDebug,
			NotifyChannelID:     notifyChannel,
			AuthorizedChannelID: getEnv("SLACK_AUTHORIZED_CHANNEL_ID", notifyChannel),
		},
		GitHub: GitHubConfig{
			Token:        getEnv("GITHUB_TOKEN", ""),
			Owner:        getEnv("GITHUB_REPO_OWNER", ""),
			Repo:         getEnv("GITHUB_REPO_NAME", ""),
			BaseURL:      strings.TrimRight(getEnv("GITHUB_API_URL", "https://api.github.com"), "/"),
			Timeout:      githubTimeout,
			RunsPageSize: runsPageSize,
		},
		Workflow: WorkflowConfig{
			File:        getEnv("RELEASEBOT_WORKFLOW_FILE", "change-branch-lock-status.yml"),
			Ref:         getEnv("RELEASEBOT_WORKFLOW_REF", "master"),
			Branch:      getEnv("RELEASEBOT_TARGET_BRANCH", "develop/subscriptions"),
			SettleDelay: settleDelay,
		},
		Server: ServerConfig{
			Addr:           getEnv("RELEASEBOT_SERVER_ADDR", ":8080"),
			ReadTimeout:    readTimeout,
			WriteTimeout:   writeTimeout,
			SlackRateLimit: slackRate,
			SlackBurst:     slackBurst,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Slack.BotToken == "" {
		return errors.New("SLACK_BOT_TOKEN is required")
	}
	if c.Slack.NotifyChannelID == "" {
		return errors.New("SLACK_CHANNEL_ID is required")
	}

	switch c.Slack.Mode {
	case ModeSocket:
		if c.Slack.AppToken == "" {
			return errors.New("SLACK_APP_TOKEN is required in socket mode")
		}
		if !strings.HasPrefix(c.Slack.AppToken, "xapp-") {
			return errors.New("SLACK_APP_TOKEN must start with xapp-")
		}
	case ModeHTTP:
		if c.Slack.SigningSecret == "" {
			return errors.New("SLACK_SIGNING_SECRET is required in http mode")
		}
	default:
		return fmt.Errorf("RELEASEBOT_SLACK_MODE must be %q or %q, got %q", ModeSocket, ModeHTTP, c.Slack.Mode)
	}

	if c.Slack.AuthorizedChannelID != c.Slack.NotifyChannelID {
		log.Info().
			Str("authorized_channel", c.Slack.AuthorizedChannelID).
			Str("notify_channel", c.Slack.NotifyChannelID).
			Msg("notifications go to a different channel than the authorized one")
	}

	if c.GitHub.Token == "" {
		return errors.New("GITHUB_TOKEN is required")
	}
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		return errors.New("GITHUB_REPO_OWNER and GITHUB_REPO_NAME are required")
	}
	u, err := url.Parse(c.GitHub.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("GITHUB_API_URL must be an absolute URL, got %q", c.GitHub.BaseURL)
	}
	if u.Scheme != "https" {
		log.Warn().Str("url", c.GitHub.BaseURL).Msg("GITHUB_API_URL is not https; the token will be sent in clear text")
	}

	// Bounds checks.
	if c.GitHub.Timeout <= 0 {
		return fmt.Errorf("RELEASEBOT_GITHUB_TIMEOUT must be positive, got %s", c.GitHub.Timeout)
	}
	if c.GitHub.RunsPageSize < 1 || c.GitHub.RunsPageSize > 100 {
		return fmt.Errorf("RELEASEBOT_RUNS_PAGE_SIZE must be 1-100, got %d", c.GitHub.RunsPageSize)
	}
	if c.Workflow.File == "" || c.Workflow.Ref == "" || c.Workflow.Branch == "" {
		return errors.New("workflow file, ref and target branch must not be empty")
	}
	if c.Workflow.SettleDelay < 0 {
		return fmt.Errorf("RELEASEBOT_SETTLE_DELAY must not be negative, got %s", c.Workflow.SettleDelay)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("RELEASEBOT_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("RELEASEBOT_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.SlackRateLimit <= 0 {
		return fmt.Errorf("RELEASEBOT_SLACK_RATE_LIMIT must be positive, got %g", c.Server.SlackRateLimit)
	}
	if c.Server.SlackBurst < 1 {
		return fmt.Errorf("RELEASEBOT_SLACK_RATE_BURST must be >= 1, got %d", c.Server.SlackBurst)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}
