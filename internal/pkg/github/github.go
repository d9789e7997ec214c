// Package github is the client for the repository hosting API. It
// authenticates as a GitHub App, exchanges short-lived installation
// tokens and performs the repository lifecycle operations used by the
// assessment workflows. Tokens are derived fresh on every privileged
// call and never cached.
package github

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultAPI       = "https://api.github.com"
	defaultCloneHost = "github.com"

	// App JWT validity: issued-at is backdated for clock skew, expiry
	// stays below the host's 10 minute ceiling.
	jwtBackdate = 60 * time.Second
	jwtLifetime = 9 * time.Minute
)

// Account kinds resolved by AccountKind.
const (
	AccountOrganization = "organization"
	AccountUser         = "user"
)

// Config holds the GitHub App configuration.
type Config struct {
	API            string `mapstructure:"api"`
	CloneHost      string `mapstructure:"cloneHost"`
	AppID          string `mapstructure:"appId"`
	PrivateKey     string `mapstructure:"privateKey"`
	InstallationID string `mapstructure:"installationId"`
	Owner          string `mapstructure:"owner"`
	PAT            string `mapstructure:"pat"`
	// Per-call HTTP timeouts in seconds, reads shorter than mutating
	// and import operations.
	ReadTimeout  int `mapstructure:"readTimeout"`
	WriteTimeout int `mapstructure:"writeTimeout"`
	// Import completion polling bounds in seconds.
	ImportMaxWait      int `mapstructure:"importMaxWait"`
	ImportPollInterval int `mapstructure:"importPollInterval"`
}

// Client is the hosting-API client. It performs no retries; callers
// decide whether a failure is a warning or an abort.
type Client struct {
	cfg   Config
	read  *resty.Client
	write *resty.Client

	// injectable for deterministic tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config) *Client {
	if cfg.API == "" {
		cfg.API = defaultAPI
	}
	if cfg.CloneHost == "" {
		cfg.CloneHost = defaultCloneHost
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 60
	}
	if cfg.ImportMaxWait <= 0 {
		cfg.ImportMaxWait = 300
	}
	if cfg.ImportPollInterval <= 0 {
		cfg.ImportPollInterval = 5
	}

	newClient := func(timeout int) *resty.Client {
		return resty.New().
			SetBaseURL(cfg.API).
			SetTimeout(time.Duration(timeout) * time.Second).
			SetHeader("Accept", "application/vnd.github+json")
	}

	return &Client{
		cfg:   cfg,
		read:  newClient(cfg.ReadTimeout),
		write: newClient(cfg.WriteTimeout),
		now:   time.Now,
		sleep: sleepContext,
	}
}

// Owner returns the configured target account.
func (c *Client) Owner() string {
	return c.cfg.Owner
}

// Configured reports whether App credentials are present at all.
// Seed preparation degrades to a warning when they are not.
func (c *Client) Configured() bool {
	return c.cfg.AppID != "" && c.cfg.PrivateKey != "" && c.cfg.Owner != ""
}

// ImportWait returns the configured import polling bounds.
func (c *Client) ImportWait() (maxWait, pollInterval time.Duration) {
	return time.Duration(c.cfg.ImportMaxWait) * time.Second,
		time.Duration(c.cfg.ImportPollInterval) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
