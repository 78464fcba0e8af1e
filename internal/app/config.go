package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ecourts-backend/internal/notify"
	"ecourts-backend/internal/portal"
	"ecourts-backend/internal/resultcache"
	"ecourts-backend/internal/storage"
	"ecourts-backend/lib/configlibsql"
	"ecourts-backend/lib/configutil"

	"dario.cat/mergo"
)

type PortalConfig struct {
	BaseURL string `json:"base_url"`
	// Selectors only needs the selectors that differ from the defaults.
	Selectors     portal.Selectors `json:"selectors"`
	OrderPacingMs int              `json:"order_pacing_ms"`
}

type BrowserConfig struct {
	ExecPath                 string `json:"exec_path"`
	Headed                   bool   `json:"headed"`
	UserAgent                string `json:"user_agent"`
	NavigationTimeoutSeconds int    `json:"navigation_timeout_seconds"`
}

type ProxyConfig struct {
	// Endpoint is an http(s) proxy url with optional credentials.
	Endpoint string `json:"endpoint"`
	// VerifyURL is fetched through the proxy before each session when set.
	VerifyURL string `json:"verify_url"`
}

type CaptchaConfig struct {
	Tesseract string `json:"tesseract"`
	Dir       string `json:"dir"`
}

type FetchConfig struct {
	Attempts       int `json:"attempts"`
	DelaySeconds   int `json:"delay_seconds"`
	TimeoutSeconds int `json:"timeout_seconds"`
	// DumpDir receives every download exchange when set.
	DumpDir string `json:"dump_dir"`
}

type PipelineConfig struct {
	MaxAttempts       int    `json:"max_attempts"`
	SolvesPerSession  int    `json:"solves_per_session"`
	RetryDelaySeconds int    `json:"retry_delay_seconds"`
	ScratchRoot       string `json:"scratch_root"`
}

type ServerConfig struct {
	Port          int    `json:"port"`
	AccessToken   string `json:"access_token"`
	MaxConcurrent int    `json:"max_concurrent"`
}

type Config struct {
	Portal   PortalConfig        `json:"portal"`
	Browser  BrowserConfig       `json:"browser"`
	Proxy    ProxyConfig         `json:"proxy"`
	Captcha  CaptchaConfig       `json:"captcha"`
	Fetch    FetchConfig         `json:"fetch"`
	Pipeline PipelineConfig      `json:"pipeline"`
	Server   ServerConfig        `json:"server"`
	Storage  storage.Config      `json:"storage"`
	Cache    resultcache.Config  `json:"cache"`
	Ledger   configlibsql.Struct `json:"ledger"`
	Email    notify.SmtpConfig   `json:"email"`
}

// LoadConfig reads the config file, then the .env file and the process
// environment on top of it. A missing config file leaves the defaults.
func LoadConfig(path string) (Config, error) {
	err := configutil.LoadEnv(".env")
	if err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "path", path)
		err = nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	err = cfg.applyDefaults()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	configutil.OverrideString(&c.Proxy.Endpoint, "PROXY")

	configutil.OverrideString(&c.Storage.AccessKeyID, "AWS_ACCESS_KEY_ID")
	configutil.OverrideString(&c.Storage.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	configutil.OverrideString(&c.Storage.Region, "AWS_REGION")
	configutil.OverrideString(&c.Storage.Bucket, "AWS_S3_BUCKET_NAME")

	configutil.OverrideInt(&c.Server.Port, "PORT")
	configutil.OverrideString(&c.Server.AccessToken, "ACCESS_TOKEN")

	host := os.Getenv("REDIS_HOST")
	if host != "" {
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		c.Cache.Addr = host + ":" + port
		c.Cache.Backend = "redis"
	}
	configutil.OverrideString(&c.Cache.Addr, "REDIS_ADDR")
	configutil.OverrideString(&c.Cache.Password, "REDIS_PASSWORD")
	configutil.OverrideInt(&c.Cache.DB, "REDIS_DB")
}

func (c *Config) applyDefaults() error {
	if c.Portal.BaseURL == "" {
		c.Portal.BaseURL = portal.DefaultBaseURL
	}
	selectors := portal.DefaultSelectors()
	err := mergo.Merge(&selectors, c.Portal.Selectors, mergo.WithOverride)
	if err != nil {
		return fmt.Errorf("merge selectors: %w", err)
	}
	c.Portal.Selectors = selectors

	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.MaxConcurrent <= 0 {
		c.Server.MaxConcurrent = 2
	}
	if c.Pipeline.ScratchRoot == "" {
		c.Pipeline.ScratchRoot = "."
	}
	if c.Pipeline.RetryDelaySeconds == 0 {
		c.Pipeline.RetryDelaySeconds = 2
	}
	if c.Captcha.Dir == "" {
		c.Captcha.Dir = os.TempDir()
	}
	if c.Ledger.File == "" && c.Ledger.Url == "" {
		c.Ledger.File = "ledger.db"
	}
	return nil
}

func (c Config) timeouts() portal.Timeouts {
	timeouts := portal.DefaultTimeouts()
	if c.Portal.OrderPacingMs > 0 {
		timeouts.OrderPacing = time.Duration(c.Portal.OrderPacingMs) * time.Millisecond
	}
	if c.Browser.NavigationTimeoutSeconds > 0 {
		timeouts.Navigation = seconds(c.Browser.NavigationTimeoutSeconds)
	}
	return timeouts
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
