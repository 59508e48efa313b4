package bearer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

const (
	defaultLoginPath      = "token/"
	defaultRefreshPath    = "token/refresh/"
	defaultLogoutPath     = "logout/"
	defaultRegisterPath   = "register/"
	defaultUserPath       = "user/"
	defaultDeletePath     = "delete/"
	defaultRefreshTimeout = 30
)

// Config defines the remote API endpoints and where credentials are kept.
type Config struct {
	BaseURL               string `yaml:"baseURL" json:"baseURL" short:"u" long:"url" description:"api base url"`
	LoginPath             string `yaml:"loginPath,omitempty" json:"loginPath,omitempty" long:"login-path" description:"login endpoint, relative to base url"`
	RefreshPath           string `yaml:"refreshPath,omitempty" json:"refreshPath,omitempty" long:"refresh-path" description:"refresh endpoint, relative to base url"`
	LogoutPath            string `yaml:"logoutPath,omitempty" json:"logoutPath,omitempty" long:"logout-path" description:"logout endpoint, relative to base url"`
	RegisterPath          string `yaml:"registerPath,omitempty" json:"registerPath,omitempty" long:"register-path" description:"registration endpoint, relative to base url"`
	UserPath              string `yaml:"userPath,omitempty" json:"userPath,omitempty" long:"user-path" description:"current user endpoint, relative to base url"`
	DeletePath            string `yaml:"deletePath,omitempty" json:"deletePath,omitempty" long:"delete-path" description:"account deletion endpoint, relative to base url"`
	RefreshTimeoutSeconds int    `yaml:"refreshTimeoutSeconds,omitempty" json:"refreshTimeoutSeconds,omitempty" long:"refresh-timeout" description:"refresh call timeout in seconds"`
	// StoreURL selects the credential store: empty for memory, redis://host/db for redis,
	// any other afs URL for a file.
	StoreURL string `yaml:"storeURL,omitempty" json:"storeURL,omitempty" short:"s" long:"store" description:"credentials location"`
}

// Init sets defaults
func (c *Config) Init() {
	if c.LoginPath == "" {
		c.LoginPath = defaultLoginPath
	}
	if c.RefreshPath == "" {
		c.RefreshPath = defaultRefreshPath
	}
	if c.LogoutPath == "" {
		c.LogoutPath = defaultLogoutPath
	}
	if c.RegisterPath == "" {
		c.RegisterPath = defaultRegisterPath
	}
	if c.UserPath == "" {
		c.UserPath = defaultUserPath
	}
	if c.DeletePath == "" {
		c.DeletePath = defaultDeletePath
	}
	if c.RefreshTimeoutSeconds == 0 {
		c.RefreshTimeoutSeconds = defaultRefreshTimeout
	}
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("baseURL was empty")
	}
	if c.RefreshTimeoutSeconds < 0 {
		return fmt.Errorf("invalid refreshTimeoutSeconds: %v", c.RefreshTimeoutSeconds)
	}
	return nil
}

// RefreshTimeout returns the refresh call bound
func (c *Config) RefreshTimeout() time.Duration {
	return time.Duration(c.RefreshTimeoutSeconds) * time.Second
}

// Endpoint resolves relative against the base url, keeping a trailing slash
func (c *Config) Endpoint(relative string) string {
	if strings.HasPrefix(relative, "http://") || strings.HasPrefix(relative, "https://") {
		return relative
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(relative, "/")
}

// LoadConfig loads JSON or YAML config from URL
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := &Config{}
	switch strings.ToLower(path.Ext(URL)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, ret)
	default:
		err = json.Unmarshal(data, ret)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	ret.Init()
	return ret, ret.Validate()
}
