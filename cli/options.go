package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/viant/bearer"
)

type Options struct {
	bearer.Config
	ConfigURL string `short:"c" long:"config" description:"config file (json or yaml)"`
	Verbose   bool   `short:"v" long:"verbose" description:"log pipeline activity"`
}

// config merges the config file with flags; flags win
func (o *Options) config(ctx context.Context) (*bearer.Config, error) {
	ret := &bearer.Config{}
	if o.ConfigURL != "" {
		loaded, err := bearer.LoadConfig(ctx, o.ConfigURL)
		if err != nil {
			return nil, err
		}
		ret = loaded
	}
	if o.BaseURL != "" {
		ret.BaseURL = o.BaseURL
	}
	if o.LoginPath != "" {
		ret.LoginPath = o.LoginPath
	}
	if o.RefreshPath != "" {
		ret.RefreshPath = o.RefreshPath
	}
	if o.LogoutPath != "" {
		ret.LogoutPath = o.LogoutPath
	}
	if o.RegisterPath != "" {
		ret.RegisterPath = o.RegisterPath
	}
	if o.UserPath != "" {
		ret.UserPath = o.UserPath
	}
	if o.DeletePath != "" {
		ret.DeletePath = o.DeletePath
	}
	if o.RefreshTimeoutSeconds != 0 {
		ret.RefreshTimeoutSeconds = o.RefreshTimeoutSeconds
	}
	if o.StoreURL != "" {
		ret.StoreURL = o.StoreURL
	}
	if ret.StoreURL == "" {
		ret.StoreURL = defaultStoreURL()
	}
	return ret, nil
}

func defaultStoreURL() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return "file://" + filepath.ToSlash(filepath.Join(home, ".bearer", "credentials.json"))
}
