package bearer

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

func TestConfig_Init(t *testing.T) {
	config := &Config{BaseURL: "http://localhost:8000/api/"}
	config.Init()
	require.NoError(t, config.Validate())
	assert.Equal(t, "token/", config.LoginPath)
	assert.Equal(t, "token/refresh/", config.RefreshPath)
	assert.Equal(t, "logout/", config.LogoutPath)
	assert.Equal(t, "register/", config.RegisterPath)
	assert.Equal(t, "user/", config.UserPath)
	assert.Equal(t, "delete/", config.DeletePath)
	assert.Equal(t, 30*time.Second, config.RefreshTimeout())

	assert.Error(t, (&Config{}).Validate())
	assert.Error(t, (&Config{BaseURL: "http://localhost", RefreshTimeoutSeconds: -1}).Validate())
}

func TestConfig_Endpoint(t *testing.T) {
	config := &Config{BaseURL: "http://localhost:8000/api/"}
	testCases := []struct {
		description string
		relative    string
		expect      string
	}{
		{description: "trailing slash kept", relative: "token/refresh/", expect: "http://localhost:8000/api/token/refresh/"},
		{description: "absolute", relative: "https://auth.example.com/refresh/", expect: "https://auth.example.com/refresh/"},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, config.Endpoint(testCase.relative), testCase.description)
	}
}

func TestLoadConfig(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	testCases := []struct {
		description string
		URL         string
		content     string
		expect      *Config
		expectErr   bool
	}{
		{
			description: "json",
			URL:         "mem://localhost/bearer/config_test/config.json",
			content:     `{"baseURL":"http://localhost:8000/api/","refreshTimeoutSeconds":5}`,
			expect: &Config{BaseURL: "http://localhost:8000/api/", LoginPath: "token/", RefreshPath: "token/refresh/",
				LogoutPath: "logout/", RegisterPath: "register/", UserPath: "user/", DeletePath: "delete/", RefreshTimeoutSeconds: 5},
		},
		{
			description: "yaml",
			URL:         "mem://localhost/bearer/config_test/config.yaml",
			content:     "baseURL: http://localhost:8000/api/\nrefreshPath: auth/refresh/\nstoreURL: mem://localhost/creds.json\n",
			expect: &Config{BaseURL: "http://localhost:8000/api/", LoginPath: "token/", RefreshPath: "auth/refresh/",
				LogoutPath: "logout/", RegisterPath: "register/", UserPath: "user/", DeletePath: "delete/", RefreshTimeoutSeconds: 30, StoreURL: "mem://localhost/creds.json"},
		},
		{
			description: "missing base url",
			URL:         "mem://localhost/bearer/config_test/empty.json",
			content:     `{}`,
			expectErr:   true,
		},
	}
	for _, testCase := range testCases {
		require.NoError(t, fs.Upload(ctx, testCase.URL, os.FileMode(0o644), bytes.NewReader([]byte(testCase.content))))
		actual, err := LoadConfig(ctx, testCase.URL)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.EqualValues(t, testCase.expect, actual, testCase.description)
	}

	_, err := LoadConfig(ctx, "mem://localhost/bearer/config_test/missing.json")
	assert.Error(t, err)
}
