package stratus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "stratus.yaml")
	content := `
endpoint: https://platform.example.org/rest
remoteBase: /vip/Home/ACME
transfers: 3
refresh: 45s
finishTimeout: 2m
`
	assert.Nil(t, os.WriteFile(location, []byte(content), 0o644))

	config, err := LoadConfig(ctx, location)
	assert.Nil(t, err)
	assert.EqualValues(t, "https://platform.example.org/rest", config.Endpoint)
	assert.EqualValues(t, "/vip/Home/ACME", config.RemoteBase)
	assert.EqualValues(t, 3, config.Transfers)
	assert.EqualValues(t, 45*time.Second, config.RefreshInterval())
	assert.EqualValues(t, 2*time.Minute, config.FinishDeadline())
}

func TestConfigDefaults(t *testing.T) {
	config := DefaultConfig()
	assert.Nil(t, config.Validate())
	assert.EqualValues(t, DefaultEndpoint, config.Endpoint)
	assert.EqualValues(t, 30*time.Second, config.RefreshInterval())
	assert.EqualValues(t, 5*time.Minute, config.FinishDeadline())
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		description string
		config      Config
		valid       bool
	}{
		{description: "defaults", config: *DefaultConfig(), valid: true},
		{description: "missing endpoint", config: Config{}, valid: false},
		{description: "negative transfers", config: Config{Endpoint: DefaultEndpoint, Transfers: -1}, valid: false},
		{description: "malformed refresh", config: Config{Endpoint: DefaultEndpoint, Refresh: "soon"}, valid: false},
		{description: "malformed finish timeout", config: Config{Endpoint: DefaultEndpoint, FinishTimeout: "later"}, valid: false},
	}
	for _, testCase := range testCases {
		err := testCase.config.Validate()
		if testCase.valid {
			assert.Nil(t, err, testCase.description)
		} else {
			assert.NotNil(t, err, testCase.description)
		}
	}
}
