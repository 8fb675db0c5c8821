package driver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/dashtest/pkg/config"
)

func testConfig(browser string) *config.Config {
	return &config.Config{
		BaseURL:           "http://127.0.0.1:8080",
		Browser:           browser,
		Headless:          true,
		TimeoutExplicitMs: 5000,
		TimeoutPageLoadMs: 15000,
		WindowWidth:       1280,
		WindowHeight:      720,
	}
}

func TestLaunchSpec_EngineMapping(t *testing.T) {
	tests := []struct {
		browser string
		engine  engine
		channel string
	}{
		{config.BrowserChromium, engineChromium, ""},
		{config.BrowserChrome, engineChromium, "chrome"},
		{config.BrowserEdge, engineChromium, "msedge"},
		{config.BrowserFirefox, engineFirefox, ""},
		{config.BrowserWebKit, engineWebKit, ""},
	}

	for _, tt := range tests {
		t.Run(tt.browser, func(t *testing.T) {
			s, err := launchSpec(testConfig(tt.browser))
			require.NoError(t, err)
			assert.Equal(t, tt.engine, s.engine)

			if tt.channel == "" {
				assert.Nil(t, s.options.Channel)
			} else {
				require.NotNil(t, s.options.Channel)
				assert.Equal(t, tt.channel, *s.options.Channel)
			}
			require.NotNil(t, s.options.Headless)
			assert.True(t, *s.options.Headless)
		})
	}
}

func TestLaunchSpec_HeadlessPassthrough(t *testing.T) {
	cfg := testConfig(config.BrowserChromium)
	cfg.Headless = false

	s, err := launchSpec(cfg)
	require.NoError(t, err)
	require.NotNil(t, s.options.Headless)
	assert.False(t, *s.options.Headless)
}

func TestLaunchSpec_UnsupportedBrowser(t *testing.T) {
	_, err := launchSpec(testConfig("netscape"))
	require.Error(t, err)

	var provErr *ProvisioningError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "netscape", provErr.Browser)
	assert.Equal(t, "config", provErr.Stage)
}

func TestProvisioningError_Format(t *testing.T) {
	cause := errors.New("browser binary not found")

	withBrowser := &ProvisioningError{Browser: "firefox", Stage: "launch", Err: cause}
	assert.Equal(t, "provisioning firefox failed at launch: browser binary not found", withBrowser.Error())
	assert.ErrorIs(t, withBrowser, cause)

	installErr := &ProvisioningError{Stage: "install", Err: cause}
	assert.Equal(t, "provisioning failed at install: browser binary not found", installErr.Error())
}

func TestSession_CloseIdempotent(t *testing.T) {
	// a zero session has nothing to release; Close must be safe to call twice
	s := &Session{cfg: testConfig(config.BrowserChromium)}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
