package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg := NewDefaultConfig()

	// A missing file leaves the defaults untouched.
	require.NoError(t, Load(filepath.Join(t.TempDir(), "nope.toml"), &cfg))

	assert.Equal(t, "0.0.0.0:8080", cfg.LoadBalancer.Listen)
	assert.Equal(t, 100, cfg.LoadBalancer.GetListenBacklog())

	interval, err := cfg.LoadBalancer.GetHealthInterval()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, interval)

	probe, err := cfg.LoadBalancer.GetProbeTimeout()
	require.NoError(t, err)
	assert.Equal(t, 1*time.Second, probe)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	path := writeConfig(t, `
[loadbalancer]
listen = "127.0.0.1:9000"
listen_backlog = 256
backends = ["10.0.0.1:8001", "10.0.0.2:8001"]
health_interval = "2s"
probe_timeout = "500ms"

[email]
from_address = "noreply@scafld.com"

[email.smtp]
host = "smtp.example.com:587"
starttls = true
tls = false

[api]
api_key = "secret"
`)
	require.NoError(t, Load(path, &cfg))

	assert.Equal(t, "127.0.0.1:9000", cfg.LoadBalancer.Listen)
	assert.Equal(t, 256, cfg.LoadBalancer.GetListenBacklog())
	assert.Equal(t, []string{"10.0.0.1:8001", "10.0.0.2:8001"}, cfg.LoadBalancer.Backends)

	interval, err := cfg.LoadBalancer.GetHealthInterval()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, interval)

	probe, err := cfg.LoadBalancer.GetProbeTimeout()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, probe)

	require.NoError(t, cfg.ValidateLoadBalancer())
	require.NoError(t, cfg.ValidateEmail())
}

func TestValidateLoadBalancer(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "no backends",
			mutate:  func(c *Config) {},
			wantErr: "at least one backend",
		},
		{
			name: "backend without port",
			mutate: func(c *Config) {
				c.LoadBalancer.Backends = []string{"10.0.0.1"}
			},
			wantErr: "invalid backend address",
		},
		{
			name: "bad health interval",
			mutate: func(c *Config) {
				c.LoadBalancer.Backends = []string{"10.0.0.1:8001"}
				c.LoadBalancer.HealthInterval = "soon"
			},
			wantErr: "invalid health_interval",
		},
		{
			name: "bad listen address",
			mutate: func(c *Config) {
				c.LoadBalancer.Backends = []string{"10.0.0.1:8001"}
				c.LoadBalancer.Listen = "nonsense"
			},
			wantErr: "invalid listen address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(&cfg)
			err := cfg.ValidateLoadBalancer()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateEmail(t *testing.T) {
	base := func() Config {
		cfg := NewDefaultConfig()
		cfg.Email.FromAddress = "noreply@scafld.com"
		cfg.Email.SMTP.Host = "smtp.example.com:465"
		cfg.API.APIKey = "secret"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		cfg := base()
		require.NoError(t, cfg.ValidateEmail())
	})

	t.Run("missing from address", func(t *testing.T) {
		cfg := base()
		cfg.Email.FromAddress = ""
		require.Error(t, cfg.ValidateEmail())
	})

	t.Run("tls and starttls exclusive", func(t *testing.T) {
		cfg := base()
		cfg.Email.SMTP.StartTLS = true
		err := cfg.ValidateEmail()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mutually exclusive")
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := base()
		cfg.API.APIKey = ""
		require.Error(t, cfg.ValidateEmail())
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := base()
		cfg.Email.Provider = "pigeon"
		require.Error(t, cfg.ValidateEmail())
	})
}
