// Package config holds the TOML configuration for both services in this
// repository: the TCP load balancer and the email service. Durations are
// stored as strings ("5s", "1m") and parsed on demand through Get* accessors
// that apply defaults, so a missing or empty field never fails at load time.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration shared by cmd/loadbalancer and
// cmd/emailservice. Each binary only validates the sections it uses.
type Config struct {
	Logging      LoggingConfig      `toml:"logging"`
	LoadBalancer LoadBalancerConfig `toml:"loadbalancer"`
	Metrics      MetricsConfig      `toml:"metrics"`
	Email        EmailConfig        `toml:"email"`
	Database     DatabaseConfig     `toml:"database"`
	API          APIConfig          `toml:"api"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Output string `toml:"output"` // "stdout", "stderr", or a file path
	Format string `toml:"format"` // "console" or "json"
	Level  string `toml:"level"`  // "debug", "info", "warn", "error"
}

// LoadBalancerConfig describes one virtual service balanced over one
// homogeneous backend pool.
type LoadBalancerConfig struct {
	Listen         string   `toml:"listen"`          // bind address, e.g. "0.0.0.0:8080"
	ListenBacklog  int      `toml:"listen_backlog"`  // TCP accept backlog (default: 100)
	Backends       []string `toml:"backends"`        // ordered "host:port" pairs
	HealthInterval string   `toml:"health_interval"` // probe cycle interval (default: "5s")
	ProbeTimeout   string   `toml:"probe_timeout"`   // per-backend TCP connect timeout (default: "1s")
	ConnectTimeout string   `toml:"connect_timeout"` // backend dial timeout per session (default: "5s")
}

// GetHealthInterval parses the health check cycle interval.
func (c *LoadBalancerConfig) GetHealthInterval() (time.Duration, error) {
	if c.HealthInterval == "" {
		return 5 * time.Second, nil
	}
	return time.ParseDuration(c.HealthInterval)
}

// GetProbeTimeout parses the health probe connect timeout.
func (c *LoadBalancerConfig) GetProbeTimeout() (time.Duration, error) {
	if c.ProbeTimeout == "" {
		return 1 * time.Second, nil
	}
	return time.ParseDuration(c.ProbeTimeout)
}

// GetConnectTimeout parses the per-session backend dial timeout.
func (c *LoadBalancerConfig) GetConnectTimeout() (time.Duration, error) {
	if c.ConnectTimeout == "" {
		return 5 * time.Second, nil
	}
	return time.ParseDuration(c.ConnectTimeout)
}

// GetListenBacklog returns the accept backlog, defaulting to 100 pending
// connections when unset.
func (c *LoadBalancerConfig) GetListenBacklog() int {
	if c.ListenBacklog <= 0 {
		return 100
	}
	return c.ListenBacklog
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"` // default ":9090"
	Path    string `toml:"path"` // default "/metrics"
}

// GetAddr returns the metrics listen address.
func (c *MetricsConfig) GetAddr() string {
	if c.Addr == "" {
		return ":9090"
	}
	return c.Addr
}

// GetPath returns the metrics HTTP path.
func (c *MetricsConfig) GetPath() string {
	if c.Path == "" {
		return "/metrics"
	}
	return c.Path
}

// EmailConfig configures the email service.
type EmailConfig struct {
	Provider    string `toml:"provider"`     // only "smtp" is supported
	Hostname    string `toml:"hostname"`     // used in generated Message-IDs
	FromName    string `toml:"from_name"`    // display name for the From header
	FromAddress string `toml:"from_address"` // envelope and header sender
	TemplateDir string `toml:"template_dir"` // root of HTML/text templates
	FrontendURL string `toml:"frontend_url"` // base URL for links in onboarding emails

	SMTP           SMTPConfig           `toml:"smtp"`
	CircuitBreaker CircuitBreakerConfig `toml:"circuit_breaker"`
}

// SMTPConfig configures the outbound SMTP provider.
type SMTPConfig struct {
	Host      string `toml:"host"`       // "host:port" of the SMTP server
	Username  string `toml:"username"`   // SASL PLAIN username (empty disables auth)
	Password  string `toml:"password"`   // SASL PLAIN password
	TLS       bool   `toml:"tls"`        // implicit TLS (port 465)
	StartTLS  bool   `toml:"starttls"`   // STARTTLS upgrade (port 587)
	TLSVerify bool   `toml:"tls_verify"` // verify server certificates
	Timeout   string `toml:"timeout"`    // per-delivery timeout (default: "10s")
}

// GetTimeout parses the per-delivery SMTP timeout.
func (c *SMTPConfig) GetTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 10 * time.Second, nil
	}
	return time.ParseDuration(c.Timeout)
}

// CircuitBreakerConfig tunes the provider circuit breaker.
type CircuitBreakerConfig struct {
	Threshold   int    `toml:"threshold"`    // consecutive failures before opening (default: 5)
	Timeout     string `toml:"timeout"`      // recovery test interval (default: "30s")
	MaxRequests int    `toml:"max_requests"` // requests allowed half-open (default: 3)
}

// GetThreshold returns the consecutive-failure threshold.
func (c *CircuitBreakerConfig) GetThreshold() int {
	if c.Threshold <= 0 {
		return 5
	}
	return c.Threshold
}

// GetTimeout parses the open-state recovery interval.
func (c *CircuitBreakerConfig) GetTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(c.Timeout)
}

// GetMaxRequests returns the number of requests allowed while half-open.
func (c *CircuitBreakerConfig) GetMaxRequests() int {
	if c.MaxRequests <= 0 {
		return 3
	}
	return c.MaxRequests
}

// DatabaseConfig configures the optional Postgres delivery log. When Enabled
// is false the email service keeps its delivery log in memory only.
type DatabaseConfig struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	TLSMode  bool   `toml:"tls"`
	MaxConns int    `toml:"max_conns"`
}

// GetPort returns the database port, defaulting to 5432.
func (c *DatabaseConfig) GetPort() string {
	if c.Port == "" {
		return "5432"
	}
	return c.Port
}

// GetMaxConns returns the pool size, defaulting to 10.
func (c *DatabaseConfig) GetMaxConns() int {
	if c.MaxConns <= 0 {
		return 10
	}
	return c.MaxConns
}

// APIConfig configures the email service HTTP API.
type APIConfig struct {
	Addr   string `toml:"addr"`    // default ":8081"
	APIKey string `toml:"api_key"` // required to start the API server
}

// GetAddr returns the API listen address.
func (c *APIConfig) GetAddr() string {
	if c.Addr == "" {
		return ":8081"
	}
	return c.Addr
}

// NewDefaultConfig returns a configuration with all defaults applied. Values
// read from a config file override these.
func NewDefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Output: "stderr",
			Format: "console",
			Level:  "info",
		},
		LoadBalancer: LoadBalancerConfig{
			Listen: "0.0.0.0:8080",
		},
		Email: EmailConfig{
			Provider: "smtp",
			Hostname: "localhost",
			SMTP: SMTPConfig{
				TLS:       true,
				TLSVerify: true,
			},
		},
	}
}

// Load reads a TOML configuration file into cfg. A missing file is not an
// error: the defaults already in cfg remain in effect.
func Load(path string, cfg *Config) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error parsing configuration file '%s': %w", path, err)
	}
	return nil
}

// ValidateLoadBalancer checks the sections cmd/loadbalancer depends on.
func (c *Config) ValidateLoadBalancer() error {
	lb := &c.LoadBalancer
	if lb.Listen == "" {
		return fmt.Errorf("loadbalancer: listen address is required")
	}
	if _, _, err := net.SplitHostPort(lb.Listen); err != nil {
		return fmt.Errorf("loadbalancer: invalid listen address %q: %w", lb.Listen, err)
	}
	if len(lb.Backends) == 0 {
		return fmt.Errorf("loadbalancer: at least one backend is required")
	}
	for _, addr := range lb.Backends {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("loadbalancer: invalid backend address %q: %w", addr, err)
		}
	}
	if _, err := lb.GetHealthInterval(); err != nil {
		return fmt.Errorf("loadbalancer: invalid health_interval: %w", err)
	}
	if _, err := lb.GetProbeTimeout(); err != nil {
		return fmt.Errorf("loadbalancer: invalid probe_timeout: %w", err)
	}
	if _, err := lb.GetConnectTimeout(); err != nil {
		return fmt.Errorf("loadbalancer: invalid connect_timeout: %w", err)
	}
	return nil
}

// ValidateEmail checks the sections cmd/emailservice depends on.
func (c *Config) ValidateEmail() error {
	e := &c.Email
	if e.Provider != "" && e.Provider != "smtp" {
		return fmt.Errorf("email: unsupported provider %q", e.Provider)
	}
	if e.FromAddress == "" {
		return fmt.Errorf("email: from_address is required")
	}
	if e.SMTP.Host == "" {
		return fmt.Errorf("email: smtp host is required")
	}
	if _, _, err := net.SplitHostPort(e.SMTP.Host); err != nil {
		return fmt.Errorf("email: invalid smtp host %q: %w", e.SMTP.Host, err)
	}
	if e.SMTP.TLS && e.SMTP.StartTLS {
		return fmt.Errorf("email: smtp tls and starttls are mutually exclusive")
	}
	if _, err := e.SMTP.GetTimeout(); err != nil {
		return fmt.Errorf("email: invalid smtp timeout: %w", err)
	}
	if _, err := e.CircuitBreaker.GetTimeout(); err != nil {
		return fmt.Errorf("email: invalid circuit_breaker timeout: %w", err)
	}
	if c.API.APIKey == "" {
		return fmt.Errorf("api: api_key is required")
	}
	return nil
}
