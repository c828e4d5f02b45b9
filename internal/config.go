package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Terminal markdown styles accepted in ui.style.
var terminalStyles = []interface{}{"ascii", "dark", "dracula", "light", "notty", "pink", "tokyo-night"}

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Backend BackendConfig     `yaml:"backend"`
	UI      UIConfig          `yaml:"ui"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if err := c.UI.Validate(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile receives logs in modes that own stdout (tui, mcp). Empty
	// discards them there; other modes log to stdout.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds the web console server configuration.
type HTTPConfig struct {
	Port      int           `yaml:"port"`
	Keepalive time.Duration `yaml:"keepalive"`
	// Token, when set, is required as a Bearer token on /submit and
	// /events.
	Token string `yaml:"token"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Keepalive, validation.Min(time.Duration(0))),
	)
}

// BackendConfig points at the answer service that serves /stream and
// /sources.
type BackendConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"` // 0 disables the client timeout
	UserAgent string        `yaml:"user_agent"`
}

// Validate validates the backend configuration.
func (c *BackendConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func httpURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must be an http or https URL")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

// UIConfig holds presentation settings shared by the front ends.
type UIConfig struct {
	StatusDelay time.Duration `yaml:"status_delay"`
	WrapWidth   int           `yaml:"wrap_width"`
	Style       string        `yaml:"style"`
}

// Validate validates the UI configuration.
func (c *UIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StatusDelay, validation.Min(time.Duration(0)), validation.Max(10*time.Second)),
		validation.Field(&c.WrapWidth, validation.Required, validation.Min(20), validation.Max(400)),
		validation.Field(&c.Style, validation.Required, validation.In(terminalStyles...)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:      8080,
				Keepalive: 15 * time.Second,
			},
		},
		Backend: BackendConfig{
			BaseURL:   "http://localhost:8000",
			UserAgent: "vectorfox/1.0",
		},
		UI: UIConfig{
			StatusDelay: 200 * time.Millisecond,
			WrapWidth:   100,
			Style:       "dark",
		},
	}
}
