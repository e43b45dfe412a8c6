// Package config loads and saves the YAML configuration, with overrides
// from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ICSConfig describes one subscribed calendar feed.
type ICSConfig struct {
	ID  string `yaml:"id" json:"id"`
	URL string `yaml:"url" json:"url"`
	// Category is assigned to imported events. Empty uses General.
	Category string `yaml:"category,omitempty" json:"category,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

type NotificationsConfig struct {
	// AutoGrant answers the first permission request with "granted"
	// instead of leaving it at "default".
	AutoGrant bool `yaml:"auto_grant" json:"auto_grant"`
	// Log writes delivered reminders to the application log.
	Log bool `yaml:"log" json:"log"`
	// GPIOPin, when set, pulses that pin (periph.io name, e.g. "GPIO17")
	// for every reminder.
	GPIOPin   string        `yaml:"gpio_pin,omitempty" json:"gpio_pin,omitempty"`
	GPIOPulse time.Duration `yaml:"gpio_pulse,omitempty" json:"gpio_pulse,omitempty"`
}

type CaptureConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Cron    string `yaml:"cron" json:"cron"`
	// URL defaults to the list page of this server.
	URL    string `yaml:"url,omitempty" json:"url,omitempty"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// DataDir holds the store and the capture output.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Store selects the backend: "file" or "sqlite".
	Store string `yaml:"store" json:"store"`

	// Language picks the phrase table: "en" or "nl".
	Language string `yaml:"language" json:"language"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// ReminderHour is the local hour (1-23) at which reminders fire.
	ReminderHour int `yaml:"reminder_hour" json:"reminder_hour"`

	// Reconcile is a cron spec for periodic reminder reconciliation, which
	// picks up day changes and permission updates.
	Reconcile string `yaml:"reconcile" json:"reconcile"`

	Notifications NotificationsConfig `yaml:"notifications" json:"notifications"`
	Capture       CaptureConfig       `yaml:"capture" json:"capture"`

	ICSFeeds []ICSConfig `yaml:"ics_feeds" json:"ics_feeds"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen    = "127.0.0.1:8080"
	defaultDataDir   = "./var"
	defaultReconcile = "*/5 * * * *"
	defaultCapture   = "0 * * * *"
	defaultWidth     = 800
	defaultHeight    = 1200
	defaultPulse     = 200 * time.Millisecond
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       defaultListen,
		DataDir:      defaultDataDir,
		Store:        "file",
		Language:     "en",
		LogLevel:     "info",
		ReminderHour: 9,
		Reconcile:    defaultReconcile,
		Notifications: NotificationsConfig{
			Log:       true,
			GPIOPulse: defaultPulse,
		},
		Capture: CaptureConfig{
			Cron:   defaultCapture,
			Width:  defaultWidth,
			Height: defaultHeight,
		},
		ICSFeeds: []ICSConfig{},
	}
}

// Normalize fills in empty values so partially written files still work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.Store == "" {
		c.Store = "file"
	}
	c.Language = strings.ToLower(strings.TrimSpace(c.Language))
	if c.Language == "" {
		c.Language = "en"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ReminderHour == 0 {
		c.ReminderHour = 9
	}
	if c.Reconcile == "" {
		c.Reconcile = defaultReconcile
	}
	if c.Notifications.GPIOPulse <= 0 {
		c.Notifications.GPIOPulse = defaultPulse
	}
	if c.Capture.Cron == "" {
		c.Capture.Cron = defaultCapture
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = defaultWidth
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = defaultHeight
	}
	if c.ICSFeeds == nil {
		c.ICSFeeds = []ICSConfig{}
	}
	for i := range c.ICSFeeds {
		if c.ICSFeeds[i].ID == "" {
			c.ICSFeeds[i].ID = fmt.Sprintf("feed-%d", i+1)
		}
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.Store {
	case "file", "sqlite":
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	switch c.Language {
	case "en", "nl":
	default:
		return fmt.Errorf("config: unsupported language %q", c.Language)
	}
	if c.ReminderHour < 1 || c.ReminderHour > 23 {
		return fmt.Errorf("config: reminder_hour %d out of range 1-23", c.ReminderHour)
	}
	if _, err := cron.ParseStandard(c.Reconcile); err != nil {
		return fmt.Errorf("config: reconcile: %w", err)
	}
	if c.Capture.Enabled {
		if _, err := cron.ParseStandard(c.Capture.Cron); err != nil {
			return fmt.Errorf("config: capture.cron: %w", err)
		}
	}
	for _, f := range c.ICSFeeds {
		if f.URL == "" {
			return fmt.Errorf("config: ics feed %q has no url", f.ID)
		}
	}
	return nil
}

// Load loads configuration from the given YAML path. A missing file is
// created with defaults (0600). Keys absent from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg atomically (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".evcount-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Environ returns the EVCOUNT_* settings from dotenv (if the file exists)
// overlaid with the process environment, which wins.
func Environ(dotenv string) (map[string]string, error) {
	env := map[string]string{}
	if dotenv != "" {
		fileEnv, err := godotenv.Read(dotenv)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: %s: %w", dotenv, err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, "EVCOUNT_") {
			env[k] = v
		}
	}
	return env, nil
}

// ApplyEnv overrides fields from EVCOUNT_* variables.
func (c *Config) ApplyEnv(env map[string]string) error {
	str := map[string]*string{
		"EVCOUNT_LISTEN":    &c.Listen,
		"EVCOUNT_DATA_DIR":  &c.DataDir,
		"EVCOUNT_STORE":     &c.Store,
		"EVCOUNT_LANGUAGE":  &c.Language,
		"EVCOUNT_LOG_LEVEL": &c.LogLevel,
		"EVCOUNT_RECONCILE": &c.Reconcile,
		"EVCOUNT_GPIO_PIN":  &c.Notifications.GPIOPin,
	}
	for k, dst := range str {
		if v, ok := env[k]; ok && v != "" {
			*dst = v
		}
	}

	if v, ok := env["EVCOUNT_REMINDER_HOUR"]; ok && v != "" {
		h, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: EVCOUNT_REMINDER_HOUR: %w", err)
		}
		c.ReminderHour = h
	}
	if v, ok := env["EVCOUNT_AUTO_GRANT"]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: EVCOUNT_AUTO_GRANT: %w", err)
		}
		c.Notifications.AutoGrant = b
	}

	user, password := env["EVCOUNT_BASIC_AUTH_USER"], env["EVCOUNT_BASIC_AUTH_PASSWORD"]
	if user != "" || password != "" {
		c.BasicAuth = &BasicAuthConfig{Username: user, Password: password}
	}
	c.Normalize()
	return nil
}
