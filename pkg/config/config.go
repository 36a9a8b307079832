// Package config loads deskbook settings from a YAML file, environment
// variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. DESKBOOK_DEVICE_SERIAL.
const EnvPrefix = "DESKBOOK"

// FileName is the config file base name searched for when no path is given.
const FileName = "deskbook"

// Config represents the deskbook configuration
type Config struct {
	Appium      AppiumConfig      `mapstructure:"appium" yaml:"appium"`
	App         AppConfig         `mapstructure:"app" yaml:"app"`
	Device      DeviceConfig      `mapstructure:"device" yaml:"device"`
	Booking     BookingConfig     `mapstructure:"booking" yaml:"booking"`
	Gesture     GestureConfig     `mapstructure:"gesture" yaml:"gesture"`
	UI          UIConfig          `mapstructure:"ui" yaml:"ui"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	History     HistoryConfig     `mapstructure:"history" yaml:"history"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`

	// Source is the file the config was read from, empty for defaults only.
	Source string `mapstructure:"-" yaml:"-"`
}

// AppiumConfig contains automation server settings
type AppiumConfig struct {
	ServerURL         string        `mapstructure:"server_url" yaml:"server_url"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	NewCommandTimeout time.Duration `mapstructure:"new_command_timeout" yaml:"new_command_timeout"`
	ADBExecTimeout    time.Duration `mapstructure:"adb_exec_timeout" yaml:"adb_exec_timeout"`
}

// AppConfig identifies the app under automation
type AppConfig struct {
	Package  string `mapstructure:"package" yaml:"package"`
	Activity string `mapstructure:"activity" yaml:"activity"`
}

// DeviceConfig contains device discovery settings
type DeviceConfig struct {
	Serial       string        `mapstructure:"serial" yaml:"serial"` // optional, must still be listed by adb
	ADBPath      string        `mapstructure:"adb_path" yaml:"adb_path"`
	QueryTimeout time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
}

// BookingConfig contains booking flow settings
type BookingConfig struct {
	StepTimeout     time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	BuildingTimeout time.Duration `mapstructure:"building_timeout" yaml:"building_timeout"`
	PageTimeout     time.Duration `mapstructure:"page_timeout" yaml:"page_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	MaxMonthPages   int           `mapstructure:"max_month_pages" yaml:"max_month_pages"`
	DryRun          bool          `mapstructure:"dry_run" yaml:"dry_run"`
	ReturnHome      bool          `mapstructure:"return_home" yaml:"return_home"`
}

// GestureConfig shapes the drag-to-confirm swipe
type GestureConfig struct {
	Duration      time.Duration `mapstructure:"duration" yaml:"duration"`
	Steps         int           `mapstructure:"steps" yaml:"steps"`
	EndHold       time.Duration `mapstructure:"end_hold" yaml:"end_hold"`
	StartFraction float64       `mapstructure:"start_fraction" yaml:"start_fraction"`
	Overshoot     int           `mapstructure:"overshoot" yaml:"overshoot"`
}

// UIConfig holds the accessibility labels of the controls the flow touches
type UIConfig struct {
	DeskEntry       string `mapstructure:"desk_entry" yaml:"desk_entry"`
	DatePicker      string `mapstructure:"date_picker" yaml:"date_picker"`
	NextMonth       string `mapstructure:"next_month" yaml:"next_month"`
	PrevMonth       string `mapstructure:"prev_month" yaml:"prev_month"`
	ConfirmDate     string `mapstructure:"confirm_date" yaml:"confirm_date"`
	BookDesk        string `mapstructure:"book_desk" yaml:"book_desk"`
	Scrim           string `mapstructure:"scrim" yaml:"scrim"`
	HomeButtonClass string `mapstructure:"home_button_class" yaml:"home_button_class"`
	HomeButtonIndex int    `mapstructure:"home_button_index" yaml:"home_button_index"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "json" or "console"
}

// MetricsConfig contains the metrics listener settings
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"` // empty disables the listener
}

// HistoryConfig contains booking history settings
type HistoryConfig struct {
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"` // empty disables history
}

// DiagnosticsConfig contains failure screenshot settings
type DiagnosticsConfig struct {
	ScreenshotDir string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"` // empty disables screenshots
	MaxWidth      int    `mapstructure:"max_width" yaml:"max_width"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Appium: AppiumConfig{
			ServerURL:         "http://127.0.0.1:4723",
			RequestTimeout:    3 * time.Minute,
			NewCommandTimeout: 300 * time.Second,
			ADBExecTimeout:    120 * time.Second,
		},
		App: AppConfig{
			Package:  "in.co.wework.spacecraft",
			Activity: "in.co.wework.spacecraft.SpacecraftActivity",
		},
		Device: DeviceConfig{
			ADBPath:      "adb",
			QueryTimeout: 10 * time.Second,
		},
		Booking: BookingConfig{
			StepTimeout:     20 * time.Second,
			BuildingTimeout: 30 * time.Second,
			PageTimeout:     15 * time.Second,
			PollInterval:    500 * time.Millisecond,
			MaxMonthPages:   24,
			ReturnHome:      true,
		},
		Gesture: GestureConfig{
			Duration:      1300 * time.Millisecond,
			Steps:         6,
			EndHold:       300 * time.Millisecond,
			StartFraction: 0.05,
			Overshoot:     5,
		},
		UI: UIConfig{
			DeskEntry:       "Desk",
			DatePicker:      "All day",
			NextMonth:       "Next month",
			ConfirmDate:     "Confirm and proceed",
			BookDesk:        "Book a desk",
			Scrim:           "Scrim",
			HomeButtonClass: "android.widget.Button",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Diagnostics: DiagnosticsConfig{
			MaxWidth: 720,
		},
	}
}

// setDefaults registers every key so env overrides and Unmarshal see them
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("appium.server_url", d.Appium.ServerURL)
	v.SetDefault("appium.request_timeout", d.Appium.RequestTimeout)
	v.SetDefault("appium.new_command_timeout", d.Appium.NewCommandTimeout)
	v.SetDefault("appium.adb_exec_timeout", d.Appium.ADBExecTimeout)

	v.SetDefault("app.package", d.App.Package)
	v.SetDefault("app.activity", d.App.Activity)

	v.SetDefault("device.serial", d.Device.Serial)
	v.SetDefault("device.adb_path", d.Device.ADBPath)
	v.SetDefault("device.query_timeout", d.Device.QueryTimeout)

	v.SetDefault("booking.step_timeout", d.Booking.StepTimeout)
	v.SetDefault("booking.building_timeout", d.Booking.BuildingTimeout)
	v.SetDefault("booking.page_timeout", d.Booking.PageTimeout)
	v.SetDefault("booking.poll_interval", d.Booking.PollInterval)
	v.SetDefault("booking.max_month_pages", d.Booking.MaxMonthPages)
	v.SetDefault("booking.dry_run", d.Booking.DryRun)
	v.SetDefault("booking.return_home", d.Booking.ReturnHome)

	v.SetDefault("gesture.duration", d.Gesture.Duration)
	v.SetDefault("gesture.steps", d.Gesture.Steps)
	v.SetDefault("gesture.end_hold", d.Gesture.EndHold)
	v.SetDefault("gesture.start_fraction", d.Gesture.StartFraction)
	v.SetDefault("gesture.overshoot", d.Gesture.Overshoot)

	v.SetDefault("ui.desk_entry", d.UI.DeskEntry)
	v.SetDefault("ui.date_picker", d.UI.DatePicker)
	v.SetDefault("ui.next_month", d.UI.NextMonth)
	v.SetDefault("ui.prev_month", d.UI.PrevMonth)
	v.SetDefault("ui.confirm_date", d.UI.ConfirmDate)
	v.SetDefault("ui.book_desk", d.UI.BookDesk)
	v.SetDefault("ui.scrim", d.UI.Scrim)
	v.SetDefault("ui.home_button_class", d.UI.HomeButtonClass)
	v.SetDefault("ui.home_button_index", d.UI.HomeButtonIndex)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("history.database_url", d.History.DatabaseURL)
	v.SetDefault("diagnostics.screenshot_dir", d.Diagnostics.ScreenshotDir)
	v.SetDefault("diagnostics.max_width", d.Diagnostics.MaxWidth)
}

// Load reads configuration. An explicit path must exist; otherwise
// deskbook.yaml is looked up in the working directory and
// $HOME/.config/deskbook, and a missing file means defaults plus env.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.Appium.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid appium.server_url: %q", c.Appium.ServerURL)
	}
	if c.App.Package == "" {
		return fmt.Errorf("app.package is required")
	}
	if c.App.Activity == "" {
		return fmt.Errorf("app.activity is required")
	}

	for name, d := range map[string]time.Duration{
		"appium.request_timeout":   c.Appium.RequestTimeout,
		"device.query_timeout":     c.Device.QueryTimeout,
		"booking.step_timeout":     c.Booking.StepTimeout,
		"booking.building_timeout": c.Booking.BuildingTimeout,
		"booking.page_timeout":     c.Booking.PageTimeout,
		"booking.poll_interval":    c.Booking.PollInterval,
		"gesture.duration":         c.Gesture.Duration,
		"gesture.end_hold":         c.Gesture.EndHold,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if c.Booking.MaxMonthPages <= 0 {
		return fmt.Errorf("booking.max_month_pages must be positive, got %d", c.Booking.MaxMonthPages)
	}
	if c.Gesture.Steps <= 0 {
		return fmt.Errorf("gesture.steps must be positive, got %d", c.Gesture.Steps)
	}
	if c.Gesture.StartFraction < 0 || c.Gesture.StartFraction >= 1 {
		return fmt.Errorf("gesture.start_fraction must be in [0,1), got %v", c.Gesture.StartFraction)
	}
	if c.Gesture.Overshoot <= 0 {
		return fmt.Errorf("gesture.overshoot must be positive, got %d", c.Gesture.Overshoot)
	}

	required := map[string]string{
		"ui.desk_entry":   c.UI.DeskEntry,
		"ui.date_picker":  c.UI.DatePicker,
		"ui.next_month":   c.UI.NextMonth,
		"ui.confirm_date": c.UI.ConfirmDate,
		"ui.book_desk":    c.UI.BookDesk,
	}
	for name, label := range required {
		if label == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level: %s (must be debug, info, warn or error)", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log.format: %s (must be 'json' or 'console')", c.Log.Format)
	}

	return nil
}

// Render writes the configuration as YAML
func (c *Config) Render(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	return enc.Close()
}
