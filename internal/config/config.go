package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	DataDir   string `mapstructure:"data_dir" yaml:"data_dir"`
	CSVLayout string `mapstructure:"csv_layout" yaml:"csv_layout" validate:"oneof=adjacent wide"`
	// Timezone is an IANA name or "Local".
	Timezone string `mapstructure:"timezone" yaml:"timezone" validate:"required,tzname"`

	// Year window for "D MMM H am|pm" tokens, which carry no year.
	HourLabelLateYear      int `mapstructure:"hour_label_late_year" yaml:"hour_label_late_year" validate:"min=1900,max=9999"`
	HourLabelEarlyYear     int `mapstructure:"hour_label_early_year" yaml:"hour_label_early_year" validate:"min=1900,max=9999"`
	HourLabelLateFromMonth int `mapstructure:"hour_label_late_from_month" yaml:"hour_label_late_from_month" validate:"min=1,max=12"`

	RecentWindow      int    `mapstructure:"recent_window" yaml:"recent_window" validate:"min=1"`
	StorageQuotaBytes int    `mapstructure:"storage_quota_bytes" yaml:"storage_quota_bytes" validate:"min=1024"`
	LogLevel          string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`

	// HTTP server
	ServeAddr       string  `mapstructure:"serve_addr" yaml:"serve_addr" validate:"required,hostname_port"`
	UploadRateLimit float64 `mapstructure:"upload_rate_limit" yaml:"upload_rate_limit" validate:"gte=0"`
	MaxUploadBytes  int64   `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes" validate:"min=1024"`

	// PNG chart export
	ChartWidth  int `mapstructure:"chart_width" yaml:"chart_width" validate:"min=200,max=8000"`
	ChartHeight int `mapstructure:"chart_height" yaml:"chart_height" validate:"min=150,max=8000"`
}

const dirName = ".vitals"

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.vitals/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := homeDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("VITALS")
	v.AutomaticEnv()

	v.SetDefault("data_dir", "")
	v.SetDefault("csv_layout", "adjacent")
	v.SetDefault("timezone", "Local")
	v.SetDefault("hour_label_late_year", 2025)
	v.SetDefault("hour_label_early_year", 2026)
	v.SetDefault("hour_label_late_from_month", 11)
	v.SetDefault("recent_window", 7)
	v.SetDefault("storage_quota_bytes", 5*1024*1024)
	v.SetDefault("log_level", "info")
	v.SetDefault("serve_addr", "127.0.0.1:8080")
	v.SetDefault("upload_rate_limit", 2.0)
	v.SetDefault("max_upload_bytes", 20*1024*1024)
	v.SetDefault("chart_width", 1200)
	v.SetDefault("chart_height", 500)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := homeDir()
		if err != nil {
			return nil, err
		}
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve data_dir default: ~/.vitals/data
	if c.DataDir == "" {
		dir, err := homeDir()
		if err != nil {
			return nil, err
		}
		c.DataDir = filepath.Join(dir, "data")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// "Local" is accepted alongside IANA names.
	_ = v.RegisterValidation("tzname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if strings.EqualFold(name, "local") {
			return true
		}
		_, err := time.LoadLocation(name)
		return name != "" && err == nil
	})
	return v
}

// Validate checks every field against its constraints.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Global) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	return loc, nil
}

// Set assigns one key from its text form and revalidates.
func (c *Global) Set(key, val string) error {
	prev := *c
	var err error
	switch key {
	case "data_dir":
		c.DataDir = val
	case "csv_layout":
		c.CSVLayout = strings.ToLower(val)
	case "timezone":
		c.Timezone = val
	case "hour_label_late_year":
		c.HourLabelLateYear, err = strconv.Atoi(val)
	case "hour_label_early_year":
		c.HourLabelEarlyYear, err = strconv.Atoi(val)
	case "hour_label_late_from_month":
		c.HourLabelLateFromMonth, err = strconv.Atoi(val)
	case "recent_window":
		c.RecentWindow, err = strconv.Atoi(val)
	case "storage_quota_bytes":
		c.StorageQuotaBytes, err = strconv.Atoi(val)
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "serve_addr":
		c.ServeAddr = val
	case "upload_rate_limit":
		c.UploadRateLimit, err = strconv.ParseFloat(val, 64)
	case "max_upload_bytes":
		c.MaxUploadBytes, err = strconv.ParseInt(val, 10, 64)
	case "chart_width":
		c.ChartWidth, err = strconv.Atoi(val)
	case "chart_height":
		c.ChartHeight, err = strconv.Atoi(val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		*c = prev
		return fmt.Errorf("invalid value for %s: %v", key, val)
	}
	if err := c.Validate(); err != nil {
		*c = prev
		return err
	}
	return nil
}

// Fields returns the effective settings as key/value pairs in display order.
func (c *Global) Fields() [][2]string {
	return [][2]string{
		{"data_dir", c.DataDir},
		{"csv_layout", c.CSVLayout},
		{"timezone", c.Timezone},
		{"hour_label_late_year", strconv.Itoa(c.HourLabelLateYear)},
		{"hour_label_early_year", strconv.Itoa(c.HourLabelEarlyYear)},
		{"hour_label_late_from_month", strconv.Itoa(c.HourLabelLateFromMonth)},
		{"recent_window", strconv.Itoa(c.RecentWindow)},
		{"storage_quota_bytes", strconv.Itoa(c.StorageQuotaBytes)},
		{"log_level", c.LogLevel},
		{"serve_addr", c.ServeAddr},
		{"upload_rate_limit", strconv.FormatFloat(c.UploadRateLimit, 'f', -1, 64)},
		{"max_upload_bytes", strconv.FormatInt(c.MaxUploadBytes, 10)},
		{"chart_width", strconv.Itoa(c.ChartWidth)},
		{"chart_height", strconv.Itoa(c.ChartHeight)},
	}
}
