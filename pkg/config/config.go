package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/harrisonrobin/notask/pkg/model"
)

const (
	xdgAppName = "notask"
	configFile = "config.yaml"
	envPrefix  = "NOTASK"

	// APIKeyEnv is the environment variable holding the Notion integration token.
	APIKeyEnv = "NOTION_API_KEY"

	DefaultCalendar = "Tasks"
)

type Config struct {
	Notion     NotionConfig     `mapstructure:"notion"`
	Query      QueryConfig      `mapstructure:"query"`
	Properties PropertiesConfig `mapstructure:"properties"`
	Calendar   CalendarConfig   `mapstructure:"calendar"`
	Log        LogConfig        `mapstructure:"log"`
}

type NotionConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Version string `mapstructure:"version"`
}

type QueryConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// PropertiesConfig names the database properties tasks are read from.
type PropertiesConfig struct {
	Name    string `mapstructure:"name"`
	DueDate string `mapstructure:"due_date"`
	Status  string `mapstructure:"status"`
	Class   string `mapstructure:"class"`
	Type    string `mapstructure:"type"`
}

type CalendarConfig struct {
	Name string `mapstructure:"name"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Notion: NotionConfig{
			BaseURL: "https://api.notion.com/v1",
			Version: "2022-06-28",
		},
		Query: QueryConfig{PageSize: 10},
		Properties: PropertiesConfig{
			Name:    "Name",
			DueDate: "Due Date",
			Status:  "Status",
			Class:   "Class",
			Type:    "Type",
		},
		Calendar: CalendarConfig{Name: DefaultCalendar},
		Log:      LogConfig{Level: "warn"},
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("notion.api_key", d.Notion.APIKey)
	v.SetDefault("notion.base_url", d.Notion.BaseURL)
	v.SetDefault("notion.version", d.Notion.Version)

	v.SetDefault("query.page_size", d.Query.PageSize)

	v.SetDefault("properties.name", d.Properties.Name)
	v.SetDefault("properties.due_date", d.Properties.DueDate)
	v.SetDefault("properties.status", d.Properties.Status)
	v.SetDefault("properties.class", d.Properties.Class)
	v.SetDefault("properties.type", d.Properties.Type)

	v.SetDefault("calendar.name", d.Calendar.Name)
	v.SetDefault("log.level", d.Log.Level)
}

// Init prepares v: defaults, .env file, environment and the config file.
// cfgFile and envFile may be empty to use the standard locations.
func Init(v *viper.Viper, cfgFile, envFile string) error {
	SetDefaults(v)

	if envFile == "" {
		envFile = ".env"
	}
	// Variables already in the environment win over the .env file.
	if err := gotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: failed to load %s: %v", model.ErrConfiguration, envFile, err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("notion.api_key", envPrefix+"_NOTION_API_KEY", APIKeyEnv); err != nil {
		return err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(configFile, filepath.Ext(configFile)))
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (cfgFile == "" && errors.Is(err, fs.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("%w: failed to read config: %v", model.ErrConfiguration, err)
	}
	return nil
}

// Load reads the configuration from v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config: %v", model.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks everything except the credential, which only some
// commands need.
func (c *Config) Validate() error {
	var problems []string
	if c.Query.PageSize < 1 || c.Query.PageSize > 100 {
		problems = append(problems, fmt.Sprintf("query.page_size must be between 1 and 100, got %d", c.Query.PageSize))
	}
	for key, val := range map[string]string{
		"properties.name":     c.Properties.Name,
		"properties.due_date": c.Properties.DueDate,
		"properties.status":   c.Properties.Status,
		"properties.class":    c.Properties.Class,
		"properties.type":     c.Properties.Type,
		"notion.base_url":     c.Notion.BaseURL,
		"notion.version":      c.Notion.Version,
	} {
		if strings.TrimSpace(val) == "" {
			problems = append(problems, key+" must not be empty")
		}
	}
	if _, err := c.LogLevel(); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		slices.Sort(problems)
		return fmt.Errorf("%w: %s", model.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// RequireAPIKey returns the Notion token or a configuration error when unset.
func (c *Config) RequireAPIKey() (string, error) {
	key := strings.TrimSpace(c.Notion.APIKey)
	if key == "" {
		return "", fmt.Errorf("%w: %s is not set", model.ErrConfiguration, APIKeyEnv)
	}
	return key, nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelWarn, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return lvl, nil
}

// Dir returns the user's config directory for notask.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, xdgAppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + xdgAppName
	}
	return filepath.Join(home, ".config", xdgAppName)
}

// File returns the path of the default config file.
func File() string {
	return filepath.Join(Dir(), configFile)
}

// SaveCalendar persists the default calendar name into the config file at
// path, keeping whatever else the file already holds. Environment values are
// never written out.
func SaveCalendar(path, name string) error {
	fv := viper.New()
	fv.SetConfigFile(path)
	if err := fv.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	fv.Set("calendar.name", name)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := fv.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
