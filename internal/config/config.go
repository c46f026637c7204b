// Package config resolves run settings from defaults, the project config
// file, .env files, the environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/cache"
	"github.com/Zhao-zixi/Canalysis/internal/callsite"
	"github.com/Zhao-zixi/Canalysis/internal/fileutil"
	"github.com/Zhao-zixi/Canalysis/internal/llm"
	"github.com/Zhao-zixi/Canalysis/internal/output"
)

// EnvPrefix prefixes every environment override, e.g. CANALYSIS_MODEL.
const EnvPrefix = "CANALYSIS"

type CacheConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path,omitempty"`
}

type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Path   string `mapstructure:"path" yaml:"path,omitempty"`
}

// Config is built once per run and passed to the components that need it.
type Config struct {
	Mode        string        `mapstructure:"mode" yaml:"mode"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries     int           `mapstructure:"retries" yaml:"retries"`
	RPS         float64       `mapstructure:"rps" yaml:"rps"`
	Burst       int           `mapstructure:"burst" yaml:"burst"`
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model,omitempty"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	MemoSize    int           `mapstructure:"memo_size" yaml:"memo_size"`
	Guards      string        `mapstructure:"guards" yaml:"guards"`
	LogLevel    string        `mapstructure:"log_level" yaml:"log_level"`
	Cache       CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Output      OutputConfig  `mapstructure:"output" yaml:"output"`

	// Root is the analysis root; File is the config file that was read.
	Root string `mapstructure:"-" yaml:"-"`
	File string `mapstructure:"-" yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Mode:        string(analysis.ModeAsync),
		Concurrency: analysis.DefaultConcurrency,
		Timeout:     60 * time.Second,
		Retries:     2,
		Burst:       1,
		Provider:    string(llm.ProviderOpenAI),
		MemoSize:    256,
		Guards:      callsite.ScopeNearest.String(),
		LogLevel:    "warn",
		Cache:       CacheConfig{Backend: string(cache.BackendJSON)},
		Output:      OutputConfig{Format: string(output.FormatJSON)},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"mode":        "mode",
	"concurrency": "concurrency",
	"timeout":     "timeout",
	"retries":     "retries",
	"rps":         "rps",
	"provider":    "provider",
	"model":       "model",
	"base-url":    "base_url",
	"cache":       "cache.backend",
	"cache-path":  "cache.path",
	"format":      "output.format",
	"output":      "output.path",
	"log-level":   "log_level",
	"guards":      "guards",
}

// Load resolves the configuration for root. flags may be nil; configFile
// overrides the default .canalysis/config.* lookup.
func Load(root string, flags *pflag.FlagSet, configFile string) (*Config, error) {
	if err := loadDotEnv(root); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("base_url", EnvPrefix+"_BASE_URL", "BASE_URL")
	_ = v.BindEnv("model", EnvPrefix+"_MODEL", "MODEL")
	_ = v.BindEnv("api_key", EnvPrefix+"_API_KEY", "API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(output.ContextPath(root))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind --%s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Root = root
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("mode", d.Mode)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("retries", d.Retries)
	v.SetDefault("rps", d.RPS)
	v.SetDefault("burst", d.Burst)
	v.SetDefault("provider", d.Provider)
	v.SetDefault("model", d.Model)
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("memo_size", d.MemoSize)
	v.SetDefault("guards", d.Guards)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.path", d.Output.Path)
}

// loadDotEnv reads .env from the working directory and root without
// overriding variables already set.
func loadDotEnv(root string) error {
	candidates := []string{".env"}
	if abs, err := filepath.Abs(root); err == nil {
		if cwd, err := os.Getwd(); err != nil || filepath.Clean(cwd) != abs {
			candidates = append(candidates, filepath.Join(abs, ".env"))
		}
	}
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Error is a rejected configuration value.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// Validate rejects unknown names and out-of-range numbers.
func (c *Config) Validate() error {
	if _, err := analysis.ParseMode(c.Mode); err != nil {
		return &Error{Field: "mode", Message: err.Error()}
	}
	if _, err := llm.ParseProvider(c.Provider); err != nil {
		return &Error{Field: "provider", Message: err.Error()}
	}
	if _, err := callsite.ParseScope(c.Guards); err != nil {
		return &Error{Field: "guards", Message: err.Error()}
	}
	if _, err := cache.ParseBackend(c.Cache.Backend); err != nil {
		return &Error{Field: "cache.backend", Message: err.Error()}
	}
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		return &Error{Field: "output.format", Message: err.Error()}
	}
	if c.Concurrency < 1 {
		return &Error{Field: "concurrency", Message: "must be at least 1"}
	}
	if c.Timeout < 0 {
		return &Error{Field: "timeout", Message: "must not be negative"}
	}
	if c.Retries < 0 {
		return &Error{Field: "retries", Message: "must not be negative"}
	}
	if c.RPS < 0 {
		return &Error{Field: "rps", Message: "must not be negative"}
	}
	return nil
}

// AnalysisMode returns the validated mode.
func (c *Config) AnalysisMode() analysis.Mode {
	mode, _ := analysis.ParseMode(c.Mode)
	return mode
}

// GuardScope returns the validated guard scope.
func (c *Config) GuardScope() callsite.Scope {
	scope, _ := callsite.ParseScope(c.Guards)
	return scope
}

// CacheBackend returns the validated cache backend.
func (c *Config) CacheBackend() cache.Backend {
	backend, _ := cache.ParseBackend(c.Cache.Backend)
	return backend
}

// OutputFormat returns the validated output format.
func (c *Config) OutputFormat() output.Format {
	format, _ := output.ParseFormat(c.Output.Format)
	return format
}

// CachePath resolves the store location. Relative paths are under Root.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.resolve(c.Cache.Path)
	}
	if c.CacheBackend() == cache.BackendSQLite {
		return filepath.Join(output.ContextPath(c.Root), cache.DefaultDatabase)
	}
	return filepath.Join(output.ContextPath(c.Root), cache.DefaultFile)
}

// OutputPath resolves the analysis file location.
func (c *Config) OutputPath() string {
	if c.Output.Path != "" {
		return c.resolve(c.Output.Path)
	}
	return output.DefaultAnalysisPath(c.Root, c.OutputFormat())
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Root, path)
}

// LLMSettings returns the provider settings for llm.NewClient.
func (c *Config) LLMSettings() llm.Settings {
	provider, _ := llm.ParseProvider(c.Provider)
	return llm.Settings{
		Provider: provider,
		Model:    c.Model,
		BaseURL:  c.BaseURL,
		APIKey:   c.APIKey,
		Retries:  c.Retries,
		RPS:      c.RPS,
		Burst:    c.Burst,
		MemoSize: c.MemoSize,
	}
}

// RenderDefault returns the YAML written by canalysis init.
func RenderDefault() ([]byte, error) {
	body, err := yaml.Marshal(Default())
	if err != nil {
		return nil, err
	}
	header := "# canalysis configuration. Environment variables CANALYSIS_<KEY> and\n" +
		"# BASE_URL, MODEL, API_KEY override these values; flags override both.\n"
	return append([]byte(header), body...), nil
}

// WriteDefault writes the default config under root unless one exists and
// returns its path.
func WriteDefault(root string) (string, error) {
	path := filepath.Join(output.ContextPath(root), output.ConfigFile)
	data, err := RenderDefault()
	if err != nil {
		return "", fmt.Errorf("failed to render default config: %w", err)
	}
	if err := fileutil.WriteIfMissing(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
