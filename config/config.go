// Package config loads tooldesk settings from command-line flags, the environment and an
// optional .env file, in that order of precedence, on top of built-in defaults.
package config

import (
	"io/fs"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Setting keys. The matching environment variable is the upper-cased key.
const (
	KeyOpenAIAPIKey          = "openai_api_key"
	KeyOpenAIBaseURL         = "openai_base_url"
	KeyOpenAIModel           = "openai_model"
	KeyExchangeRateAPIKey    = "exchangerate_api_key"
	KeyExchangeRateBaseURL   = "exchangerate_base_url"
	KeyOpenWeatherMapAPIKey  = "openweathermap_api_key"
	KeyOpenWeatherMapBaseURL = "openweathermap_base_url"
	KeyToolTimeout           = "tool_timeout"
	KeyCompletionTimeout     = "completion_timeout"
	KeyMaxConcurrency        = "max_concurrency"
	KeyHTTPRateLimit         = "http_rate_limit"
	KeyPoliciesFile          = "policies_file"
)

// FlagEnvFile names the flag holding the .env path.
const FlagEnvFile = "env-file"

var keys = []string{
	KeyOpenAIAPIKey, KeyOpenAIBaseURL, KeyOpenAIModel,
	KeyExchangeRateAPIKey, KeyExchangeRateBaseURL,
	KeyOpenWeatherMapAPIKey, KeyOpenWeatherMapBaseURL,
	KeyToolTimeout, KeyCompletionTimeout, KeyMaxConcurrency, KeyHTTPRateLimit, KeyPoliciesFile,
}

// flagKeys maps flag names registered by RegisterFlags to setting keys.
var flagKeys = map[string]string{
	"model":              KeyOpenAIModel,
	"openai-base-url":    KeyOpenAIBaseURL,
	"policies-file":      KeyPoliciesFile,
	"tool-timeout":       KeyToolTimeout,
	"completion-timeout": KeyCompletionTimeout,
	"max-concurrency":    KeyMaxConcurrency,
}

// ErrMissingAPIKey is returned by Validate when no OpenAI key is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

// Config is the resolved configuration.
type Config struct {
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIModel           string
	ExchangeRateAPIKey    string
	ExchangeRateBaseURL   string
	OpenWeatherMapAPIKey  string
	OpenWeatherMapBaseURL string
	ToolTimeout           time.Duration
	CompletionTimeout     time.Duration
	MaxConcurrency        int
	// HTTPRateLimit is the request rate per second of each HTTP-backed tool.
	HTTPRateLimit float64
	PoliciesFile  string
	// EnvFile is the .env file that was read, empty when none was found.
	EnvFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyOpenAIModel, "gpt-3.5-turbo")
	v.SetDefault(KeyExchangeRateBaseURL, "https://api.exchangerate.host")
	v.SetDefault(KeyOpenWeatherMapBaseURL, "https://api.openweathermap.org")
	v.SetDefault(KeyToolTimeout, 10*time.Second)
	v.SetDefault(KeyCompletionTimeout, 60*time.Second)
	v.SetDefault(KeyMaxConcurrency, 4)
	v.SetDefault(KeyHTTPRateLimit, 5.0)
}

// RegisterFlags adds the configuration flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(FlagEnvFile, ".env", "Path to a .env file (ignored when missing)")
	flags.String("model", "", "OpenAI model (default gpt-3.5-turbo)")
	flags.String("openai-base-url", "", "OpenAI-compatible API base URL")
	flags.String("policies-file", "", "YAML file with instruction variants (default: built-in A/B/C)")
	flags.Duration("tool-timeout", 0, "Timeout of a single tool call (default 10s)")
	flags.Duration("completion-timeout", 0, "Timeout of a single completion call (default 60s)")
	flags.Int("max-concurrency", 0, "Maximum concurrent tool executions (default 4)")
}

// Load resolves the configuration. flags may be nil; otherwise flags registered with
// RegisterFlags that were set on the command line take precedence over everything else.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	envFile := ".env"
	if flags != nil {
		if f := flags.Lookup(FlagEnvFile); f != nil {
			envFile = f.Value.String()
		}
	}
	used, err := mergeEnvFile(v, envFile)
	if err != nil {
		return nil, err
	}

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errors.Wrapf(err, "bind flag --%s", name)
			}
		}
	}

	return &Config{
		OpenAIAPIKey:          v.GetString(KeyOpenAIAPIKey),
		OpenAIBaseURL:         v.GetString(KeyOpenAIBaseURL),
		OpenAIModel:           v.GetString(KeyOpenAIModel),
		ExchangeRateAPIKey:    v.GetString(KeyExchangeRateAPIKey),
		ExchangeRateBaseURL:   v.GetString(KeyExchangeRateBaseURL),
		OpenWeatherMapAPIKey:  v.GetString(KeyOpenWeatherMapAPIKey),
		OpenWeatherMapBaseURL: v.GetString(KeyOpenWeatherMapBaseURL),
		ToolTimeout:           v.GetDuration(KeyToolTimeout),
		CompletionTimeout:     v.GetDuration(KeyCompletionTimeout),
		MaxConcurrency:        v.GetInt(KeyMaxConcurrency),
		HTTPRateLimit:         v.GetFloat64(KeyHTTPRateLimit),
		PoliciesFile:          v.GetString(KeyPoliciesFile),
		EnvFile:               used,
	}, nil
}

// mergeEnvFile layers the settings of a .env file between the defaults and the environment.
// A missing file is not an error.
func mergeEnvFile(v *viper.Viper, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	fv := viper.New()
	fv.SetConfigFile(path)
	fv.SetConfigType("env")
	if err := fv.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", errors.Wrapf(err, "read env file %s", path)
	}
	for _, key := range keys {
		if fv.IsSet(key) {
			v.SetDefault(key, fv.Get(key))
		}
	}
	return path, nil
}

// Validate checks the settings needed to talk to the completion service.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.ToolTimeout < 0 || c.CompletionTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.HTTPRateLimit <= 0 {
		return errors.Errorf("http_rate_limit must be positive, got %v", c.HTTPRateLimit)
	}
	return nil
}
