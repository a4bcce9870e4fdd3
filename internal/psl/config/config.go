package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultSourceURL is where the public suffix list is published.
const DefaultSourceURL = "https://publicsuffix.org/list/public_suffix_list.dat"

// ConfigFileEnv names an optional YAML, JSON or TOML file applied between
// the defaults and the environment.
const ConfigFileEnv = "PSL_CONFIG"

// AppConfig holds configuration values parsed from environment variables.
// With no environment set, the defaults reproduce the fixed URL and
// executable-relative output location of the updater.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	Log LoggingConfig `koanf:"log"`

	Source SourceConfig `koanf:"source"`

	Output OutputConfig `koanf:"output"`

	Encoder EncoderConfig `koanf:"encoder"`

	Verify VerifyConfig `koanf:"verify"`

	Ledger LedgerConfig `koanf:"ledger"`
}

type LoggingConfig struct {
	// Level controls log verbosity: "debug", "info", "warn", or "error".
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

// SourceConfig describes where and how the list is downloaded.
type SourceConfig struct {
	URL string `koanf:"url" validate:"required,source_url"`

	// Timeout bounds the whole HTTP exchange.
	Timeout time.Duration `koanf:"timeout" validate:"required,gt=0"`

	// MaxBytes caps the accepted response body size.
	MaxBytes int64 `koanf:"maxbytes" validate:"required,gte=1"`
}

type OutputConfig struct {
	// Path overrides the destination file. Empty means
	// <dir of executable>/../Resources/public_suffix_list.dat.
	Path string `koanf:"path"`
}

type EncoderConfig struct {
	// Cache is the number of punycode label conversions kept in memory; 0 disables it.
	Cache int `koanf:"cache" validate:"gte=0"`
}

type VerifyConfig struct {
	// Strict aborts the run before writing when verification fails.
	Strict bool `koanf:"strict"`
}

type LedgerConfig struct {
	// Path of the bbolt run ledger. Empty disables the ledger.
	Path string `koanf:"path"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings for the updater.
var DEFAULT_APP_CONFIG = AppConfig{
	Env: "prod",
	Log: LoggingConfig{
		Level: "info",
	},
	Source: SourceConfig{
		URL:      DefaultSourceURL,
		Timeout:  30 * time.Second,
		MaxBytes: 16 << 20,
	},
	Output: OutputConfig{
		Path: "",
	},
	Encoder: EncoderConfig{
		Cache: 512,
	},
	Verify: VerifyConfig{
		Strict: false,
	},
	Ledger: LedgerConfig{
		Path: "",
	},
}

// validSourceURL accepts absolute http and https URLs that name a host.
func validSourceURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// envLoader loads environment variables with the prefix "PSL_".
// The prefix is removed, keys are lowercased, and '_' becomes the
// koanf delimiter so PSL_SOURCE_URL maps to source.url.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "PSL_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "PSL_"))
			key = strings.ReplaceAll(key, "_", ".")
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG into the provided Koanf instance
// using the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// fileLoader loads the file named by PSL_CONFIG, if set. The parser is
// chosen by extension.
var fileLoader = func(k *koanf.Koanf) error {
	path := strings.TrimSpace(os.Getenv(ConfigFileEnv))
	if path == "" {
		return nil
	}
	parser, err := parserFor(path)
	if err != nil {
		return err
	}
	return k.Load(file.Provider(path), parser)
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file type %q", ext)
	}
}

// registerValidation registers the custom "source_url" tag.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("source_url", validSourceURL)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = fileLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading config file: %w", err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
