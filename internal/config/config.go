// Package config loads nimbusfs CLI configuration.
//
// Values are layered, lowest to highest precedence: defaults set in code,
// a YAML config file, NIMBUSFS_* environment variables, and runtime
// overrides (usually from command-line flags).
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/3leaps/nimbusfs/pkg/adapter"
)

// AppName names the config directory and file.
const AppName = "nimbusfs"

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "NIMBUSFS"

// Supported storage backends.
const (
	BackendS3    = "s3"
	BackendMinio = "minio"
)

// Config is the complete CLI configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// StorageConfig selects the backend and shapes the adapter built on it.
type StorageConfig struct {
	Backend         string `mapstructure:"backend" yaml:"backend"`
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Region          string `mapstructure:"region" yaml:"region"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	Profile         string `mapstructure:"profile" yaml:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"-"`
	ForcePathStyle  bool   `mapstructure:"force_path_style" yaml:"force_path_style"`
	UseSSL          bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
	IMDSRegion      bool   `mapstructure:"imds_region" yaml:"imds_region"`

	// Root is the key prefix every adapter path is resolved under.
	Root string `mapstructure:"root" yaml:"root"`

	PublicURL    string `mapstructure:"public_url" yaml:"public_url"`
	CDNURL       string `mapstructure:"cdn_url" yaml:"cdn_url"`
	TemporaryURL string `mapstructure:"temporary_url" yaml:"temporary_url"`
	IsCName      bool   `mapstructure:"is_cname" yaml:"is_cname"`

	DirectoryVisibility string  `mapstructure:"directory_visibility" yaml:"directory_visibility"`
	ListPageSize        int     `mapstructure:"list_page_size" yaml:"list_page_size"`
	ListStrategy        string  `mapstructure:"list_strategy" yaml:"list_strategy"`
	ListRateLimit       float64 `mapstructure:"list_rate_limit" yaml:"list_rate_limit"`

	// WriteDefaults is decoded with adapter.DecodeWriteOptions.
	WriteDefaults map[string]any `mapstructure:"write_defaults" yaml:"write_defaults"`
}

// LogConfig configures the library logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// EnvSpec maps one environment variable to a config key.
type EnvSpec struct {
	Name string
	Path string
}

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// Load reads configuration from the default search path.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	return LoadFile(ctx, "", overrides...)
}

// LoadFile reads configuration from file, or from the default search path
// (./nimbusfs.yaml, then the user config dir) when file is empty. A missing
// explicit file is an error; a missing default file is not.
func LoadFile(ctx context.Context, file string, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)

	for _, spec := range getEnvSpecs() {
		if err := v.BindEnv(spec.Path, spec.Name); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", spec.Name, err)
		}
	}

	if file != "" {
		if _, err := os.Stat(file); err != nil {
			return nil, &FileError{Path: file, Err: err}
		}
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		for _, dir := range getConfigPaths() {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, &FileError{Path: v.ConfigFileUsed(), Err: err}
		}
	}

	for _, override := range overrides {
		applyOverrides(v, "", override)
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// SetDefaults registers the default value for every known key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", BackendS3)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.profile", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.force_path_style", false)
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.imds_region", false)
	v.SetDefault("storage.root", "")
	v.SetDefault("storage.public_url", "")
	v.SetDefault("storage.cdn_url", "")
	v.SetDefault("storage.temporary_url", "")
	v.SetDefault("storage.is_cname", false)
	v.SetDefault("storage.directory_visibility", string(adapter.VisibilityPublic))
	v.SetDefault("storage.list_page_size", 1000)
	v.SetDefault("storage.list_strategy", string(adapter.ListAuto))
	v.SetDefault("storage.list_rate_limit", 0.0)
	v.SetDefault("log.level", "info")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendS3, BackendMinio:
	default:
		return &ValidationError{Key: "storage.backend", Message: fmt.Sprintf("unsupported backend %q (want s3 or minio)", c.Storage.Backend)}
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return &ValidationError{Key: "storage.bucket", Message: "bucket is required"}
	}
	if c.Storage.Backend == BackendMinio && c.Storage.Endpoint == "" {
		return &ValidationError{Key: "storage.endpoint", Message: "endpoint is required for the minio backend"}
	}
	if _, err := adapter.ParseVisibility(c.Storage.DirectoryVisibility); err != nil {
		return &ValidationError{Key: "storage.directory_visibility", Message: err.Error()}
	}
	if _, err := adapter.ParseListStrategy(c.Storage.ListStrategy); err != nil {
		return &ValidationError{Key: "storage.list_strategy", Message: err.Error()}
	}
	if c.Storage.ListPageSize < 1 || c.Storage.ListPageSize > 1000 {
		return &ValidationError{Key: "storage.list_page_size", Message: "must be between 1 and 1000"}
	}
	if c.Storage.ListRateLimit < 0 {
		return &ValidationError{Key: "storage.list_rate_limit", Message: "must not be negative"}
	}
	if len(c.Storage.WriteDefaults) > 0 {
		if _, err := adapter.DecodeWriteOptions(c.Storage.WriteDefaults); err != nil {
			return &ValidationError{Key: "storage.write_defaults", Message: err.Error()}
		}
	}
	return nil
}

// ValidationError reports an invalid config value.
type ValidationError struct {
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	return "config: " + e.Key + ": " + e.Message
}

// FileError reports a config file that could not be read or parsed.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("config file %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// applyOverrides flattens nested maps into dotted keys so each leaf is set
// individually; setting a whole subtree would hide sibling defaults.
func applyOverrides(v *viper.Viper, prefix string, values map[string]any) {
	for key, value := range values {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok && full != "storage.write_defaults" {
			applyOverrides(v, full, nested)
			continue
		}
		v.Set(full, value)
	}
}

func getConfigPaths() []string {
	paths := []string{"."}
	if dir := config.GetAppConfigDir(AppName); filepath.IsAbs(dir) {
		paths = append(paths, dir)
	}
	return paths
}

func getEnvSpecs() []EnvSpec {
	env := func(name string) string { return EnvPrefix + "_" + name }
	return []EnvSpec{
		{Name: env("BACKEND"), Path: "storage.backend"},
		{Name: env("BUCKET"), Path: "storage.bucket"},
		{Name: env("REGION"), Path: "storage.region"},
		{Name: env("ENDPOINT"), Path: "storage.endpoint"},
		{Name: env("PROFILE"), Path: "storage.profile"},
		{Name: env("ACCESS_KEY_ID"), Path: "storage.access_key_id"},
		{Name: env("SECRET_ACCESS_KEY"), Path: "storage.secret_access_key"},
		{Name: env("FORCE_PATH_STYLE"), Path: "storage.force_path_style"},
		{Name: env("USE_SSL"), Path: "storage.use_ssl"},
		{Name: env("IMDS_REGION"), Path: "storage.imds_region"},
		{Name: env("ROOT"), Path: "storage.root"},
		{Name: env("PUBLIC_URL"), Path: "storage.public_url"},
		{Name: env("CDN_URL"), Path: "storage.cdn_url"},
		{Name: env("TEMPORARY_URL"), Path: "storage.temporary_url"},
		{Name: env("IS_CNAME"), Path: "storage.is_cname"},
		{Name: env("DIRECTORY_VISIBILITY"), Path: "storage.directory_visibility"},
		{Name: env("LIST_PAGE_SIZE"), Path: "storage.list_page_size"},
		{Name: env("LIST_STRATEGY"), Path: "storage.list_strategy"},
		{Name: env("LIST_RATE_LIMIT"), Path: "storage.list_rate_limit"},
		{Name: env("LOG_LEVEL"), Path: "log.level"},
	}
}
