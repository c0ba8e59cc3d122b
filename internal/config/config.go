package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var DefaultAllowedExtensions = []string{
	"txt", "pdf", "png", "jpg", "jpeg", "gif", "doc", "docx", "xls", "xlsx",
	"ppt", "pptx", "zip", "rar", "7z", "tar", "gz", "mp3", "mp4", "avi",
	"mov", "wav", "csv", "json", "xml",
}

var ErrMissingSecret = errors.New("jwt.secret must be set")

type Config struct {
	DB          DBConfig          `mapstructure:"db"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Storage     StorageConfig     `mapstructure:"storage"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Log         LogConfig         `mapstructure:"log"`
	Mail        MailConfig        `mapstructure:"mail"`
	Permissions PermissionsConfig `mapstructure:"permissions"`
	AppHost     string            `mapstructure:"host"`
}

type DBConfig struct {
	Source      string `mapstructure:"source"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	ConfirmTTL time.Duration `mapstructure:"confirm_ttl"`
}

type StorageConfig struct {
	Path              string   `mapstructure:"path"`
	MaxUploadBytes    int64    `mapstructure:"max_upload_bytes"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	UnlinkOnDelete    bool     `mapstructure:"unlink_on_delete"`
}

type HTTPConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	RateLimit   float64  `mapstructure:"rate_limit"`
	RateBurst   int      `mapstructure:"rate_burst"`
}

type LogConfig struct {
	Production bool `mapstructure:"production"`
}

type MailConfig struct {
	From string `mapstructure:"from"`
}

// PermissionsConfig optionally replaces the built-in role table.
type PermissionsConfig struct {
	Capabilities map[string][]string `mapstructure:"capabilities"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.source", "")
	v.SetDefault("db.auto_migrate", false)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl", time.Hour)
	v.SetDefault("jwt.confirm_ttl", time.Hour)
	v.SetDefault("storage.path", "./uploads")
	v.SetDefault("storage.max_upload_bytes", int64(50<<20))
	v.SetDefault("storage.allowed_extensions", DefaultAllowedExtensions)
	v.SetDefault("storage.unlink_on_delete", true)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.rate_limit", 5.0)
	v.SetDefault("http.rate_burst", 10)
	v.SetDefault("log.production", false)
	v.SetDefault("mail.from", "noreply@localhost")
	v.SetDefault("host", "http://localhost:8080")
}

// Load reads settings.yml from ./configs or /configs, then applies the
// environment (DB_SOURCE, JWT_SECRET, ...).
func Load() (*Config, error) {
	return LoadFrom("./configs", "/configs")
}

func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("settings")
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	exts := make([]string, 0, len(cfg.Storage.AllowedExtensions))
	for _, ext := range cfg.Storage.AllowedExtensions {
		exts = append(exts, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")))
	}
	cfg.Storage.AllowedExtensions = exts
	if cfg.JWT.Secret == "" {
		return nil, ErrMissingSecret
	}

	return &cfg, nil
}
