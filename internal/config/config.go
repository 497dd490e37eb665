package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Storage struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
}

// Enabled reports whether an object store is configured at all.
func (s Storage) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

type Config struct {
	DatabaseURL        string
	HTTPAddr           string
	RedisAddr          string
	LogLevel           string
	CORSAllowedOrigins []string
	CommentAuthor      string
	DockerHost         string
	Storage            Storage
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8000")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("log_level", "info")
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("comment_author", "Current User")
	v.SetDefault("minio_region", "us-east-1")
}

// Load reads configuration from the environment and, when file is non-empty, from that file.
// Environment variables win over the file.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{
		DatabaseURL:        v.GetString("database_url"),
		HTTPAddr:           v.GetString("http_addr"),
		RedisAddr:          v.GetString("redis_addr"),
		LogLevel:           v.GetString("log_level"),
		CORSAllowedOrigins: splitList(v.GetString("cors_allowed_origins")),
		CommentAuthor:      v.GetString("comment_author"),
		DockerHost:         v.GetString("docker_host"),
		Storage: Storage{
			Endpoint:  v.GetString("minio_endpoint"),
			Bucket:    v.GetString("minio_bucket"),
			AccessKey: v.GetString("minio_access_key"),
			SecretKey: v.GetString("minio_secret_key"),
			Region:    v.GetString("minio_region"),
		},
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	return cfg, nil
}

// SetupLogging configures the standard logrus logger.
func SetupLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
