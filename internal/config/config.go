package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath 是未设置 TASKDECK_CONFIG 时读取的配置文件。
const DefaultPath = "configs/taskdeck.yaml"

// Config 描述了 TaskDeck 在启动阶段需要加载的核心配置。
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Events  EventsConfig  `yaml:"events"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address                  string   `yaml:"address"`
	StaticDir                string   `yaml:"static_dir"`
	ReadHeaderTimeoutSeconds int      `yaml:"read_header_timeout_seconds"`
	CORSOrigins              []string `yaml:"cors_origins"`
}

// ReadHeaderTimeout 返回读取请求头的超时时间。
func (c ServerConfig) ReadHeaderTimeout() time.Duration {
	return time.Duration(c.ReadHeaderTimeoutSeconds) * time.Second
}

// StorageConfig 描述关系型存储的连接信息。
type StorageConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `yaml:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int    `yaml:"conn_max_idle_time_seconds"`
}

// AuthConfig 目前只包含演示用户的初始化信息。
type AuthConfig struct {
	Seed SeedUser `yaml:"seed"`
}

// SeedUser 是启动时确保存在的演示账号。
type SeedUser struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// EventsConfig 配置变更事件的投递方式。
type EventsConfig struct {
	Driver   string         `yaml:"driver"`
	Buffer   int            `yaml:"buffer"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

// RedisConfig 描述 Redis 事件列表。
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
	MaxLen   int64  `yaml:"max_len"`
}

// RabbitMQConfig 描述 RabbitMQ 事件队列。
type RabbitMQConfig struct {
	URL     string `yaml:"url"`
	Queue   string `yaml:"queue"`
	Durable bool   `yaml:"durable"`
}

// LogConfig 对应 pkg/logger 的配置项。
type LogConfig struct {
	Level   string         `yaml:"level"`
	Format  string         `yaml:"format"`
	Outputs []string       `yaml:"outputs"`
	Audit   AuditLogConfig `yaml:"audit"`
}

// AuditLogConfig 控制审计日志文件及其滚动策略。
type AuditLogConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MetricsConfig 控制 Prometheus 指标的独立监听地址，为空时不启动。
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// Load 解析指定路径的 YAML 配置文件。path 为空时使用默认路径；
// 默认路径不存在时返回全部默认值。
func Load(path string) (*Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultPath
	}

	var cfg Config
	// 相对路径以配置文件所在目录为基准，未读取到文件时以工作目录为基准。
	baseDir := ""
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置失败: %w", err)
		}
		baseDir = filepath.Dir(path)
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv 让部署环境覆盖文件中的少量关键项。
func (c *Config) applyEnv(getenv func(string) string) {
	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		if strings.Contains(port, ":") {
			c.Server.Address = port
		} else {
			c.Server.Address = ":" + port
		}
	}
	if driver := strings.TrimSpace(getenv("TASKDECK_DB_DRIVER")); driver != "" {
		c.Storage.Driver = driver
	}
	if dsn := strings.TrimSpace(getenv("TASKDECK_DB_DSN")); dsn != "" {
		c.Storage.DSN = dsn
	}
	if level := strings.TrimSpace(getenv("TASKDECK_LOG_LEVEL")); level != "" {
		c.Log.Level = level
	}
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":3000"
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = "public"
	}
	c.Server.StaticDir = resolve(baseDir, c.Server.StaticDir)
	if c.Server.ReadHeaderTimeoutSeconds <= 0 {
		c.Server.ReadHeaderTimeoutSeconds = 5
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Driver == "sqlite" {
		if c.Storage.DSN == "" {
			c.Storage.DSN = filepath.Join("db", "database.sqlite")
		}
		if !strings.HasPrefix(c.Storage.DSN, "file:") && c.Storage.DSN != ":memory:" {
			c.Storage.DSN = resolve(baseDir, c.Storage.DSN)
		}
	}

	if c.Auth.Seed.Username == "" {
		c.Auth.Seed.Username = "admin"
	}
	if c.Auth.Seed.Password == "" {
		c.Auth.Seed.Password = "password"
	}

	c.Events.Driver = strings.ToLower(strings.TrimSpace(c.Events.Driver))
	if c.Events.Driver == "" {
		c.Events.Driver = "memory"
	}
	if c.Events.Buffer <= 0 {
		c.Events.Buffer = 256
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	for i, out := range c.Log.Outputs {
		switch strings.ToLower(out) {
		case "stdout", "stderr":
		default:
			c.Log.Outputs[i] = resolve(baseDir, out)
		}
	}
	if c.Log.Audit.Enabled && c.Log.Audit.Path == "" {
		c.Log.Audit.Path = filepath.Join("logs", "audit.log")
	}
	if c.Log.Audit.Path != "" {
		c.Log.Audit.Path = resolve(baseDir, c.Log.Audit.Path)
	}
}

// Validate 检查枚举类配置项。
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "mysql", "memory":
	default:
		return fmt.Errorf("未知的存储驱动: %s", c.Storage.Driver)
	}
	if c.Storage.Driver == "mysql" && strings.TrimSpace(c.Storage.DSN) == "" {
		return errors.New("mysql 驱动需要配置 storage.dsn")
	}
	switch c.Events.Driver {
	case "none", "memory", "redis", "rabbitmq":
	default:
		return fmt.Errorf("未知的事件驱动: %s", c.Events.Driver)
	}
	return nil
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
