package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxClients     = 16
	DefaultMaxMessageSize = 256
)

type Config struct {
	TCPAddr  string `yaml:"tcp_addr"`
	WSAddr   string `yaml:"ws_addr"`   // 为空则不启动 WebSocket 网关
	HTTPAddr string `yaml:"http_addr"` // 为空则不启动运维 HTTP

	MaxClients       int           `yaml:"max_clients"`
	MaxMessageSize   int           `yaml:"max_message_size"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"` // 0 表示不限时
	WriteTimeout     time.Duration `yaml:"write_timeout"`     // 0 表示不限时

	Log   LogConfig   `yaml:"log"`
	Redis RedisConfig `yaml:"redis"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"` // json | console
}

// RedisConfig 在线状态流；Addr 为空表示关闭
type RedisConfig struct {
	Addr   string `yaml:"addr"`
	DB     int    `yaml:"db"`
	Stream string `yaml:"stream"`
	Group  string `yaml:"group"`
}

func Default() *Config {
	return &Config{
		TCPAddr:        ":8080",
		MaxClients:     DefaultMaxClients,
		MaxMessageSize: DefaultMaxMessageSize,
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
		Redis: RedisConfig{
			Stream: "chat:presence",
			Group:  "chat-peek",
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// Load 依次叠加：默认值 -> CHAT_CONFIG 指向的 YAML 文件 -> CHAT_* 环境变量
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CHAT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.TCPAddr = getEnv("CHAT_TCP_ADDR", c.TCPAddr)
	c.WSAddr = getEnv("CHAT_WS_ADDR", c.WSAddr)
	c.HTTPAddr = getEnv("CHAT_HTTP_ADDR", c.HTTPAddr)
	c.MaxClients = getEnvInt("CHAT_MAX_CLIENTS", c.MaxClients)
	c.MaxMessageSize = getEnvInt("CHAT_MAX_MESSAGE_SIZE", c.MaxMessageSize)
	c.HandshakeTimeout = getEnvDuration("CHAT_HANDSHAKE_TIMEOUT", c.HandshakeTimeout)
	c.WriteTimeout = getEnvDuration("CHAT_WRITE_TIMEOUT", c.WriteTimeout)
	c.Log.Level = getEnv("CHAT_LOG_LEVEL", c.Log.Level)
	c.Log.Encoding = getEnv("CHAT_LOG_ENCODING", c.Log.Encoding)
	c.Redis.Addr = getEnv("CHAT_REDIS_ADDR", c.Redis.Addr)
	c.Redis.DB = getEnvInt("CHAT_REDIS_DB", c.Redis.DB)
	c.Redis.Stream = getEnv("CHAT_REDIS_STREAM", c.Redis.Stream)
	c.Redis.Group = getEnv("CHAT_REDIS_GROUP", c.Redis.Group)
}

// normalize 非法数值回退到默认值
func (c *Config) normalize() {
	if c.MaxClients <= 0 {
		c.MaxClients = DefaultMaxClients
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.HandshakeTimeout < 0 {
		c.HandshakeTimeout = 0
	}
	if c.WriteTimeout < 0 {
		c.WriteTimeout = 0
	}
}
