package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Session   SessionConfig   `mapstructure:"session"`
	Responder ResponderConfig `mapstructure:"responder"`
	Client    ClientConfig    `mapstructure:"client"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`

	// AuthToken, when set, is the only bearer token the dev backend accepts.
	AuthToken string `mapstructure:"auth_token"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	DataDir   string `mapstructure:"data_dir"`
	CacheSize int    `mapstructure:"cache_size"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ResponderConfig selects how the dev backend produces companion replies.
type ResponderConfig struct {
	Provider     string       `mapstructure:"provider"`
	SystemPrompt string       `mapstructure:"system_prompt"`
	MaxHistory   int          `mapstructure:"max_history"`
	OpenAI       OpenAIConfig `mapstructure:"openai"`
	Ark          ArkConfig    `mapstructure:"ark"`
	Qwen         QwenConfig   `mapstructure:"qwen"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type ArkConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type QwenConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	TopP        float32       `mapstructure:"top_p"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ClientConfig drives the chat controller and its HTTP client.
type ClientConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	CelebrationDuration time.Duration `mapstructure:"celebration_duration"`
	Token               string        `mapstructure:"token"`
	Mood                string        `mapstructure:"mood"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PATCH", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Authorization"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 43200)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.cache_size", 200)

	v.SetDefault("session.ttl", 30*24*time.Hour)
	v.SetDefault("session.cleanup_interval", time.Hour)

	v.SetDefault("responder.provider", "canned")
	v.SetDefault("responder.max_history", 20)
	v.SetDefault("responder.system_prompt",
		"You are a warm, supportive wellness companion. Listen, validate feelings and keep replies short.")
	v.SetDefault("responder.openai.model", "gpt-4o-mini")
	v.SetDefault("responder.qwen.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("responder.qwen.model", "qwen-plus")
	v.SetDefault("responder.qwen.max_tokens", 512)
	v.SetDefault("responder.qwen.temperature", 0.7)
	v.SetDefault("responder.qwen.top_p", 0.9)
	v.SetDefault("responder.qwen.timeout", 30*time.Second)
	v.SetDefault("responder.ark.timeout", 30*time.Second)

	v.SetDefault("client.base_url", "http://localhost:5000/api")
	v.SetDefault("client.request_timeout", 10*time.Second)
	v.SetDefault("client.celebration_duration", 3*time.Second)

	// AutomaticEnv only reaches keys viper already knows about
	for _, key := range []string{
		"server.auth_token", "client.token", "client.mood",
		"responder.openai.api_key", "responder.openai.base_url",
		"responder.ark.api_key", "responder.ark.base_url", "responder.ark.model",
		"responder.qwen.api_key",
	} {
		v.SetDefault(key, "")
	}
}

// Load reads configPath when it exists and layers MOODMATE_* environment
// variables on top of the defaults. An empty or missing path yields defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MOODMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", configPath, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// 配置文件优先，未设置时回退到常见的环境变量
	if cfg.Responder.OpenAI.APIKey == "" {
		cfg.Responder.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Responder.Ark.APIKey == "" {
		cfg.Responder.Ark.APIKey = os.Getenv("ARK_API_KEY")
	}
	if cfg.Responder.Qwen.APIKey == "" {
		cfg.Responder.Qwen.APIKey = os.Getenv("DASHSCOPE_API_KEY")
	}

	if cfg.Client.RequestTimeout <= 0 {
		return nil, fmt.Errorf("client.request_timeout must be positive, got %s", cfg.Client.RequestTimeout)
	}

	return cfg, nil
}
