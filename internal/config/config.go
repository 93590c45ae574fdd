package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageFirebase = "firebase"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Rooms     RoomsConfig     `yaml:"rooms"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	WebRTC    WebRTCConfig    `yaml:"webrtc"`
}

type HTTPConfig struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	ReadTimeout    time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env-default:"10s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS"`
	SessionSecret  string        `yaml:"session_secret" env:"SESSION_SECRET" env-default:""`
	SecureCookies  bool          `yaml:"secure_cookies" env:"SECURE_COOKIES" env-default:"false"`
}

type RoomsConfig struct {
	TTL          time.Duration `yaml:"ttl" env:"ROOMS_TTL" env-default:"24h"`
	CodeAttempts int           `yaml:"code_attempts" env-default:"5"`
}

type StorageConfig struct {
	Driver   string         `yaml:"driver" env:"STORAGE_DRIVER" env-default:"memory"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Firebase FirebaseConfig `yaml:"firebase"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN" env-default:""`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Prefix   string `yaml:"prefix" env:"REDIS_KEY_PREFIX" env-default:"meet:"`
}

type FirebaseConfig struct {
	DatabaseURL     string        `yaml:"database_url" env:"FIREBASE_DATABASE_URL" env-default:""`
	CredentialsFile string        `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS" env-default:""`
	PollInterval    time.Duration `yaml:"poll_interval" env-default:"2s"`
}

type RateLimitConfig struct {
	JoinPerMinute int `yaml:"join_per_minute" env:"RATELIMIT_JOIN_PER_MINUTE" env-default:"30"`
	Burst         int `yaml:"burst" env-default:"10"`
}

type WebRTCConfig struct {
	STUNServers []string `yaml:"stun_servers"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	cfg, err := LoadPath(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func LoadPath(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, &PathError{Path: configPath}
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	return &cfg, nil
}

type PathError struct {
	Path string
}

func (e *PathError) Error() string {
	return "config file does not exist: " + e.Path
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.SessionSecret == "" {
		c.HTTP.SessionSecret = "local-session-secret-change-me"
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if len(c.WebRTC.STUNServers) == 0 {
		c.WebRTC.STUNServers = []string{"stun:stun.l.google.com:19302"}
	}
	if c.Rooms.CodeAttempts <= 0 {
		c.Rooms.CodeAttempts = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 1
	}
}
