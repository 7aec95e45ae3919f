package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvProduction is the APP_ENV value that switches session cookies to Secure/SameSite=None.
const EnvProduction = "production"

// APIServerConfig 保存 API 服务器特有的配置。
type APIServerConfig struct {
	Host string     `mapstructure:"HOST"`
	Port string     `mapstructure:"PORT"`
	CORS CORSConfig `mapstructure:"CORS"`
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders   []string `mapstructure:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `mapstructure:"EXPOSED_HEADERS"`
	AllowCredentials bool     `mapstructure:"ALLOW_CREDENTIALS"`
	MaxAge           int      `mapstructure:"MAX_AGE"`
}

// FeedServerConfig holds configuration for the live activity feed server.
type FeedServerConfig struct {
	Host          string `mapstructure:"HOST"`
	Port          string `mapstructure:"PORT"`
	WebSocketPath string `mapstructure:"WEBSOCKET_PATH"`
}

// RedisConfig holds configuration for Redis.
// When Enabled is false the token blacklist falls back to an in-process set.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"ENABLED"`
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName    string           `mapstructure:"APP_NAME"`
	AppVersion string           `mapstructure:"APP_VERSION"`
	AppEnv     string           `mapstructure:"APP_ENV"`
	LogLevel   string           `mapstructure:"LOG_LEVEL"`
	LogFormat  string           `mapstructure:"LOG_FORMAT"`
	Server     ServerConfig     `mapstructure:"SERVER"`
	APIServer  APIServerConfig  `mapstructure:"API_SERVER"`
	FeedServer FeedServerConfig `mapstructure:"FEED_SERVER"`
	Kafka      KafkaConfig      `mapstructure:"KAFKA"`
	Database   DatabaseConfig   `mapstructure:"DATABASE"`
	Storage    StorageConfig    `mapstructure:"STORAGE"`
	Auth       AuthConfig       `mapstructure:"AUTH"`
	WebSocket  WebSocketConfig  `mapstructure:"WEBSOCKET"`
	Redis      RedisConfig      `mapstructure:"REDIS"`
}

// IsProduction reports whether the process runs in a production deployment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, EnvProduction)
}

// ServerConfig holds the HTTP timeouts shared by both servers.
// WriteTimeout doubles as the ceiling for storage work done on behalf of a request.
type ServerConfig struct {
	ReadTimeout    time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"WRITE_TIMEOUT"`
	IdleTimeout    time.Duration `mapstructure:"IDLE_TIMEOUT"`
	MaxHeaderBytes int           `mapstructure:"MAX_HEADER_BYTES"`
}

// KafkaConfig holds configuration for Kafka.
type KafkaConfig struct {
	Enabled              bool     `mapstructure:"ENABLED"`
	Brokers              []string `mapstructure:"BROKERS"`
	ClientID             string   `mapstructure:"CLIENT_ID"`
	ActivityTopic        string   `mapstructure:"ACTIVITY_TOPIC"`         // review/friend/comment activity events
	FeedConsumerGroup    string   `mapstructure:"FEED_CONSUMER_GROUP"`    // feed server, pushes to websocket clients
	CleanupConsumerGroup string   `mapstructure:"CLEANUP_CONSUMER_GROUP"` // api server, removes orphaned uploads
	Protocol             string   `mapstructure:"PROTOCOL"`
}

// DatabaseConfig holds configuration for the database.
type DatabaseConfig struct {
	Type     string `mapstructure:"TYPE"`
	Host     string `mapstructure:"HOST"`
	Port     int    `mapstructure:"PORT"`
	User     string `mapstructure:"USER"`
	Password string `mapstructure:"PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"SSL_MODE"`
}

// StorageConfig holds configuration for image storage.
type StorageConfig struct {
	Type              string   `mapstructure:"TYPE"` // only "local" is supported
	LocalPath         string   `mapstructure:"LOCAL_PATH"`
	BaseURL           string   `mapstructure:"BASE_URL"`
	MaxFileSizeMB     int64    `mapstructure:"MAX_FILE_SIZE_MB"`
	AllowedExtensions []string `mapstructure:"ALLOWED_EXTENSIONS"`
}

// AuthConfig holds configuration for authentication (JWT and the session cookie).
type AuthConfig struct {
	JWTSecretKey    string        `mapstructure:"JWT_SECRET_KEY"`
	JWTExpiry       time.Duration `mapstructure:"JWT_EXPIRY"`
	Issuer          string        `mapstructure:"ISSUER"`
	CookieName      string        `mapstructure:"COOKIE_NAME"`
	CookieDomain    string        `mapstructure:"COOKIE_DOMAIN"`
	RevokeOnLogout  bool          `mapstructure:"REVOKE_ON_LOGOUT"`
	LoginRatePerSec float64       `mapstructure:"LOGIN_RATE_PER_SEC"`
	LoginBurst      int           `mapstructure:"LOGIN_BURST"`
	TrustedProxies  []string      `mapstructure:"TRUSTED_PROXIES"` // CIDRs or IPs whose X-Forwarded-For the login limiter believes
}

// WebSocketConfig holds configuration for WebSocket connections.
type WebSocketConfig struct {
	WriteWaitSeconds    int `mapstructure:"WRITE_WAIT_SECONDS"`
	PongWaitSeconds     int `mapstructure:"PONG_WAIT_SECONDS"`
	PingPeriodSeconds   int `mapstructure:"PING_PERIOD_SECONDS"`
	MaxMessageSizeBytes int `mapstructure:"MAX_MESSAGE_SIZE_BYTES"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory is loaded into the environment first, if present.
func LoadConfig(path string) (config Config, err error) {
	if err = godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return
	}
	err = nil

	v := viper.New()

	v.SetDefault("APP_NAME", "Cheers")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("SERVER.MAX_HEADER_BYTES", 1<<20) // 1 MB

	v.SetDefault("API_SERVER.HOST", "0.0.0.0")
	v.SetDefault("API_SERVER.PORT", "3000")
	v.SetDefault("API_SERVER.CORS.ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "Cookie"})
	v.SetDefault("API_SERVER.CORS.EXPOSED_HEADERS", []string{"Set-Cookie"})
	v.SetDefault("API_SERVER.CORS.ALLOW_CREDENTIALS", true)
	v.SetDefault("API_SERVER.CORS.MAX_AGE", 300)

	v.SetDefault("FEED_SERVER.HOST", "0.0.0.0")
	v.SetDefault("FEED_SERVER.PORT", "3001")
	v.SetDefault("FEED_SERVER.WEBSOCKET_PATH", "/ws")

	v.SetDefault("KAFKA.ENABLED", false)
	v.SetDefault("KAFKA.BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA.CLIENT_ID", "cheers-client")
	v.SetDefault("KAFKA.ACTIVITY_TOPIC", "cheers-activity")
	v.SetDefault("KAFKA.FEED_CONSUMER_GROUP", "cheers-feed-server")
	v.SetDefault("KAFKA.CLEANUP_CONSUMER_GROUP", "cheers-upload-cleanup")
	v.SetDefault("KAFKA.PROTOCOL", "plaintext")

	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "cheers")
	v.SetDefault("DATABASE.SSL_MODE", "disable")

	v.SetDefault("STORAGE.TYPE", "local")
	v.SetDefault("STORAGE.LOCAL_PATH", "./public/uploads")
	v.SetDefault("STORAGE.BASE_URL", "/uploads")
	v.SetDefault("STORAGE.MAX_FILE_SIZE_MB", 10)
	v.SetDefault("STORAGE.ALLOWED_EXTENSIONS", []string{".jpg", ".jpeg", ".png", ".gif"})

	v.SetDefault("AUTH.JWT_SECRET_KEY", "a_very_secret_key_that_should_be_changed")
	v.SetDefault("AUTH.JWT_EXPIRY", time.Hour)
	v.SetDefault("AUTH.ISSUER", "cheers-api")
	v.SetDefault("AUTH.COOKIE_NAME", "accessToken")
	v.SetDefault("AUTH.COOKIE_DOMAIN", "")
	v.SetDefault("AUTH.REVOKE_ON_LOGOUT", true)
	v.SetDefault("AUTH.LOGIN_RATE_PER_SEC", 1.0)
	v.SetDefault("AUTH.LOGIN_BURST", 5)
	v.SetDefault("AUTH.TRUSTED_PROXIES", []string{})

	v.SetDefault("REDIS.ENABLED", false)
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	v.SetDefault("WEBSOCKET.WRITE_WAIT_SECONDS", 10)
	v.SetDefault("WEBSOCKET.PONG_WAIT_SECONDS", 60)
	v.SetDefault("WEBSOCKET.PING_PERIOD_SECONDS", 54) // (60 * 9) / 10
	v.SetDefault("WEBSOCKET.MAX_MESSAGE_SIZE_BYTES", 512)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	// SERVER_WRITE_TIMEOUT overrides SERVER.WRITE_TIMEOUT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
