package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g. PARKUS_DATABASE_HOST.
const EnvPrefix = "PARKUS"

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Events   EventsConfig   `yaml:"events"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Auth     AuthConfig     `yaml:"auth"`
}

type HTTPConfig struct {
	Address    string `yaml:"address" envconfig:"ADDRESS"`
	SwaggerDir string `yaml:"swagger_dir" envconfig:"SWAGGER_DIR"`
}

type GRPCConfig struct {
	Address string `yaml:"address" envconfig:"ADDRESS"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" envconfig:"HOST"`
	Port     int    `yaml:"port" envconfig:"PORT"`
	User     string `yaml:"user" envconfig:"USER"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	Name     string `yaml:"name" envconfig:"NAME"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"SSL_MODE"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type StorageConfig struct {
	Driver            string `yaml:"driver" envconfig:"DRIVER"`
	LockTimeoutMillis int    `yaml:"lock_timeout_ms" envconfig:"LOCK_TIMEOUT_MS"`
	MigrateOnStart    bool   `yaml:"migrate_on_start" envconfig:"MIGRATE_ON_START"`
}

func (s StorageConfig) LockTimeout() time.Duration {
	return time.Duration(s.LockTimeoutMillis) * time.Millisecond
}

type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"ADDR"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	DB       int    `yaml:"db" envconfig:"DB"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" envconfig:"BROKERS"`
	BookingEventsTopic string   `yaml:"booking_events_topic" envconfig:"BOOKING_EVENTS_TOPIC"`
	NotificationsTopic string   `yaml:"notifications_topic" envconfig:"NOTIFICATIONS_TOPIC"`
	GroupID            string   `yaml:"group_id" envconfig:"GROUP_ID"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url" envconfig:"URL"`
	Exchange string `yaml:"exchange" envconfig:"EXCHANGE"`
}

const (
	EventsDriverKafka    = "kafka"
	EventsDriverRabbitMQ = "rabbitmq"
	EventsDriverNone     = "none"
)

type EventsConfig struct {
	Driver         string `yaml:"driver" envconfig:"DRIVER"`
	PublishRetries int    `yaml:"publish_retries" envconfig:"PUBLISH_RETRIES"`
}

type BookingConfig struct {
	AvailableCacheTTLSeconds int `yaml:"available_cache_ttl_seconds" envconfig:"AVAILABLE_CACHE_TTL_SECONDS"`
}

func (b BookingConfig) AvailableCacheTTL() time.Duration {
	return time.Duration(b.AvailableCacheTTLSeconds) * time.Second
}

type WorkerConfig struct {
	CompletionSweepMinutes int `yaml:"completion_sweep_minutes" envconfig:"COMPLETION_SWEEP_MINUTES"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
}

// LoadConfig reads the YAML file at path, then applies a .env file next to the
// process (if any) and PARKUS_* environment overrides on top.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the values used for anything the file leaves out.
func Default() *Config {
	return &Config{
		HTTP:    HTTPConfig{Address: ":8080"},
		GRPC:    GRPCConfig{Address: ":9090"},
		Storage: StorageConfig{Driver: StorageDriverPostgres, LockTimeoutMillis: 2000},
		Kafka: KafkaConfig{
			BookingEventsTopic: "booking-events",
			GroupID:            "parkus-worker",
		},
		RabbitMQ: RabbitMQConfig{Exchange: "parkus.bookings"},
		Events:   EventsConfig{Driver: EventsDriverKafka, PublishRetries: 3},
		Booking:  BookingConfig{AvailableCacheTTLSeconds: 30},
		Worker:   WorkerConfig{CompletionSweepMinutes: 5},
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Events.Driver {
	case EventsDriverKafka, EventsDriverRabbitMQ, EventsDriverNone:
	default:
		return fmt.Errorf("unknown events driver %q", c.Events.Driver)
	}
	if c.Worker.CompletionSweepMinutes <= 0 {
		return fmt.Errorf("worker.completion_sweep_minutes must be positive")
	}
	return nil
}
