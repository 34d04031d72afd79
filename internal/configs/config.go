package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RabbitMQConfig хранит конфигурацию для RabbitMQ
type RabbitMQConfig struct {
	Enabled  bool
	URL      string
	Exchange string
}

type RESTconfig struct {
	PORT string
}

type DatabaseConfig struct {
	// Driver - "memory" или "postgres"
	Driver string
	URL    string
}

type ArchiveConfig struct {
	UploadRoot    string
	MaxEntryBytes int64
	// GCSEnabled включает пути вида gs://bucket/object
	GCSEnabled bool
	TmpDir     string
}

type GeocoderConfig struct {
	URL         string
	UserAgent   string
	Concurrency int
	RPS         float64
	MaxRetries  int
	Backoff     time.Duration
	Timeout     time.Duration
}

type ImportConfig struct {
	Workers   int
	QueueSize int
	RulesPath string
}

type StdoutLogConfig struct {
	Level string
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName      string
	Rest         RESTconfig
	Database     DatabaseConfig
	Archive      ArchiveConfig
	Geocoder     GeocoderConfig
	Import       ImportConfig
	RabbitMQ     RabbitMQConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
}

// LoadConfig загружает конфигурацию из переменных окружения.
// Файл .env необязателен: в контейнере переменные приходят из окружения.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Printf("Info: Could not load .env file (path: %v): %v. Using process environment.\n", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "import-service")
	cfg.Rest.PORT = getEnvAsString("PORT", "8090")

	cfg.Database.Driver = strings.ToLower(getEnvAsString("STORAGE_DRIVER", "postgres"))
	cfg.Database.URL = os.Getenv("DATABASE_URL")
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for STORAGE_DRIVER=postgres")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q (expected memory or postgres)", cfg.Database.Driver)
	}

	cfg.Archive.UploadRoot = getEnvAsString("UPLOAD_ROOT", "uploads")
	cfg.Archive.MaxEntryBytes = int64(getEnvAsInt("MAX_ENTRY_BYTES", 20*1024*1024))
	cfg.Archive.GCSEnabled = getEnvAsBool("GCS_ENABLED", false)
	cfg.Archive.TmpDir = os.Getenv("ARCHIVE_TMP_DIR")

	cfg.Geocoder.URL = os.Getenv("GEOCODER_URL")
	cfg.Geocoder.UserAgent = getEnvAsString("GEOCODER_USER_AGENT", cfg.AppName)
	cfg.Geocoder.Concurrency = getEnvAsInt("GEOCODER_CONCURRENCY", 2)
	cfg.Geocoder.RPS = getEnvAsFloat("GEOCODER_RPS", 1)
	cfg.Geocoder.MaxRetries = getEnvAsInt("GEOCODER_MAX_RETRIES", 3)
	cfg.Geocoder.Backoff = time.Duration(getEnvAsInt("GEOCODER_BACKOFF_MS", 250)) * time.Millisecond
	cfg.Geocoder.Timeout = time.Duration(getEnvAsInt("GEOCODER_TIMEOUT_MS", 5000)) * time.Millisecond
	if cfg.Geocoder.Concurrency < 1 {
		return nil, fmt.Errorf("GEOCODER_CONCURRENCY must be positive, got %d", cfg.Geocoder.Concurrency)
	}

	cfg.Import.Workers = getEnvAsInt("IMPORT_WORKERS", 4)
	cfg.Import.QueueSize = getEnvAsInt("IMPORT_QUEUE_SIZE", 32)
	cfg.Import.RulesPath = os.Getenv("RULES_PATH")
	if cfg.Import.Workers < 1 {
		return nil, fmt.Errorf("IMPORT_WORKERS must be positive, got %d", cfg.Import.Workers)
	}

	cfg.RabbitMQ.Enabled = getEnvAsBool("RABBITMQ_ENABLED", false)
	if cfg.RabbitMQ.Enabled {
		cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
		if cfg.RabbitMQ.URL == "" {
			return nil, fmt.Errorf("RABBITMQ_URL environment variable is required when RABBITMQ_ENABLED is true")
		}
		cfg.RabbitMQ.Exchange = getEnvAsString("RABBITMQ_EXCHANGE", "import_exchange")
	}

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}

		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")

	return cfg, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt читает переменную окружения как int или возвращает значение по умолчанию
// Логирует ошибку, если переменная есть, но не может быть преобразована в int
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as float: %v. Using default value: %g\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsBool читает переменную окружения как bool или возвращает значение по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}
