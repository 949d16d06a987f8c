package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "config.yaml"

type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"readTimeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
		IdleTimeout  time.Duration `yaml:"idleTimeout"`
		// APIKeys maps an API key to the author recorded on its analyses.
		// Empty disables API authentication.
		APIKeys     map[string]string `yaml:"apiKeys"`
		CORSOrigins []string          `yaml:"corsOrigins"`
		RateLimit   struct {
			Requests int           `yaml:"requests"`
			Window   time.Duration `yaml:"window"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Database struct {
		// Driver is mysql, postgres or sqlite3.
		Driver      string `yaml:"driver"`
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		User        string `yaml:"user"`
		Password    string `yaml:"password"`
		Name        string `yaml:"name"`
		SSLMode     string `yaml:"sslmode"`
		Path        string `yaml:"path"`
		AutoMigrate bool   `yaml:"autoMigrate"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey      string  `yaml:"apiKey"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"maxTokens"`
		Temperature float32 `yaml:"temperature"`
		BaseURL     string  `yaml:"baseURL"`
	} `yaml:"openai"`

	Gate struct {
		MinScore  int `yaml:"minScore"`
		Penalties struct {
			Critical int `yaml:"critical"`
			Warning  int `yaml:"warning"`
			Info     int `yaml:"info"`
		} `yaml:"penalties"`
		Flake8 struct {
			Path          string        `yaml:"path"`
			MaxLineLength int           `yaml:"maxLineLength"`
			Ignore        []string      `yaml:"ignore"`
			Timeout       time.Duration `yaml:"timeout"`
		} `yaml:"flake8"`
		Bandit struct {
			Path     string        `yaml:"path"`
			Severity string        `yaml:"severity"`
			Timeout  time.Duration `yaml:"timeout"`
		} `yaml:"bandit"`
		// Languages analysed by the CI gate.
		Languages   []string `yaml:"languages"`
		Concurrency int      `yaml:"concurrency"`
	} `yaml:"gate"`
}

// Default returns the stock settings.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 120 * time.Second
	c.Server.IdleTimeout = 60 * time.Second
	c.Server.CORSOrigins = []string{"*"}
	c.Server.RateLimit.Requests = 60
	c.Server.RateLimit.Window = time.Minute

	c.Database.Driver = "sqlite3"
	c.Database.Path = "quality_gate.db"
	c.Database.SSLMode = "disable"
	c.Database.AutoMigrate = true

	c.Minio.BucketName = "quality-reports"
	c.Minio.Region = "us-east-1"

	c.OpenAI.Model = "gpt-3.5-turbo"
	c.OpenAI.MaxTokens = 1500
	c.OpenAI.Temperature = 0.3

	c.Gate.MinScore = 70
	c.Gate.Penalties.Critical = 30
	c.Gate.Penalties.Warning = 10
	c.Gate.Penalties.Info = 2
	c.Gate.Flake8.Path = "flake8"
	c.Gate.Flake8.MaxLineLength = 120
	c.Gate.Flake8.Ignore = []string{"E203", "W503"}
	c.Gate.Flake8.Timeout = 30 * time.Second
	c.Gate.Bandit.Path = "bandit"
	c.Gate.Bandit.Severity = "low"
	c.Gate.Bandit.Timeout = 30 * time.Second
	c.Gate.Languages = []string{"Python"}
	c.Gate.Concurrency = 4
	return &c
}

// Load baca file config.yaml on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Resolve loads .env, then the file named by CONFIG_PATH (or config.yaml).
// A missing default file is not an error: defaults and environment apply.
func Resolve() (*Config, error) {
	return ResolvePath("")
}

// ResolvePath is Resolve with an explicit file; empty path means CONFIG_PATH
// or config.yaml. The .env file is loaded either way.
func ResolvePath(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env ignored: %v", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultPath
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) && !explicit && path == DefaultPath {
		cfg = Default()
		if err := cfg.applyEnv(); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}
	return cfg, err
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("QUALITY_GATE_MIN_SCORE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QUALITY_GATE_MIN_SCORE: %w", err)
		}
		c.Gate.MinScore = n
	}
	return nil
}

// Validate checks the values the services cannot default themselves.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite3":
	default:
		return fmt.Errorf("database.driver: unsupported %q", c.Database.Driver)
	}
	if c.Gate.MinScore < 0 || c.Gate.MinScore > 100 {
		return fmt.Errorf("gate.minScore: %d is outside 0..100", c.Gate.MinScore)
	}
	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		return errors.New("minio: endpoint and bucketName are required when enabled")
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection URL.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Host:   fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:   "/" + c.Database.Name,
	}
	sslmode := c.Database.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u.RawQuery = "sslmode=" + url.QueryEscape(sslmode)
	return u.String()
}

// SQLiteDSN enables foreign keys so problem rows cascade.
func (c *Config) SQLiteDSN() string {
	if strings.Contains(c.Database.Path, "?") {
		return c.Database.Path + "&_foreign_keys=on"
	}
	return c.Database.Path + "?_foreign_keys=on"
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	switch c.Database.Driver {
	case "mysql":
		return c.MySQLDSN()
	case "postgres":
		return c.PostgresDSN()
	}
	return c.SQLiteDSN()
}
