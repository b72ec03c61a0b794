// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Index, Retrieval, Batch, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Index backends understood by the indexer package.
const (
	BackendMemory   = "memory"
	BackendSegment  = "segment"
	BackendPostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Index     IndexConfig     `yaml:"index"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Batch     BatchConfig     `yaml:"batch"`
	Search    SearchConfig    `yaml:"search"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. Evaluation events are
// only published, and documents only consumed, when Enabled is set.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	EvaluationEvents string `yaml:"evaluationEvents"`
	Documents        string `yaml:"documents"`
}

// RedisConfig holds Redis connection and result-caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexConfig selects the posting store backend and where it lives.
type IndexConfig struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"dataDir"`
	// Segment is the segment file name inside DataDir. Empty means the
	// newest segment found in DataDir.
	Segment string `yaml:"segment"`
	// Corpus is a JSONL file loaded into memory by the memory backend.
	Corpus string `yaml:"corpus"`
	// FlushInterval is how often the indexer writes a new segment while
	// following the documents topic.
	FlushInterval time.Duration `yaml:"flushInterval"`
}

// BM25Config holds the BM25 parameters.
type BM25Config struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
	K3 float64 `yaml:"k3"`
}

// IndriConfig holds the Dirichlet / Jelinek-Mercer parameters.
type IndriConfig struct {
	Mu     float64 `yaml:"mu"`
	Lambda float64 `yaml:"lambda"`
}

// RetrievalConfig selects the retrieval model and its parameters.
type RetrievalConfig struct {
	Model        string      `yaml:"model"`
	DefaultField string      `yaml:"defaultField"`
	BM25         BM25Config  `yaml:"bm25"`
	Indri        IndriConfig `yaml:"indri"`

	// Fields are the names accepted after a term, as in "apple.title".
	Fields []string `yaml:"fields"`
}

// BatchConfig controls the batch query driver.
type BatchConfig struct {
	QueryFile            string `yaml:"queryFile"`
	OutputFile           string `yaml:"outputFile"`
	RunID                string `yaml:"runId"`
	ResultLimit          int    `yaml:"resultLimit"`
	MaxConcurrentQueries int    `yaml:"maxConcurrentQueries"`
}

// SearchConfig controls query execution limits for the HTTP service.
type SearchConfig struct {
	MaxResults   int           `yaml:"maxResults"`
	DefaultLimit int           `yaml:"defaultLimit"`
	QueryTimeout time.Duration `yaml:"queryTimeout"`
}

// AnalyticsConfig controls evaluation event batching and the optional
// PostgreSQL snapshots of aggregated statistics.
type AnalyticsConfig struct {
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	Snapshot         bool          `yaml:"snapshot"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case BackendMemory, BackendSegment, BackendPostgres:
	default:
		return fmt.Errorf("unknown index backend %q", c.Index.Backend)
	}
	if c.Retrieval.DefaultField == "" {
		return fmt.Errorf("retrieval.defaultField must not be empty")
	}
	if c.Batch.MaxConcurrentQueries < 1 {
		return fmt.Errorf("batch.maxConcurrentQueries must be >= 1, got %d", c.Batch.MaxConcurrentQueries)
	}
	if c.Search.DefaultLimit < 1 || c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search limits invalid: defaultLimit=%d maxResults=%d",
			c.Search.DefaultLimit, c.Search.MaxResults)
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local runs.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "qryeval",
			User:            "qryeval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "qryeval-indexer",
			Topics: KafkaTopics{
				EvaluationEvents: "evaluation-events",
				Documents:        "documents",
			},
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Index: IndexConfig{
			Backend:       BackendSegment,
			DataDir:       "data/index",
			FlushInterval: 30 * time.Second,
		},
		Retrieval: RetrievalConfig{
			Model:        "bm25",
			DefaultField: "body",
			Fields:       []string{"body", "title", "url", "keywords", "inlink"},
			BM25: BM25Config{
				K1: 1.2,
				B:  0.75,
				K3: 0,
			},
			Indri: IndriConfig{
				Mu:     2500,
				Lambda: 0.4,
			},
		},
		Batch: BatchConfig{
			OutputFile:           "run.teIn",
			RunID:                "run-1",
			ResultLimit:          100,
			MaxConcurrentQueries: 4,
		},
		Search: SearchConfig{
			MaxResults:   1000,
			DefaultLimit: 10,
			QueryTimeout: 10 * time.Second,
		},
		Analytics: AnalyticsConfig{
			BatchSize:        100,
			FlushInterval:    time.Second,
			SnapshotInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads QE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QE_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("QE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("QE_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("QE_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("QE_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("QE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("QE_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("QE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("QE_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("QE_INDEX_BACKEND"); v != "" {
		cfg.Index.Backend = v
	}
	if v := os.Getenv("QE_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("QE_RETRIEVAL_MODEL"); v != "" {
		cfg.Retrieval.Model = v
	}
	if v := os.Getenv("QE_BM25_K1"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.BM25.K1 = f
		}
	}
	if v := os.Getenv("QE_BM25_B"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.BM25.B = f
		}
	}
	if v := os.Getenv("QE_INDRI_MU"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.Indri.Mu = f
		}
	}
	if v := os.Getenv("QE_INDRI_LAMBDA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.Indri.Lambda = f
		}
	}
	if v := os.Getenv("QE_BATCH_QUERY_FILE"); v != "" {
		cfg.Batch.QueryFile = v
	}
	if v := os.Getenv("QE_BATCH_OUTPUT_FILE"); v != "" {
		cfg.Batch.OutputFile = v
	}
	if v := os.Getenv("QE_ANALYTICS_SNAPSHOT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Snapshot = b
		}
	}
	if v := os.Getenv("QE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
