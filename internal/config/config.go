package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Neo4j      Neo4jConfig      `mapstructure:"neo4j"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Algorithms AlgorithmConfig  `mapstructure:"recommendation"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Security   SecurityConfig   `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Hot  RedisInstanceConfig `mapstructure:"hot"`
	Warm RedisInstanceConfig `mapstructure:"warm"`
}

type RedisInstanceConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Neo4jConfig is optional; an empty URL disables the graph neighbour store.
type Neo4jConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		Exposures string `mapstructure:"exposures"`
	} `mapstructure:"topics"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type AuthConfig struct {
	JWTSecret string            `mapstructure:"jwt_secret"`
	APIKeys   map[string]string `mapstructure:"api_keys"` // key -> tier
	RateLimit RateLimitConfig   `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Default int           `mapstructure:"default"`
	Premium int           `mapstructure:"premium"`
	Window  time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AlgorithmConfig struct {
	Collaborative CollaborativeConfig `mapstructure:"collaborative"`
	Content       ContentConfig       `mapstructure:"content"`
	Popularity    PopularityConfig    `mapstructure:"popularity"`
	Hybrid        HybridConfig        `mapstructure:"hybrid"`
	Experiment    ExperimentConfig    `mapstructure:"experiment"`
	Caching       CachingConfig       `mapstructure:"caching"`
}

type CollaborativeConfig struct {
	MinRatings          int     `mapstructure:"min_ratings"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	MaxNeighbors        int     `mapstructure:"max_neighbors"`
	MinContributors     int     `mapstructure:"min_contributors"`
	// NeighborStore selects where candidate neighbours are looked up: postgres or neo4j.
	NeighborStore string `mapstructure:"neighbor_store"`
}

type ContentConfig struct {
	CategoryWeight   float64 `mapstructure:"category_weight"`
	TagWeight        float64 `mapstructure:"tag_weight"`
	DifficultyWeight float64 `mapstructure:"difficulty_weight"`
	QualityWeight    float64 `mapstructure:"quality_weight"`
	QualityRating    float64 `mapstructure:"quality_rating"`
	MinScore         float64 `mapstructure:"min_score"`
}

type PopularityConfig struct {
	RatingMultiplier float64 `mapstructure:"rating_multiplier"`
	Confidence       float64 `mapstructure:"confidence"`
}

type HybridConfig struct {
	CollaborativeWeight float64 `mapstructure:"collaborative_weight"`
	ContentWeight       float64 `mapstructure:"content_weight"`
	PopularityWeight    float64 `mapstructure:"popularity_weight"`
}

type ExperimentConfig struct {
	Name              string        `mapstructure:"name"`
	VariantBAllocation float64       `mapstructure:"variant_b_allocation"`
	ExposureTimeout   time.Duration `mapstructure:"exposure_timeout"`
}

type CachingConfig struct {
	CatalogTTL time.Duration `mapstructure:"catalog_ttl"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	setDefaults(v)

	// Environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Algorithms.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recommendation config: %w", err)
	}

	return &config, nil
}

// Default returns the configuration produced by the built-in defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("config defaults do not unmarshal: %v", err))
	}
	return &config
}

// Validate rejects weight settings the recommenders cannot normalise.
func (c *AlgorithmConfig) Validate() error {
	content := []float64{c.Content.CategoryWeight, c.Content.TagWeight, c.Content.DifficultyWeight, c.Content.QualityWeight}
	if err := checkWeights("content", content); err != nil {
		return err
	}

	hybrid := []float64{c.Hybrid.CollaborativeWeight, c.Hybrid.ContentWeight, c.Hybrid.PopularityWeight}
	if err := checkWeights("hybrid", hybrid); err != nil {
		return err
	}

	if c.Collaborative.MinContributors < 1 {
		return fmt.Errorf("collaborative min_contributors must be at least 1, got %d", c.Collaborative.MinContributors)
	}
	if c.Collaborative.MaxNeighbors < 1 {
		return fmt.Errorf("collaborative max_neighbors must be at least 1, got %d", c.Collaborative.MaxNeighbors)
	}

	switch c.Collaborative.NeighborStore {
	case "postgres", "neo4j":
	default:
		return fmt.Errorf("unknown neighbor_store %q", c.Collaborative.NeighborStore)
	}

	if c.Experiment.VariantBAllocation < 0 || c.Experiment.VariantBAllocation > 1 {
		return fmt.Errorf("experiment variant_b_allocation must be within [0, 1], got %.3f", c.Experiment.VariantBAllocation)
	}

	return nil
}

func checkWeights(name string, weights []float64) error {
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("%s weights must not be negative", name)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("%s weights must not all be zero", name)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "development")

	// Database defaults
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.max_idle_time", "15m")
	v.SetDefault("database.max_lifetime", "1h")
	v.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	v.SetDefault("redis.hot.max_retries", 3)
	v.SetDefault("redis.hot.pool_size", 10)
	v.SetDefault("redis.hot.timeout", "5s")
	v.SetDefault("redis.warm.max_retries", 3)
	v.SetDefault("redis.warm.pool_size", 5)
	v.SetDefault("redis.warm.timeout", "10s")

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topics.exposures", "recommendation-exposures")
	v.SetDefault("kafka.write_timeout", "10s")

	// Auth defaults
	v.SetDefault("auth.rate_limit.default", 1000)
	v.SetDefault("auth.rate_limit.premium", 10000)
	v.SetDefault("auth.rate_limit.window", "1h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Collaborative filtering defaults
	v.SetDefault("recommendation.collaborative.min_ratings", 3)
	v.SetDefault("recommendation.collaborative.similarity_threshold", 0.3)
	v.SetDefault("recommendation.collaborative.max_neighbors", 50)
	v.SetDefault("recommendation.collaborative.min_contributors", 2)
	v.SetDefault("recommendation.collaborative.neighbor_store", "postgres")

	// Content-based defaults
	v.SetDefault("recommendation.content.category_weight", 0.4)
	v.SetDefault("recommendation.content.tag_weight", 0.3)
	v.SetDefault("recommendation.content.difficulty_weight", 0.2)
	v.SetDefault("recommendation.content.quality_weight", 0.1)
	v.SetDefault("recommendation.content.quality_rating", 4.0)
	v.SetDefault("recommendation.content.min_score", 0.3)

	// Popularity defaults
	v.SetDefault("recommendation.popularity.rating_multiplier", 100.0)
	v.SetDefault("recommendation.popularity.confidence", 0.8)

	// Hybrid defaults
	v.SetDefault("recommendation.hybrid.collaborative_weight", 0.4)
	v.SetDefault("recommendation.hybrid.content_weight", 0.4)
	v.SetDefault("recommendation.hybrid.popularity_weight", 0.2)

	// Experiment defaults
	v.SetDefault("recommendation.experiment.name", "hybrid-vs-collaborative")
	v.SetDefault("recommendation.experiment.variant_b_allocation", 0.5)
	v.SetDefault("recommendation.experiment.exposure_timeout", "5s")

	// Caching defaults
	v.SetDefault("recommendation.caching.catalog_ttl", "10m")

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"*"})
}
