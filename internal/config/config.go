package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the screening service
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Screening    ScreeningConfig    `mapstructure:"screening"`
	Underwriting UnderwritingConfig `mapstructure:"underwriting"`
	Insurance    InsuranceConfig    `mapstructure:"insurance"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
	Security     SecurityConfig     `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestSize  int64         `mapstructure:"max_request_size"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	PoolSize       int           `mapstructure:"pool_size"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RecordIndexTTL time.Duration `mapstructure:"record_index_ttl"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	ScreeningTopic string   `mapstructure:"screening_topic"`
	ImportTopic    string   `mapstructure:"import_topic"`
}

// ScreeningConfig holds identity matching and scoring policy
type ScreeningConfig struct {
	// SourceWeights maps a source category to its base risk contribution.
	// Categories absent from the table fall back to DefaultSourceWeight.
	SourceWeights       map[string]int `mapstructure:"source_weights"`
	DefaultSourceWeight int            `mapstructure:"default_source_weight"`

	HigherScrutinyCountries []string `mapstructure:"higher_scrutiny_countries"`
	LowerScrutinyCountries  []string `mapstructure:"lower_scrutiny_countries"`

	IDMatchBonus          int `mapstructure:"id_match_bonus"`
	HigherScrutinyPoints  int `mapstructure:"higher_scrutiny_points"`
	LowerScrutinyDeduct   int `mapstructure:"lower_scrutiny_deduct"`
	ClusterDiversityBonus int `mapstructure:"cluster_diversity_bonus"`
	BaselineScore         int `mapstructure:"baseline_score"`

	FuzzyMinSimilarity  float64       `mapstructure:"fuzzy_min_similarity"`
	FuzzyCandidateCap   int           `mapstructure:"fuzzy_candidate_cap"`
	BandLowMax          int           `mapstructure:"band_low_max"`
	BandMediumMax       int           `mapstructure:"band_medium_max"`
	BandHighMax         int           `mapstructure:"band_high_max"`
	MaxScreeningLatency time.Duration `mapstructure:"max_screening_latency"`
}

// UnderwritingConfig holds decision policy
type UnderwritingConfig struct {
	ComplianceWeight      float64 `mapstructure:"compliance_weight"`
	InsuranceWeight       float64 `mapstructure:"insurance_weight"`
	AdverseMediaRelevance float64 `mapstructure:"adverse_media_relevance"`
}

// InsuranceConfig holds behavioral profile policy
type InsuranceConfig struct {
	LatePaymentPenalty float64 `mapstructure:"late_payment_penalty"`
	DefaultPenalty     float64 `mapstructure:"default_penalty"`

	FrequencyHighClaims12M int `mapstructure:"frequency_high_claims_12m"`
	FrequencyHighClaims36M int `mapstructure:"frequency_high_claims_36m"`

	// Severity thresholds in minor currency units. MEDIUM triggers at one
	// third of each value.
	SeverityMaxSingleHigh int64 `mapstructure:"severity_max_single_high"`
	SeverityTotalHigh     int64 `mapstructure:"severity_total_high"`

	MaxListEntries int `mapstructure:"max_list_entries"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	ServiceName   string  `mapstructure:"service_name"`
	Environment   string  `mapstructure:"environment"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	JWTSecret      string   `mapstructure:"jwt_secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SCREENING_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/screening-service")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults + env
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8086)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_request_size", 10485760) // import batches

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "screening_db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", "30m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 50)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")
	v.SetDefault("redis.record_index_ttl", "24h")

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.screening_topic", "insurance.screening.completed")
	v.SetDefault("kafka.import_topic", "insurance.sources.reimported")

	// Screening policy defaults
	v.SetDefault("screening.source_weights", map[string]int{
		"PEP":           40,
		"SANCTIONS":     50,
		"ADVERSE_MEDIA": 40,
		"WATCHLIST":     40,
		"FRAUD":         60,
		"CLAIMS":        30,
	})
	v.SetDefault("screening.default_source_weight", 40)
	v.SetDefault("screening.higher_scrutiny_countries", []string{
		"IR", "KP", "SY", "CU", "VE", "MM", "BY", "RU",
	})
	v.SetDefault("screening.lower_scrutiny_countries", []string{})
	v.SetDefault("screening.id_match_bonus", 10)
	v.SetDefault("screening.higher_scrutiny_points", 10)
	v.SetDefault("screening.lower_scrutiny_deduct", 5)
	v.SetDefault("screening.cluster_diversity_bonus", 3)
	v.SetDefault("screening.baseline_score", 10)
	v.SetDefault("screening.fuzzy_min_similarity", 0.5)
	v.SetDefault("screening.fuzzy_candidate_cap", 200)
	v.SetDefault("screening.band_low_max", 25)
	v.SetDefault("screening.band_medium_max", 50)
	v.SetDefault("screening.band_high_max", 75)
	v.SetDefault("screening.max_screening_latency", "500ms")

	// Underwriting policy defaults
	v.SetDefault("underwriting.compliance_weight", 0.70)
	v.SetDefault("underwriting.insurance_weight", 0.30)
	v.SetDefault("underwriting.adverse_media_relevance", 0.85)

	// Insurance profile defaults
	v.SetDefault("insurance.late_payment_penalty", 0.05)
	v.SetDefault("insurance.default_penalty", 0.15)
	v.SetDefault("insurance.frequency_high_claims_12m", 2)
	v.SetDefault("insurance.frequency_high_claims_36m", 4)
	v.SetDefault("insurance.severity_max_single_high", 5000000)
	v.SetDefault("insurance.severity_total_high", 10000000)
	v.SetDefault("insurance.max_list_entries", 50)

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "screening-service")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 0.1)

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})
}
