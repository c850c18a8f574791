package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL     string
	HTTPListenAddr  string
	MetricsAddr     string
	LogLevel        string
	ServiceName     string
	Environment     string
	TemporalAddress string

	// Temporal client TLS. Cert and key must be set together; all empty
	// means plaintext.
	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string

	// JWTSecret signs dashboard session tokens. Empty disables user login.
	JWTSecret string
	JWTIssuer string

	// Redis is optional; empty RedisAddr disables caching.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Kafka is optional; no brokers disables event publishing.
	KafkaBrokers       []string
	KafkaTopic         string
	KafkaTLS           bool
	KafkaUser          string
	KafkaPassword      string
	KafkaSASLMechanism string

	// S3 holds invoice documents and rendered previews.
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	SentryDSN string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present, so local development does not need
// exported variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		HTTPListenAddr:  getEnv("HTTP_LISTEN_ADDR", ":8080"),
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ServiceName:     getEnv("SERVICE_NAME", "subtrack"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		TemporalAddress: getEnv("TEMPORAL_ADDRESS", "localhost:7233"),

		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "subtrack"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "subtrack.events"),
		KafkaTLS:           getEnvAsBool("KAFKA_TLS", false),
		KafkaUser:          getEnv("KAFKA_USER", ""),
		KafkaPassword:      getEnv("KAFKA_PASSWORD", ""),
		KafkaSASLMechanism: getEnv("KAFKA_SASL_MECHANISM", ""),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", "subtrack-documents"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvAsBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
