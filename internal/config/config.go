package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// API Settings
	APITitle   string
	APIVersion string
	APIPrefix  string
	Port       string

	// Runtime environment for logging: "local", "dev" or "prod"
	Env      string
	LogLevel string

	// CORS
	CORSOrigins []string

	// Corpus
	CorpusPath     string
	CollectionName string

	// Retrieval
	TopK               int
	RelevanceThreshold float64

	// Vector Search Backend: "sqlite", "pgvector", "vertex" or "memory"
	VectorBackend string
	SQLitePath    string

	// Vertex AI Vector Search settings (used when VectorBackend = "vertex")
	VertexProjectID            string
	VertexLocation             string
	VertexIndexID              string
	VertexIndexEndpointID      string
	VertexDeployedIndexID      string
	VertexPublicEndpointDomain string

	// Audio
	AudioDir        string
	SessionCache    string // "memory" or "redis"
	AudioSessionTTL time.Duration
	TTSRatePerSec   float64

	// Redis, used by the session cache and the embedding cache
	RedisAddrs     []string
	RedisPassword  string
	EmbeddingCache string // "none" or "redis"
}

var (
	config *Config
	once   sync.Once
)

// GetConfig returns the singleton configuration instance
func GetConfig() *Config {
	once.Do(func() {
		config = loadConfig()
	})
	return config
}

func loadConfig() *Config {
	return &Config{
		APITitle:    getEnv("API_TITLE", "Gita Knowledge API"),
		APIVersion:  getEnv("API_VERSION", "1.0.0"),
		APIPrefix:   getEnv("API_PREFIX", "/api/v1"),
		Port:        getEnv("PORT", "8081"),
		Env:         getEnv("APP_ENV", "local"),
		LogLevel:    getEnv("LOG_LEVEL", ""),
		CORSOrigins: parseList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),

		CorpusPath:     getEnv("CORPUS_PATH", "bhagavadgita_Chapter_2.json"),
		CollectionName: getEnv("COLLECTION_NAME", "gita_chapter_2_v3"),

		TopK:               getEnvInt("TOP_K", 3),
		RelevanceThreshold: getEnvFloat("RELEVANCE_THRESHOLD", 0.3),

		// Vector search backend configuration
		VectorBackend: getEnv("VECTOR_BACKEND", "sqlite"),
		SQLitePath:    getEnv("SQLITE_PATH", "gita_index.db"),

		// Vertex AI settings
		VertexProjectID:            getEnv("VERTEX_PROJECT_ID", ""),
		VertexLocation:             getEnv("VERTEX_LOCATION", "us-central1"),
		VertexIndexID:              getEnv("VERTEX_INDEX_ID", ""),
		VertexIndexEndpointID:      getEnv("VERTEX_INDEX_ENDPOINT_ID", ""),
		VertexDeployedIndexID:      getEnv("VERTEX_DEPLOYED_INDEX_ID", ""),
		VertexPublicEndpointDomain: getEnv("VERTEX_PUBLIC_ENDPOINT_DOMAIN", ""),

		AudioDir:        getEnv("AUDIO_DIR", "audio_files"),
		SessionCache:    getEnv("SESSION_CACHE", "memory"),
		AudioSessionTTL: getEnvDuration("AUDIO_SESSION_TTL", 30*time.Minute),
		TTSRatePerSec:   getEnvFloat("TTS_RATE_PER_SEC", 1),

		RedisAddrs:     parseList(getEnv("REDIS_ADDRS", "localhost:6379")),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		EmbeddingCache: getEnv("EMBEDDING_CACHE", "none"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return i
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return f
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return d
	}
	return defaultValue
}

// parseList accepts either a JSON array or a comma-separated list
func parseList(value string) []string {
	var items []string
	if err := json.Unmarshal([]byte(value), &items); err == nil {
		return items
	}
	parts := strings.Split(value, ",")
	items = make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
