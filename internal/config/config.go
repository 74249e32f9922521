package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Ai        AIConfig
	Assistant AssistantConfig
	Keys      APIKeys
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
}

type AIConfig struct {
	LLMProvider   string // "ollama" or "gemini"
	LLMModel      string // e.g. "llama3", "qwen2.5"
	OllamaBaseURL string
}

// AssistantConfig tunes the resolution pipeline
type AssistantConfig struct {
	StageTimeout        time.Duration
	UnderstandingTTL    time.Duration
	DataTTL             time.Duration
	CacheCapacity       int
	ExamplesPerDomain   int
	RateUserPerMinute   int
	RateUserPerHour     int
	RateUserPerDay      int
	RateGlobalPerMinute int
	RateGlobalPerHour   int
	RateGlobalPerDay    int
	InteractionTopic    string
	UseRedisRateLimit   bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Assistant: AssistantConfig{
			StageTimeout:        getEnvAsDuration("ASSISTANT_STAGE_TIMEOUT", 10*time.Second),
			UnderstandingTTL:    getEnvAsDuration("ASSISTANT_UNDERSTANDING_TTL", 10*time.Minute),
			DataTTL:             getEnvAsDuration("ASSISTANT_DATA_TTL", 5*time.Minute),
			CacheCapacity:       getEnvAsInt("ASSISTANT_CACHE_CAPACITY", 500),
			ExamplesPerDomain:   getEnvAsInt("ASSISTANT_EXAMPLES_PER_DOMAIN", 100),
			RateUserPerMinute:   getEnvAsInt("ASSISTANT_RATE_USER_PER_MINUTE", 20),
			RateUserPerHour:     getEnvAsInt("ASSISTANT_RATE_USER_PER_HOUR", 200),
			RateUserPerDay:      getEnvAsInt("ASSISTANT_RATE_USER_PER_DAY", 1000),
			RateGlobalPerMinute: getEnvAsInt("ASSISTANT_RATE_GLOBAL_PER_MINUTE", 200),
			RateGlobalPerHour:   getEnvAsInt("ASSISTANT_RATE_GLOBAL_PER_HOUR", 2000),
			RateGlobalPerDay:    getEnvAsInt("ASSISTANT_RATE_GLOBAL_PER_DAY", 10000),
			InteractionTopic:    getEnv("ASSISTANT_INTERACTION_TOPIC", "assistant.interactions"),
			UseRedisRateLimit:   getEnvAsBool("ASSISTANT_REDIS_RATE_LIMIT", false),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
