package config

import (
	"os"
	"strconv"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Pipeline   PipelineConfig
	Classifier ClassifierConfig
	Store      StoreConfig
	Logging    LoggingConfig
}

type PipelineConfig struct {
	FuzzyThreshold float64
	TFIDFThreshold float64
	BestConfidence bool
	AlwaysRunML    bool
}

type ClassifierConfig struct {
	VocabSize      int
	SeqLen         int
	EmbedDim       int
	HiddenDim      int
	Dense1Units    int
	Dense2Units    int
	LearningRate   float64
	Epochs         int
	BatchSize      int
	RetrainEnabled bool
	RetrainCron    string
}

type StoreConfig struct {
	Path      string
	IndexPath string
}

type LoggingConfig struct {
	Level string
	JSON  bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Pipeline: PipelineConfig{
			FuzzyThreshold: getEnvAsFloat("FUZZY_THRESHOLD", 0.7),
			TFIDFThreshold: getEnvAsFloat("TFIDF_THRESHOLD", 0.5),
			BestConfidence: getEnvAsBool("PIPELINE_BEST_CONFIDENCE", false),
			AlwaysRunML:    getEnvAsBool("PIPELINE_ALWAYS_RUN_ML", false),
		},
		Classifier: ClassifierConfig{
			VocabSize:      getEnvAsInt("CLASSIFIER_VOCAB_SIZE", 1000),
			SeqLen:         getEnvAsInt("CLASSIFIER_SEQ_LEN", 20),
			EmbedDim:       getEnvAsInt("CLASSIFIER_EMBED_DIM", 16),
			HiddenDim:      getEnvAsInt("CLASSIFIER_HIDDEN_DIM", 32),
			Dense1Units:    getEnvAsInt("CLASSIFIER_DENSE1_UNITS", 32),
			Dense2Units:    getEnvAsInt("CLASSIFIER_DENSE2_UNITS", 16),
			LearningRate:   getEnvAsFloat("CLASSIFIER_LEARNING_RATE", 0.01),
			Epochs:         getEnvAsInt("CLASSIFIER_EPOCHS", 10),
			BatchSize:      getEnvAsInt("CLASSIFIER_BATCH_SIZE", 16),
			RetrainEnabled: getEnvAsBool("CLASSIFIER_RETRAIN_ENABLED", false),
			RetrainCron:    getEnv("CLASSIFIER_RETRAIN_CRON", "0 3 * * *"),
		},
		Store: StoreConfig{
			Path:      getEnv("STORE_PATH", "categorizer.db"),
			IndexPath: getEnv("INDEX_PATH", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			JSON:  getEnvAsBool("LOG_JSON", false),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
