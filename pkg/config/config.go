package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	GigaChat GigaChatConfig
	Pipeline PipelineConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	InsecureSkipVerify bool
}

// PipelineConfig controls the document processing pipeline.
type PipelineConfig struct {
	UploadDir       string
	MaxStoredText   int           // extracted text stored on a document is truncated to this many bytes
	KeywordsFile    string        // optional JSON file overriding the built-in sign keyword lists
	QueueBuffer     int           // in-memory job queue capacity
	RasterTimeout   time.Duration // wall-clock limit for PDF page rasterization
	OCRLanguages    string        // tesseract language list, e.g. "eng+rus"
	ContextSample   int           // recent transaction descriptions sampled for extractor context
	DefaultCurrency string
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	// If no .env file was found, environment variables are used directly
	// (useful for Docker/K8s).

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	refreshExp, _ := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168"))
	maxStoredText, _ := strconv.Atoi(getEnv("PIPELINE_MAX_STORED_TEXT", "50000"))
	queueBuffer, _ := strconv.Atoi(getEnv("PIPELINE_QUEUE_BUFFER", "64"))
	rasterTimeout, _ := strconv.Atoi(getEnv("PIPELINE_RASTER_TIMEOUT", "60"))
	contextSample, _ := strconv.Atoi(getEnv("PIPELINE_CONTEXT_SAMPLE", "50"))
	insecureSkipVerify := getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "true") == "true"

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ledgerlens"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
			RefreshExp: time.Duration(refreshExp) * time.Hour,
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: insecureSkipVerify,
		},
		Pipeline: PipelineConfig{
			UploadDir:       getEnv("PIPELINE_UPLOAD_DIR", "uploads"),
			MaxStoredText:   maxStoredText,
			KeywordsFile:    getEnv("SIGN_KEYWORDS_FILE", ""),
			QueueBuffer:     queueBuffer,
			RasterTimeout:   time.Duration(rasterTimeout) * time.Second,
			OCRLanguages:    getEnv("OCR_LANGUAGES", "eng"),
			ContextSample:   contextSample,
			DefaultCurrency: getEnv("PIPELINE_DEFAULT_CURRENCY", "USD"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
