package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Qdrant    QdrantConfig
	Gemini    GeminiConfig
	Reranker  RerankerConfig
	Screening ScreeningConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type QdrantConfig struct {
	URL    string
	APIKey string
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
}

type RerankerConfig struct {
	URL     string
	Model   string
	Timeout time.Duration
}

// ScreeningConfig tunes the hybrid scoring pipeline.
type ScreeningConfig struct {
	FuzzyThreshold  int
	MinFuzzyLength  int
	NameDenyYear    string
	ChunkSize       int
	ChunkOverlap    int
	TopK            int
	RetrievalQuery  string
	ContextLimit    int
	ReasonerTimeout time.Duration
	Concurrency     int
	LLMConcurrency  int
	VectorBackend   string
	RetainIndexes   bool
	EmbedCacheSize  int
	NERTimeout      time.Duration
}

type StorageConfig struct {
	UploadPath  string
	OutputDir   string
	MaxFileSize int64
	WriteXLSX   bool
}

type WorkerConfig struct {
	Concurrency       int
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
}

type LogConfig struct {
	JSON      bool
	Debug     bool
	AuditPath string
}

var defaults = map[string]any{
	"PORT":                   "3000",
	"ENV":                    "development",
	"DB_HOST":                "localhost",
	"DB_PORT":                "5432",
	"DB_USER":                "postgres",
	"DB_PASSWORD":            "postgres",
	"DB_NAME":                "resume_screener",
	"QDRANT_URL":             "http://localhost:6334",
	"QDRANT_API_KEY":         "",
	"GEMINI_API_KEY":         "",
	"GEMINI_MODEL":           "gemini-2.5-flash",
	"GEMINI_EMBED_MODEL":     "text-embedding-004",
	"RERANKER_URL":           "http://localhost:8081",
	"RERANKER_MODEL":         "cross-encoder/ms-marco-MiniLM-L-6-v2",
	"RERANKER_TIMEOUT":       "30s",
	"FUZZY_THRESHOLD":        85,
	"MIN_FUZZY_LENGTH":       5,
	"NAME_DENY_YEAR":         "2026",
	"CHUNK_SIZE":             800,
	"CHUNK_OVERLAP":          0,
	"RETRIEVAL_TOP_K":        3,
	"RETRIEVAL_QUERY":        "certifications or publications",
	"REASONER_CONTEXT_LIMIT": 1500,
	"REASONER_TIMEOUT":       "60s",
	"SCREENING_CONCURRENCY":  1,
	"LLM_CONCURRENCY":        1,
	"VECTOR_BACKEND":         "qdrant",
	"RETAIN_INDEXES":         false,
	"EMBED_CACHE_SIZE":       1024,
	"NER_TIMEOUT":            "20s",
	"UPLOAD_PATH":            "./uploads",
	"OUTPUT_DIR":             "./outputs",
	"MAX_FILE_SIZE":          10485760,
	"WRITE_XLSX":             false,
	"WORKER_CONCURRENCY":     2,
	"RETRY_MAX_ATTEMPTS":     3,
	"RETRY_INITIAL_DELAY":    "2s",
	"LOG_JSON":               false,
	"LOG_DEBUG":              false,
	"AUDIT_LOG_PATH":         "./outputs/reasoner_audit.log",
}

// NewViper returns a viper instance reading the environment with every default registered.
// Callers may bind command line flags to the same keys before calling LoadFrom.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

func Load() *Config {
	LoadEnvFile()
	return LoadFrom(NewViper())
}

// LoadEnvFile loads .env into the process environment when present.
func LoadEnvFile() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}
}

func LoadFrom(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
		},
		Qdrant: QdrantConfig{
			URL:    v.GetString("QDRANT_URL"),
			APIKey: v.GetString("QDRANT_API_KEY"),
		},
		Gemini: GeminiConfig{
			APIKey:     v.GetString("GEMINI_API_KEY"),
			Model:      v.GetString("GEMINI_MODEL"),
			EmbedModel: v.GetString("GEMINI_EMBED_MODEL"),
		},
		Reranker: RerankerConfig{
			URL:     v.GetString("RERANKER_URL"),
			Model:   v.GetString("RERANKER_MODEL"),
			Timeout: getDuration(v, "RERANKER_TIMEOUT"),
		},
		Screening: ScreeningConfig{
			FuzzyThreshold:  v.GetInt("FUZZY_THRESHOLD"),
			MinFuzzyLength:  v.GetInt("MIN_FUZZY_LENGTH"),
			NameDenyYear:    v.GetString("NAME_DENY_YEAR"),
			ChunkSize:       v.GetInt("CHUNK_SIZE"),
			ChunkOverlap:    v.GetInt("CHUNK_OVERLAP"),
			TopK:            v.GetInt("RETRIEVAL_TOP_K"),
			RetrievalQuery:  v.GetString("RETRIEVAL_QUERY"),
			ContextLimit:    v.GetInt("REASONER_CONTEXT_LIMIT"),
			ReasonerTimeout: getDuration(v, "REASONER_TIMEOUT"),
			Concurrency:     v.GetInt("SCREENING_CONCURRENCY"),
			LLMConcurrency:  v.GetInt("LLM_CONCURRENCY"),
			VectorBackend:   strings.ToLower(v.GetString("VECTOR_BACKEND")),
			RetainIndexes:   v.GetBool("RETAIN_INDEXES"),
			EmbedCacheSize:  v.GetInt("EMBED_CACHE_SIZE"),
			NERTimeout:      getDuration(v, "NER_TIMEOUT"),
		},
		Storage: StorageConfig{
			UploadPath:  v.GetString("UPLOAD_PATH"),
			OutputDir:   v.GetString("OUTPUT_DIR"),
			MaxFileSize: v.GetInt64("MAX_FILE_SIZE"),
			WriteXLSX:   v.GetBool("WRITE_XLSX"),
		},
		Worker: WorkerConfig{
			Concurrency:       v.GetInt("WORKER_CONCURRENCY"),
			RetryMaxAttempts:  v.GetInt("RETRY_MAX_ATTEMPTS"),
			RetryInitialDelay: getDuration(v, "RETRY_INITIAL_DELAY"),
		},
		Log: LogConfig{
			JSON:      v.GetBool("LOG_JSON"),
			Debug:     v.GetBool("LOG_DEBUG"),
			AuditPath: v.GetString("AUDIT_LOG_PATH"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getDuration falls back to the registered default when the value does not parse.
func getDuration(v *viper.Viper, key string) time.Duration {
	if d, err := time.ParseDuration(v.GetString(key)); err == nil {
		return d
	}
	d, _ := time.ParseDuration(fmt.Sprint(defaults[key]))
	return d
}
