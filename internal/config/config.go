package config

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	apperrors "github.com/contractqa/backend-go/internal/errors"
)

type Config struct {
	Server     ServerConfig
	Data       DataConfig
	Embedding  EmbeddingConfig
	QA         QAConfig
	Rag        RagConfig
	Model      ModelConfig
	Cache      CacheConfig
	FileUpload FileUploadConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// DataConfig 语料与分块配置
// ChunkOverlap必须严格小于ChunkSize，否则滑动窗口无法前进
type DataConfig struct {
	ChunkSize    int    `validate:"gt=0"`
	ChunkOverlap int    `validate:"gte=0,ltfield=ChunkSize"`
	RawDataPath  string `validate:"required"`
	UploadPath   string `validate:"required"`
}

type EmbeddingConfig struct {
	Provider     string `validate:"oneof=openai inference"`
	ModelName    string `validate:"required"`
	BaseURL      string
	APIKey       string
	IndexPath    string `validate:"required"`
	MetadataPath string `validate:"required"`
}

type QAConfig struct {
	ModelName string `validate:"required"`
	BaseURL   string
}

type RagConfig struct {
	TopK                int     `validate:"gt=0"`
	SimilarityThreshold float64 `validate:"gte=0,lte=1"`
}

type ModelConfig struct {
	Device string `validate:"oneof=cpu cuda"`
}

type CacheConfig struct {
	Enabled bool
	Host    string
	Port    string
	DB      int
	TTL     int
}

type FileUploadConfig struct {
	MaxSize      int64
	AllowedTypes []string
}

var AppConfig *Config

func LoadConfig() error {
	// 设置默认值
	viper.SetDefault("server.port", "8001")
	viper.SetDefault("server.env", "development")

	viper.SetDefault("data.chunk_size", 400)
	viper.SetDefault("data.chunk_overlap", 50)
	viper.SetDefault("data.raw_data_path", "./data/raw")
	viper.SetDefault("data.upload_path", "./uploads")

	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model_name", "sentence-transformers/all-MiniLM-L6-v2")
	viper.SetDefault("embedding.base_url", "")
	viper.SetDefault("embedding.index_path", "./models/vector_index.bin")
	viper.SetDefault("embedding.metadata_path", "./models/metadata.json")

	viper.SetDefault("qa.model_name", "deepset/minilm-uncased-squad2")
	viper.SetDefault("qa.base_url", "http://localhost:8080")

	viper.SetDefault("rag.top_k", 3)
	viper.SetDefault("rag.similarity_threshold", 0.0)

	viper.SetDefault("model.device", "cpu")

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.host", "localhost")
	viper.SetDefault("cache.port", "6379")
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("cache.ttl", 300)

	viper.SetDefault("file_upload.max_size", 15728640) // 15MB
	viper.SetDefault("file_upload.allowed_types", []string{".txt"})

	// 读取YAML配置文件（可选，缺失时仅使用默认值和环境变量）
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return apperrors.NewInvalidConfig("failed to read config file").WithCause(err)
		}
	}

	// 读取环境变量
	viper.SetEnvPrefix("CONTRACTQA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if port := os.Getenv("PORT"); port != "" {
		viper.Set("server.port", port)
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("embedding.api_key", apiKey)
	}
	if baseURL := os.Getenv("EMBEDDING_BASE_URL"); baseURL != "" {
		viper.Set("embedding.base_url", baseURL)
	}
	if baseURL := os.Getenv("INFERENCE_BASE_URL"); baseURL != "" {
		viper.Set("qa.base_url", baseURL)
	}
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		viper.Set("cache.host", redisHost)
		viper.Set("cache.enabled", true)
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		viper.Set("cache.port", redisPort)
	}
	if uploadPath := os.Getenv("UPLOAD_PATH"); uploadPath != "" {
		viper.Set("data.upload_path", uploadPath)
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Data: DataConfig{
			ChunkSize:    viper.GetInt("data.chunk_size"),
			ChunkOverlap: viper.GetInt("data.chunk_overlap"),
			RawDataPath:  viper.GetString("data.raw_data_path"),
			UploadPath:   viper.GetString("data.upload_path"),
		},
		Embedding: EmbeddingConfig{
			Provider:     viper.GetString("embedding.provider"),
			ModelName:    viper.GetString("embedding.model_name"),
			BaseURL:      viper.GetString("embedding.base_url"),
			APIKey:       viper.GetString("embedding.api_key"),
			IndexPath:    viper.GetString("embedding.index_path"),
			MetadataPath: viper.GetString("embedding.metadata_path"),
		},
		QA: QAConfig{
			ModelName: viper.GetString("qa.model_name"),
			BaseURL:   viper.GetString("qa.base_url"),
		},
		Rag: RagConfig{
			TopK:                viper.GetInt("rag.top_k"),
			SimilarityThreshold: viper.GetFloat64("rag.similarity_threshold"),
		},
		Model: ModelConfig{
			Device: viper.GetString("model.device"),
		},
		Cache: CacheConfig{
			Enabled: viper.GetBool("cache.enabled"),
			Host:    viper.GetString("cache.host"),
			Port:    viper.GetString("cache.port"),
			DB:      viper.GetInt("cache.db"),
			TTL:     viper.GetInt("cache.ttl"),
		},
		FileUpload: FileUploadConfig{
			MaxSize:      viper.GetInt64("file_upload.max_size"),
			AllowedTypes: viper.GetStringSlice("file_upload.allowed_types"),
		},
	}

	return Validate(AppConfig)
}

// Validate 校验配置合法性，启动期调用，违反约束直接失败
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return apperrors.NewInvalidConfig("invalid configuration").WithCause(err)
	}
	return nil
}
