package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8001", Env: "development"},
		Data: DataConfig{
			ChunkSize:    400,
			ChunkOverlap: 50,
			RawDataPath:  "./data/raw",
			UploadPath:   "./uploads",
		},
		Embedding: EmbeddingConfig{
			Provider:     "openai",
			ModelName:    "sentence-transformers/all-MiniLM-L6-v2",
			IndexPath:    "./models/vector_index.bin",
			MetadataPath: "./models/metadata.json",
		},
		QA:    QAConfig{ModelName: "deepset/minilm-uncased-squad2"},
		Rag:   RagConfig{TopK: 3, SimilarityThreshold: 0.0},
		Model: ModelConfig{Device: "cpu"},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidateRejectsOverlapNotSmallerThanSize(t *testing.T) {
	cfg := validConfig()
	cfg.Data.ChunkOverlap = cfg.Data.ChunkSize
	assert.Error(t, Validate(cfg))

	cfg.Data.ChunkOverlap = cfg.Data.ChunkSize + 10
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsNonPositiveChunkSize(t *testing.T) {
	cfg := validConfig()
	cfg.Data.ChunkSize = 0
	cfg.Data.ChunkOverlap = 0
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Provider = "huggingface"
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsUnknownDevice(t *testing.T) {
	cfg := validConfig()
	cfg.Model.Device = "tpu"
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsThresholdOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Rag.SimilarityThreshold = 1.5
	assert.Error(t, Validate(cfg))
}
