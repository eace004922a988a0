package knowledge

import (
	"context"
	"errors"
)

// Embedder 定义文本向量化接口
// Encode保持顺序：第i个输出向量对应第i个输入文本
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Ready() bool
}

// NoopEmbedder 默认占位实现
type NoopEmbedder struct{}

func (n *NoopEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding provider not configured")
}

func (n *NoopEmbedder) Dimensions() int {
	return 0
}

func (n *NoopEmbedder) Ready() bool {
	return false
}

// 常见sentence-transformers/OpenAI嵌入模型的维度映射
var embeddingDimensions = map[string]int{
	"sentence-transformers/all-MiniLM-L6-v2":  384,
	"sentence-transformers/all-MiniLM-L12-v2": 384,
	"sentence-transformers/all-mpnet-base-v2": 768,
	"text-embedding-3-large":                  3072,
	"text-embedding-3-small":                  1536,
	"text-embedding-ada-002":                  1536,
}

// embeddingBatchSize 单次请求的文本条数上限，仅影响吞吐，不影响输出顺序
const embeddingBatchSize = 32
