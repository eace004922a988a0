package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/contractqa/backend-go/internal/inference"
)

// InferenceEmbedder 使用本地推理服务的Embedding端点（基于统一服务）
type InferenceEmbedder struct {
	service    *inference.Service
	model      string
	device     string
	dimensions int
}

// NewInferenceEmbedder 创建推理服务嵌入向量生成器
// device原样透传给推理服务（cpu/cuda）
func NewInferenceEmbedder(model, device string) Embedder {
	service := inference.GetGlobalService()
	if service == nil || !service.Ready() {
		return &NoopEmbedder{}
	}

	if model == "" {
		model = "sentence-transformers/all-MiniLM-L6-v2"
	}

	dims, ok := embeddingDimensions[model]
	if !ok {
		dims = 384
	}

	return &InferenceEmbedder{
		service:    service,
		model:      model,
		device:     device,
		dimensions: dims,
	}
}

func (e *InferenceEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("texts are empty")
	}
	if e.service == nil || !e.service.Ready() {
		return nil, errors.New("inference service not initialized")
	}

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		resp, err := e.service.CreateEmbeddings(ctx, inference.EmbeddingRequest{
			Model:          e.model,
			Input:          batch,
			EncodingFormat: "float",
			Device:         e.device,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, errors.New("embedding response count mismatch")
		}

		for _, item := range resp.Data {
			vec := make([]float32, len(item.Embedding))
			for i, v := range item.Embedding {
				vec[i] = float32(v)
			}
			result = append(result, vec)
		}
	}

	return result, nil
}

func (e *InferenceEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *InferenceEmbedder) Ready() bool {
	return e.service != nil && e.service.Ready()
}
