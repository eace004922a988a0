package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/contractqa/backend-go/internal/inference"
)

// InferenceQAModel 使用本地推理服务的抽取式问答端点（基于统一服务）
type InferenceQAModel struct {
	service *inference.Service
	model   string
	device  string
}

// NewInferenceQAModel 创建抽取式问答模型客户端
func NewInferenceQAModel(model, device string) QAModel {
	service := inference.GetGlobalService()
	if service == nil || !service.Ready() {
		return &NoopQAModel{}
	}

	if model == "" {
		model = "deepset/minilm-uncased-squad2"
	}

	return &InferenceQAModel{
		service: service,
		model:   model,
		device:  device,
	}
}

func (m *InferenceQAModel) Answer(ctx context.Context, question, contextText string) (string, float64, error) {
	if strings.TrimSpace(question) == "" {
		return "", 0, errors.New("question is empty")
	}
	if strings.TrimSpace(contextText) == "" {
		return "", 0, errors.New("context is empty")
	}
	if m.service == nil || !m.service.Ready() {
		return "", 0, errors.New("inference service not initialized")
	}

	resp, err := m.service.ExtractAnswer(ctx, inference.QARequest{
		Model:    m.model,
		Question: question,
		Context:  contextText,
		Device:   m.device,
	})
	if err != nil {
		return "", 0, fmt.Errorf("qa request failed: %w", err)
	}

	return resp.Answer, resp.Score, nil
}

func (m *InferenceQAModel) Ready() bool {
	return m.service != nil && m.service.Ready()
}
