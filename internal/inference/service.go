package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/contractqa/backend-go/internal/logger"
)

// Service 统一的模型推理服务客户端，支持Embedding与抽取式问答
// 对接本地部署的推理服务（OpenAI兼容的embeddings端点 + question-answering端点）
type Service struct {
	baseURL string
	client  *http.Client
	limiter sync.Mutex
}

// EmbeddingRequest 向量化请求（兼容OpenAI格式）
type EmbeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
	Device         string   `json:"device,omitempty"`
}

// EmbeddingResponse 向量化响应（兼容OpenAI格式）
type EmbeddingResponse struct {
	Object string                  `json:"object"`
	Data   []EmbeddingResponseData `json:"data"`
	Model  string                  `json:"model"`
}

type EmbeddingResponseData struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

// QARequest 抽取式问答请求
type QARequest struct {
	Model    string `json:"model"`
	Question string `json:"question"`
	Context  string `json:"context"`
	Device   string `json:"device,omitempty"`
}

// QAResponse 抽取式问答响应：context中的答案片段及其置信度
type QAResponse struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
}

// Error 推理服务API错误
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewService 创建推理服务客户端
func NewService(baseURL string) *Service {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}

	return &Service{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second, // 模型首次加载可能较慢
		},
	}
}

// CreateEmbeddings 调用向量化接口，返回结果按输入顺序排列
func (s *Service) CreateEmbeddings(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("inference service not initialized")
	}

	var resp EmbeddingResponse
	if err := s.post(ctx, "/v1/embeddings", req, &resp); err != nil {
		return nil, err
	}

	logger.Debug("inference CreateEmbeddings success",
		zap.String("model", req.Model),
		zap.Int("input_count", len(req.Input)))

	return &resp, nil
}

// ExtractAnswer 调用抽取式问答接口
func (s *Service) ExtractAnswer(ctx context.Context, req QARequest) (*QAResponse, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("inference service not initialized")
	}

	var resp QAResponse
	if err := s.post(ctx, "/v1/question-answering", req, &resp); err != nil {
		return nil, err
	}

	logger.Debug("inference ExtractAnswer success",
		zap.String("model", req.Model),
		zap.Float64("score", resp.Score))

	return &resp, nil
}

func (s *Service) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	s.limiter.Lock()
	defer s.limiter.Unlock()

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}

	url := s.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("inference API call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp Error
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Message != "" {
			return fmt.Errorf("inference API error: %s (code: %s)", errorResp.Message, errorResp.Code)
		}
		return fmt.Errorf("inference API error: HTTP %d - %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Ready 检查服务是否就绪
func (s *Service) Ready() bool {
	return s != nil && s.client != nil && s.baseURL != ""
}
