package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/contractqa/backend-go/internal/cache"
	"github.com/contractqa/backend-go/internal/knowledge"
	"github.com/contractqa/backend-go/internal/logger"
)

// NoRelevantInformationAnswer 检索结果为空时的固定答案
const NoRelevantInformationAnswer = "No relevant information found in the contract documents."

// contextPreviewLimit 返回给调用方的上下文片段预览长度（rune数）
const contextPreviewLimit = 200

// ContextChunk 答案引用的上下文片段预览
type ContextChunk struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	Similarity float64 `json:"similarity"`
}

// AnswerResult 一次问答的完整结果
type AnswerResult struct {
	Answer     string         `json:"answer"`
	Confidence float64        `json:"confidence"`
	Context    []ContextChunk `json:"context"`
	Sources    []string       `json:"sources"`
}

// ContractQAService 合同问答编排服务
// 构建知识库是写操作，问答与检索是读操作，用读写锁允许并发问答
type ContractQAService struct {
	mu        sync.RWMutex
	retriever *knowledge.Retriever
	qaModel   knowledge.QAModel
	cache     *cache.AnswerCache
	metrics   *MetricsService
}

// NewContractQAService 创建问答服务
// cache和metrics允许为nil，缺失时对应能力直接关闭
func NewContractQAService(retriever *knowledge.Retriever, qaModel knowledge.QAModel, answerCache *cache.AnswerCache, metrics *MetricsService) *ContractQAService {
	return &ContractQAService{
		retriever: retriever,
		qaModel:   qaModel,
		cache:     answerCache,
		metrics:   metrics,
	}
}

// BuildKnowledgeBase 全量重建知识库并清空答案缓存
func (s *ContractQAService) BuildKnowledgeBase(ctx context.Context, dir string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	count, err := s.retriever.BuildKnowledgeBase(ctx, dir)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveBuild("failure", time.Since(start).Seconds(), 0)
		}
		return 0, err
	}

	// 旧答案基于旧索引，重建后全部失效
	s.cache.Flush(ctx)

	if s.metrics != nil {
		s.metrics.ObserveBuild("success", time.Since(start).Seconds(), count)
	}
	return count, nil
}

// LoadKnowledgeBase 从磁盘加载已有知识库
func (s *ContractQAService) LoadKnowledgeBase() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.retriever.LoadKnowledgeBase(); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveBuild("success", 0, s.retriever.Size())
	}
	return nil
}

// KnowledgeBaseSize 当前索引的分块数
func (s *ContractQAService) KnowledgeBaseSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retriever.Size()
}

// Retrieve 只检索不问答，供调试和检索接口使用
func (s *ContractQAService) Retrieve(ctx context.Context, query string, topK int) ([]knowledge.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retriever.Retrieve(ctx, query, topK)
}

// AnswerQuestion 执行完整问答流水线：检索、拼接上下文、抽取答案
// 流水线内部的任何失败都被降级为错误答案而不是error返回值，调用方总能拿到结果
func (s *ContractQAService) AnswerQuestion(ctx context.Context, question string, topK int) AnswerResult {
	start := time.Now()

	var cached AnswerResult
	if s.cache.Get(ctx, question, &cached) {
		if s.metrics != nil {
			s.metrics.ObserveCache("hit")
		}
		return cached
	}
	if s.cache != nil && s.metrics != nil {
		s.metrics.ObserveCache("miss")
	}

	s.mu.RLock()
	result := s.answer(ctx, question, topK)
	s.mu.RUnlock()

	if s.metrics != nil {
		s.metrics.ObserveQuestion(outcomeOf(result), time.Since(start).Seconds())
	}
	if result.Answer != NoRelevantInformationAnswer && !strings.HasPrefix(result.Answer, "Error generating answer:") {
		s.cache.Set(ctx, question, result)
	}
	return result
}

func (s *ContractQAService) answer(ctx context.Context, question string, topK int) AnswerResult {
	chunks, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		logger.Error("retrieval failed", zap.Error(err))
		return errorResult(err)
	}

	if len(chunks) == 0 {
		return AnswerResult{
			Answer:     NoRelevantInformationAnswer,
			Confidence: 0,
			Context:    []ContextChunk{},
			Sources:    []string{},
		}
	}

	// 按检索顺序空格拼接作为模型上下文
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	contextText := strings.Join(texts, " ")

	answer, score, err := s.qaModel.Answer(ctx, question, contextText)
	if err != nil {
		logger.Error("answer extraction failed", zap.Error(err))
		return errorResult(err)
	}

	return AnswerResult{
		Answer:     answer,
		Confidence: score,
		Context:    contextPreviews(chunks),
		Sources:    uniqueSources(chunks),
	}
}

func errorResult(err error) AnswerResult {
	return AnswerResult{
		Answer:     fmt.Sprintf("Error generating answer: %v", err),
		Confidence: 0,
		Context:    []ContextChunk{},
		Sources:    []string{},
	}
}

// contextPreviews 截断每个分块用于展示，完整文本不进响应
func contextPreviews(chunks []knowledge.QueryResult) []ContextChunk {
	previews := make([]ContextChunk, len(chunks))
	for i, c := range chunks {
		previews[i] = ContextChunk{
			Text:       truncateRunes(c.Text, contextPreviewLimit) + "...",
			Source:     c.Source,
			Similarity: c.Similarity,
		}
	}
	return previews
}

// uniqueSources 去重且保持检索顺序
func uniqueSources(chunks []knowledge.QueryResult) []string {
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c.Source]; ok {
			continue
		}
		seen[c.Source] = struct{}{}
		sources = append(sources, c.Source)
	}
	return sources
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func outcomeOf(r AnswerResult) string {
	switch {
	case r.Answer == NoRelevantInformationAnswer:
		return "no_context"
	case strings.HasPrefix(r.Answer, "Error generating answer:"):
		return "error"
	default:
		return "answered"
	}
}
