package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractqa/backend-go/internal/knowledge"
)

// stubEmbedder 确定性哈希嵌入
type stubEmbedder struct{}

func (s *stubEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 4)
		for j, r := range text {
			vec[j%4] += float32(r%31) / 31
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (s *stubEmbedder) Dimensions() int { return 4 }
func (s *stubEmbedder) Ready() bool     { return true }

// stubQAModel 回显收到的上下文长度，便于断言拼接行为
type stubQAModel struct {
	answer string
	score  float64
	err    error

	lastQuestion string
	lastContext  string
}

func (m *stubQAModel) Answer(ctx context.Context, question, contextText string) (string, float64, error) {
	m.lastQuestion = question
	m.lastContext = contextText
	if m.err != nil {
		return "", 0, m.err
	}
	return m.answer, m.score, nil
}

func (m *stubQAModel) Ready() bool { return true }

func newTestService(t *testing.T, qaModel knowledge.QAModel) (*ContractQAService, string) {
	t.Helper()
	dir := t.TempDir()
	retriever, err := knowledge.NewRetriever(knowledge.RetrieverConfig{
		ChunkSize:           400,
		ChunkOverlap:        50,
		TopK:                3,
		SimilarityThreshold: 0,
		VectorPath:          filepath.Join(dir, "index.bin"),
		MetadataPath:        filepath.Join(dir, "metadata.json"),
	}, &stubEmbedder{})
	require.NoError(t, err)
	return NewContractQAService(retriever, qaModel, nil, nil), dir
}

func seedDocuments(t *testing.T, dir string) string {
	t.Helper()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	docs := map[string]string{
		"contract_a.txt": "Party A shall pay the contract price within thirty days of delivery.",
		"contract_b.txt": "Either party may terminate this agreement with ninety days written notice.",
	}
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0o644))
	}
	return dataDir
}

func TestAnswerQuestionEmptyKnowledgeBase(t *testing.T) {
	svc, _ := newTestService(t, &stubQAModel{})

	result := svc.AnswerQuestion(context.Background(), "What are the payment terms?", 3)
	assert.Equal(t, NoRelevantInformationAnswer, result.Answer)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.Context)
	assert.Empty(t, result.Sources)
}

func TestAnswerQuestionHappyPath(t *testing.T) {
	qa := &stubQAModel{answer: "within thirty days", score: 0.87}
	svc, dir := newTestService(t, qa)
	dataDir := seedDocuments(t, dir)

	count, err := svc.BuildKnowledgeBase(context.Background(), dataDir)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, svc.KnowledgeBaseSize())

	result := svc.AnswerQuestion(context.Background(), "When is payment due?", 3)
	assert.Equal(t, "within thirty days", result.Answer)
	assert.Equal(t, 0.87, result.Confidence)

	// 上下文按检索顺序空格拼接后整体传给模型
	assert.Equal(t, "When is payment due?", qa.lastQuestion)
	assert.Contains(t, qa.lastContext, "thirty days of delivery")
	assert.Contains(t, qa.lastContext, "ninety days written notice")
	assert.NotContains(t, qa.lastContext, "  ")

	require.Len(t, result.Context, 2)
	for _, chunk := range result.Context {
		assert.True(t, strings.HasSuffix(chunk.Text, "..."))
		assert.NotEmpty(t, chunk.Source)
		assert.Greater(t, chunk.Similarity, 0.0)
	}

	// 来源去重且保持检索顺序
	assert.Len(t, result.Sources, 2)
	assert.ElementsMatch(t, []string{"contract_a.txt", "contract_b.txt"}, result.Sources)
}

func TestAnswerQuestionSourcesDeduplicated(t *testing.T) {
	qa := &stubQAModel{answer: "ok", score: 0.5}
	svc, dir := newTestService(t, qa)

	// 单文件长文本切出多个分块，来源应只出现一次
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	long := strings.Repeat("The supplier shall deliver the goods on schedule. ", 30)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "contract.txt"), []byte(long), 0o644))

	count, err := svc.BuildKnowledgeBase(context.Background(), dataDir)
	require.NoError(t, err)
	require.Greater(t, count, 1)

	result := svc.AnswerQuestion(context.Background(), "delivery schedule", 3)
	assert.Equal(t, []string{"contract.txt"}, result.Sources)
}

func TestAnswerQuestionQAModelFailure(t *testing.T) {
	qa := &stubQAModel{err: errors.New("model server down")}
	svc, dir := newTestService(t, qa)
	dataDir := seedDocuments(t, dir)

	_, err := svc.BuildKnowledgeBase(context.Background(), dataDir)
	require.NoError(t, err)

	// 模型失败降级为错误答案，不返回error
	result := svc.AnswerQuestion(context.Background(), "any question", 3)
	assert.True(t, strings.HasPrefix(result.Answer, "Error generating answer:"))
	assert.Contains(t, result.Answer, "model server down")
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.Context)
	assert.Empty(t, result.Sources)
}

func TestAnswerQuestionContextTruncated(t *testing.T) {
	qa := &stubQAModel{answer: "ok", score: 0.5}
	svc, dir := newTestService(t, qa)

	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	long := strings.Repeat("clause ", 90)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "contract.txt"), []byte(long), 0o644))

	_, err := svc.BuildKnowledgeBase(context.Background(), dataDir)
	require.NoError(t, err)

	result := svc.AnswerQuestion(context.Background(), "clause", 1)
	require.Len(t, result.Context, 1)

	// 预览截断到200 rune加省略号，完整文本仍在模型上下文里
	preview := result.Context[0].Text
	assert.LessOrEqual(t, len([]rune(preview)), contextPreviewLimit+3)
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.Greater(t, len(qa.lastContext), len(preview))
}

func TestBuildKnowledgeBaseMissingDirectory(t *testing.T) {
	svc, dir := newTestService(t, &stubQAModel{})

	_, err := svc.BuildKnowledgeBase(context.Background(), filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLoadKnowledgeBaseRoundTrip(t *testing.T) {
	qa := &stubQAModel{answer: "ok", score: 0.5}
	svc, dir := newTestService(t, qa)
	dataDir := seedDocuments(t, dir)

	count, err := svc.BuildKnowledgeBase(context.Background(), dataDir)
	require.NoError(t, err)

	// 第二个服务实例直接从磁盘加载
	retriever, err := knowledge.NewRetriever(knowledge.RetrieverConfig{
		ChunkSize:           400,
		ChunkOverlap:        50,
		TopK:                3,
		SimilarityThreshold: 0,
		VectorPath:          filepath.Join(dir, "index.bin"),
		MetadataPath:        filepath.Join(dir, "metadata.json"),
	}, &stubEmbedder{})
	require.NoError(t, err)
	svc2 := NewContractQAService(retriever, qa, nil, nil)

	require.NoError(t, svc2.LoadKnowledgeBase())
	assert.Equal(t, count, svc2.KnowledgeBaseSize())

	result := svc2.AnswerQuestion(context.Background(), "When is payment due?", 3)
	assert.Equal(t, "ok", result.Answer)
}

func TestRetrieveDelegates(t *testing.T) {
	qa := &stubQAModel{}
	svc, dir := newTestService(t, qa)
	dataDir := seedDocuments(t, dir)

	_, err := svc.BuildKnowledgeBase(context.Background(), dataDir)
	require.NoError(t, err)

	results, err := svc.Retrieve(context.Background(), "payment terms", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
