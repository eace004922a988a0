package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/contractqa/backend-go/internal/errors"
)

// stubEmbedder 确定性哈希嵌入，测试中替代真实模型
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

func newTestRetriever(t *testing.T, threshold float64) (*Retriever, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := RetrieverConfig{
		ChunkSize:           50,
		ChunkOverlap:        10,
		TopK:                3,
		SimilarityThreshold: threshold,
		VectorPath:          filepath.Join(dir, "index.bin"),
		MetadataPath:        filepath.Join(dir, "metadata.json"),
	}
	r, err := NewRetriever(cfg, &stubEmbedder{})
	require.NoError(t, err)
	return r, dir
}

func writeDocs(t *testing.T, dir string, docs map[string]string) string {
	t.Helper()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0o644))
	}
	return dataDir
}

func TestBuildKnowledgeBase(t *testing.T) {
	r, dir := newTestRetriever(t, 0)
	dataDir := writeDocs(t, dir, map[string]string{
		"contract_a.txt": "Party A shall pay the contract price within thirty days of delivery.",
		"contract_b.txt": "Either party may terminate this agreement with ninety days notice.",
		"notes.md":       "should be ignored",
	})

	count, err := r.BuildKnowledgeBase(context.Background(), dataDir)
	require.NoError(t, err)
	assert.Greater(t, count, 0)
	assert.Equal(t, count, r.Size())

	// 构建后两份持久化文件都已落盘
	_, err = os.Stat(filepath.Join(dir, "index.bin"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "metadata.json"))
	assert.NoError(t, err)
}

func TestBuildKnowledgeBaseMissingDir(t *testing.T) {
	r, dir := newTestRetriever(t, 0)

	_, err := r.BuildKnowledgeBase(context.Background(), filepath.Join(dir, "nonexistent"))
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assertNoIndexFiles(t, dir)
}

func TestBuildKnowledgeBaseNoTxtFiles(t *testing.T) {
	r, dir := newTestRetriever(t, 0)
	dataDir := writeDocs(t, dir, map[string]string{"readme.md": "nothing here"})

	_, err := r.BuildKnowledgeBase(context.Background(), dataDir)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assertNoIndexFiles(t, dir)
}

// assertNoIndexFiles 构建失败后不许留下任何持久化文件
func assertNoIndexFiles(t *testing.T, dir string) {
	t.Helper()
	for _, name := range []string{"index.bin", "metadata.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(err), "%s should not exist after a failed build", name)
	}
}

func TestLoadKnowledgeBase(t *testing.T) {
	r, dir := newTestRetriever(t, 0)
	dataDir := writeDocs(t, dir, map[string]string{
		"contract_a.txt": "The supplier warrants the goods for a period of twelve months.",
	})

	count, err := r.BuildKnowledgeBase(context.Background(), dataDir)
	require.NoError(t, err)

	// 新检索器从磁盘恢复，规模一致
	r2, err := NewRetriever(r.cfg, &stubEmbedder{})
	require.NoError(t, err)
	require.NoError(t, r2.LoadKnowledgeBase())
	assert.Equal(t, count, r2.Size())

	// 重复加载是幂等的，检索结果不变
	first, err := r2.Retrieve(context.Background(), "supplier warranty period", 3)
	require.NoError(t, err)
	require.NoError(t, r2.LoadKnowledgeBase())
	second, err := r2.Retrieve(context.Background(), "supplier warranty period", 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadKnowledgeBaseMissing(t *testing.T) {
	r, _ := newTestRetriever(t, 0)

	err := r.LoadKnowledgeBase()
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRetrieveEmptyIndex(t *testing.T) {
	r, _ := newTestRetriever(t, 0)

	results, err := r.Retrieve(context.Background(), "any question", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveExactMatch(t *testing.T) {
	r, dir := newTestRetriever(t, 0)
	text := "Payment is due within thirty days."
	dataDir := writeDocs(t, dir, map[string]string{"contract.txt": text})

	_, err := r.BuildKnowledgeBase(context.Background(), dataDir)
	require.NoError(t, err)

	// query与唯一分块完全相同：距离0，相似度1
	results, err := r.Retrieve(context.Background(), text, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, text, results[0].Text)
	assert.Equal(t, "contract.txt", results[0].Source)
	assert.Equal(t, 1.0, results[0].Similarity)
}

func TestRetrieveTopKDefaults(t *testing.T) {
	r, dir := newTestRetriever(t, 0)
	dataDir := writeDocs(t, dir, map[string]string{
		"a.txt": "first clause about payment",
		"b.txt": "second clause about delivery",
		"c.txt": "third clause about liability",
		"d.txt": "fourth clause about warranty",
	})

	_, err := r.BuildKnowledgeBase(context.Background(), dataDir)
	require.NoError(t, err)

	// topK<=0走配置默认值3
	results, err := r.Retrieve(context.Background(), "payment clause", 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// topK超过索引大小返回全部
	results, err = r.Retrieve(context.Background(), "payment clause", 100)
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestRetrieveThresholdFilter(t *testing.T) {
	dir := t.TempDir()
	dataDir := writeDocs(t, dir, map[string]string{
		"a.txt": "first clause about payment",
		"b.txt": "completely different wording here",
	})

	build := func(threshold float64) []QueryResult {
		cfg := RetrieverConfig{
			ChunkSize:           50,
			ChunkOverlap:        10,
			TopK:                3,
			SimilarityThreshold: threshold,
			VectorPath:          filepath.Join(dir, "index.bin"),
			MetadataPath:        filepath.Join(dir, "metadata.json"),
		}
		r, err := NewRetriever(cfg, &stubEmbedder{})
		require.NoError(t, err)
		_, err = r.BuildKnowledgeBase(context.Background(), dataDir)
		require.NoError(t, err)
		results, err := r.Retrieve(context.Background(), "first clause about payment", 2)
		require.NoError(t, err)
		return results
	}

	// 阈值0放行全部，阈值单调收紧结果集
	all := build(0)
	require.Len(t, all, 2)
	assert.Equal(t, 1.0, all[0].Similarity)

	strict := build(0.99)
	require.Len(t, strict, 1)
	assert.Equal(t, "a.txt", strict[0].Source)

	none := build(1.01)
	assert.Empty(t, none)
}

func TestRetrieveOrderPreserved(t *testing.T) {
	r, dir := newTestRetriever(t, 0)
	dataDir := writeDocs(t, dir, map[string]string{
		"a.txt": "alpha beta gamma",
		"b.txt": "delta epsilon zeta",
		"c.txt": "eta theta iota",
	})

	_, err := r.BuildKnowledgeBase(context.Background(), dataDir)
	require.NoError(t, err)

	results, err := r.Retrieve(context.Background(), "alpha beta gamma", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// 相似度非升序排列
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}
}
