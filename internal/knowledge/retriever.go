package knowledge

import (
	"context"
	"fmt"

	"github.com/contractqa/backend-go/internal/logger"
	"go.uber.org/zap"
)

// RetrieverConfig 检索器配置
type RetrieverConfig struct {
	ChunkSize           int
	ChunkOverlap        int
	TopK                int
	SimilarityThreshold float64
	VectorPath          string
	MetadataPath        string
}

// Retriever 知识库构建与检索
// 构建是全量重建：每次BuildKnowledgeBase丢弃旧索引，分块、编码、建索引、落盘一步到位
type Retriever struct {
	cfg      RetrieverConfig
	embedder Embedder
	chunker  *Chunker
	index    *FlatIndex
}

// NewRetriever 创建检索器
func NewRetriever(cfg RetrieverConfig, embedder Embedder) (*Retriever, error) {
	chunker, err := NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Retriever{
		cfg:      cfg,
		embedder: embedder,
		chunker:  chunker,
		index:    NewFlatIndex(),
	}, nil
}

// Size 返回当前索引中的分块数
func (r *Retriever) Size() int {
	return r.index.Size()
}

// BuildKnowledgeBase 从目录下的txt文件全量重建知识库并持久化
// 返回入库分块数；目录不存在或无txt文件返回NotFound
func (r *Retriever) BuildKnowledgeBase(ctx context.Context, dir string) (int, error) {
	docs, err := LoadDocuments(dir)
	if err != nil {
		return 0, err
	}

	chunks := r.chunker.ChunkDocuments(docs)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no chunks produced from %d documents", len(docs))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := r.embedder.Encode(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to encode chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	index := NewFlatIndex()
	if err := index.Build(vectors, chunks); err != nil {
		return 0, err
	}

	if err := index.Save(r.cfg.VectorPath, r.cfg.MetadataPath); err != nil {
		return 0, fmt.Errorf("failed to persist index: %w", err)
	}

	r.index = index
	logger.Info("knowledge base built",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.Int("dimensions", index.Dimensions()))
	return len(chunks), nil
}

// LoadKnowledgeBase 从持久化文件恢复索引
func (r *Retriever) LoadKnowledgeBase() error {
	index := NewFlatIndex()
	if err := index.Load(r.cfg.VectorPath, r.cfg.MetadataPath); err != nil {
		return err
	}
	r.index = index
	logger.Info("knowledge base loaded",
		zap.Int("chunks", index.Size()),
		zap.Int("dimensions", index.Dimensions()))
	return nil
}

// Retrieve 检索与query最相关的分块
// topK<=0时用配置默认值；空索引返回空结果而非错误；低于阈值的结果被过滤
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]QueryResult, error) {
	if r.index.Size() == 0 {
		return []QueryResult{}, nil
	}
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	vectors, err := r.embedder.Encode(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for single query", len(vectors))
	}

	neighbors, err := r.index.Search(vectors[0], topK)
	if err != nil {
		return nil, err
	}

	results := make([]QueryResult, 0, len(neighbors))
	for _, n := range neighbors {
		similarity := DistanceToSimilarity(n.Distance)
		if similarity < r.cfg.SimilarityThreshold {
			continue
		}
		chunk, ok := r.index.Metadata(n.Position)
		if !ok {
			continue
		}
		results = append(results, QueryResult{
			Text:       chunk.Text,
			Source:     chunk.Source,
			ChunkID:    chunk.ChunkID,
			Similarity: similarity,
		})
	}
	return results, nil
}
