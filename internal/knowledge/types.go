package knowledge

// Document 加载后的原始合同文档，分块后即丢弃，不做持久化
type Document struct {
	Filename string
	Content  string
}

// Chunk 分块后的文本单元，检索与向量化的基本单位
// ChunkID在一次构建批次内全局递增，重建后不保证稳定
type Chunk struct {
	Text    string `json:"text"`
	Source  string `json:"source"`
	ChunkID int    `json:"chunk_id"`
}

// QueryResult 单条检索命中结果
type QueryResult struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	ChunkID    int     `json:"chunk_id"`
	Similarity float64 `json:"similarity"`
}
