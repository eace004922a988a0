package knowledge

import (
	"strings"
	"unicode"

	apperrors "github.com/contractqa/backend-go/internal/errors"
)

// Chunker 文本分块器：固定窗口+重叠滑动切分
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker 创建分块器
// overlap >= size 会导致窗口无法前进，视为配置错误直接拒绝
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, apperrors.NewInvalidConfig("chunk_size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, apperrors.NewInvalidConfig("chunk_overlap must be non-negative, got %d", chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, apperrors.NewInvalidConfig("chunk_overlap (%d) must be smaller than chunk_size (%d)", chunkOverlap, chunkSize)
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// Split 将单篇文本切分为多个窗口
// 先归一化空白，再按step=size-overlap滑动；末尾窗口截断到剩余长度
func (c *Chunker) Split(text string) []string {
	clean := normalizeWhitespace(text)
	if clean == "" {
		return nil
	}

	runes := []rune(clean)
	step := c.chunkSize - c.chunkOverlap

	var pieces []string
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			pieces = append(pieces, piece)
		}
		if end == len(runes) {
			break
		}
	}

	return pieces
}

// ChunkDocuments 将整批文档切分为带来源信息的Chunk列表
// ChunkID按追加顺序在整个批次内连续编号
func (c *Chunker) ChunkDocuments(docs []Document) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		for _, piece := range c.Split(doc.Content) {
			chunks = append(chunks, Chunk{
				Text:    piece,
				Source:  doc.Filename,
				ChunkID: len(chunks),
			})
		}
	}
	return chunks
}

// normalizeWhitespace 折叠连续空白为单个空格，并剔除不可打印控制字符
func normalizeWhitespace(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))

	var prevSpace bool
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace {
				builder.WriteRune(' ')
				prevSpace = true
			}
		case unicode.IsControl(r):
			// 控制字符直接丢弃
		default:
			builder.WriteRune(r)
			prevSpace = false
		}
	}

	return strings.TrimSpace(builder.String())
}
