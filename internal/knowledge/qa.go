package knowledge

import (
	"context"
	"errors"
)

// QAModel 定义抽取式问答接口
// 答案是context中的连续片段，score为模型给出的[0,1]置信度，两者均原样透传
type QAModel interface {
	Answer(ctx context.Context, question, contextText string) (string, float64, error)
	Ready() bool
}

// NoopQAModel 默认占位实现
type NoopQAModel struct{}

func (n *NoopQAModel) Answer(ctx context.Context, question, contextText string) (string, float64, error) {
	return "", 0, errors.New("qa model not configured")
}

func (n *NoopQAModel) Ready() bool {
	return false
}
