package knowledge

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/contractqa/backend-go/internal/errors"
	"github.com/contractqa/backend-go/internal/logger"
)

// LoadDocuments 非递归扫描目录下的.txt文件
// 目录缺失或没有任何匹配文件返回NotFound错误；单个文件读取失败仅记录日志并跳过
func LoadDocuments(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFound("data path does not exist: %s", dir)
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, apperrors.NewNotFound("no .txt files found in %s", dir)
	}

	logger.Info("found contract files", zap.Int("count", len(names)), zap.String("dir", dir))

	documents := make([]Document, 0, len(names))
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("failed to load document, skipping",
				zap.String("file", name), zap.Error(err))
			continue
		}
		documents = append(documents, Document{
			Filename: name,
			Content:  string(content),
		})
	}

	return documents, nil
}
