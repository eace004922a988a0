package services

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/contractqa/backend-go/internal/config"
	apperrors "github.com/contractqa/backend-go/internal/errors"
	"github.com/contractqa/backend-go/internal/logger"
)

// DocumentService 合同文档管理：上传语料的落盘与列表
// 所有操作作用于配置的上传目录，知识库从这里构建
type DocumentService struct {
	uploadDir    string
	maxSize      int64
	allowedTypes []string
}

// NewDocumentService 创建文档服务
func NewDocumentService(cfg *config.Config) *DocumentService {
	return &DocumentService{
		uploadDir:    cfg.Data.UploadPath,
		maxSize:      cfg.FileUpload.MaxSize,
		allowedTypes: cfg.FileUpload.AllowedTypes,
	}
}

// Dir 返回上传目录，重建知识库时作为语料目录
func (s *DocumentService) Dir() string {
	return s.uploadDir
}

// List 列出上传目录下的合同文件，目录不存在视为空列表
func (s *DocumentService) List() ([]string, error) {
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

// SaveUploads 把上传文件写入上传目录，返回实际落盘的文件名
// 扩展名不合法或超过大小上限的文件跳过不报错；一个都没保存返回BadRequest
func (s *DocumentService) SaveUploads(headers []*multipart.FileHeader) ([]string, error) {
	if len(headers) == 0 {
		return nil, apperrors.NewBadRequest("no files uploaded")
	}
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, err
	}

	saved := make([]string, 0, len(headers))
	for _, header := range headers {
		// 只保留文件名部分，丢弃路径分隔符，防止目录穿越
		name := filepath.Base(filepath.Clean(header.Filename))
		if name == "" || name == "." || name == string(filepath.Separator) {
			continue
		}
		if !s.allowed(name) {
			logger.Warn("Rejected file with disallowed extension", zap.String("filename", name))
			continue
		}
		if s.maxSize > 0 && header.Size > s.maxSize {
			logger.Warn("Rejected oversized file",
				zap.String("filename", name),
				zap.Int64("size", header.Size))
			continue
		}

		if err := s.save(header, filepath.Join(s.uploadDir, name)); err != nil {
			logger.Error("Failed to save uploaded file", zap.String("filename", name), zap.Error(err))
			continue
		}
		saved = append(saved, name)
	}

	if len(saved) == 0 {
		return nil, apperrors.NewBadRequest("no valid .txt files in upload")
	}
	return saved, nil
}

func (s *DocumentService) allowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range s.allowedTypes {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

func (s *DocumentService) save(header *multipart.FileHeader, dest string) error {
	src, err := header.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
