package services

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractqa/backend-go/internal/config"
)

func newDocumentService(t *testing.T, maxSize int64) (*DocumentService, string) {
	t.Helper()
	uploadDir := filepath.Join(t.TempDir(), "uploads")
	cfg := &config.Config{
		Data: config.DataConfig{UploadPath: uploadDir},
		FileUpload: config.FileUploadConfig{
			MaxSize:      maxSize,
			AllowedTypes: []string{".txt"},
		},
	}
	return NewDocumentService(cfg), uploadDir
}

func multipartHeaders(t *testing.T, files map[string]string) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["files"]
}

func TestSaveUploadsWritesToUploadDir(t *testing.T) {
	svc, uploadDir := newDocumentService(t, 0)
	headers := multipartHeaders(t, map[string]string{
		"contract_a.txt": "Party A shall pay within thirty days.",
		"contract_b.txt": "Ninety days written notice required.",
	})

	saved, err := svc.SaveUploads(headers)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"contract_a.txt", "contract_b.txt"}, saved)

	// 文件落在配置的上传目录，Dir返回同一目录供重建使用
	assert.Equal(t, uploadDir, svc.Dir())
	for _, name := range saved {
		content, err := os.ReadFile(filepath.Join(uploadDir, name))
		require.NoError(t, err)
		assert.NotEmpty(t, content)
	}
}

func TestSaveUploadsRejectsDisallowedExtension(t *testing.T) {
	svc, uploadDir := newDocumentService(t, 0)
	headers := multipartHeaders(t, map[string]string{
		"contract.txt": "valid clause",
		"notes.md":     "should be skipped",
	})

	saved, err := svc.SaveUploads(headers)
	require.NoError(t, err)
	assert.Equal(t, []string{"contract.txt"}, saved)

	_, err = os.Stat(filepath.Join(uploadDir, "notes.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveUploadsRejectsOversizedFile(t *testing.T) {
	svc, uploadDir := newDocumentService(t, 10)
	headers := multipartHeaders(t, map[string]string{
		"big.txt": "this content is longer than ten bytes",
	})

	_, err := svc.SaveUploads(headers)
	require.Error(t, err)

	_, err = os.Stat(filepath.Join(uploadDir, "big.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveUploadsAllInvalid(t *testing.T) {
	svc, _ := newDocumentService(t, 0)
	headers := multipartHeaders(t, map[string]string{"image.png": "not a contract"})

	_, err := svc.SaveUploads(headers)
	assert.Error(t, err)
}

func TestSaveUploadsEmpty(t *testing.T) {
	svc, _ := newDocumentService(t, 0)

	_, err := svc.SaveUploads(nil)
	assert.Error(t, err)
}

func TestListUploadedDocuments(t *testing.T) {
	svc, uploadDir := newDocumentService(t, 0)

	// 目录还不存在时返回空列表而不是错误
	files, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, os.MkdirAll(uploadDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, "contract.txt"), []byte("clause"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, "readme.md"), []byte("ignore"), 0o644))

	files, err = svc.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"contract.txt"}, files)
}
