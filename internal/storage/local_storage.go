package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cheers-go/internal/apptypes"
	"cheers-go/internal/config"

	"github.com/google/uuid"
)

// LocalStorageService 实现了 apptypes.StorageService 接口，把图片保存在本地目录。
type LocalStorageService struct {
	basePath string // 本地存储目录，例如 "./public/uploads"
	baseURL  string // 文件访问 URL 前缀，例如 "/uploads"
	urlPath  string // baseURL 的路径部分
}

// NewLocalStorageService 创建本地存储服务并确保目录存在。
func NewLocalStorageService(cfg config.StorageConfig) (*LocalStorageService, error) {
	if err := os.MkdirAll(cfg.LocalPath, 0o755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录失败 '%s': %w", cfg.LocalPath, err)
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	urlPath := baseURL
	if u, err := url.Parse(baseURL); err == nil {
		urlPath = strings.TrimSuffix(u.Path, "/")
	}
	return &LocalStorageService{
		basePath: cfg.LocalPath,
		baseURL:  baseURL,
		urlPath:  urlPath,
	}, nil
}

var _ apptypes.StorageService = (*LocalStorageService)(nil)

// UploadFile 以 uuid 文件名保存内容，保留原始扩展名。
func (s *LocalStorageService) UploadFile(ctx context.Context, reader io.Reader, fileSize int64, fileName string, mimeType string) (*apptypes.FileInfo, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		if extensions, _ := mime.ExtensionsByType(mimeType); len(extensions) > 0 {
			ext = extensions[0]
		}
	}
	storedName := uuid.New().String() + ext
	dstPath := filepath.Join(s.basePath, storedName)

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, fmt.Errorf("创建目标文件失败 '%s': %w", dstPath, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, reader)
	if err != nil {
		os.Remove(dstPath)
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}
	if fileSize >= 0 && written != fileSize {
		os.Remove(dstPath)
		return nil, fmt.Errorf("文件大小不匹配: 预期 %d, 实际写入 %d", fileSize, written)
	}

	return &apptypes.FileInfo{
		URL:      s.baseURL + "/" + url.PathEscape(storedName),
		Path:     dstPath,
		Size:     written,
		MimeType: mimeType,
		FileName: storedName,
	}, nil
}

// DeleteFile 删除 URL 指向的本地文件。外部 URL 与不存在的文件直接忽略。
func (s *LocalStorageService) DeleteFile(ctx context.Context, fileURL string) error {
	u, err := url.Parse(fileURL)
	if err != nil {
		return nil
	}
	dir, name := path.Split(u.Path)
	if strings.TrimSuffix(dir, "/") != s.urlPath || name == "" || name == "." || name == ".." {
		return nil
	}
	name, err = url.PathUnescape(name)
	if err != nil || strings.ContainsAny(name, `/\`) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.basePath, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除文件失败 '%s': %w", name, err)
	}
	return nil
}
