package apptypes

import (
	"context"
	"io"
)

// StorageService 定义了图片存储操作的接口。
// 定义在 apptypes 中以避免 storage 与 services/handlers 之间的循环依赖。
type StorageService interface {
	// UploadFile 保存 reader 中的内容并返回文件信息，包括访问 URL。
	UploadFile(ctx context.Context, reader io.Reader, fileSize int64, fileName string, mimeType string) (*FileInfo, error)
	// DeleteFile 删除 UploadFile 返回的 URL 对应的文件。
	// 不属于本存储的 URL 以及已不存在的文件都视为成功。
	DeleteFile(ctx context.Context, fileURL string) error
}
