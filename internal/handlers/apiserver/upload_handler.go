package apiserver

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"cheers-go/internal/apptypes"
	"cheers-go/internal/config"

	"github.com/sirupsen/logrus"
)

const (
	defaultMaxMemory = 32 << 20 // 32 MB default max memory for multipart forms
)

// UploadHandler 封装了图片上传相关的 HTTP 处理器方法。
type UploadHandler struct {
	storageService apptypes.StorageService
	cfg            config.StorageConfig
	allowed        map[string]bool
	log            logrus.FieldLogger
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(storageService apptypes.StorageService, cfg config.StorageConfig, log logrus.FieldLogger) *UploadHandler {
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}
	return &UploadHandler{
		storageService: storageService,
		cfg:            cfg,
		allowed:        allowed,
		log:            log.WithField("handler", "upload"),
	}
}

// UploadResponse 是上传成功的响应。
type UploadResponse struct {
	Message      string `json:"message"`
	URL          string `json:"url"`
	FileName     string `json:"fileName"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimeType"`
}

// UploadFile handles POST /upload with an image in the multipart field "file".
func (h *UploadHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	maxUploadSize := h.cfg.MaxFileSizeMB << 20
	if maxUploadSize <= 0 {
		maxUploadSize = defaultMaxMemory
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, fmt.Sprintf("上传文件过大，最大允许 %d MB", maxUploadSize>>20), http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "解析表单失败", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeJSONError(w, "请求中缺少 'file' 字段", http.StatusBadRequest)
		} else {
			writeJSONError(w, "获取文件失败", http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	mimeType := header.Header.Get("Content-Type")
	if !h.allowed[ext] || (mimeType != "" && !strings.HasPrefix(mimeType, "image/")) {
		writeJSONError(w, "only image files are allowed (jpg, jpeg, png, gif)", http.StatusBadRequest)
		return
	}
	if header.Size > maxUploadSize {
		writeJSONError(w, fmt.Sprintf("上传文件过大，最大允许 %d MB", maxUploadSize>>20), http.StatusRequestEntityTooLarge)
		return
	}

	info, err := h.storageService.UploadFile(r.Context(), file, header.Size, header.Filename, mimeType)
	if err != nil {
		h.log.WithError(err).WithField("file", header.Filename).Error("store upload failed")
		writeJSONError(w, "存储文件失败", http.StatusInternalServerError)
		return
	}

	h.log.WithFields(logrus.Fields{"file": info.FileName, "size": info.Size}).Info("image uploaded")
	writeJSONResponse(w, http.StatusCreated, UploadResponse{
		Message:      "file uploaded",
		URL:          info.URL,
		FileName:     info.FileName,
		OriginalName: header.Filename,
		Size:         info.Size,
		MimeType:     info.MimeType,
	})
}
