package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cheers-go/internal/middleware"
	"cheers-go/internal/services"
	"cheers-go/internal/storage"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ErrorResponse 是 API 错误响应的通用结构体。
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is used by endpoints that only report success.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSONResponse 是一个辅助函数，用于发送 JSON 响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		// 头部已发送，编码失败时无法再改状态码
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeJSONError 是一个辅助函数，用于发送 JSON 格式的错误响应。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

// writeServiceError maps service sentinels to status codes.
// Unexpected errors are logged and answered with a generic 500 so storage details never leak.
func writeServiceError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrAuthenticationRequired):
		writeJSONError(w, middleware.MsgAuthenticationRequired, http.StatusUnauthorized)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeJSONError(w, "invalid email, username or password", http.StatusUnauthorized)
	case errors.Is(err, services.ErrForbidden):
		writeJSONError(w, "you are not allowed to do this", http.StatusForbidden)
	case errors.Is(err, services.ErrNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrConflict):
		writeJSONError(w, err.Error(), http.StatusConflict)
	default:
		log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}

// decodeJSON reads the request body into dst, answering 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, "请求体无效", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses the mux variable name as a positive id, answering 400 itself on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw, ok := mux.Vars(r)[name]
	if !ok {
		writeJSONError(w, "请求路径中缺少 "+name, http.StatusBadRequest)
		return 0, false
	}
	id, err := storage.StrToUint(raw)
	if err != nil || id == 0 {
		writeJSONError(w, "无效的 "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// callerID returns the authenticated user id. Routes behind the guard always have one.
func callerID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok || id == 0 {
		writeJSONError(w, middleware.MsgAuthenticationRequired, http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}

// parseDate accepts "2006-01-02" or RFC 3339. An empty string yields nil.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
