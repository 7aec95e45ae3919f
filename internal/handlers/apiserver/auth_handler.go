package apiserver

import (
	"net/http"

	"cheers-go/internal/auth"
	"cheers-go/internal/config"
	"cheers-go/internal/middleware"
	"cheers-go/internal/models"
	"cheers-go/internal/services"

	"github.com/sirupsen/logrus"
)

// AuthHandler 封装了认证相关的 HTTP 处理器方法。
type AuthHandler struct {
	authService services.AuthService
	cfg         config.Config
	log         logrus.FieldLogger
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(authService services.AuthService, cfg config.Config, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
		log:         log.WithField("handler", "auth"),
	}
}

// RegisterRequest 是用户注册请求的结构体。
type RegisterRequest struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	DateOfBirth   string `json:"dateOfBirth,omitempty"`
	ProfilePicURL string `json:"profilePicUrl,omitempty"`
}

// LoginRequest accepts either email or username next to the password.
type LoginRequest struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// SessionUser is the identity echoed back after login.
type SessionUser struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// LoginResponse 是成功登录后返回的结构体。令牌只放在 cookie 中。
type LoginResponse struct {
	Success bool        `json:"success"`
	User    SessionUser `json:"user"`
}

// Register 处理用户注册请求。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dob, err := parseDate(req.DateOfBirth)
	if err != nil {
		writeJSONError(w, "dateOfBirth must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	user, err := h.authService.Register(r.Context(), services.RegisterInput{
		Username:      req.Username,
		Email:         req.Email,
		Password:      req.Password,
		DateOfBirth:   dob,
		ProfilePicURL: req.ProfilePicURL,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, user)
}

// Login 校验凭据并设置会话 cookie。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identifier := req.Email
	if identifier == "" {
		identifier = req.Username
	}

	token, user, err := h.authService.Login(r.Context(), identifier, req.Password)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	http.SetCookie(w, auth.NewSessionCookie(token, h.cfg))
	writeJSONResponse(w, http.StatusOK, LoginResponse{Success: true, User: sessionUser(user)})
}

// Logout 吊销当前令牌并清除 cookie。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaimsFromContext(r.Context())
	if err := h.authService.Logout(r.Context(), claims); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	http.SetCookie(w, auth.ClearSessionCookie(h.cfg))
	writeJSONResponse(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

func sessionUser(u *models.User) SessionUser {
	return SessionUser{ID: u.ID, Email: u.Email, Username: u.Username}
}
