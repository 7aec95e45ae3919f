package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"cheers-go/internal/auth"
	"cheers-go/internal/metrics"

	"github.com/sirupsen/logrus"
)

// contextKey 是用于在 context.Context 中存储值的自定义类型，以避免键冲突。
type contextKey string

const (
	// UserIDKey 是用于在上下文中存储用户ID的键。
	UserIDKey contextKey = "userID"
	// EmailKey 是用于在上下文中存储邮箱的键。
	EmailKey contextKey = "email"
	// ClaimsKey holds the full *auth.Claims; logout needs the jti and expiry.
	ClaimsKey contextKey = "claims"
)

// MsgAuthenticationRequired is the body of every 401 produced by the guard.
const MsgAuthenticationRequired = "authentication required"

// AuthMiddleware 验证会话 cookie 中的 JWT 并将用户信息添加到上下文中。
type AuthMiddleware struct {
	jwtKey     string
	cookieName string
	blacklist  auth.TokenBlacklist
	log        logrus.FieldLogger
}

// NewAuthMiddleware builds the guard. blacklist may be nil when revocation is disabled.
func NewAuthMiddleware(jwtKey, cookieName string, blacklist auth.TokenBlacklist, log logrus.FieldLogger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtKey:     jwtKey,
		cookieName: cookieName,
		blacklist:  blacklist,
		log:        log.WithField("component", "auth-middleware"),
	}
}

// Authenticate resolves the session cookie of r into claims.
// Errors wrap auth.ErrInvalidToken unless the revocation backend failed.
func (m *AuthMiddleware) Authenticate(r *http.Request) (*auth.Claims, error) {
	token := auth.TokenFromRequest(r, m.cookieName)
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return auth.ValidateToken(r.Context(), token, m.jwtKey, m.blacklist)
}

// Handler rejects requests without a valid session before calling next.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.Authenticate(r)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				// 认证失败是常态，只记 debug
				m.log.WithError(err).WithField("path", r.URL.Path).Debug("rejected unauthenticated request")
				metrics.RecordAuthFailure("invalid_session")
				writeError(w, MsgAuthenticationRequired, http.StatusUnauthorized)
				return
			}
			m.log.WithError(err).Error("session check failed")
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// WithClaims stores claims and the identity derived from them in ctx.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, EmailKey, claims.Email)
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetUserIDFromContext 从上下文中获取用户ID。
// 如果用户ID不存在或类型不正确，返回0和false。
func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(UserIDKey).(uint)
	return userID, ok
}

// GetEmailFromContext 从上下文中获取邮箱。
func GetEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}

// GetClaimsFromContext 从上下文中获取完整的 JWT claims。
func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
