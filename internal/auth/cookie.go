package auth

import (
	"net/http"

	"cheers-go/internal/config"
)

// NewSessionCookie builds the HttpOnly cookie that carries the session token.
// Production deployments serve the frontend cross-site, so the cookie is Secure with SameSite=None there.
func NewSessionCookie(token string, cfg config.Config) *http.Cookie {
	c := baseCookie(cfg)
	c.Value = token
	c.MaxAge = int(cfg.Auth.JWTExpiry.Seconds())
	return c
}

// ClearSessionCookie returns a cookie that makes the browser drop the session.
func ClearSessionCookie(cfg config.Config) *http.Cookie {
	c := baseCookie(cfg)
	c.MaxAge = -1
	return c
}

func baseCookie(cfg config.Config) *http.Cookie {
	c := &http.Cookie{
		Name:     cfg.Auth.CookieName,
		Path:     "/",
		Domain:   cfg.Auth.CookieDomain,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.IsProduction() {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

// TokenFromRequest 从请求 cookie 中读取会话令牌；不存在时返回空字符串。
func TokenFromRequest(r *http.Request, cookieName string) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
