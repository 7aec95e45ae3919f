package apiserver

import (
	"net/http"
	"strings"

	"cheers-go/internal/metrics"
	"cheers-go/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// RouterDeps groups everything NewRouter wires into routes.
type RouterDeps struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Friends  *FriendHandler
	Reviews  *ReviewHandler
	Comments *CommentHandler
	Uploads  *UploadHandler

	AuthMW       *middleware.AuthMiddleware
	LoginLimiter *middleware.RateLimiter // nil disables login rate limiting
	Log          logrus.FieldLogger

	// UploadsURL and UploadsDir serve stored images when both are set.
	UploadsURL string
	UploadsDir string
}

// NewRouter 注册所有 API 路由。受保护的路由逐条包上认证中间件，
// 因为同一路径可能既有公开方法也有受保护方法（例如 GET/POST /users）。
func NewRouter(d RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(metrics.InstrumentHandler)
	if d.Log != nil {
		r.Use(middleware.AccessLog(d.Log))
	}

	protected := func(h http.HandlerFunc) http.Handler { return d.AuthMW.Handler(h) }
	login := http.Handler(http.HandlerFunc(d.Auth.Login))
	if d.LoginLimiter != nil {
		login = d.LoginLimiter.Handler(login)
	}

	// 公开路由
	r.HandleFunc("/", Health).Methods(http.MethodGet)
	r.Handle("/login", login).Methods(http.MethodPost)
	r.HandleFunc("/users/new", d.Auth.Register).Methods(http.MethodPost)
	r.HandleFunc("/users", d.Auth.Register).Methods(http.MethodPost)
	r.HandleFunc("/users/{userID:[0-9]+}/public", d.Users.GetPublicProfile).Methods(http.MethodGet)
	r.HandleFunc("/reviews", d.Reviews.ListReviews).Methods(http.MethodGet)
	r.HandleFunc("/reviews/{reviewID:[0-9]+}", d.Reviews.GetReview).Methods(http.MethodGet)
	r.HandleFunc("/reviews/{reviewID:[0-9]+}/comments", d.Comments.ListComments).Methods(http.MethodGet)
	r.HandleFunc("/reviews/{reviewID:[0-9]+}/cheerers", d.Reviews.ListCheerers).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// 受保护路由
	r.Handle("/logout", protected(d.Auth.Logout)).Methods(http.MethodPost)
	r.Handle("/current-user", protected(d.Users.CurrentUser)).Methods(http.MethodGet)
	r.Handle("/users", protected(d.Users.ListUsers)).Methods(http.MethodGet)
	r.Handle("/users/{userID:[0-9]+}", protected(d.Users.GetUser)).Methods(http.MethodGet)
	r.Handle("/users/{userID:[0-9]+}", protected(d.Users.UpdateUser)).Methods(http.MethodPut)
	r.Handle("/users/{userID:[0-9]+}", protected(d.Users.DeleteUser)).Methods(http.MethodDelete)
	r.Handle("/users/{userID:[0-9]+}/friends", protected(d.Users.ListUserFriends)).Methods(http.MethodGet)
	r.Handle("/users/friends", protected(d.Friends.AddFriend)).Methods(http.MethodPost)
	r.Handle("/users/friends", protected(d.Friends.RemoveFriend)).Methods(http.MethodDelete)
	r.Handle("/friends", protected(d.Friends.ListFriends)).Methods(http.MethodGet)
	r.Handle("/friends/{userID:[0-9]+}", protected(d.Friends.ListFriends)).Methods(http.MethodGet)
	r.Handle("/friends/add", protected(d.Friends.AddFriend)).Methods(http.MethodPost)
	r.Handle("/friends/remove", protected(d.Friends.RemoveFriend)).Methods(http.MethodDelete)
	r.Handle("/reviews", protected(d.Reviews.CreateReview)).Methods(http.MethodPost)
	r.Handle("/reviews/{reviewID:[0-9]+}", protected(d.Reviews.UpdateReview)).Methods(http.MethodPut)
	r.Handle("/reviews/{reviewID:[0-9]+}", protected(d.Reviews.DeleteReview)).Methods(http.MethodDelete)
	r.Handle("/reviews/{reviewID:[0-9]+}/cheer", protected(d.Reviews.CheerStatus)).Methods(http.MethodGet)
	r.Handle("/reviews/{reviewID:[0-9]+}/cheer", protected(d.Reviews.ToggleCheer)).Methods(http.MethodPost)
	r.Handle("/reviews/{reviewID:[0-9]+}/comments", protected(d.Comments.CreateComment)).Methods(http.MethodPost)
	r.Handle("/reviews/{reviewID:[0-9]+}/comments/{commentID:[0-9]+}", protected(d.Comments.DeleteComment)).Methods(http.MethodDelete)
	r.Handle("/upload", protected(d.Uploads.UploadFile)).Methods(http.MethodPost)

	// 静态文件服务路由，用于访问上传的图片
	if d.UploadsURL != "" && d.UploadsDir != "" {
		staticPath := strings.TrimSuffix(d.UploadsURL, "/") + "/"
		r.PathPrefix(staticPath).Handler(http.StripPrefix(staticPath, http.FileServer(http.Dir(d.UploadsDir)))).Methods(http.MethodGet)
	}

	return r
}
