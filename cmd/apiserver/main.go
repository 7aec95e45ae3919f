package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cheers-go/internal/apptypes"
	"cheers-go/internal/auth"
	"cheers-go/internal/config"
	"cheers-go/internal/handlers/apiserver"
	appKafka "cheers-go/internal/kafka"
	kafkahandlers "cheers-go/internal/kafka/handlers"
	"cheers-go/internal/logger"
	"cheers-go/internal/middleware"
	appRedis "cheers-go/internal/redis"
	"cheers-go/internal/services"
	"cheers-go/internal/storage"

	"github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		logrus.Fatalf("无法加载配置: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.WithField("env", cfg.AppEnv).Info("API 服务器配置加载成功")

	// 2. 初始化数据库连接并迁移表结构
	db, err := storage.InitDB(cfg.Database, log)
	if err != nil {
		log.Fatalf("无法初始化数据库: %v", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatalf("数据库表迁移失败: %v", err)
	}
	log.Info("数据库连接与迁移成功")

	// 3. 初始化 TokenBlacklist：启用 Redis 时跨实例共享，否则仅本进程有效
	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisClient, err := appRedis.NewClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("无法连接到 Redis: %v", err)
		}
		defer redisClient.Close()
		blacklist = appRedis.NewRedisTokenBlacklist(redisClient)
		log.WithField("addr", cfg.Redis.Addr).Info("成功连接到 Redis")
	} else {
		blacklist = auth.NewMemoryTokenBlacklist()
		log.Warn("Redis 未启用，令牌黑名单仅在本进程内有效")
	}

	// 4. 初始化 Repositories
	userRepo := storage.NewGormUserRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)
	reviewRepo := storage.NewGormReviewRepository(db)
	commentRepo := storage.NewGormCommentRepository(db)

	// 5. 初始化存储服务
	if cfg.Storage.Type != "local" {
		log.Fatalf("不支持的存储类型: %s", cfg.Storage.Type)
	}
	var storageService apptypes.StorageService
	localStorage, err := storage.NewLocalStorageService(cfg.Storage)
	if err != nil {
		log.Fatalf("无法初始化本地存储服务: %v", err)
	}
	storageService = localStorage

	// 6. 初始化 Kafka Producer（可选）
	publisher := services.NewNoopActivityPublisher()
	var producer appKafka.MessageProducer
	if cfg.Kafka.Enabled {
		producer, err = appKafka.NewConfluentKafkaProducer(cfg.Kafka, log)
		if err != nil {
			log.Fatalf("无法创建 Kafka 生产者: %v", err)
		}
		defer producer.Close()
		publisher = services.NewKafkaActivityPublisher(producer, cfg.Kafka.ActivityTopic, log)
		log.WithField("topic", cfg.Kafka.ActivityTopic).Info("Kafka 生产者初始化成功")
	}

	// 7. 初始化 Services
	wt := cfg.Server.WriteTimeout
	authService := services.NewAuthService(userRepo, blacklist, cfg, log)
	userService := services.NewUserService(userRepo, publisher, wt, log)
	friendService := services.NewFriendshipService(userRepo, friendshipRepo, publisher, wt, log)
	reviewService := services.NewReviewService(userRepo, reviewRepo, publisher, wt, log)
	cheerService := services.NewCheerService(reviewRepo, publisher, wt, log)
	commentService := services.NewCommentService(userRepo, reviewRepo, commentRepo, publisher, wt, log)

	// 8. 初始化 Handlers 与路由
	stopCleanup := make(chan struct{})
	proxies, err := middleware.ParseTrustedProxies(cfg.Auth.TrustedProxies)
	if err != nil {
		log.Fatalf("无效的 AUTH.TRUSTED_PROXIES 配置: %v", err)
	}
	loginLimiter := middleware.NewRateLimiter(cfg.Auth.LoginRatePerSec, cfg.Auth.LoginBurst, proxies, log)
	loginLimiter.StartCleanup(time.Minute, stopCleanup)

	r := apiserver.NewRouter(apiserver.RouterDeps{
		Auth:         apiserver.NewAuthHandler(authService, cfg, log),
		Users:        apiserver.NewUserHandler(userService, friendService, log),
		Friends:      apiserver.NewFriendHandler(friendService, log),
		Reviews:      apiserver.NewReviewHandler(reviewService, cheerService, log),
		Comments:     apiserver.NewCommentHandler(commentService, log),
		Uploads:      apiserver.NewUploadHandler(storageService, cfg.Storage, log),
		AuthMW:       middleware.NewAuthMiddleware(cfg.Auth.JWTSecretKey, cfg.Auth.CookieName, blacklist, log),
		LoginLimiter: loginLimiter,
		Log:          log,
		UploadsURL:   cfg.Storage.BaseURL,
		UploadsDir:   cfg.Storage.LocalPath,
	})

	// 9. 启动上传文件清理消费者：删除评测或用户后移除其图片
	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	defer cancelConsumers()
	var consumersWG sync.WaitGroup
	if cfg.Kafka.Enabled {
		cleanupConsumer := appKafka.NewConfluentKafkaConsumer(cfg.Kafka, log)
		defer cleanupConsumer.Close()
		cleanup := kafkahandlers.NewUploadCleanupHandler(storageService, reviewRepo, log)

		consumersWG.Add(1)
		go func() {
			defer consumersWG.Done()
			topics := []string{cfg.Kafka.ActivityTopic}
			err := cleanupConsumer.Consume(consumerCtx, topics, cfg.Kafka.CleanupConsumerGroup, cleanup.HandleMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("上传清理消费者异常退出")
			}
			log.Info("上传清理消费者已停止")
		}()
	}

	// 10. 启动 HTTP 服务器并实现优雅关闭
	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)

	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}

	srv := &http.Server{
		Addr:           serverAddr,
		Handler:        handlers.CORS(corsOptions...)(r),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Infof("API 服务器启动于 %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API 服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("收到关闭信号，正在关闭 API 服务器...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("API 服务器强制关闭")
	}

	close(stopCleanup)
	cancelConsumers()
	consumersWG.Wait()
	log.Info("API 服务器已成功关闭")
}
