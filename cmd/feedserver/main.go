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

	"cheers-go/internal/auth"
	"cheers-go/internal/config"
	"cheers-go/internal/handlers/feedserver"
	appKafka "cheers-go/internal/kafka"
	kafkahandlers "cheers-go/internal/kafka/handlers"
	"cheers-go/internal/logger"
	"cheers-go/internal/metrics"
	"cheers-go/internal/middleware"
	appRedis "cheers-go/internal/redis"
	"cheers-go/internal/websocket"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		logrus.Fatalf("无法加载配置: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info("Feed 服务器配置加载成功")

	if !cfg.Kafka.Enabled {
		log.Warn("Kafka 未启用，Feed 服务器不会收到任何动态")
	}

	// 2. 会话校验与 API 服务器共用密钥和黑名单
	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisClient, err := appRedis.NewClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("无法连接到 Redis: %v", err)
		}
		defer redisClient.Close()
		blacklist = appRedis.NewRedisTokenBlacklist(redisClient)
	} else {
		// 进程内黑名单看不到 API 服务器的登出，已登出的令牌在过期前仍可连接
		log.Warn("Redis 未启用，Feed 服务器无法识别已吊销的令牌")
	}
	authMW := middleware.NewAuthMiddleware(cfg.Auth.JWTSecretKey, cfg.Auth.CookieName, blacklist, log)

	// 3. 初始化 WebSocket Hub
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	hub := websocket.NewHub(log)
	go hub.Run(hubCtx)
	log.Info("WebSocket Hub 已启动")

	// 4. 启动动态消费者，把事件推给对应用户
	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	defer cancelConsumers()
	var consumersWG sync.WaitGroup
	if cfg.Kafka.Enabled {
		consumer := appKafka.NewConfluentKafkaConsumer(cfg.Kafka, log)
		defer consumer.Close()
		feed := kafkahandlers.NewFeedHandler(hub, log)

		consumersWG.Add(1)
		go func() {
			defer consumersWG.Done()
			topics := []string{cfg.Kafka.ActivityTopic}
			log.WithFields(logrus.Fields{"topic": cfg.Kafka.ActivityTopic, "group": cfg.Kafka.FeedConsumerGroup}).Info("Kafka 动态消费者启动")
			if err := consumer.Consume(consumerCtx, topics, cfg.Kafka.FeedConsumerGroup, feed.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("Kafka 动态消费者异常退出")
			}
			log.Info("Kafka 动态消费者已停止")
		}()
	}

	// 5. 配置 HTTP 路由
	wsHandler := feedserver.NewWebSocketHandler(hubCtx, hub, authMW, cfg, log)
	r := mux.NewRouter()
	r.Use(metrics.InstrumentHandler)
	r.HandleFunc(cfg.FeedServer.WebSocketPath, wsHandler.ServeWS).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// 6. 启动 HTTP 服务器
	serverAddr := fmt.Sprintf("%s:%s", cfg.FeedServer.Host, cfg.FeedServer.Port)
	httpServer := &http.Server{
		Addr:           serverAddr,
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Infof("Feed 服务器启动于 %s, WebSocket 路径: %s", serverAddr, cfg.FeedServer.WebSocketPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Feed 服务器启动失败: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Feed 服务器准备关闭...")

	cancelConsumers()
	consumersWG.Wait()
	cancelHub()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("Feed 服务器关闭失败")
	}
	log.Info("Feed 服务器已优雅关闭")
}
