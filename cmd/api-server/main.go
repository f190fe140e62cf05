// Package main API Server 入口
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meals-admin/internal/apiserver/auth"
	"meals-admin/internal/apiserver/server"
	"meals-admin/internal/config"
	"meals-admin/internal/shared/cache/redis"
	"meals-admin/internal/shared/mail"
	"meals-admin/internal/shared/storage/mongostore"
)

func main() {
	// 加载配置（自动加载 .env.{env}，根据 APP_ENV 切换数据库和 Redis）
	cfg := config.Load()

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// 初始化 MongoDB（持久化业务数据）
	store, err := mongostore.NewStore(cfg.DatabaseURL, cfg.DatabaseDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer store.Close()
	log.Println("Connected to MongoDB")

	// 初始化 Redis（会话 + 内容缓存）
	cacheStore, err := redis.NewStoreFromURL(cfg.RedisURL,
		redis.WithSessionTTL(cfg.Cache.SessionTTL),
		redis.WithMealTTL(cfg.Cache.MealTTL),
	)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cacheStore.Close()
	log.Println("Connected to Redis")

	authCfg := auth.Config{
		JWTSecret:       cfg.Auth.JWTSecret,
		Pepper:          cfg.Auth.Pepper,
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
	}

	// 确保管理员账户存在
	if err := auth.EnsureAdminUser(store, authCfg, cfg.Auth.AdminLogin, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Fatalf("Failed to ensure admin user: %v", err)
	}

	// 激活邮件：未配置 SMTP 时退化为日志输出
	var mailer mail.Mailer = mail.NewNoOpMailer()
	if mailCfg := (mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		From:     cfg.Mail.From,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
	}); mailCfg.Enabled() {
		mailer = mail.NewSMTPMailer(mailCfg)
	}

	h := server.NewHandler(store, cacheStore, mailer, authCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}
