package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chat-backend/internal/chat"
	"chat-backend/internal/config"
	httpapi "chat-backend/internal/http"
	"chat-backend/internal/http/handlers"
	"chat-backend/internal/mail"
	"chat-backend/internal/ratelimit"
	"chat-backend/internal/services"
	"chat-backend/pkg/security"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	db, err := config.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	rdb, err := config.ConnectRedis(cfg.RedisAddr, cfg.RedisPass)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	jwtCfg := security.JWTConfig{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		AccessTTL: cfg.AccessTokenTTL,
	}

	var mailer mail.Mailer
	if cfg.MailEnabled {
		mailer = mail.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom, cfg.PublicURL)
	} else {
		mailer = mail.LogMailer{}
	}

	limiter := ratelimit.New(rdb, nil)
	tokens := services.NewTokenService(db, jwtCfg, cfg.RefreshTTL)
	auth := services.NewAuthService(db, limiter, tokens, mailer, cfg.PasswordPepper)
	messages := services.NewMessageService(db)
	friends := services.NewFriendService(db)
	users := services.NewUserService(db)
	registry := chat.NewRegistry(messages)

	router := httpapi.NewRouter(httpapi.Deps{
		JWT:      jwtCfg,
		Auth:     handlers.NewAuthHandler(auth, tokens),
		Messages: handlers.NewMessageHandler(messages),
		Friends:  handlers.NewFriendHandler(friends),
		Users:    handlers.NewUserHandler(users),
		WS:       handlers.NewWSHandler(registry, jwtCfg),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	registry.Shutdown()
}
