package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MosinFAM/blogicum/internal/blog"
	"github.com/MosinFAM/blogicum/internal/config"
	"github.com/MosinFAM/blogicum/internal/db"
	"github.com/MosinFAM/blogicum/internal/media"
	"github.com/MosinFAM/blogicum/internal/storage"
	"github.com/MosinFAM/blogicum/internal/web"

	"github.com/alexedwards/scs/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	var store storage.Storage
	switch cfg.StorageType {
	case config.StoragePostgres:
		dbConn, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to DB: ", err)
		}
		defer dbConn.Close()
		if err := db.Migrate(dbConn, cfg.MigrationsDir); err != nil {
			log.Fatal("Failed to initialize DB: ", err)
		}
		store = storage.NewPostgresStorage(dbConn, cfg.DatabaseURL)
	default:
		store = storage.NewMemoryStorage()
	}

	images := media.NewStore(cfg.MediaDir)
	service := blog.NewService(store, blog.Options{
		PageSize:  cfg.PageSize,
		IndexSize: cfg.IndexSize,
		Now:       time.Now,
		Media:     images,
		IsStaff:   cfg.IsStaff,
	})

	sessions := scs.New()
	sessions.Lifetime = cfg.SessionLifetime
	sessions.Cookie.Secure = cfg.CookieSecure
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	handler := web.NewHandler(service, sessions, images, cfg.AllowedOrigins)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server is running on %s (storage: %s)", cfg.Addr, cfg.StorageType)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown failed: %v", err)
	}
}
