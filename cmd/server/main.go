// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/KRYZL19/memory5/internal/cache"
	"github.com/KRYZL19/memory5/internal/config"
	"github.com/KRYZL19/memory5/internal/database"
	"github.com/KRYZL19/memory5/internal/handlers"
	"github.com/KRYZL19/memory5/internal/middleware"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Optional collaborators: the action historian queue and the match
	// result store. The game itself runs fine without either.
	if cfg.RedisAddr != "" {
		if err := cache.ConnectRedis(); err != nil {
			logger.Warnf("Redis unavailable, action history disabled: %v", err)
		} else {
			logger.Infof("Action historian queue connected at %s", cfg.RedisAddr)
		}
	}
	if cfg.PostgresSet {
		database.ConnectDB()
		defer database.DB.Close()
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		logger.Fatalf("failed to create upload dir %s: %v", cfg.UploadDir, err)
	}

	rs := handlers.NewRoomServer(cfg, logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", http.HandlerFunc(handlers.RoomWSHandler(logger, rs)))
	mux.Handle("/upload", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.UploadHandler(logger, cfg),
	)))
	mux.Handle("/", http.FileServer(http.Dir(cfg.PublicDir)))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.ListenAndServe()
	}()
	logger.Infof("Memory server running on :%s", cfg.Port)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Fatalf("server exited: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}
}
