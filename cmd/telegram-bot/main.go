package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
	"meal-planner/internal/server"
	"meal-planner/internal/telegram"
)

func main() {
	// 1. Load Configuration
	config.LoadDotEnv()
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" {
		log.Fatalf("Failed to load config: TELEGRAM_BOT_TOKEN environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Infrastructure (database, remote collaborators, sessions)
	st, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer st.Close()

	chats := telegram.NewChatStateRepository(st.DB.SQL)

	// 3. Initialize Telegram Bot
	api, err := telegram.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}
	bot := telegram.NewBot(api, cfg, st.App, chats, st.Metrics, st.Signer)

	// 4. HTTP API next to the webhook, for share links
	dataPath := cfg.DatabasePath
	if cfg.StorageBackend == config.StorageFile {
		dataPath = cfg.SnapshotDir
	}
	handler, err := server.New(server.Config{App: st.App, Signer: st.Signer, Metrics: st.Metrics, DataPath: dataPath})
	if err != nil {
		log.Fatalf("Failed to initialize HTTP API: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	bot.RegisterHandlers(mux)

	go cleanupChatStates(ctx, chats, time.Hour)

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

func cleanupChatStates(ctx context.Context, chats *telegram.ChatStateRepository, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := chats.CleanupExpired(ctx)
			if err != nil {
				log.Printf("Background Error: failed to clean up chat states: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Removed %d expired chat states", n)
			}
		}
	}
}
