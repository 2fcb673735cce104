package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cyberjungle/internal/api"
	"cyberjungle/internal/config"
	"cyberjungle/internal/cooldown"
	"cyberjungle/internal/media"
	"cyberjungle/internal/provider/gemini"
	"cyberjungle/internal/provider/runway"
	"cyberjungle/internal/redis"
	"cyberjungle/internal/service/ai"
	"cyberjungle/internal/service/history"
	"cyberjungle/internal/storage"
	"cyberjungle/internal/worker"

	"github.com/gin-gonic/gin"
)

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	logOpts := &slog.HandlerOptions{}
	if os.Getenv("CYBERJUNGLE_WORKER_DEBUG") == "1" {
		logOpts.Level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, logOpts)))

	cfg, err := config.Load(os.Getenv("CYBERJUNGLE_CONFIG"))
	if err != nil {
		fatal("load config", err)
	}

	dbType := os.Getenv("CYBERJUNGLE_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	slog.Info("opening database", "driver", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		fatal("open database", err)
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		fatal("migrate database", err)
	}

	var store cooldown.Store
	if cfg.Redis.Host != "" {
		rdb, err := redis.NewRedisClient(cfg)
		if err != nil {
			fatal("create redis client", err)
		}
		defer rdb.Close()
		store = rdb
	} else {
		slog.Info("redis not configured, cooldowns are kept in memory")
		store = cooldown.NewMemoryStore()
	}
	guard := cooldown.NewGuard(store, cfg.Generation.CooldownDuration())

	blobs, err := storage.NewBlobStore(cfg.BasicConfig.FileBaseDir, cfg.BasicConfig.MediaPath)
	if err != nil {
		fatal("create blob store", err)
	}
	historyService := history.NewService(db, blobs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if hours := cfg.BasicConfig.HistoryRetentionHours; hours > 0 {
		historyService.StartRetentionCleaner(ctx,
			time.Duration(hours)*time.Hour,
			time.Duration(cfg.BasicConfig.CleanInterval)*time.Minute)
	}

	textModel, err := newTextModel(cfg)
	if err != nil {
		fatal("init text model", err)
	}

	geminiKey := cfg.APIKey("gemini")
	gp := gemini.New(gemini.Config{
		APIKey:      geminiKey,
		BaseURL:     cfg.Providers["gemini"].BaseURL,
		ImageModel:  cfg.Generation.ImageModel,
		SpeechModel: cfg.Generation.SpeechModel,
		VideoModel:  cfg.Generation.VideoModel,
	})

	var videos ai.VideoCreator
	switch cfg.Generation.VideoProvider {
	case config.VideoProviderRunway:
		rc := runway.New(runway.Config{
			APIKey:  cfg.APIKey("runway"),
			BaseURL: cfg.Providers["runway"].BaseURL,
		})
		videos = ai.NewSyncVideoCreator(rc, media.NewHTTPFetcher("", ""))
	default:
		policy := ai.PollPolicy{
			Interval:    cfg.Generation.PollIntervalDuration(),
			MaxAttempts: cfg.Generation.PollMaxAttempts,
			Timeout:     cfg.Generation.PollTimeoutDuration(),
		}
		videos = ai.NewVideoComposer(gp, media.NewHTTPFetcher("x-goog-api-key", geminiKey), policy)
	}
	speech := ai.NewSpeechSynthesizer(gp)

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		MinWorkers:  cfg.BasicConfig.MinWorkers,
		MaxWorkers:  cfg.BasicConfig.MaxWorkers,
		QueueSize:   cfg.BasicConfig.QueueSize,
		IdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Minute,
	})
	defer dispatcher.Close()

	handlers := api.NewHandler(api.Deps{
		Answerer:       ai.NewAnswerer(textModel),
		ContentWriter:  ai.NewContentWriter(textModel),
		Images:         ai.NewImageCreator(gp, cfg.Generation.ImageCount),
		Speech:         speech,
		Videos:         videos,
		Animator:       ai.NewAnimator(videos),
		MediaKit:       ai.NewMediaKit(speech, videos),
		History:        historyService,
		Dispatcher:     dispatcher,
		Cooldowns:      guard,
		RequestTimeout: time.Duration(cfg.BasicConfig.RequestTimeout) * time.Second,
		MediaDir:       blobs.Dir(),
		MediaPath:      cfg.BasicConfig.MediaPath,
	})

	router := gin.Default()
	handlers.RegisterRoutes(router)

	srv := &http.Server{Addr: cfg.BasicConfig.ServerAddress, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "error", err)
		}
	}()

	slog.Info("server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
	}
}

// newTextModel builds the chat model behind the answer and content adapters.
func newTextModel(cfg *config.Config) (*ai.ChatModel, error) {
	provider := cfg.Generation.TextProvider
	chatCfg := ai.ChatConfig{
		Provider: provider,
		Model:    cfg.Providers[provider].Model,
		BaseURL:  cfg.Providers[provider].BaseURL,
		APIKey:   cfg.APIKey(provider),
	}
	if cfg.Generation.WebSearch {
		chatCfg.Tools = ai.InitToolsChain(ai.SearchConfig{
			GoogleAPIKey:   cfg.Secrets.GoogleSearchAPIKey,
			GoogleEngineID: cfg.Secrets.GoogleSearchEngineID,
		})
	}
	return ai.NewChatModel(chatCfg)
}
