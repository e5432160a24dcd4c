package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"quantDashboard/internal/cache"
	"quantDashboard/internal/config"
	"quantDashboard/internal/finance"
	"quantDashboard/internal/marketdata"
	"quantDashboard/internal/server"
	"quantDashboard/internal/storage"
	"quantDashboard/internal/telegram"
	"quantDashboard/internal/util"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		boot := util.NewLogger("info")
		boot.Fatal().Err(err).Msg("config")
	}
	log := util.NewLogger(cfg.LogLevel)
	if err := cfg.ValidateBot(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		log.Fatal().Err(err).Msg("open sqlite")
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		log.Fatal().Err(err).Msg("init schema")
	}
	log.Info().Str("path", cfg.DBPath).Msg("db ready")
	store := storage.NewStore(db)

	c, closeCache, err := newCache(cfg.Cache, log)
	if err != nil {
		log.Fatal().Err(err).Msg("cache")
	}
	defer closeCache()

	src := marketdata.NewBinanceFromConfig(cfg.Market, log)
	dash := finance.NewDashboard(src, c, cfg, log)

	bot, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, cfg.OpenAIKey, dash, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("http listening")
	if err := server.ListenAndServe(ctx, addr, server.NewRouter(dash, bot.WebhookHandler(), log)); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}

// newCache returns Redis when a URL is configured, otherwise an in-process
// cache. The returned func releases the backend.
func newCache(cfg config.Cache, log zerolog.Logger) (cache.Cache, func(), error) {
	ttl := time.Duration(cfg.TTLSecs) * time.Second
	if cfg.RedisURL == "" {
		return cache.NewMemory(ttl), func() {}, nil
	}
	r, err := cache.Dial(cfg.RedisURL, ttl, cfg.Prefix, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("cache: redis")
	return r, func() { _ = r.Close() }, nil
}
