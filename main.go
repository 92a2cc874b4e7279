package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"dns-price-bot/api"
	"dns-price-bot/bot"
	"dns-price-bot/config"
	"dns-price-bot/scheduler"
	"dns-price-bot/scraper/dnsshop"
	"dns-price-bot/services"
	"dns-price-bot/storage"
	"dns-price-bot/utils"
)

func main() {
	// ================== Bootstrap ====================
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		utils.NewLogger("info").Error("Invalid configuration: %v", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	logger.Info("DNS-Shop video card price bot")
	logger.Info("Target price: %s | Interval: %v | Backoff: %v", cfg.TargetPrice, cfg.CheckInterval, cfg.RetryBackoff)
	logger.Info("Engine: %s | Page delay: %dms | Retries: %d | Storage: %s",
		cfg.ScraperEngine, cfg.PageDelay, cfg.MaxRetries, cfg.StorageBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =================== Storage ========================================
	store, err := storage.Open(ctx, storage.Options{
		Backend:       cfg.StorageBackend,
		DataDir:       cfg.DataDir,
		DatabaseURL:   cfg.DatabaseURL,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
	}, logger)
	if err != nil {
		logger.Error("Cannot open %s storage: %v", cfg.StorageBackend, err)
		os.Exit(1)
	}
	defer store.Close()

	// =================== Telegram ========================================
	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Error("Cannot connect to Telegram: %v", err)
		os.Exit(1)
	}
	logger.Info("Authorized as @%s", tg.Self.UserName)

	// =================== Components ========================================
	clock := clockwork.NewRealClock()

	renderer, err := dnsshop.NewRenderer(cfg, logger)
	if err != nil {
		logger.Error("Cannot create renderer: %v", err)
		os.Exit(1)
	}
	cleaner := services.NewDataCleaner(cfg.TargetPrice, cfg.BaseURL, logger)
	scraper := dnsshop.NewScraper(cfg, renderer, cleaner, logger)
	defer scraper.Close()

	quiet := services.NewQuietHours(store, services.Window{
		Start:    cfg.QuietStart,
		End:      cfg.QuietEnd,
		Location: cfg.Location,
	}, clock, logger)
	logger.Info("Quiet hours window: %s (%s)", quiet.Window(), cfg.Location)
	registry := services.NewSubscriberRegistry(store, logger)
	insights := services.NewInsightService(store, quiet, cfg.TargetPrice, cfg.CheckInterval, logger)
	notifier := bot.NewTelegramNotifier(tg, cfg.Location)
	dispatcher := services.NewDispatcher(notifier, cfg.SendDelay, cfg.MaxConcurrency, logger)

	deps := scheduler.Deps{
		Fetcher:     scraper,
		Reconciler:  services.NewReconciler(store, clock, logger),
		Gate:        quiet,
		Subscribers: registry,
		Dispatcher:  dispatcher,
	}
	if cfg.SnapshotCSVPath != "" {
		deps.Snapshots = storage.NewCSVWriter(cfg.SnapshotCSVPath, logger)
	}
	sched := scheduler.New(deps, scheduler.Config{Interval: cfg.CheckInterval, Backoff: cfg.RetryBackoff}, clock, logger)

	chatBot := bot.New(tg, bot.Deps{
		Checker:  sched,
		Registry: registry,
		Quiet:    quiet,
		Stats:    insights,
	}, cfg.TargetPrice, cfg.CheckInterval, logger)

	// =================== Run ========================================
	var g errgroup.Group
	g.Go(func() error {
		return sched.Run(ctx)
	})
	g.Go(func() error {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := tg.GetUpdatesChan(u)
		go func() {
			<-ctx.Done()
			tg.StopReceivingUpdates()
		}()
		chatBot.Run(ctx, updates)
		return nil
	})
	if cfg.HTTPAddr != "" {
		g.Go(func() error {
			// the bot keeps working without the status API
			if err := api.Serve(ctx, cfg.HTTPAddr, api.NewHandler(insights, sched, logger), logger); err != nil {
				logger.Error("Status API failed: %v", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("Stopped with error: %v", err)
	}

	// ==== Final stats ============================
	report, err := insights.Generate(context.Background())
	if err != nil {
		logger.Warn("Could not build final stats: %v", err)
		return
	}
	services.PrintStatsReport(os.Stdout, report)
}
