package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"panelbot/internal/config"
	"panelbot/internal/domain"
	"panelbot/internal/feature/admin"
	"panelbot/internal/feature/user"
	"panelbot/internal/health"
	"panelbot/internal/httpapi"
	"panelbot/internal/logging"
	"panelbot/internal/store"
	"panelbot/internal/telegram"
)

const (
	storeOpenTimeout        = 10 * time.Second
	adminBootstrapTimeout   = 5 * time.Second
	httpShutdownTimeout     = 10 * time.Second
	telegramShutdownTimeout = 10 * time.Second
	storeCloseTimeout       = 5 * time.Second
)

var newMongoBackend = func(ctx context.Context, cfg config.Config) (store.Backend, error) {
	return store.NewMongoBackend(ctx, cfg)
}

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintln(out)
		fmt.Fprint(out, config.Describe())
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":         "startup",
		"store_backend": cfg.StoreBackend,
		"port":          cfg.Port,
	}).Info("configuration loaded")

	if cfg.UsesDefaultAdminToken() {
		logger.WithField("event", "default_admin_token").Warn("ADMIN_TOKEN is not set, the panel uses the default token")
	}

	openCtx, cancelOpen := context.WithTimeout(context.Background(), storeOpenTimeout)
	backend, err := openBackend(openCtx, cfg)
	if err != nil {
		cancelOpen()
		logger.WithError(err).Error("store backend error")
		fmt.Fprintf(os.Stderr, "store backend error: %v\n", err)
		os.Exit(1)
	}

	recordStore, err := store.Open(openCtx, backend, logger)
	cancelOpen()
	if err != nil {
		logger.WithError(err).Error("store load error")
		fmt.Fprintf(os.Stderr, "store load error: %v\n", err)
		os.Exit(1)
	}

	if err := bootstrapAdmins(recordStore, cfg, logger); err != nil {
		logger.WithError(err).Error("admin bootstrap error")
		fmt.Fprintf(os.Stderr, "admin bootstrap error: %v\n", err)
		os.Exit(1)
	}

	registrar := user.NewRegistrar(recordStore, logger)
	reporter := admin.NewReporter(recordStore, logger)
	statsProvider := store.NewStatsProvider(recordStore)

	router := httpapi.NewRouter(httpapi.Deps{
		AdminToken: cfg.AdminToken,
		Users:      registrar,
		Stats:      statsProvider,
		Health:     health.NewHandler(recordStore, logger),
		Logger:     logger,
	})
	httpServer := httpapi.NewServer(cfg.Port, router, logger)

	var tgClient *telegram.Client
	if cfg.BotEnabled() {
		tgClient, err = telegram.NewClient(cfg, logger, telegram.WithReporter(reporter))
		if err != nil {
			logger.WithError(err).Error("telegram client setup error")
			fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
			os.Exit(1)
		}
		logger.WithField("event", "telegram_ready").Info("telegram client initialized")
	} else {
		logger.WithField("event", "telegram_disabled").Warn("TELEGRAM_TOKEN missing, bot will not start")
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpServer.ListenAndServe()
	}()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})
	if tgClient != nil {
		go func() {
			tgClient.Start(telegramCtx)
			close(tgDone)
		}()
	} else {
		close(tgDone)
	}

	exitCode := 0
	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, shutting down")
	case err := <-httpErr:
		if err != nil {
			logger.WithError(err).Error("http server error")
			exitCode = 1
		}
	}

	httpCtx, cancelHTTP := context.WithTimeout(context.Background(), httpShutdownTimeout)
	if err := httpServer.Shutdown(httpCtx); err != nil {
		logger.WithError(err).Error("http shutdown error")
	}
	cancelHTTP()

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	closeCtx, cancelClose := context.WithTimeout(context.Background(), storeCloseTimeout)
	if err := recordStore.Close(closeCtx); err != nil {
		logger.WithError(err).Error("store close error")
	} else {
		logger.WithField("event", "store_closed").Info("store closed")
	}
	cancelClose()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// openBackend selects the persistence medium named by the configuration.
func openBackend(ctx context.Context, cfg config.Config) (store.Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		return newMongoBackend(ctx, cfg)
	case config.BackendFile, "":
		return store.NewFileBackend(cfg.DBFile)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}

func bootstrapAdmins(recordStore *store.Store, cfg config.Config, logger *logrus.Entry) error {
	if len(cfg.AdminIDs) == 0 {
		return nil
	}
	if recordStore == nil {
		return errors.New("store is required")
	}

	ids := make([]domain.UserID, 0, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		ids = append(ids, domain.UserID(id))
	}

	ctx, cancel := context.WithTimeout(context.Background(), adminBootstrapTimeout)
	defer cancel()

	_, err := admin.NewBootstrapper(recordStore, logger).EnsureAdmins(ctx, ids)
	return err
}
