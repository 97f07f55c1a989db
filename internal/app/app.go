package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"grider-status-alerts/internal/config"
	"grider-status-alerts/internal/dashboard"
	"grider-status-alerts/internal/feed"
	"grider-status-alerts/internal/logging"
	"grider-status-alerts/internal/notify"
	"grider-status-alerts/internal/scheduler"
	"grider-status-alerts/internal/service"
	"grider-status-alerts/internal/settings"
	"grider-status-alerts/internal/snapshot"
	"grider-status-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.Component(logger, "app")}
}

func (a *App) newFetcher() feed.StatusFetcher {
	return feed.NewHTTP(feed.Options{
		BaseURL:    a.Config.Feed.BaseURL,
		StatusPath: a.Config.Feed.StatusPath,
		Timeout:    a.Config.Feed.RequestTimeout,
		UserAgent:  a.Config.Feed.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() notify.Notifier {
	if !a.Config.Notify.Webhook.Enabled {
		return nil
	}
	cfg := a.Config.Notify.Webhook
	return notify.NewWebhook(notify.WebhookOptions{
		URL:     cfg.URL,
		Channel: cfg.Channel,
		Token:   cfg.Token,
		Timeout: cfg.RequestTimeout,
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// newSettingsManager picks the configured settings backend. The database
// backend requires an open store; with none available it falls back to the
// file path so the relay still runs.
func (a *App) newSettingsManager(store *storage.Store) *settings.Manager {
	var backing settings.Store
	if a.Config.Settings.Source == config.SettingsSourceDatabase && store != nil {
		backing = settings.NewKVStore(store)
	} else {
		backing = settings.NewFileStore(a.Config.Settings.Path)
	}
	return settings.NewManager(backing, a.Config.Settings.AutosaveDelay, a.Logger)
}

// newToastQueue builds the transient notification queue with a logging sink.
func (a *App) newToastQueue() *notify.Queue {
	queue := notify.NewQueue(a.Config.Notify.ToastLifetime, a.Logger)
	logger := a.Logger.With().Str("component", "toast").Logger()
	queue.SetSink(func(msg notify.Message) {
		event := logger.Info()
		if msg.Severity == notify.SeverityError {
			event = logger.Warn()
		}
		event.Str("severity", string(msg.Severity)).Msg(msg.Text)
	})
	return queue
}

// Run executes the long-running relay service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; sample persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	toasts := a.newToastQueue()
	defer toasts.Close()

	settingsMgr := a.newSettingsManager(store)
	settingsMgr.SetSaveErrorSink(func(err error) {
		toasts.Post("설정 저장에 실패했습니다: "+err.Error(), notify.SeverityError)
	})
	settingsMgr.Load(ctx)
	defer func() {
		teardownCtx, teardownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer teardownCancel()
		if err := settingsMgr.SaveOnTeardown(teardownCtx); err != nil {
			a.Logger.Error().Err(err).Msg("teardown settings save failed")
		}
	}()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	view := dashboard.NewView()
	snapStore := snapshot.NewStore()
	notifier := a.newNotifier()

	var sampleStore storage.SampleStore
	if store != nil {
		sampleStore = store
	}

	svc := service.New(a.Config, sched, a.newFetcher(), snapStore, settingsMgr, sampleStore, notifier, toasts, view, a.Logger)

	a.Logger.Info().Msg("starting status relay service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("status relay service stopped")
	return nil
}

// ExportOptions hold parameters for exporting historical samples.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// SettingsSetOptions carry CLI overrides for the settings set command.
type SettingsSetOptions struct {
	Template       *string
	SendOnChange   *bool
	SendOnSchedule *bool
	SendOnAlert    *bool
	CustomMessage  *string
}
