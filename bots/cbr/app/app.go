// Package app wires the rate bot: dialog router, CBR client, state store,
// optional quote journal and the Telegram runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/cbrbot/bots/cbr/cbr"
	botconfig "github.com/m3rciful/cbrbot/bots/cbr/config"
	"github.com/m3rciful/cbrbot/bots/cbr/currency"
	"github.com/m3rciful/cbrbot/bots/cbr/dialog"
	"github.com/m3rciful/cbrbot/bots/cbr/journal"
	"github.com/m3rciful/cbrbot/core/bootstrap"
	coredatabase "github.com/m3rciful/cbrbot/core/database"
	"github.com/m3rciful/cbrbot/core/health"
	"github.com/m3rciful/cbrbot/core/logger"
	tg "github.com/m3rciful/cbrbot/core/telegram"
	"github.com/m3rciful/cbrbot/core/telegram/router"
	tgsender "github.com/m3rciful/cbrbot/core/telegram/sender"
	"github.com/m3rciful/cbrbot/core/telegram/state"
)

// Deps are the infrastructure pieces App runs on. Store and Rates are required.
type Deps struct {
	Store      state.Store
	CloseStore func() error
	Rates      dialog.RateSource
	// DB is nil when the quote journal is disabled.
	DB *sqlx.DB
}

// App is the assembled bot.
type App struct {
	cfg      *botconfig.Config
	deps     Deps
	dialog   *dialog.Router
	registry *tg.Registry
	health   *health.Server
}

// Bootstrap initializes logging, the optional database, the state store and
// the CBR client, then assembles the App.
func Bootstrap(cfg *botconfig.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	var dbCfg *coredatabase.Config
	if cfg.Database.Enabled {
		dbCfg = &cfg.Database.Config
	}
	res, err := bootstrap.Run(bootstrap.Options{Config: cfg.CoreConfig(), Database: dbCfg})
	if err != nil {
		return nil, err
	}

	store, closeStore, err := state.NewStore(cfg.State.Backend, cfg.RedisOptions())
	if err != nil {
		if res.DB != nil {
			_ = res.DB.Close()
		}
		return nil, fmt.Errorf("app: state store: %w", err)
	}

	rates := cbr.NewClient(cbr.Options{URL: cfg.CBR.URL, Timeout: cfg.CBRTimeout()})
	return New(cfg, Deps{Store: store, CloseStore: closeStore, Rates: rates, DB: res.DB}), nil
}

// New assembles the App from ready dependencies.
func New(cfg *botconfig.Config, deps Deps) *App {
	opts := dialog.Options{Store: deps.Store, Rates: deps.Rates}
	if deps.DB != nil {
		opts.Journal = journal.New(deps.DB)
	}
	a := &App{
		cfg:      cfg,
		deps:     deps,
		dialog:   dialog.NewRouter(opts),
		registry: tg.NewRegistry(),
	}
	a.register()
	return a
}

func (a *App) register() {
	cmds := map[string]string{
		dialog.CommandStart:     "начать работу с ботом",
		dialog.CommandHelp:      "справочная информация",
		dialog.CommandConverter: "режим конвертации валюты",
	}
	for _, cur := range currency.All() {
		cmds["/"+cur.Code.Lower()] = "курс " + cur.Genitive
	}
	for name, desc := range cmds {
		_ = a.registry.RegisterCommand(name, tg.Command{Handler: a.handle, Description: desc})
	}
	for _, key := range []string{dialog.CallbackConverter, dialog.CallbackConverterHelp, dialog.CallbackHelp} {
		_ = a.registry.RegisterCallback(key, a.handle)
	}
	// Converter mode is tracked by the dialog router alone, so every route
	// ends in the same handler.
	a.registry.SetTextFallback(a.handle)
}

// Registry exposes the command and callback registry.
func (a *App) Registry() *tg.Registry { return a.registry }

// TelegramRunOptions builds the runtime options for the Telegram bot.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()
	if core == nil {
		return tg.RunOptions{}, errors.New("app: missing core config")
	}

	routes := router.CommandRoutes(a.registry)
	routes = append(routes, router.TextRoutes(a.registry, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))

	return tg.RunOptions{
		Config:   core,
		Registry: a.registry,
		DispatcherOptions: tgsender.Options{
			Workers:    core.Sender.Workers,
			QueueSize:  core.Sender.QueueSize,
			MaxRetries: core.Sender.MaxRetries,
			OnFailure:  deliveryFailed,
		},
		Middlewares: tg.DefaultMiddlewares(core, a.rateLimited),
		Routes:      routes,
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

// HealthChecks reports the dependencies probed by /healthz.
func (a *App) HealthChecks() map[string]health.Check {
	checks := map[string]health.Check{
		"state": a.deps.Store.Ping,
	}
	if a.deps.DB != nil {
		checks["database"] = a.deps.DB.PingContext
	}
	return checks
}

func (a *App) start(context.Context, tg.Runtime) error {
	if addr := a.cfg.Metrics.Listen; addr != "" {
		a.health = health.NewServer(addr, a.HealthChecks())
		a.health.Start()
	}
	return nil
}

func (a *App) stop(ctx context.Context, _ tg.Runtime) error {
	var errs []error
	if a.health != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		errs = append(errs, a.health.Shutdown(shutdownCtx))
		cancel()
	}
	if a.deps.CloseStore != nil {
		errs = append(errs, a.deps.CloseStore())
	}
	if a.deps.DB != nil {
		errs = append(errs, a.deps.DB.Close())
	}
	err := errors.Join(errs...)
	if err != nil {
		logger.L.With("component", "app").Warn("shutdown incomplete",
			slog.String("event", "shutdown"),
			slog.String("err", err.Error()),
		)
	}
	return err
}
