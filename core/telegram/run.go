package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/cbrbot/core/config"
	"github.com/m3rciful/cbrbot/core/logger"
	tghelpers "github.com/m3rciful/cbrbot/core/telegram/helpers"
	tgsender "github.com/m3rciful/cbrbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

const stopHookTimeout = 10 * time.Second

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds a handler to a telebot endpoint: a command string or one of
// the tele.On* constants.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	// DispatcherOptions are used when Dispatcher is nil. Zero values fall
	// back to the sender section of Config.
	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// session is one bot run: the telebot instance plus the outbound dispatcher.
type session struct {
	opts RunOptions
	bot  *tele.Bot
	rt   Runtime
}

// RunTelegram runs the bot until ctx is done. Cancellation is a clean stop
// and returns nil; OnStop errors are returned.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := newSession(opts)
	if err != nil {
		return err
	}
	if err := s.start(ctx); err != nil {
		s.release()
		return err
	}
	runErr := s.serve(ctx)
	stopErr := s.stop()
	s.release()

	if stopErr != nil {
		return stopErr
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func newSession(opts RunOptions) (*session, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	started := time.Now()
	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(cfg.Telegram.HTTPRetries),
		OnError: logHandlerError,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logger.TG.LogAttrs(context.Background(), slog.LevelInfo, "mode",
		append(pollerAttrs(poller), slog.Duration("duration", logger.RoundMS(time.Since(started))))...)

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(dispatcherOptions(opts.DispatcherOptions, cfg.Sender))
	}
	if !opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(dispatcher)
	}
	return &session{
		opts: opts,
		bot:  bot,
		rt:   Runtime{Dispatcher: dispatcher, Registry: opts.Registry},
	}, nil
}

// dispatcherOptions fills worker, queue and retry settings from the config
// when the caller left both Workers and QueueSize unset.
func dispatcherOptions(o tgsender.Options, sc coreconfig.SenderConfig) tgsender.Options {
	if o.Workers == 0 && o.QueueSize == 0 {
		o.Workers, o.QueueSize, o.MaxRetries = sc.Workers, sc.QueueSize, sc.MaxRetries
	}
	return o
}

func (s *session) start(ctx context.Context) error {
	if _, polling := s.bot.Poller.(*tele.LongPoller); polling && !s.opts.DisableWebhookCleanup {
		// A webhook left over from an earlier deployment blocks getUpdates.
		if err := s.bot.RemoveWebhook(false); err != nil {
			logger.TG.Warn("failed to delete webhook", slog.String("event", "delete_webhook"), slog.String("err", err.Error()))
		} else {
			logger.TG.Info("webhook deleted", slog.String("event", "delete_webhook"))
		}
	}
	for _, mw := range s.opts.Middlewares {
		if mw.Use != nil {
			s.bot.Use(mw.Use)
		}
	}
	for _, r := range s.opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			s.bot.Handle(r.Endpoint, r.Handler)
		}
	}
	publishMenu(s.bot, s.opts.Registry)
	if s.opts.OnStart != nil {
		return s.opts.OnStart(ctx, s.rt)
	}
	return nil
}

// serve blocks until ctx is done or the poller stops by itself.
func (s *session) serve(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.bot.Start()
	}()
	select {
	case <-ctx.Done():
		s.bot.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

// stop runs OnStop with its own deadline, as the run context is usually
// cancelled by then.
func (s *session) stop() error {
	if s.opts.OnStop == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopHookTimeout)
	defer cancel()
	return s.opts.OnStop(ctx, s.rt)
}

// release drains the outbound queue and detaches it from the send helpers.
func (s *session) release() {
	s.rt.Dispatcher.Close()
	if !s.opts.DisableHelperDispatcher {
		tghelpers.SetDispatcher(nil)
	}
}

func logHandlerError(err error, c tele.Context) {
	attrs := []slog.Attr{slog.String("event", "tg.error"), slog.String("err", err.Error())}
	if c != nil && c.Chat() != nil {
		attrs = append(attrs, slog.Int64("chat_id", c.Chat().ID))
	}
	logger.TG.LogAttrs(context.Background(), slog.LevelError, "handler error", attrs...)
}
