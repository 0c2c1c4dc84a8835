package miniapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	tele "gopkg.in/telebot.v3"

	"github.com/magabrotheeeer/vpn-miniapp/internal/bot"
	"github.com/magabrotheeeer/vpn-miniapp/internal/cache"
	"github.com/magabrotheeeer/vpn-miniapp/internal/config"
	"github.com/magabrotheeeer/vpn-miniapp/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-miniapp/internal/metrics"
	"github.com/magabrotheeeer/vpn-miniapp/internal/services/tariff"
	"github.com/magabrotheeeer/vpn-miniapp/internal/vpnapi"
)

const (
	cleanupInterval = time.Minute
	limiterIdle     = 10 * time.Minute
	shutdownTimeout = 15 * time.Second
)

// store — хранилище кеша тарифов и блокировок: redis или память процесса.
type store interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

type App struct {
	server      *http.Server
	bot         *tele.Bot
	handler     *bot.Handler
	limiter     *bot.Limiter
	logger      *slog.Logger
	store       store
	sessionIdle time.Duration
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.miniapp.New"

	var st store
	if cfg.RedisEnabled() {
		cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		st = cacheRedis
	} else {
		logger.Warn("redis address is empty, using in-memory cache and locks")
		st = cache.NewMemory()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	api := vpnapi.NewClient(cfg.BaseURL, cfg.RequestTimeout, vpnapi.WithObserver(m))
	tariffs := tariff.NewService(api, st, cfg.TariffTTL, logger)

	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
		OnError: func(err error, c tele.Context) {
			attrs := []any{sl.Err(err)}
			if c != nil && c.Sender() != nil {
				attrs = append(attrs, sl.UserID(c.Sender().ID))
			}
			logger.Error("bot handler failed", attrs...)
		},
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	handler := bot.New(ctx, logger, b, bot.Options{
		NotifyFor:      cfg.NotifyFor,
		LockTTL:        cfg.LockTTL,
		ConfirmTimeout: cfg.ConfirmTimeout,
	}, bot.Deps{
		Backend: api,
		Tariffs: tariffs,
		Locker:  st,
		Metrics: m,
	})

	limiter := bot.NewLimiter(cfg.Rate, cfg.Burst)
	b.Use(bot.RateLimitMiddleware(logger, limiter))
	handler.Register(b)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, st, reg)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:      srv,
		bot:         b,
		handler:     handler,
		limiter:     limiter,
		logger:      logger,
		store:       st,
		sessionIdle: cfg.SessionIdle,
	}, nil
}

// Run запускает HTTP-сервер, опрос бота и очистку сессий. При отмене ctx
// или падении сервера останавливает всё и закрывает хранилище.
func (a *App) Run(ctx context.Context) error {
	const op = "app.miniapp.Run"
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("bot polling started", slog.String("username", a.bot.Me.Username))
		a.bot.Start()
		return nil
	})

	g.Go(func() error {
		a.cleanup(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down gracefully")
		a.bot.Stop()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(timeoutCtx)
	})

	err := g.Wait()
	if cerr := a.store.Close(); cerr != nil {
		a.logger.Warn("failed to close cache", sl.Err(cerr))
	}
	return err
}

// cleanup периодически забывает неактивные сессии и ограничители.
func (a *App) cleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.handler.Cleanup(a.sessionIdle); n > 0 {
				a.logger.Debug("idle sessions removed", slog.Int("count", n))
			}
			a.limiter.Cleanup(limiterIdle)
		}
	}
}
