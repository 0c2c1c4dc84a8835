// Package controller реализует контроллер представления Mini-App: загружает
// тарифы и статус пользователя из API, выбирает экран (приветствие или экран
// пользователя) и выполняет действия по нажатию кнопок.
//
// Контроллер не знает, как именно отображается интерфейс: он пишет в View
// (слой привязки полей) и общается с пользователем через Host.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/magabrotheeeer/vpn-miniapp/internal/cache"
	"github.com/magabrotheeeer/vpn-miniapp/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-miniapp/internal/models"
	"github.com/magabrotheeeer/vpn-miniapp/internal/view"
	"github.com/magabrotheeeer/vpn-miniapp/internal/vpnapi"
)

var (
	// ErrNoIdentity — хост не передал идентификатор пользователя.
	ErrNoIdentity = errors.New("user identifier is missing")
	// ErrBusy — предыдущее действие пользователя ещё выполняется.
	ErrBusy = errors.New("another action is in progress")
)

const (
	defaultNotifyFor = 3 * time.Second
	defaultLockTTL   = time.Minute
)

// Host — среда, в которой запущено Mini-App.
type Host interface {
	// Ready сообщает хосту, что приложение готово.
	Ready()
	// Expand разворачивает приложение на весь экран.
	Expand()
	// ShowAlert показывает блокирующее сообщение.
	ShowAlert(ctx context.Context, msg string)
	// Confirm запрашивает подтверждение; false — пользователь отказался.
	Confirm(ctx context.Context, msg string) bool
	// Notify показывает временное уведомление на время d.
	Notify(ctx context.Context, msg string, d time.Duration)
	// CopyText копирует текст в буфер обмена пользователя.
	CopyText(ctx context.Context, text string) error
}

// Backend — действия API, требующие идентификатора пользователя.
type Backend interface {
	Status(ctx context.Context, telegramID int64) (*models.UserStatus, error)
	Create(ctx context.Context, telegramID int64) (*models.CreateResult, error)
	Config(ctx context.Context, telegramID int64) (string, error)
	BuyExtra(ctx context.Context, telegramID int64) (*models.BuyExtraResult, error)
	FreeMode(ctx context.Context, telegramID int64) (*models.FreeModeResult, error)
}

// TariffSource отдаёт тарифы.
type TariffSource interface {
	Tariffs(ctx context.Context) (*models.Tariff, error)
}

// View — слой привязки полей представления.
type View interface {
	SetText(f view.Field, text string)
	SetValue(f view.Field, value string)
	Show(f view.Field)
	Hide(f view.Field)
	SetWidth(f view.Field, width string)
	Select(f view.Field)
	Text(f view.Field) string
	Value(f view.Field) string
}

// Locker не даёт выполнять два действия одного пользователя одновременно.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// ActionObserver учитывает результаты действий.
type ActionObserver interface {
	ObserveAction(action, result string)
}

// Options — внедряемая конфигурация контроллера.
type Options struct {
	// UserID — идентификатор пользователя из хоста; 0 — отсутствует.
	UserID int64
	// NotifyFor — время показа уведомления.
	NotifyFor time.Duration
	// LockTTL — максимальное время удержания блокировки действия.
	LockTTL time.Duration
	// Location — часовой пояс для даты окончания подписки.
	Location *time.Location
}

// Deps — зависимости контроллера. Locker и Metrics необязательны.
type Deps struct {
	Host    Host
	Backend Backend
	Tariffs TariffSource
	View    View
	Locker  Locker
	Metrics ActionObserver
	Log     *slog.Logger
}

// Controller — контроллер представления одного пользователя.
type Controller struct {
	opts     Options
	host     Host
	backend  Backend
	tariffs  TariffSource
	view     View
	locker   Locker
	metrics  ActionObserver
	log      *slog.Logger
	toastSeq atomic.Uint64
}

// New создаёт контроллер.
func New(opts Options, deps Deps) *Controller {
	if opts.NotifyFor <= 0 {
		opts.NotifyFor = defaultNotifyFor
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if deps.Locker == nil {
		deps.Locker = cache.NewMemory()
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopObserver{}
	}
	return &Controller{
		opts:    opts,
		host:    deps.Host,
		backend: deps.Backend,
		tariffs: deps.Tariffs,
		view:    deps.View,
		locker:  deps.Locker,
		metrics: deps.Metrics,
		log:     deps.Log.With(sl.UserID(opts.UserID)),
	}
}

// Start выполняет начальную загрузку: сигналы хосту, тарифы, статус.
// Без идентификатора пользователя показывает ошибку и дальше не идёт.
func (c *Controller) Start(ctx context.Context) error {
	const op = "controller.Start"
	log := c.log.With(slog.String("op", op))

	c.host.Ready()
	c.host.Expand()

	if c.opts.UserID == 0 {
		log.Error("host did not provide user identifier")
		c.showError(ctx, msgNoUserData)
		return ErrNoIdentity
	}

	c.LoadTariffs(ctx)
	return c.CheckStatus(ctx)
}

// LoadTariffs загружает тарифы в поля представления. Ошибка только логируется.
func (c *Controller) LoadTariffs(ctx context.Context) {
	const op = "controller.LoadTariffs"

	t, err := c.tariffs.Tariffs(ctx)
	if err != nil {
		c.log.Error("error loading tariffs", slog.String("op", op), sl.Err(err))
		return
	}
	c.renderTariffs(t)
}

// CheckStatus запрашивает статус и показывает экран приветствия (нет аккаунта)
// или экран пользователя. Без идентификатора запрос не отправляется.
func (c *Controller) CheckStatus(ctx context.Context) error {
	const op = "controller.CheckStatus"

	if c.opts.UserID == 0 {
		c.log.Error("status check without user identifier", slog.String("op", op))
		c.showError(ctx, msgNoUserData)
		return ErrNoIdentity
	}

	st, err := c.backend.Status(ctx, c.opts.UserID)
	if errors.Is(err, vpnapi.ErrNotFound) {
		c.showWelcomeScreen()
		return nil
	}
	if err != nil {
		c.log.Error("error checking user status", slog.String("op", op), sl.Err(err))
		c.showError(ctx, msgLoadFailed)
		return err
	}
	c.showUserScreen(st)
	return nil
}

func (c *Controller) showError(ctx context.Context, msg string) {
	c.host.ShowAlert(ctx, errorPrefix+msg)
}

type nopObserver struct{}

func (nopObserver) ObserveAction(string, string) {}
