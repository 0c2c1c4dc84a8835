package controller

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/vpn-miniapp/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-miniapp/internal/metrics"
	"github.com/magabrotheeeer/vpn-miniapp/internal/view"
	"github.com/magabrotheeeer/vpn-miniapp/internal/vpnapi"
)

// action описывает общий шаблон действия: подтверждение (если задано),
// сообщение о процессе, запрос и показ ошибки с текстом сервера или запасным текстом.
type action struct {
	name     string
	confirm  string
	progress string
	fallback string
	// serverMessage — показывать ли пользователю поле error из ответа API.
	serverMessage bool
	run           func(ctx context.Context, telegramID int64) error
}

// CreateKey создаёт VPN-ключ, показывает конфигурацию и обновляет экран.
func (c *Controller) CreateKey(ctx context.Context) error {
	return c.perform(ctx, action{
		name:          ActionCreate,
		progress:      progressCreate,
		fallback:      fallbackCreate,
		serverMessage: true,
		run: func(ctx context.Context, id int64) error {
			res, err := c.backend.Create(ctx, id)
			if err != nil {
				return err
			}
			c.showConfigModal(res.Config)
			_ = c.CheckStatus(ctx)
			c.notify(ctx, toastCreated)
			return nil
		},
	})
}

// GetConfig показывает текущую конфигурацию подключения.
func (c *Controller) GetConfig(ctx context.Context) error {
	return c.perform(ctx, action{
		name:     ActionConfig,
		progress: progressConfig,
		fallback: fallbackConfig,
		run: func(ctx context.Context, id int64) error {
			config, err := c.backend.Config(ctx, id)
			if err != nil {
				return err
			}
			c.showConfigModal(config)
			return nil
		},
	})
}

// BuyExtra после подтверждения покупает дополнительный трафик и обновляет экран.
func (c *Controller) BuyExtra(ctx context.Context) error {
	return c.perform(ctx, action{
		name:          ActionBuyExtra,
		confirm:       confirmBuyExtra,
		progress:      progressBuyExtra,
		fallback:      fallbackBuyExtra,
		serverMessage: true,
		run: func(ctx context.Context, id int64) error {
			if _, err := c.backend.BuyExtra(ctx, id); err != nil {
				return err
			}
			c.notify(ctx, toastBuyExtra)
			_ = c.CheckStatus(ctx)
			return nil
		},
	})
}

// EnableFreeMode после подтверждения включает бесплатный режим,
// показывает новую конфигурацию и обновляет экран.
func (c *Controller) EnableFreeMode(ctx context.Context) error {
	return c.perform(ctx, action{
		name:          ActionFreeMode,
		confirm:       confirmFreeMode,
		progress:      progressFreeMode,
		fallback:      fallbackFreeMode,
		serverMessage: true,
		run: func(ctx context.Context, id int64) error {
			res, err := c.backend.FreeMode(ctx, id)
			if err != nil {
				return err
			}
			c.showConfigModal(res.Config)
			c.notify(ctx, toastFreeMode)
			_ = c.CheckStatus(ctx)
			return nil
		},
	})
}

// CopyConfig выделяет конфигурацию и копирует её через хост.
// Уведомление об успехе показывается всегда: результат копирования не проверяется.
func (c *Controller) CopyConfig(ctx context.Context) {
	const op = "controller.CopyConfig"

	c.view.Select(view.ConfigText)
	if err := c.host.CopyText(ctx, c.view.Value(view.ConfigText)); err != nil {
		c.log.Warn("copy failed", slog.String("op", op), sl.Err(err))
	}
	c.notify(ctx, toastCopied)
}

// CloseModal закрывает окно конфигурации.
func (c *Controller) CloseModal() {
	c.view.Hide(view.ConfigModal)
}

// ClickModal обрабатывает клик внутри окна конфигурации: окно закрывается
// только при клике по подложке, а не по его содержимому.
func (c *Controller) ClickModal(target view.Field) {
	if target == view.ConfigModal {
		c.CloseModal()
	}
}

func (c *Controller) perform(ctx context.Context, a action) error {
	op := "controller." + a.name
	log := c.log.With(slog.String("op", op))

	if c.opts.UserID == 0 {
		log.Error("action without user identifier")
		c.showError(ctx, msgNoUserData)
		c.metrics.ObserveAction(a.name, metrics.ResultError)
		return ErrNoIdentity
	}

	if a.confirm != "" && !c.host.Confirm(ctx, a.confirm) {
		log.Info("action declined")
		c.metrics.ObserveAction(a.name, metrics.ResultDeclined)
		return nil
	}

	key := lockKey(c.opts.UserID)
	locked, err := c.locker.TryLock(ctx, key, c.opts.LockTTL)
	if err != nil {
		// без хранилища блокировок действие всё равно выполняется
		log.Warn("failed to acquire action lock", sl.Err(err))
	} else if !locked {
		log.Info("action dropped: previous one is in flight")
		c.host.ShowAlert(ctx, msgBusy)
		c.metrics.ObserveAction(a.name, metrics.ResultBusy)
		return ErrBusy
	}
	if locked {
		defer func() {
			if err := c.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
				log.Warn("failed to release action lock", sl.Err(err))
			}
		}()
	}

	c.host.ShowAlert(ctx, a.progress)

	if err := a.run(ctx, c.opts.UserID); err != nil {
		log.Error("action failed", sl.Err(err))
		c.showError(ctx, c.errorMessage(a, err))
		c.metrics.ObserveAction(a.name, metrics.ResultError)
		return err
	}

	log.Info("action succeeded")
	c.metrics.ObserveAction(a.name, metrics.ResultOK)
	return nil
}

func (c *Controller) errorMessage(a action, err error) string {
	if a.serverMessage {
		if msg, ok := vpnapi.ServerMessage(err); ok {
			return msg
		}
	}
	return a.fallback
}

// notify показывает уведомление и скрывает его через NotifyFor,
// если за это время не было показано более новое.
func (c *Controller) notify(ctx context.Context, msg string) {
	seq := c.toastSeq.Add(1)
	c.view.SetText(view.Notification, msg)
	c.view.Show(view.Notification)
	c.host.Notify(ctx, msg, c.opts.NotifyFor)

	time.AfterFunc(c.opts.NotifyFor, func() {
		if c.toastSeq.Load() == seq {
			c.view.Hide(view.Notification)
		}
	})
}

func lockKey(telegramID int64) string {
	return "miniapp:lock:" + strconv.FormatInt(telegramID, 10)
}
