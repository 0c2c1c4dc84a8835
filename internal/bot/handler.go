// Package bot — хост Mini-App в Telegram: каждому пользователю соответствует
// сессия с документом и контроллером, документ отображается одним сообщением
// с inline-кнопками, а нажатия кнопок вызывают действия контроллера.
package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/magabrotheeeer/vpn-miniapp/internal/controller"
	"github.com/magabrotheeeer/vpn-miniapp/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-miniapp/internal/view"
)

// Options — настройки сессий.
type Options struct {
	NotifyFor      time.Duration
	LockTTL        time.Duration
	ConfirmTimeout time.Duration
}

// Deps — общие для всех сессий зависимости контроллера.
type Deps struct {
	Backend controller.Backend
	Tariffs controller.TariffSource
	Locker  controller.Locker
	Metrics controller.ActionObserver
}

// Handler обработчики бота
type Handler struct {
	ctx    context.Context
	log    *slog.Logger
	sender Sender
	opts   Options
	deps   Deps
	now    func() time.Time

	mu       sync.Mutex
	sessions map[int64]*session
}

// New создаёт handler. ctx ограничивает время жизни всех запросов к API.
func New(ctx context.Context, log *slog.Logger, sender Sender, opts Options, deps Deps) *Handler {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 2 * time.Minute
	}
	return &Handler{
		ctx:      ctx,
		log:      log,
		sender:   sender,
		opts:     opts,
		deps:     deps,
		now:      time.Now,
		sessions: make(map[int64]*session),
	}
}

// Register регистрирует все обработчики
func (h *Handler) Register(b *tele.Bot) {
	b.Handle("/start", h.HandleStart)

	b.Handle(&tele.Btn{Unique: btnCreate}, h.action(actionCreate))
	b.Handle(&tele.Btn{Unique: btnConfig}, h.action(actionGetConfig))
	b.Handle(&tele.Btn{Unique: btnBuyExtra}, h.action(actionBuyExtra))
	b.Handle(&tele.Btn{Unique: btnFreeMode}, h.action(actionFreeMode))
	b.Handle(&tele.Btn{Unique: btnRefresh}, h.action(actionRefresh))
	b.Handle(&tele.Btn{Unique: btnCopy}, h.HandleCopy)
	b.Handle(&tele.Btn{Unique: btnClose}, h.HandleClose)
	b.Handle(&tele.Btn{Unique: btnConfirmYes}, h.HandleConfirm(true))
	b.Handle(&tele.Btn{Unique: btnConfirmNo}, h.HandleConfirm(false))
}

// HandleStart открывает Mini-App заново: новая сессия, загрузка тарифов и статуса.
// Ожидающий вопрос прежней сессии считается отклонённым.
func (h *Handler) HandleStart(c tele.Context) error {
	id := userID(c)
	s := h.newSession(c)

	h.mu.Lock()
	old := h.sessions[id]
	if id != 0 {
		h.sessions[id] = s
	}
	h.mu.Unlock()

	if old != nil {
		old.host.answer(false)
	}

	s.start(h.ctx, h.log.With(sl.UserID(id)))
	return s.render(h.sender)
}

// action оборачивает действие контроллера в обработчик кнопки.
func (h *Handler) action(run func(*controller.Controller, context.Context) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		const op = "bot.action"
		_ = c.Respond()

		s := h.session(c)
		if err := run(s.ctrl, h.ctx); err != nil {
			h.log.Debug("action finished with error", slog.String("op", op), sl.UserID(userID(c)), sl.Err(err))
		}
		return s.render(h.sender)
	}
}

// HandleCopy копирует конфигурацию.
func (h *Handler) HandleCopy(c tele.Context) error {
	_ = c.Respond()
	s := h.session(c)
	s.ctrl.CopyConfig(h.ctx)
	return s.render(h.sender)
}

// HandleClose закрывает окно конфигурации.
func (h *Handler) HandleClose(c tele.Context) error {
	_ = c.Respond()
	s := h.session(c)
	s.ctrl.ClickModal(view.ConfigModal)
	return s.render(h.sender)
}

// HandleConfirm передаёт ответ на вопрос подтверждения ожидающему действию.
func (h *Handler) HandleConfirm(ok bool) tele.HandlerFunc {
	return func(c tele.Context) error {
		h.mu.Lock()
		s, found := h.sessions[userID(c)]
		h.mu.Unlock()

		if !found || !s.host.answer(ok) {
			return c.Respond(&tele.CallbackResponse{Text: "Вопрос уже неактуален"})
		}
		return c.Respond()
	}
}

// Cleanup удаляет сессии, неактивные дольше maxIdle.
func (h *Handler) Cleanup(maxIdle time.Duration) int {
	now := h.now()
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for id, s := range h.sessions {
		if s.idleSince(now) > maxIdle {
			delete(h.sessions, id)
			removed++
		}
	}
	return removed
}

// session возвращает сессию пользователя, открывая её при первом обращении
// (например, после перезапуска бота).
func (h *Handler) session(c tele.Context) *session {
	id := userID(c)

	h.mu.Lock()
	s, ok := h.sessions[id]
	if !ok {
		s = h.newSession(c)
		if id != 0 {
			h.sessions[id] = s
		}
	}
	h.mu.Unlock()

	s.touch(h.now())
	s.start(h.ctx, h.log.With(sl.UserID(id)))
	return s
}

// newSession собирает сессию без обращений к API.
func (h *Handler) newSession(c tele.Context) *session {
	id := userID(c)
	log := h.log.With(sl.UserID(id))

	var chat tele.Recipient = c.Chat()
	if c.Chat() == nil {
		chat = c.Sender()
	}

	doc := view.NewDocument()
	host := newChatHost(h.sender, chat, log, h.opts.ConfirmTimeout)
	return &session{
		doc:  doc,
		host: host,
		ctrl: controller.New(controller.Options{
			UserID:    id,
			NotifyFor: h.opts.NotifyFor,
			LockTTL:   h.opts.LockTTL,
		}, controller.Deps{
			Host:    host,
			Backend: h.deps.Backend,
			Tariffs: h.deps.Tariffs,
			View:    doc,
			Locker:  h.deps.Locker,
			Metrics: h.deps.Metrics,
			Log:     h.log,
		}),
		lastSeen: h.now(),
	}
}

func userID(c tele.Context) int64 {
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}
