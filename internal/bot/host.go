package bot

import (
	"context"
	"html"
	"log/slog"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/magabrotheeeer/vpn-miniapp/internal/lib/sl"
)

// Sender — часть API бота, которой пользуется чат-хост. *tele.Bot её реализует.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// chatHost реализует controller.Host поверх чата Telegram.
type chatHost struct {
	sender         Sender
	chat           tele.Recipient
	log            *slog.Logger
	confirmTimeout time.Duration

	answers chan bool
	waiting atomic.Bool
}

func newChatHost(sender Sender, chat tele.Recipient, log *slog.Logger, confirmTimeout time.Duration) *chatHost {
	return &chatHost{
		sender:         sender,
		chat:           chat,
		log:            log,
		confirmTimeout: confirmTimeout,
		answers:        make(chan bool, 1),
	}
}

func (h *chatHost) Ready()  { h.log.Debug("mini-app session ready") }
func (h *chatHost) Expand() {}

// ShowAlert отправляет сообщение отдельным сообщением в чат.
func (h *chatHost) ShowAlert(_ context.Context, msg string) {
	if _, err := h.sender.Send(h.chat, msg); err != nil {
		h.log.Error("failed to send alert", sl.Err(err))
	}
}

// Confirm отправляет вопрос с кнопками «Да»/«Нет» и ждёт ответа.
// Истечение confirmTimeout или отмена ctx считаются отказом.
func (h *chatHost) Confirm(ctx context.Context, msg string) bool {
	select {
	case <-h.answers:
	default:
	}

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(
		markup.Data("✅ Да", btnConfirmYes),
		markup.Data("✖️ Нет", btnConfirmNo),
	))
	prompt, err := h.sender.Send(h.chat, msg, markup)
	if err != nil {
		h.log.Error("failed to send confirmation", sl.Err(err))
		return false
	}
	h.waiting.Store(true)
	defer func() {
		h.waiting.Store(false)
		if err := h.sender.Delete(prompt); err != nil {
			h.log.Warn("failed to delete confirmation", sl.Err(err))
		}
	}()

	timer := time.NewTimer(h.confirmTimeout)
	defer timer.Stop()

	select {
	case ok := <-h.answers:
		return ok
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// answer передаёт ответ на ожидающий вопрос. Возвращает false, если вопроса нет.
func (h *chatHost) answer(ok bool) bool {
	if !h.waiting.Load() {
		return false
	}
	select {
	case h.answers <- ok:
		return true
	default:
		return false
	}
}

// Notify отправляет уведомление и удаляет его через d.
func (h *chatHost) Notify(_ context.Context, msg string, d time.Duration) {
	sent, err := h.sender.Send(h.chat, msg)
	if err != nil {
		h.log.Error("failed to send notification", sl.Err(err))
		return
	}
	time.AfterFunc(d, func() {
		if err := h.sender.Delete(sent); err != nil {
			h.log.Debug("failed to delete notification", sl.Err(err))
		}
	})
}

// CopyText отправляет текст моноширинным блоком: в Telegram он копируется нажатием.
func (h *chatHost) CopyText(_ context.Context, text string) error {
	_, err := h.sender.Send(h.chat, "<code>"+html.EscapeString(text)+"</code>", tele.ModeHTML)
	return err
}
