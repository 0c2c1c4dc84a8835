package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/magabrotheeeer/vpn-miniapp/internal/controller"
	"github.com/magabrotheeeer/vpn-miniapp/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-miniapp/internal/view"
)

// session — «страница» Mini-App одного пользователя: документ, контроллер
// и сообщение, в котором документ отображается.
type session struct {
	doc  *view.Document
	host *chatHost
	ctrl *controller.Controller

	started sync.Once

	mu       sync.Mutex
	msg      *tele.Message
	lastSeen time.Time
}

// start выполняет начальную загрузку ровно один раз. Параллельные вызовы
// ждут её завершения.
func (s *session) start(ctx context.Context, log *slog.Logger) {
	s.started.Do(func() {
		if err := s.ctrl.Start(ctx); err != nil {
			log.Debug("session start finished with error", sl.Err(err))
		}
	})
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// render отображает документ: правит ранее отправленное сообщение
// или отправляет новое, если его ещё нет или его нельзя изменить.
func (s *session) render(sender Sender) error {
	snap := s.doc.Snapshot()
	text := renderText(snap)
	markup := renderMarkup(snap)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.msg != nil {
		edited, err := sender.Edit(s.msg, text, markup, tele.ModeHTML)
		if err == nil {
			s.msg = edited
			return nil
		}
		if isNotModified(err) {
			return nil
		}
	}

	sent, err := sender.Send(s.host.chat, text, markup, tele.ModeHTML)
	if err != nil {
		return err
	}
	s.msg = sent
	return nil
}

func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
