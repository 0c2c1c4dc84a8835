package bot

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v3"
)

type userLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter ограничивает частоту нажатий для каждого пользователя отдельно.
type Limiter struct {
	mu       sync.Mutex
	limiters map[int64]*userLimiter
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// NewLimiter создаёт ограничитель: perSecond событий в секунду, не более burst подряд.
func NewLimiter(perSecond float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[int64]*userLimiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow сообщает, можно ли обработать событие пользователя id.
func (l *Limiter) Allow(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	ul, ok := l.limiters[id]
	if !ok {
		ul = &userLimiter{lim: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[id] = ul
	}
	ul.lastSeen = now
	return ul.lim.AllowN(now, 1)
}

// Cleanup забывает пользователей, неактивных дольше idle.
func (l *Limiter) Cleanup(idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, ul := range l.limiters {
		if now.Sub(ul.lastSeen) > idle {
			delete(l.limiters, id)
		}
	}
}

// RateLimitMiddleware отбрасывает обновления без отправителя,
// а также слишком частые нажатия и команды.
func RateLimitMiddleware(log *slog.Logger, l *Limiter) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			u := c.Sender()
			if u == nil {
				log.Warn("update without sender dropped")
				return nil
			}
			if l.Allow(u.ID) {
				return next(c)
			}
			log.Warn("too many requests", slog.Int64("telegram_id", u.ID))
			if c.Callback() != nil {
				return c.Respond(&tele.CallbackResponse{Text: "⏳ Слишком часто, попробуйте позже"})
			}
			return nil
		}
	}
}
