package bot

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/magabrotheeeer/vpn-miniapp/internal/view"
)

// Уникальные идентификаторы кнопок.
const (
	btnCreate     = "create"
	btnConfig     = "config"
	btnBuyExtra   = "buy_extra"
	btnFreeMode   = "free_mode"
	btnCopy       = "copy"
	btnClose      = "close"
	btnRefresh    = "refresh"
	btnConfirmYes = "confirm_yes"
	btnConfirmNo  = "confirm_no"
)

const progressCells = 10

// renderText превращает снимок документа в HTML-текст сообщения.
func renderText(s view.Snapshot) string {
	var b strings.Builder

	switch {
	case s.Visible(view.UserScreen):
		fmt.Fprintf(&b, "👤 <b>%s</b>\n", esc(s.Text(view.UsernameDisplay)))
		fmt.Fprintf(&b, "%s Статус: %s\n", s.Text(view.StatusIcon), esc(s.Text(view.StatusText)))
		b.WriteString(s.Text(view.ModeBadge) + "\n")
		if t := s.Text(view.TariffType); t != "" {
			fmt.Fprintf(&b, "📦 Тариф: %s\n", esc(t))
		}
		fmt.Fprintf(&b, "\n📊 Трафик: %s / %s ГБ\n", s.Text(view.UsedGB), s.Text(view.LimitGB))
		fmt.Fprintf(&b, "%s %s\n", progressBar(s[view.ProgressFill].Width), s[view.ProgressFill].Width)
		fmt.Fprintf(&b, "⏰ Действует до: %s\n", esc(s.Text(view.ExpireDate)))
	case s.Visible(view.WelcomeScreen):
		b.WriteString("🔐 <b>VPN</b>\n\n")
		fmt.Fprintf(&b, "Базовый тариф: %s ГБ на %s дней — %s₽\n",
			orDash(s.Text(view.BaseGB)), orDash(s.Text(view.BaseDays)), orDash(s.Text(view.BasePrice)))
		fmt.Fprintf(&b, "Дополнительно: %s ГБ — %s₽\n",
			orDash(s.Text(view.ExtraGB)), orDash(s.Text(view.ExtraPrice)))
		if speed := s.Text(view.FreeSpeed); speed != "" {
			fmt.Fprintf(&b, "Бесплатный режим: %s Мбит/с\n", speed)
		}
	default:
		b.WriteString("⏳ Загрузка...\n")
	}

	if s.Visible(view.ConfigModal) {
		b.WriteString("\n📥 <b>Конфигурация:</b>\n")
		fmt.Fprintf(&b, "<pre>%s</pre>\n", esc(s[view.ConfigText].Value))
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderMarkup возвращает клавиатуру для текущего экрана.
func renderMarkup(s view.Snapshot) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	var rows []tele.Row

	if s.Visible(view.ConfigModal) {
		rows = append(rows, m.Row(
			m.Data("📋 Копировать", btnCopy),
			m.Data("✖️ Закрыть", btnClose),
		))
	}

	switch {
	case s.Visible(view.UserScreen):
		rows = append(rows,
			m.Row(m.Data("📥 Получить конфигурацию", btnConfig)),
			m.Row(m.Data("➕ Купить ещё трафик", btnBuyExtra)),
			m.Row(m.Data("🐌 Бесплатный режим", btnFreeMode)),
			m.Row(m.Data("🔄 Обновить", btnRefresh)),
		)
	case s.Visible(view.WelcomeScreen):
		rows = append(rows, m.Row(m.Data("🛒 Купить VPN", btnCreate)))
	default:
		rows = append(rows, m.Row(m.Data("🔄 Обновить", btnRefresh)))
	}

	m.Inline(rows...)
	return m
}

// progressBar рисует полосу из progressCells клеток по ширине вида "42.5%".
func progressBar(width string) string {
	percent, err := strconv.ParseFloat(strings.TrimSuffix(width, "%"), 64)
	if err != nil {
		percent = 0
	}
	filled := int(math.Round(percent / 100 * progressCells))
	filled = max(0, min(filled, progressCells))
	return strings.Repeat("▓", filled) + strings.Repeat("░", progressCells-filled)
}

func esc(s string) string { return html.EscapeString(s) }

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
