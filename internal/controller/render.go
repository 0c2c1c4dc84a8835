package controller

import (
	"math"
	"strconv"

	"github.com/magabrotheeeer/vpn-miniapp/internal/models"
	"github.com/magabrotheeeer/vpn-miniapp/internal/view"
)

var statusIcons = map[string]string{
	models.StatusActive:   "✅",
	models.StatusExpired:  "⏰",
	models.StatusLimited:  "📊",
	models.StatusDisabled: "❌",
}

// StatusIcon возвращает значок статуса подписки; для неизвестного статуса — ❓.
func StatusIcon(status string) string {
	if icon, ok := statusIcons[status]; ok {
		return icon
	}
	return "❓"
}

// ModeBadge возвращает подпись режима скорости.
func ModeBadge(freeMode bool) string {
	if freeMode {
		return badgeFreeMode
	}
	return badgeFastMode
}

// UsagePercent — доля использованного трафика в процентах; 0 при отсутствии лимита.
func UsagePercent(usedGB, limitGB float64) float64 {
	if limitGB > 0 {
		return usedGB / limitGB * 100
	}
	return 0
}

// ProgressWidth форматирует ширину прогресс-бара, ограничивая её диапазоном [0, 100].
func ProgressWidth(percent float64) string {
	if math.IsNaN(percent) {
		percent = 0
	}
	percent = math.Max(0, math.Min(percent, 100))
	return strconv.FormatFloat(percent, 'f', -1, 64) + "%"
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *Controller) renderTariffs(t *models.Tariff) {
	c.view.SetText(view.BaseGB, formatNumber(t.Base.GB))
	c.view.SetText(view.BaseDays, strconv.Itoa(t.Base.Days))
	c.view.SetText(view.BasePrice, formatNumber(t.Base.Price))
	c.view.SetText(view.ExtraGB, formatNumber(t.Extra.GB))
	c.view.SetText(view.ExtraPrice, formatNumber(t.Extra.Price))
	if t.FreeMode != nil {
		c.view.SetText(view.FreeSpeed, formatNumber(t.FreeMode.SpeedMbps))
	}
}

func (c *Controller) showWelcomeScreen() {
	c.view.Hide(view.Loading)
	c.view.Show(view.WelcomeScreen)
	c.view.Hide(view.UserScreen)
}

func (c *Controller) showUserScreen(st *models.UserStatus) {
	c.view.Hide(view.Loading)
	c.view.Hide(view.WelcomeScreen)
	c.view.Show(view.UserScreen)

	c.view.SetText(view.UsernameDisplay, st.Username)
	c.view.SetText(view.StatusIcon, StatusIcon(st.Status))
	c.view.SetText(view.StatusText, st.Status)
	c.view.SetText(view.ModeBadge, ModeBadge(st.FreeMode))
	c.view.SetText(view.TariffType, st.TariffType)

	var limitGB float64
	if st.LimitGB != nil {
		limitGB = *st.LimitGB
	}
	c.view.SetText(view.UsedGB, strconv.FormatFloat(st.UsedGB, 'f', 2, 64))
	c.view.SetText(view.LimitGB, strconv.FormatFloat(limitGB, 'f', 0, 64))
	c.view.SetWidth(view.ProgressFill, ProgressWidth(UsagePercent(st.UsedGB, limitGB)))

	if st.ExpireDate != nil && !st.ExpireDate.IsZero() {
		c.view.SetText(view.ExpireDate, st.ExpireDate.In(c.opts.Location).Format("02.01.2006"))
	} else {
		c.view.SetText(view.ExpireDate, labelNoExpiry)
	}
}

func (c *Controller) showConfigModal(config string) {
	c.view.SetValue(view.ConfigText, config)
	c.view.Show(view.ConfigModal)
}
